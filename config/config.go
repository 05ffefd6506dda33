package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Account is one brokerage account with its upstream credentials.
type Account struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Email         string `yaml:"email"`
	APIKey        string `yaml:"api_key"`
	APISecret     string `yaml:"api_secret"`
	LicenseNumber string `yaml:"license_number"`
	// EnvSuffix names the PF_API_KEY_<suffix> variables; defaults to the upper-cased id.
	EnvSuffix string `yaml:"env_suffix"`
}

// Config holds all application configuration loaded from environment variables
// and the optional accounts file.
type Config struct {
	ListenAddr string
	LogLevel   string
	DataDir    string

	StoreDriver      string
	SQLitePath       string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	ConnectRetries   int

	PFAPIBase          string
	PFPortalBase       string
	UpstreamTimeout    time.Duration
	PublishSettleDelay time.Duration
	TokenTTL           time.Duration

	S3Bucket         string
	AWSRegion        string
	CloudfrontDomain string

	ProxyHost     string
	ProxyPort     int
	ProxyCountry  string
	ProxyUsername string
	ProxyPassword string

	ScraperPerPage     int
	ScraperRateLimitMs int
	ImportRowDelayMs   int
	UploadConcurrency  int

	AccountsFile string
	Accounts     []Account
}

// defaultAccounts are the two brokerages the back office serves. Keys and
// secrets always come from the environment or the accounts file.
var defaultAccounts = []Account{
	{ID: "galahome", Name: "Gala Home", Email: "info@galahome.ae", LicenseNumber: "CN-1100636"},
	{ID: "vamrealty", Name: "VAM Realty", Email: "admin@realtyvam.com", EnvSuffix: "VAM"},
}

// Load reads the .env file and returns a populated Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		DataDir:    dataDir,

		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
		SQLitePath:       getEnv("SQLITE_PATH", filepath.Join(dataDir, "backoffice.db")),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "backoffice"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "backoffice"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		ConnectRetries:   getEnvInt("STORE_CONNECT_RETRIES", 5),

		PFAPIBase:          getEnv("PF_API_BASE", "https://atlas.propertyfinder.com"),
		PFPortalBase:       getEnv("PF_PORTAL_BASE", "https://www.propertyfinder.ae/en/property"),
		UpstreamTimeout:    getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		PublishSettleDelay: getEnvDuration("PUBLISH_SETTLE_DELAY", 3*time.Second),
		TokenTTL:           getEnvDuration("TOKEN_TTL", 30*time.Minute),

		S3Bucket:         getEnv("S3_BUCKET_NAME", "gala-home-property-images"),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		CloudfrontDomain: getEnv("CLOUDFRONT_DOMAIN", "d1g4mqni3902xv.cloudfront.net"),

		ProxyHost:     getEnv("PROXY_HOST", "pr.oxylabs.io"),
		ProxyPort:     getEnvInt("PROXY_PORT", 7777),
		ProxyCountry:  getEnv("PROXY_COUNTRY", "ae"),
		ProxyUsername: getEnv("OXYLABS_USERNAME", ""),
		ProxyPassword: getEnv("OXYLABS_PASSWORD", ""),

		ScraperPerPage:     getEnvInt("SCRAPER_PER_PAGE", 25),
		ScraperRateLimitMs: getEnvInt("SCRAPER_RATE_LIMIT_MS", 0),
		ImportRowDelayMs:   getEnvInt("IMPORT_ROW_DELAY_MS", 0),
		UploadConcurrency:  getEnvInt("UPLOAD_CONCURRENCY", 3),

		AccountsFile: getEnv("ACCOUNTS_FILE", ""),
	}

	accounts, err := loadAccounts(cfg.AccountsFile)
	if err != nil {
		return nil, err
	}
	cfg.Accounts = accounts

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.ScraperPerPage < 1 {
		return fmt.Errorf("config: SCRAPER_PER_PAGE must be positive, got %d", c.ScraperPerPage)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("config: UPSTREAM_TIMEOUT must be positive")
	}
	return nil
}

// Account returns the configured account with the given id.
func (c *Config) Account(id string) (Account, bool) {
	for _, a := range c.Accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// DatabaseURL returns the connection URL of the selected store driver.
func (c *Config) DatabaseURL() string {
	if c.StoreDriver == DriverPostgres {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
			Host:     c.PostgresHost + ":" + c.PostgresPort,
			Path:     "/" + c.PostgresDB,
			RawQuery: "sslmode=" + url.QueryEscape(c.PostgresSSLMode),
		}
		return u.String()
	}
	return c.SQLitePath
}

// ProxyURL returns the residential proxy endpoint, with credentials when set.
func (c *Config) ProxyURL() string {
	u := url.URL{Scheme: "http", Host: fmt.Sprintf("%s:%d", c.ProxyHost, c.ProxyPort)}
	if c.ProxyUsername != "" {
		user := fmt.Sprintf("customer-%s-cc-%s", c.ProxyUsername, c.ProxyCountry)
		u.User = url.UserPassword(user, c.ProxyPassword)
	}
	return u.String()
}

// loadAccounts merges the default accounts, the optional YAML file and the
// per-account env overrides, in that order.
func loadAccounts(path string) ([]Account, error) {
	accounts := make([]Account, len(defaultAccounts))
	copy(accounts, defaultAccounts)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read accounts file %q: %w", path, err)
		}
		var file struct {
			Accounts []Account `yaml:"accounts"`
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("config: parse accounts file %q: %w", path, err)
		}
		for _, a := range file.Accounts {
			if a.ID == "" {
				return nil, fmt.Errorf("config: accounts file %q: account without id", path)
			}
			accounts = mergeAccount(accounts, a)
		}
	}

	for i := range accounts {
		suffix := accounts[i].EnvSuffix
		if suffix == "" {
			suffix = envSuffix(accounts[i].ID)
		}
		accounts[i].APIKey = getEnv("PF_API_KEY_"+suffix, accounts[i].APIKey)
		accounts[i].APISecret = getEnv("PF_API_SECRET_"+suffix, accounts[i].APISecret)
		accounts[i].LicenseNumber = getEnv("PF_LICENSE_"+suffix, accounts[i].LicenseNumber)
	}
	return accounts, nil
}

func mergeAccount(accounts []Account, a Account) []Account {
	for i := range accounts {
		if accounts[i].ID != a.ID {
			continue
		}
		if a.Name != "" {
			accounts[i].Name = a.Name
		}
		if a.Email != "" {
			accounts[i].Email = a.Email
		}
		if a.APIKey != "" {
			accounts[i].APIKey = a.APIKey
		}
		if a.APISecret != "" {
			accounts[i].APISecret = a.APISecret
		}
		if a.LicenseNumber != "" {
			accounts[i].LicenseNumber = a.LicenseNumber
		}
		if a.EnvSuffix != "" {
			accounts[i].EnvSuffix = a.EnvSuffix
		}
		return accounts
	}
	return append(accounts, a)
}

func envSuffix(id string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(id))
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}
