package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATA_DIR", "/var/lib/backoffice")
	t.Setenv("PF_API_KEY_GALAHOME", "key-g")
	t.Setenv("PF_API_SECRET_GALAHOME", "secret-g")
	t.Setenv("PF_API_KEY_VAM", "key-v")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, DriverSQLite, cfg.StoreDriver)
	require.Equal(t, filepath.Join("/var/lib/backoffice", "backoffice.db"), cfg.SQLitePath)
	require.Equal(t, 30*time.Second, cfg.UpstreamTimeout)
	require.Equal(t, 25, cfg.ScraperPerPage)

	gala, ok := cfg.Account("galahome")
	require.True(t, ok)
	require.Equal(t, "key-g", gala.APIKey)
	require.Equal(t, "secret-g", gala.APISecret)
	require.Equal(t, "CN-1100636", gala.LicenseNumber)

	vam, ok := cfg.Account("vamrealty")
	require.True(t, ok)
	require.Equal(t, "key-v", vam.APIKey)
}

func TestLoadAccountsFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
accounts:
  - id: galahome
    license_number: CN-9
  - id: harbour-homes
    name: Harbour Homes
    api_key: hk
    api_secret: hs
`), 0o600))
	t.Setenv("ACCOUNTS_FILE", path)
	t.Setenv("PF_API_SECRET_HARBOUR_HOMES", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Accounts, 3)

	gala, _ := cfg.Account("galahome")
	require.Equal(t, "CN-9", gala.LicenseNumber)

	harbour, ok := cfg.Account("harbour-homes")
	require.True(t, ok)
	require.Equal(t, "hk", harbour.APIKey)
	require.Equal(t, "from-env", harbour.APISecret)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load()
	require.ErrorContains(t, err, "unknown STORE_DRIVER")
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{
		StoreDriver:      DriverPostgres,
		PostgresHost:     "db",
		PostgresPort:     "5432",
		PostgresUser:     "bo",
		PostgresPassword: "p@ss",
		PostgresDB:       "listings",
		PostgresSSLMode:  "disable",
	}
	require.Equal(t, "postgres://bo:p%40ss@db:5432/listings?sslmode=disable", cfg.DatabaseURL())

	cfg.StoreDriver = DriverSQLite
	cfg.SQLitePath = "/tmp/x.db"
	require.Equal(t, "/tmp/x.db", cfg.DatabaseURL())
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("X_DELAY", "1500")
	require.Equal(t, 1500*time.Millisecond, getEnvDuration("X_DELAY", time.Second))
	t.Setenv("X_DELAY", "2s")
	require.Equal(t, 2*time.Second, getEnvDuration("X_DELAY", time.Second))
	t.Setenv("X_DELAY", "soon")
	require.Equal(t, time.Second, getEnvDuration("X_DELAY", time.Second))
}
