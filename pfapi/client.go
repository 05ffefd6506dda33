// Package pfapi is the client of the Property Finder listings API.
package pfapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"pf-backoffice/metrics"
	"pf-backoffice/models"
	"pf-backoffice/utils"
)

// tokenSkew is subtracted from a token's expiry so it is never used at the edge.
const tokenSkew = time.Minute

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// TokenTTL is assumed when the auth response carries no expiresIn.
	TokenTTL time.Duration
	// SettleDelay is waited after publishing before reading the live URL back.
	SettleDelay time.Duration
	Logger      *utils.Logger
}

// Client talks to the listings API. Calls are never retried.
type Client struct {
	http        *resty.Client
	logger      *utils.Logger
	tokenTTL    time.Duration
	settleDelay time.Duration
	now         func() time.Time

	mu     sync.Mutex
	tokens map[string]Token
}

// Token is a bearer token and the moment it stops being usable.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// New creates a Client for opts.BaseURL.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetTimeout(opts.Timeout)
	client.SetHeader("Accept", "application/json")

	return &Client{
		http:        client,
		logger:      opts.Logger,
		tokenTTL:    opts.TokenTTL,
		settleDelay: opts.SettleDelay,
		now:         time.Now,
		tokens:      make(map[string]Token),
	}
}

type authRequest struct {
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

type authResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// Authenticate exchanges an API key and secret for a bearer token.
func (c *Client) Authenticate(ctx context.Context, apiKey, apiSecret string) (Token, error) {
	start := c.now()
	var out authResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(authRequest{APIKey: apiKey, APISecret: apiSecret}).
		SetResult(&out).
		Post("/v1/auth/token")
	if err != nil {
		observe("auth", "transport", start)
		return Token{}, &models.TransportError{Op: "auth", Err: err}
	}
	if res.IsError() {
		observe("auth", "rejected", start)
		return Token{}, &models.AuthError{Status: res.StatusCode()}
	}
	observe("auth", "ok", start)

	if out.AccessToken == "" {
		return Token{}, &models.UpstreamError{Op: "auth", Status: res.StatusCode(), Message: "response carried no access token"}
	}

	ttl := c.tokenTTL
	if out.ExpiresIn > 0 {
		ttl = time.Duration(out.ExpiresIn) * time.Second
	}
	return Token{AccessToken: out.AccessToken, ExpiresAt: c.now().Add(ttl)}, nil
}

// token returns a cached token for the credential or fetches a new one.
func (c *Client) token(ctx context.Context, cred models.Credential) (string, error) {
	if cred.APIKey == "" || cred.APISecret == "" {
		return "", models.NewValidationError("credentials", "API credentials not configured")
	}

	c.mu.Lock()
	tok, ok := c.tokens[cred.APIKey]
	c.mu.Unlock()
	if ok && c.now().Before(tok.ExpiresAt.Add(-tokenSkew)) {
		return tok.AccessToken, nil
	}

	tok, err := c.Authenticate(ctx, cred.APIKey, cred.APISecret)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.tokens[cred.APIKey] = tok
	c.mu.Unlock()
	c.logger.Debug("[pfapi] new token for key %s…, valid until %s", mask(cred.APIKey), tok.ExpiresAt.Format(time.RFC3339))
	return tok.AccessToken, nil
}

// Invalidate drops the cached token of apiKey.
func (c *Client) Invalidate(apiKey string) {
	c.mu.Lock()
	delete(c.tokens, apiKey)
	c.mu.Unlock()
}

// call runs an authenticated request. Non-2xx answers are returned as
// *models.UpstreamError together with the response so callers can special-case
// statuses.
func (c *Client) call(ctx context.Context, op string, cred models.Credential, build func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	token, err := c.token(ctx, cred)
	if err != nil {
		return nil, err
	}

	start := c.now()
	res, err := build(c.http.R().SetContext(ctx).SetAuthToken(token))
	if err != nil {
		observe(op, "transport", start)
		return nil, &models.TransportError{Op: op, Err: err}
	}
	if res.IsError() {
		observe(op, "error", start)
		if res.StatusCode() == 401 {
			c.Invalidate(cred.APIKey)
		}
		return res, &models.UpstreamError{Op: op, Status: res.StatusCode(), Message: strings.TrimSpace(res.String())}
	}
	observe(op, "ok", start)
	return res, nil
}

func observe(op, outcome string, start time.Time) {
	metrics.UpstreamLatency.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}

func mask(key string) string {
	if len(key) <= 4 {
		return key
	}
	return key[:4]
}

// flexID decodes identifiers the API sends either as numbers or as strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("pfapi: id %s: %w", b, err)
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) Int64() (int64, error) {
	return strconv.ParseInt(string(f), 10, 64)
}

// IsUpstreamStatus reports whether err is an UpstreamError with the given status.
func IsUpstreamStatus(err error, status int) bool {
	var ue *models.UpstreamError
	return errors.As(err, &ue) && ue.Status == status
}
