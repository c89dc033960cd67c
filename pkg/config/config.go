package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	httpclient "github.com/natserract/splist/pkg/http"
)

const (
	AuthModeApp  = "app"
	AuthModeUser = "user"

	DefaultConfigPath     = "config.json"
	DefaultAuthorityHost  = "https://login.microsoftonline.com"
	DefaultTokenCachePath = "token_cache.json"
	DefaultHTTPTimeout    = 30 * time.Second
)

// DefaultDateFields are reformatted to ISO-8601 before upload.
var DefaultDateFields = []string{"DATA_ENTRADA", "DATA_SAIDA"}

type Config struct {
	SharePointURL   string   `json:"sharepoint_url"`
	TenantID        string   `json:"tenant_id"`
	ClientID        string   `json:"client_id"`
	ClientSecret    string   `json:"client_secret"`
	Scopes          []string `json:"scopes"`
	TargetListTitle string   `json:"target_list_title"`

	AuthMode string `json:"auth_mode"`
	Username string `json:"username"`
	Password string `json:"password"`

	AuthorityHost  string   `json:"authority_host"`
	TokenCachePath string   `json:"token_cache_path"`
	DateFields     []string `json:"date_fields"`

	HTTPMaxTries int    `json:"http_max_tries"`
	HTTPTimeout  string `json:"http_timeout"`

	JournalDSN string `json:"journal_dsn"`
}

// Load reads the JSON config at path, layers the environment on top and validates the result.
// Only the default config file may be absent; the environment then supplies everything.
func Load(path string) (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		missingDefault := errors.Is(err, os.ErrNotExist) && path == DefaultConfigPath
		if err != nil && !missingDefault {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.SharePointURL, "SHAREPOINT_URL")
	setFromEnv(&c.TenantID, "TENANT_ID")
	setFromEnv(&c.ClientID, "CLIENT_ID")
	setFromEnv(&c.ClientSecret, "CLIENT_SECRET")
	setFromEnv(&c.TargetListTitle, "TARGET_LIST_TITLE")
	setFromEnv(&c.AuthMode, "AUTH_MODE")
	setFromEnv(&c.Username, "SHAREPOINT_USERNAME")
	setFromEnv(&c.Password, "SHAREPOINT_PASSWORD")
	setFromEnv(&c.TokenCachePath, "TOKEN_CACHE_PATH")
	setFromEnv(&c.JournalDSN, "JOURNAL_DSN")

	if v := os.Getenv("SCOPES"); v != "" {
		c.Scopes = splitList(v)
	}
	if v := os.Getenv("HTTP_MAX_TRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HTTPMaxTries = n
		}
	}
}

func (c *Config) applyDefaults() {
	c.SharePointURL = strings.TrimSpace(c.SharePointURL)
	if c.AuthMode == "" {
		c.AuthMode = AuthModeApp
	}
	c.AuthMode = strings.ToLower(c.AuthMode)
	if c.AuthorityHost == "" {
		c.AuthorityHost = DefaultAuthorityHost
	}
	if c.TokenCachePath == "" {
		c.TokenCachePath = DefaultTokenCachePath
	}
	if c.DateFields == nil {
		c.DateFields = append([]string(nil), DefaultDateFields...)
	}
	if c.HTTPMaxTries <= 0 {
		c.HTTPMaxTries = 1
	}
	if len(c.Scopes) == 0 && c.SharePointURL != "" {
		if u, err := url.Parse(c.SharePointURL); err == nil && u.Host != "" {
			c.Scopes = []string{fmt.Sprintf("%s://%s/.default", u.Scheme, u.Host)}
		}
	}
}

func (c *Config) Validate() error {
	if c.SharePointURL == "" {
		return fmt.Errorf("sharepoint_url is required")
	}
	u, err := url.Parse(c.SharePointURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("sharepoint_url must be an absolute URL: %q", c.SharePointURL)
	}
	if c.TargetListTitle == "" {
		return fmt.Errorf("target_list_title is required")
	}
	if _, err := c.Timeout(); err != nil {
		return fmt.Errorf("http_timeout is invalid: %w", err)
	}

	switch c.AuthMode {
	case AuthModeApp:
		if c.TenantID == "" {
			return fmt.Errorf("tenant_id is required")
		}
		if c.ClientID == "" {
			return fmt.Errorf("client_id is required")
		}
		if c.ClientSecret == "" {
			return fmt.Errorf("client_secret is required")
		}
		if len(c.Scopes) == 0 {
			return fmt.Errorf("scopes is required")
		}
	case AuthModeUser:
		// Username and password may be prompted for at startup.
	default:
		return fmt.Errorf("auth_mode must be %q or %q, got %q", AuthModeApp, AuthModeUser, c.AuthMode)
	}
	return nil
}

// Authority returns the tenant authority URL used by the identity provider.
func (c *Config) Authority() string {
	authority, err := httpclient.BuildURL(c.AuthorityHost, "/"+c.TenantID, nil)
	if err != nil {
		return strings.TrimSuffix(c.AuthorityHost, "/") + "/" + c.TenantID
	}
	return authority
}

// Timeout parses HTTPTimeout, falling back to DefaultHTTPTimeout when unset.
func (c *Config) Timeout() (time.Duration, error) {
	if c.HTTPTimeout == "" {
		return DefaultHTTPTimeout, nil
	}
	return time.ParseDuration(c.HTTPTimeout)
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
