// Package config builds the explicit configuration object handed to the
// catalog, OAuth and browse components. Values come from an optional TOML
// file named by NEXTEP_CONFIG, then environment variables on top.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/handsomefox/nextep/internal/discover"
	"github.com/handsomefox/nextep/internal/env"
	"github.com/handsomefox/nextep/internal/tmdb"
)

const FileEnv = "NEXTEP_CONFIG"

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	TMDB     TMDBConfig     `toml:"tmdb"`
	Trakt    TraktConfig    `toml:"trakt"`
	Discover DiscoverConfig `toml:"discover"`
}

type ServerConfig struct {
	Port           string   `toml:"port"`
	SiteURL        string   `toml:"site_url"`
	LogLevel       string   `toml:"log_level"`
	AllowedOrigins []string `toml:"allowed_origins"`
	SessionIdleTTL Duration `toml:"session_idle_ttl"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type TMDBConfig struct {
	APIKey    string `toml:"api_key"`
	ReadToken string `toml:"read_token"`
	BaseURL   string `toml:"base_url"`
	ImageBase string `toml:"image_base"`
}

type TraktConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

type DiscoverConfig struct {
	Locale               string          `toml:"locale"`
	CertificationCountry string          `toml:"certification_country"`
	Debounce             Duration        `toml:"debounce"`
	Limits               discover.Limits `toml:"limits"`
}

// Duration decodes TOML strings such as "400ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Requirements selects which credentials must be present.
type Requirements struct {
	Trakt bool
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			SiteURL:        "http://localhost:8080",
			LogLevel:       "info",
			SessionIdleTTL: Duration{30 * time.Minute},
		},
		Database: DatabaseConfig{Path: "data/nextep.db"},
		TMDB: TMDBConfig{
			BaseURL:   tmdb.DefaultBaseURL,
			ImageBase: tmdb.DefaultImageBase,
		},
		Discover: DiscoverConfig{
			Locale:               discover.DefaultLocale,
			CertificationCountry: discover.DefaultCertificationCountry,
			Debounce:             Duration{400 * time.Millisecond},
			Limits:               discover.DefaultLimits(),
		},
	}
}

// Load reads the optional file, applies the environment and validates.
func Load(req Requirements) (*Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(req); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	cerr := &ConfigError{}

	setString(&c.Server.Port, "PORT")
	setString(&c.Server.SiteURL, "SITE_URL")
	setString(&c.Server.LogLevel, "LOG_LEVEL")
	if origins := env.List("CORS_ORIGINS"); len(origins) > 0 {
		c.Server.AllowedOrigins = origins
	}
	setString(&c.Database.Path, "DB_PATH")

	setString(&c.TMDB.APIKey, "TMDB_API_KEY")
	setString(&c.TMDB.ReadToken, "TMDB_API_READ_TOKEN")
	setString(&c.TMDB.BaseURL, "TMDB_BASE_URL")
	setString(&c.TMDB.ImageBase, "TMDB_IMAGE_BASE")

	setString(&c.Trakt.ClientID, "TRAKT_CLIENT_ID")
	setString(&c.Trakt.ClientSecret, "TRAKT_CLIENT_SECRET")

	setString(&c.Discover.Locale, "TMDB_LOCALE")
	setString(&c.Discover.CertificationCountry, "CERTIFICATION_COUNTRY")
	for key, dst := range map[string]*int{
		"VOTE_COUNT_CEILING": &c.Discover.Limits.VoteCountCeiling,
		"YEAR_FLOOR":         &c.Discover.Limits.YearFloor,
		"YEAR_CEILING":       &c.Discover.Limits.YearCeiling,
	} {
		v, ok, err := env.Int(key)
		if err != nil {
			cerr.Errors = append(cerr.Errors, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		if ok {
			*dst = v
		}
	}
	if raw := env.Or("BROWSE_DEBOUNCE", ""); raw != "" {
		if err := c.Discover.Debounce.UnmarshalText([]byte(raw)); err != nil {
			cerr.Errors = append(cerr.Errors, fmt.Sprintf("BROWSE_DEBOUNCE: %v", err))
		}
	}
	if raw := env.Or("SESSION_IDLE_TTL", ""); raw != "" {
		if err := c.Server.SessionIdleTTL.UnmarshalText([]byte(raw)); err != nil {
			cerr.Errors = append(cerr.Errors, fmt.Sprintf("SESSION_IDLE_TTL: %v", err))
		}
	}

	if cerr.HasErrors() {
		return cerr
	}
	return nil
}

func setString(dst *string, key string) {
	*dst = env.Or(key, *dst)
}

// Validate reports every missing credential and invalid value at once.
func (c *Config) Validate(req Requirements) error {
	cerr := &ConfigError{}

	if strings.TrimSpace(c.TMDB.APIKey) == "" && strings.TrimSpace(c.TMDB.ReadToken) == "" {
		cerr.Missing = append(cerr.Missing, "TMDB_API_KEY")
	}
	if req.Trakt {
		if strings.TrimSpace(c.Trakt.ClientID) == "" {
			cerr.Missing = append(cerr.Missing, "TRAKT_CLIENT_ID")
		}
		if strings.TrimSpace(c.Trakt.ClientSecret) == "" {
			cerr.Missing = append(cerr.Missing, "TRAKT_CLIENT_SECRET")
		}
	}

	if _, err := discover.NewBuilder(c.BuilderOptions()); err != nil {
		cerr.Errors = append(cerr.Errors, err.Error())
	}
	if c.Discover.Debounce.Duration <= 0 {
		cerr.Errors = append(cerr.Errors, "discover.debounce must be positive")
	}
	if c.Server.SessionIdleTTL.Duration <= 0 {
		cerr.Errors = append(cerr.Errors, "server.session_idle_ttl must be positive")
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		cerr.Errors = append(cerr.Errors, "server.port is required")
	}

	if cerr.HasErrors() {
		return cerr
	}
	return nil
}

func (c *Config) BuilderOptions() discover.Options {
	return discover.Options{
		Locale:               c.Discover.Locale,
		CertificationCountry: c.Discover.CertificationCountry,
		Limits:               c.Discover.Limits,
	}
}

func (c *Config) TMDBClient() tmdb.Config {
	return tmdb.Config{
		APIKey:    c.TMDB.APIKey,
		ReadToken: c.TMDB.ReadToken,
		BaseURL:   c.TMDB.BaseURL,
	}
}

// RedirectURI is the OAuth callback registered with Trakt.
func (c *Config) RedirectURI() string {
	return strings.TrimRight(c.Server.SiteURL, "/") + "/auth/callback"
}
