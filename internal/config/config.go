package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bridge.
// Se carga desde YAML y se puede pisar con variables de entorno.
type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// PublicURL is the full public-facing bridge URL (scheme, host, port).
		PublicURL string `yaml:"public_url"`
		// MetricsAddr exposes /metrics on a separate listener. Empty disables it.
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"server"`

	Session struct {
		CookieName string        `yaml:"cookie_name"`
		TTL        time.Duration `yaml:"ttl"`
		Secure     bool          `yaml:"secure"`
	} `yaml:"session"`

	Bridge struct {
		// Issuer is the hostname stamped into signed certificates.
		// Empty derives from PublicURL.
		Issuer string `yaml:"issuer"`
		// RestrictToDomain limits which canonical domain the normalizer
		// accepts ("gmail.com" historically). Empty accepts any domain.
		RestrictToDomain string `yaml:"restrict_to_domain"`
		// CertDefaultDuration aplica cuando el cliente no pide duración.
		CertDefaultDuration time.Duration `yaml:"cert_default_duration"`
		CertMaxDuration     time.Duration `yaml:"cert_max_duration"`
		ClockSkew           time.Duration `yaml:"clock_skew"`
	} `yaml:"bridge"`

	Keys struct {
		PublicPath  string `yaml:"public_path"`
		PrivatePath string `yaml:"private_path"`
		// WellKnownDir is where ephemeral keys publish their discovery doc.
		WellKnownDir string `yaml:"well_known_dir"`
	} `yaml:"keys"`

	Provider struct {
		// Kind selects the upstream adapter: "google_oauth" | "google_openid".
		Kind         string        `yaml:"kind"`
		ClientID     string        `yaml:"client_id"`
		ClientSecret string        `yaml:"client_secret"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"provider"`

	Cache struct {
		Kind  string `yaml:"kind"` // "memory" | "redis"
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Rate struct {
		Enabled bool          `yaml:"enabled"`
		Max     int           `yaml:"max"`
		Window  time.Duration `yaml:"window"`
	} `yaml:"rate"`

	Audit struct {
		Driver string `yaml:"driver"` // "log" | "postgres"
		DSN    string `yaml:"dsn"`
	} `yaml:"audit"`
}

// Load lee el YAML (si existe), aplica env overrides y defaults, y valida.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr(&c.App.Env, "APP_ENV")
	setStr(&c.App.LogLevel, "LOG_LEVEL")
	setStr(&c.Server.Addr, "ADDR")
	setStr(&c.Server.PublicURL, "PUBLIC_URL")
	setStr(&c.Server.MetricsAddr, "METRICS_ADDR")
	setDur(&c.Session.TTL, "SESSION_DURATION")
	setBool(&c.Session.Secure, "SESSION_SECURE")
	setStr(&c.Bridge.Issuer, "ISSUER_HOSTNAME")
	setStr(&c.Bridge.RestrictToDomain, "RESTRICT_TO_DOMAIN")
	setDur(&c.Bridge.CertDefaultDuration, "DEFAULT_CERT_DURATION")
	setDur(&c.Bridge.CertMaxDuration, "MAX_CERT_DURATION")
	setStr(&c.Keys.PublicPath, "PUB_KEY_PATH")
	setStr(&c.Keys.PrivatePath, "PRIV_KEY_PATH")
	setStr(&c.Provider.Kind, "PROVIDER_KIND")
	setStr(&c.Provider.ClientID, "GOOGLE_CLIENT_ID")
	setStr(&c.Provider.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setStr(&c.Cache.Kind, "CACHE_KIND")
	setStr(&c.Cache.Redis.Addr, "REDIS_ADDR")
	setStr(&c.Cache.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Cache.Redis.DB, "REDIS_DB")
	setStr(&c.Audit.Driver, "AUDIT_DRIVER")
	setStr(&c.Audit.DSN, "AUDIT_DSN")
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:3000"
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = "http://127.0.0.1:3000"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "bridge_sid"
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 15 * time.Minute
	}
	if c.Bridge.Issuer == "" {
		// Derive issuer from the public URL hostname.
		if u, err := url.Parse(c.Server.PublicURL); err == nil {
			c.Bridge.Issuer = u.Hostname()
		}
	}
	if c.Bridge.CertMaxDuration <= 0 {
		c.Bridge.CertMaxDuration = 24 * time.Hour
	}
	if c.Bridge.CertDefaultDuration <= 0 {
		c.Bridge.CertDefaultDuration = time.Hour
	}
	if c.Bridge.ClockSkew <= 0 {
		c.Bridge.ClockSkew = 10 * time.Second
	}
	if c.Keys.PublicPath == "" {
		c.Keys.PublicPath = "var/key.public.pem"
	}
	if c.Keys.PrivatePath == "" {
		c.Keys.PrivatePath = "var/key.secret.pem"
	}
	if c.Keys.WellKnownDir == "" {
		c.Keys.WellKnownDir = "var"
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = "google_oauth"
	}
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = 10 * time.Second
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "bridge"
	}
	if c.Rate.Max <= 0 {
		c.Rate.Max = 30
	}
	if c.Rate.Window <= 0 {
		c.Rate.Window = time.Minute
	}
	if c.Audit.Driver == "" {
		c.Audit.Driver = "log"
	}
}

func (c *Config) validate() error {
	u, err := url.Parse(c.Server.PublicURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: public_url %q is not an absolute URL", c.Server.PublicURL)
	}
	switch c.Provider.Kind {
	case "google_oauth", "google_openid":
	default:
		return fmt.Errorf("config: unknown provider kind %q", c.Provider.Kind)
	}
	if c.Provider.Kind == "google_oauth" && c.Provider.ClientID == "" {
		return fmt.Errorf("config: provider.client_id required for google_oauth")
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache kind %q", c.Cache.Kind)
	}
	if c.Audit.Driver == "postgres" && c.Audit.DSN == "" {
		return fmt.Errorf("config: audit.dsn required for postgres driver")
	}
	return nil
}

// RedirectURL es la callback pública del provider.
func (c *Config) RedirectURL() string {
	return strings.TrimRight(c.Server.PublicURL, "/") + "/authenticate/verify"
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v == "true" || v == "1"
	}
}

// setDur acepta duraciones Go ("24h") o milisegundos crudos ("86400000",
// formato que usaba la config histórica).
func setDur(dst *time.Duration, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
	}
}
