package app

import (
	"os"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/doh/internal/host"
)

// Config holds the complete application configuration, loadable from
// environment variables (DOH_ prefix), flags, or YAML config files.
type Config struct {
	Host          string   `default:"production" usage:"API host name"`
	BaseURL       string   `usage:"API base URL, overrides host (e.g. http://localhost:8080/)" flag:"base-url"`
	Stores        []string `default:"store-1" usage:"Store ids to fetch items for"`
	DatabaseURL   string   `usage:"PostgreSQL connection URL for preferences (DOH_DATABASE_URL or DATABASE_URL); in-memory when empty" flag:"database-url"`
	LoginEmail    string   `usage:"Remember this address as the last used login email" flag:"login-email"`
	ResetUserData bool     `default:"false" usage:"Forget user data before fetching" flag:"reset-user-data"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "DOH",
		Files:     []string{"config.yaml", "/etc/doh/config.yaml"},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	ac.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}

	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if len(cfg.Stores) == 0 {
		return nil, errors.New("at least one store is required: set DOH_STORES")
	}
	if _, err := cfg.Endpoint(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyPlatformDefaults maps the standard DATABASE_URL variable to the
// application's DOH_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
}

// Endpoint returns the API base URL: BaseURL when set, otherwise the
// endpoint of the named host.
func (c *Config) Endpoint() (string, error) {
	if c.BaseURL != "" {
		return c.BaseURL, nil
	}
	h, err := host.Parse(c.Host)
	if err != nil {
		return "", errors.Wrap(err, "host")
	}
	return h.APIEndpointURL().String(), nil
}
