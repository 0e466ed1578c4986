package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig configures the terminal client.
type ClientConfig struct {
	APIURL      string        `mapstructure:"BLOGIFY_API_URL"`
	WSURL       string        `mapstructure:"BLOGIFY_WS_URL"`
	SessionPath string        `mapstructure:"BLOGIFY_SESSION_PATH"`
	HTTPTimeout time.Duration `mapstructure:"BLOGIFY_HTTP_TIMEOUT"`
	LogLevel    string        `mapstructure:"BLOGIFY_LOG_LEVEL"`
}

// LoadClientConfig reads client settings from an optional blogify.yml and the environment.
func LoadClientConfig() (*ClientConfig, error) {
	v := viper.New()
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".blogify"))
	}
	v.SetConfigName("blogify")
	v.SetConfigType("yml")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("BLOGIFY_API_URL", "http://localhost:8375/api")
	v.SetDefault("BLOGIFY_WS_URL", "")
	v.SetDefault("BLOGIFY_SESSION_PATH", defaultSessionPath())
	v.SetDefault("BLOGIFY_HTTP_TIMEOUT", 15*time.Second)
	v.SetDefault("BLOGIFY_LOG_LEVEL", "info")

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode client config: %w", err)
	}
	if cfg.WSURL == "" {
		ws, err := DeriveWSURL(cfg.APIURL)
		if err != nil {
			return nil, err
		}
		cfg.WSURL = ws
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the client settings.
func (c *ClientConfig) Validate() error {
	if c.APIURL == "" {
		return errors.New("BLOGIFY_API_URL is required")
	}
	if c.SessionPath == "" {
		return errors.New("BLOGIFY_SESSION_PATH is required")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("BLOGIFY_HTTP_TIMEOUT must be positive")
	}
	return nil
}

// DeriveWSURL maps an API base URL to its websocket endpoint, e.g.
// https://host/api -> wss://host/api/ws.
func DeriveWSURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported api url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".blogify-session.yml"
	}
	return filepath.Join(home, ".blogify", "session.yml")
}
