package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	twitter "github.com/anatolykoptev/go-twitter-scrape"
)

// Config is the YAML configuration of the CLI.
type Config struct {
	BaseURL      string          `yaml:"base_url"`
	Proxy        string          `yaml:"proxy"`
	SessionDir   string          `yaml:"session_dir"`
	SessionTTL   time.Duration   `yaml:"session_ttl"`
	CapsolverKey string          `yaml:"capsolver_key"`
	Accounts     []AccountConfig `yaml:"accounts"`

	Limit      int  `yaml:"limit"`
	MaxRetries int  `yaml:"max_retries"`
	ValidOnly  bool `yaml:"valid_only"`
}

// AccountConfig is one account entry of the configuration file.
type AccountConfig struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	AuthToken  string `yaml:"auth_token"`
	CT0        string `yaml:"ct0"`
	TOTPSecret string `yaml:"totp_secret"`
	Proxy      string `yaml:"proxy"`
}

func defaultConfig() Config {
	return Config{
		BaseURL:    "https://twitter.com",
		SessionTTL: 24 * time.Hour,
		MaxRetries: 3,
	}
}

func splitExt(f string) (string, string) {
	ext := filepath.Ext(f)
	return strings.TrimSuffix(f, ext), ext
}

// readConfig reads name and merges <name>.local.<ext> over it, then fills
// whatever is still unset from defaultConfig. Missing files are not an error.
func readConfig(name string) (Config, error) {
	var out Config

	if err := readYAML(name, &out); err != nil {
		return out, err
	}

	prefix, ext := splitExt(name)
	local := prefix + ".local" + ext
	var override Config
	if err := readYAML(local, &override); err != nil {
		return out, err
	}
	if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
		return out, fmt.Errorf("merge %s: %w", local, err)
	}

	if err := mergo.Merge(&out, defaultConfig()); err != nil {
		return out, fmt.Errorf("merge defaults: %w", err)
	}
	return out, nil
}

func readYAML(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	slog.Debug("config loaded", slog.String("path", path))
	return nil
}

func (c Config) accounts() []*twitter.Account {
	accs := make([]*twitter.Account, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		accs = append(accs, &twitter.Account{
			Username:   a.Username,
			Password:   a.Password,
			AuthToken:  a.AuthToken,
			CT0:        a.CT0,
			TOTPSecret: a.TOTPSecret,
			Proxy:      a.Proxy,
		})
	}
	return accs
}
