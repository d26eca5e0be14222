package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ocmods/internal/domain"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the config directory
const FileName = "config.yaml"

// EnvPrefix prefixes environment overrides, e.g. OCMODS_SERVER_URL
const EnvPrefix = "OCMODS"

// Config holds global application settings
type Config struct {
	ServerURL       string        `yaml:"server_url" mapstructure:"server_url"`
	ModsDir         string        `yaml:"mods_dir" mapstructure:"mods_dir"`
	PageSize        int           `yaml:"page_size" mapstructure:"page_size"`
	RetryCooldown   time.Duration `yaml:"retry_cooldown" mapstructure:"retry_cooldown"`
	RequestTimeout  time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	VersionTag      string        `yaml:"version_tag" mapstructure:"version_tag"`
	Keybindings     string        `yaml:"keybindings" mapstructure:"keybindings"`
	ChecksumWorkers int           `yaml:"checksum_workers" mapstructure:"checksum_workers"`
	UserAgent       string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		ServerURL:       "https://mods.openclonk.org/api/",
		PageSize:        20,
		RetryCooldown:   10 * time.Second,
		RequestTimeout:  30 * time.Second,
		VersionTag:      "openclonk-9",
		Keybindings:     "vim",
		ChecksumWorkers: 4,
		UserAgent:       "ocmods",
	}
}

// Load reads configuration from the given directory. A missing file yields the
// defaults; OCMODS_* environment variables override file values.
func Load(configDir string) (*Config, error) {
	return load(filepath.Join(configDir, FileName), true)
}

// LoadFile reads configuration from an explicit file path, which must exist
func LoadFile(path string) (*Config, error) {
	cleaned, err := ParseConfigPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	return load(cleaned, false)
}

func load(path string, allowMissing bool) (*Config, error) {
	defaults := Default()

	v := viper.New()
	v.SetDefault("server_url", defaults.ServerURL)
	v.SetDefault("mods_dir", defaults.ModsDir)
	v.SetDefault("page_size", defaults.PageSize)
	v.SetDefault("retry_cooldown", defaults.RetryCooldown)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("version_tag", defaults.VersionTag)
	v.SetDefault("keybindings", defaults.Keybindings)
	v.SetDefault("checksum_workers", defaults.ChecksumWorkers)
	v.SetDefault("user_agent", defaults.UserAgent)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
		if !missing || !allowMissing {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the rest of the program cannot work with
func (c *Config) Validate() error {
	switch {
	case c.PageSize <= 0:
		return fmt.Errorf("%w: page_size must be positive, got %d", domain.ErrInvalidConfig, c.PageSize)
	case c.RetryCooldown <= 0:
		return fmt.Errorf("%w: retry_cooldown must be positive, got %s", domain.ErrInvalidConfig, c.RetryCooldown)
	case c.RequestTimeout < 0:
		return fmt.Errorf("%w: request_timeout must not be negative", domain.ErrInvalidConfig)
	case c.ChecksumWorkers <= 0:
		return fmt.Errorf("%w: checksum_workers must be positive, got %d", domain.ErrInvalidConfig, c.ChecksumWorkers)
	case c.Keybindings != "vim" && c.Keybindings != "standard":
		return fmt.Errorf("%w: keybindings must be \"vim\" or \"standard\", got %q", domain.ErrInvalidConfig, c.Keybindings)
	}
	return nil
}

// Save writes configuration to the given directory
func (c *Config) Save(configDir string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	configPath := filepath.Join(configDir, FileName)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
