package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "SCRY"

// Options adjusts how Load finds its sources.
type Options struct {
	// ConfigFile is an explicit config file. When empty, Load looks for an
	// optional config.yaml in the current directory and in $HOME/.scry.
	ConfigFile string
	// Overrides are applied last, above environment variables. Keys use the
	// dotted form, e.g. "storage.path". Used for command line flags.
	Overrides map[string]any
}

// DefaultStoragePath returns $HOME/.scry/cards.json, or ./cards.json when the
// home directory cannot be determined.
func DefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cards.json"
	}
	return filepath.Join(home, ".scry", "cards.json")
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(opts ...Options) (*Config, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	v := viper.New()

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.path", DefaultStoragePath())
	v.SetDefault("storage.location", "cards")
	v.SetDefault("review.policy", "beta")
	v.SetDefault("review.exclusion_window", 1)
	v.SetDefault("review.reverse", false)
	v.SetDefault("review.autosave", true)
	v.SetDefault("review.watch", true)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "json")

	if o.ConfigFile != "" {
		v.SetConfigFile(o.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".scry"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit file must exist; the search path is optional.
		if o.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range o.Overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
