// Package config loads layered settings for a service: an optional yaml file,
// environment variables and explicit environment aliases.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config exposes the loaded settings.
type Config interface {
	// Unmarshal decodes all settings into a struct using mapstructure tags.
	Unmarshal(out interface{}) error
}

// viperConfig implements Config on top of viper.
type viperConfig struct {
	v *viper.Viper
}

func (c *viperConfig) Unmarshal(out interface{}) error {
	return c.v.Unmarshal(out)
}

const configDir = "configs"

// Options tunes Load.
type Options struct {
	// Defaults are applied before any file or environment value.
	Defaults map[string]interface{}
	// EnvAliases binds a setting key to extra environment variable names. The prefixed
	// name keeps precedence over the aliases.
	EnvAliases map[string][]string
	// RequireFile makes a missing config file an error.
	RequireFile bool
}

// Load reads configs/{APP_ENV}/{serviceName}.yaml (or the directory in CONFIG_PATH) and
// overlays environment variables prefixed with the upper-cased service name.
func Load(serviceName string, opts Options) (Config, error) {
	v := viper.New()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	for key, value := range opts.Defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")

	v.SetEnvPrefix(strings.ToUpper(serviceName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	replacer := strings.NewReplacer(".", "_")
	for key, names := range opts.EnvAliases {
		prefixed := strings.ToUpper(serviceName + "_" + replacer.Replace(key))
		args := append([]string{key, prefixed}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = filepath.Join(configDir, env)
	}

	v.SetConfigName(serviceName)
	v.AddConfigPath(configPath)
	v.AddConfigPath(filepath.Join(configDir, "example"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.RequireFile {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	return &viperConfig{v: v}, nil
}
