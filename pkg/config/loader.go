// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from YAML files and environment variables,
// validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	if err := godotenv.Load(".env.local", ".env"); err != nil {
		// missing env files are fine
		_ = err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AppEnv = env

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, v, nil
}

// Watch re-reads the config file on change and invokes onChange with the new
// snapshot. Invalid snapshots are logged and skipped; the running config is
// kept.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(Config)) {
	if v == nil || onChange == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("config file changed", slog.String("file", e.Name))

		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			log.Error("failed to unmarshal changed config", slog.Any("error", err))
			return
		}

		if err := validate.Struct(cfg); err != nil {
			log.Error("changed config failed validation", slog.Any("error", err))
			return
		}

		onChange(cfg)
	})

	v.WatchConfig()
}
