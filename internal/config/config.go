package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the reminder service.
type Config struct {
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	HTTPAddr         string        `mapstructure:"HTTP_ADDR"`
	Timezone         string        `mapstructure:"TIMEZONE"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	LogFormat        string        `mapstructure:"LOG_FORMAT"`
	JWTSecret        string        `mapstructure:"JWT_SECRET"`
	SchedulerEnabled bool          `mapstructure:"SCHEDULER_ENABLED"`
	FireTimeout      time.Duration `mapstructure:"FIRE_TIMEOUT"`
}

var keys = []string{
	"DATABASE_URL",
	"HTTP_ADDR",
	"TIMEZONE",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"JWT_SECRET",
	"SCHEDULER_ENABLED",
	"FIRE_TIMEOUT",
}

// Load reads configuration from environment variables and an optional .env
// file, with sane defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "med_reminder.db")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("FIRE_TIMEOUT", "30s")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// The .env file is optional.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)

	if _, err := cfg.Location(); err != nil {
		return cfg, err
	}
	if cfg.FireTimeout <= 0 {
		return cfg, fmt.Errorf("FIRE_TIMEOUT must be positive")
	}
	return cfg, nil
}

// Location resolves TIMEZONE; calendar days and alarms are evaluated in it.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}
