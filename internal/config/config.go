// Package config provides configuration types and helpers for cwl4.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultSuffix is inserted before the extension of each output file name.
const DefaultSuffix = "-l4"

// Config holds the application-wide configuration. It is populated from
// command line flags only; cwl4 reads no configuration file or environment.
type Config struct {
	Suffix       string `mapstructure:"suffix"`
	KeepGoing    bool   `mapstructure:"keep_going"`
	Encoding     string `mapstructure:"encoding"`
	Follow       bool   `mapstructure:"follow"`
	FollowRotate bool   `mapstructure:"follow_rotate"`
	Stats        bool   `mapstructure:"stats"`
	Format       string `mapstructure:"format"`
	Color        string `mapstructure:"color"`
	Verbose      bool   `mapstructure:"verbose"`
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("suffix", DefaultSuffix)
	v.SetDefault("keep_going", false)
	v.SetDefault("encoding", "utf-8")
	v.SetDefault("follow", false)
	v.SetDefault("follow_rotate", false)
	v.SetDefault("stats", false)
	v.SetDefault("format", "text")
	v.SetDefault("color", "auto")
	v.SetDefault("verbose", false)
}

// Load decodes the settings held by v into a Config and validates them.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	if c.Suffix == "" {
		return fmt.Errorf("suffix must not be empty")
	}
	if strings.ContainsAny(c.Suffix, `/\`) {
		return fmt.Errorf("suffix %q must not contain a path separator", c.Suffix)
	}

	switch strings.ToLower(c.Format) {
	case "text", "json", "table":
	default:
		return fmt.Errorf("invalid format: %s", c.Format)
	}

	switch strings.ToLower(c.Color) {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid color mode: %s", c.Color)
	}

	if _, err := ResolveEncoding(c.Encoding); err != nil {
		return err
	}
	return nil
}
