// Package config is used to load the configuration file
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the configuration struct
type Config struct {
	Verbose bool `mapstructure:"verbose"`
	Color   bool `mapstructure:"color"`
}

// LoadConfig loads the configuration file
func LoadConfig() (*Config, error) {
	var c Config

	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %v", err)
	}

	return &c, nil
}
