package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadFile loads configuration from an explicit file, with environment
// overrides applied on top.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return unmarshal(v)
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (SUBMODEL_*)
// 2. Config file (.submodel.yaml in dir, then $HOME)
// 3. Default values
func Load(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName(".submodel")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine: defaults + env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SUBMODEL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.BindEnv("cache.dir")
	v.BindEnv("extract.workers")
	v.BindEnv("extract.output_dir")

	defaults := Default()
	v.SetDefault("cache.dir", defaults.Cache.Dir)
	v.SetDefault("extract.workers", defaults.Extract.Workers)
	v.SetDefault("extract.output_dir", defaults.Extract.OutputDir)
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
