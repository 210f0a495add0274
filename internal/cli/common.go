package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/mvp-joe/submodel/internal/cache"
	"github.com/mvp-joe/submodel/internal/config"
	"github.com/mvp-joe/submodel/internal/deck"
)

// loadConfig resolves the tool configuration: explicit --config file when
// given, otherwise the search path, with bound flags winning over both.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return nil, fmt.Errorf("get working directory: %w", wdErr)
		}
		cfg, err = config.Load(wd)
	}
	if err != nil {
		return nil, err
	}
	if dir := viper.GetString("cache.dir"); dir != "" {
		cfg.Cache.Dir = dir
	}
	return cfg, nil
}

// newManager builds the cache manager from configuration.
func newManager(cfg *config.Config) (*cache.Manager, error) {
	return cache.NewManager(cfg.Cache.Dir, slog.Default())
}

// scanProgress returns the progress reporter for interactive runs, nil when
// quiet.
func scanProgress() deck.ScanProgress {
	if quiet {
		return nil
	}
	return NewScanProgressBar()
}
