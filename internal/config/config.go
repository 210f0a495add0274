package config

// Config represents the complete tool configuration. It can be loaded from
// .submodel.yaml with environment variable overrides (SUBMODEL_*).
type Config struct {
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
}

// CacheConfig defines where serialized indexes live.
type CacheConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"` // override default ~/.submodel/cache
}

// ExtractConfig defines batch extraction behavior.
type ExtractConfig struct {
	Workers   int    `yaml:"workers" mapstructure:"workers"`       // parallel resolves in batch mode, 0 = GOMAXPROCS
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"` // batch output dir, empty = source directory
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Dir: "", // empty means use default ~/.submodel/cache
		},
		Extract: ExtractConfig{
			Workers:   0,
			OutputDir: "",
		},
	}
}
