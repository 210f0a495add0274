package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Systems is the user-supplied mapping from system name to the element set
// names (or glob patterns) that make it up. The mapping is opaque to the
// core: names are not validated at load time. Absent sets surface as
// per-name misses at resolve time, so one bad entry never fails the whole
// batch up front.
type Systems map[string][]string

// LoadSystems reads a systems mapping file:
//
//	systems:
//	  chassis: [frame-rails, crossmembers]
//	  wheels:  ["wheel-*", hub-front, hub-rear]
func LoadSystems(path string) (Systems, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read systems file: %w", err)
	}

	var out struct {
		Systems map[string][]string `mapstructure:"systems"`
	}
	if err := v.Unmarshal(&out); err != nil {
		return nil, fmt.Errorf("unmarshal systems file: %w", err)
	}
	if len(out.Systems) == 0 {
		return nil, fmt.Errorf("systems file %s defines no systems", path)
	}
	return out.Systems, nil
}
