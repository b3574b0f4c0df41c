// Package rsyncdconfig loads the daemon's module map and listener
// settings from a TOML config file, using the same viper plumbing
// rsyncopts uses for flags and environment variables, rather than a
// bespoke parser.
package rsyncdconfig

import (
	"fmt"
	"os"

	"github.com/blocksync/rsync/rsyncd"
	"github.com/spf13/viper"
)

// Listener describes one address the daemon accepts connections on.
//
// The original rsync daemon also offers SSH-tunneled listener modes;
// that's a byte-channel transport concern, out of scope here the same
// way it is for the rest of this module (transport is a named external
// collaborator, not something this package implements), so only the
// native rsync:// TCP listener is configurable.
type Listener struct {
	Rsyncd string `toml:"rsyncd" mapstructure:"rsyncd"`
}

// Config is the on-disk shape of a daemon config file.
type Config struct {
	Listeners []Listener      `toml:"listener" mapstructure:"listener"`
	Modules   []rsyncd.Module `toml:"module" mapstructure:"module"`
}

// defaultPaths is the search order FromDefaultFiles uses: rsyncd.toml in
// the current working directory, then one under /etc, checked in that
// order so a local override always wins.
var defaultPaths = []string{
	"./rsyncd.toml",
	"/etc/rsyncd.toml",
}

// FromFile loads a config from an explicit path.
func FromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// FromDefaultFiles tries each of defaultPaths in turn, returning the
// first one found along with the path it loaded. If none exist, it
// returns an fs.ErrNotExist-wrapping error so callers can fall back to
// flag-only configuration.
func FromDefaultFiles() (cfg *Config, path string, err error) {
	for _, candidate := range defaultPaths {
		if _, statErr := os.Stat(candidate); statErr != nil {
			continue
		}
		cfg, err = FromFile(candidate)
		return cfg, candidate, err
	}
	return nil, "", os.ErrNotExist
}
