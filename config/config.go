// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"log"

	"github.com/spf13/viper"
)

// Defaults for the merge tuning knobs. They are settings rather than
// constants buried in the merge loop so they can be tuned and tested
// independently of the walk itself.
const (
	// DefaultSelfMergeCap is the maximum number of self-alignment passes
	// run against an accepted node representation
	DefaultSelfMergeCap = 25

	// DefaultQualityMargin is how far below the childrens' compression
	// floor a candidate merge may fall before it is rejected
	DefaultQualityMargin = 0.05
)

// Config is the root-level settings struct and is a mix of settings
// available in settings.yaml and those available from the command line
type Config struct {
	// the maximum number of self-alignment passes per internal node
	SelfMergeCap int `mapstructure:"self-merge-cap"`

	// slack subtracted from min(child ratios) to form the merge cutoff
	QualityMargin float64 `mapstructure:"quality-margin"`

	// scratch directory where per-node FASTAs are materialized
	TmpDir string `mapstructure:"tmp-dir"`

	// whether to log per-step progress
	Verbose bool `mapstructure:"verbose"`

	// whether to re-validate leaf reconstruction after each merge round
	Check bool `mapstructure:"check"`
}

// New returns a new Config struct populated by Viper settings (either
// from the local settings.yaml) and/or command line arguments
func New() *Config {
	var c Config

	if err := viper.Unmarshal(&c); err != nil {
		log.Fatalf("unable to decode settings into struct: %v", err)
	}

	return &c
}
