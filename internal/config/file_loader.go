package config

import (
	"github.com/spf13/viper"

	"multiverse/internal/errors"
)

// LoadFile reads a YAML configuration file through viper and funnels it
// into ParseOptions so file-sourced config gets the same unknown-key and
// range validation as programmatic config.
func LoadFile(path string) (Options, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Options{}, errors.Wrap(errors.CodeInvalidConfig, err, "reading config file %q", path)
	}
	return ParseOptions(v.AllSettings())
}
