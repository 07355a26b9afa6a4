package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// DefaultConfigName is the base name Load searches for under the user's
// home directory when no explicit path is given, following the
// cobra-generated root.go convention gocfd's cmd/ package builds on.
const DefaultConfigName = ".repartition"

// Load resolves and decodes the options file. If path is non-empty it is
// read directly; otherwise viper searches the current directory and the
// user's home directory (resolved via go-homedir) for a file named
// DefaultConfigName with a yaml/yml/json extension. Viper only locates the
// file: Options is decoded from the file's raw bytes, so flags, environment
// variables and viper defaults bound to v do not reach the result.
func Load(v *viper.Viper, path string) (*Options, error) {
	if v == nil {
		v = viper.New()
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("config: resolving home directory: %w", err)
		}
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.SetConfigName(DefaultConfigName)
	}
	v.SetEnvPrefix("REPARTITION")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			return &Options{}, nil
		}
		return nil, fmt.Errorf("config: reading options file: %w", err)
	}

	raw, err := yamlFromViper(v)
	if err != nil {
		return nil, err
	}
	var opts Options
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return nil, fmt.Errorf("config: decoding options: %w", err)
	}
	return &opts, nil
}

// yamlFromViper re-reads the file viper resolved and hands its raw bytes to
// ghodss/yaml, which round-trips YAML through encoding/json semantics (the
// same approach gocfd's InputParameters.Parse relies on) rather than using
// viper's own reflection-based Unmarshal, so config.Options keeps ordinary
// encoding/json struct tags instead of mapstructure ones.
func yamlFromViper(v *viper.Viper) ([]byte, error) {
	path := v.ConfigFileUsed()
	if path == "" {
		return nil, fmt.Errorf("config: no options file resolved")
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return data, nil
}
