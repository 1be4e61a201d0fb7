// Package config loads the kiln CLI settings from flags, KILN_* environment variables
// and an optional config file (~/.kiln/config.yaml).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bayleafwalker/kiln/internal/resolver"
)

const (
	fileName  = "config"
	fileType  = "yaml"
	envPrefix = "KILN"
)

// Keys.
const (
	KeyRepository = "repository"
	KeyClassifier = "classifier"
	KeyTimeout    = "timeout"
	KeyVerbose    = "verbose"
)

// Config is the resolved CLI configuration.
type Config struct {
	Repository string
	Classifier string
	Timeout    time.Duration
	Verbose    bool
}

// Dir returns the path to the kiln config directory (~/.kiln/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kiln"
	}
	return filepath.Join(home, ".kiln")
}

// FilePath returns the full path to the config file.
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// New returns a viper instance with defaults and environment lookup configured.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyRepository, filepath.Join(Dir(), "repository"))
	v.SetDefault(KeyClassifier, resolver.DefaultClassifier)
	v.SetDefault(KeyTimeout, resolver.DefaultTimeout)
	v.SetDefault(KeyVerbose, false)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	return v
}

// BindFlags registers the persistent flags of cmd and binds them to v.
func BindFlags(v *viper.Viper, cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()
	flags.String(KeyRepository, v.GetString(KeyRepository), "Directory of the local addon repository")
	flags.String(KeyClassifier, v.GetString(KeyClassifier), "Classifier of addon artifacts")
	flags.Duration(KeyTimeout, v.GetDuration(KeyTimeout), "Timeout of each repository call")
	flags.BoolP(KeyVerbose, "v", false, "Enable debug logging")
	for _, key := range []string{KeyRepository, KeyClassifier, KeyTimeout, KeyVerbose} {
		if err := v.BindPFlag(key, flags.Lookup(key)); err != nil {
			return fmt.Errorf("binding flag %s: %w", key, err)
		}
	}
	return nil
}

// ReadFile reads path, or the default config file when path is empty. A missing default
// file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		path = FilePath()
	}
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	if err := v.ReadInConfig(); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

// Load returns the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		Repository: v.GetString(KeyRepository),
		Classifier: v.GetString(KeyClassifier),
		Timeout:    v.GetDuration(KeyTimeout),
		Verbose:    v.GetBool(KeyVerbose),
	}
	if c.Repository == "" {
		return Config{}, errors.New("config: repository must be set")
	}
	if c.Classifier == "" {
		return Config{}, errors.New("config: classifier must be set")
	}
	return c, nil
}

// ResolverOptions returns the resolver options for c, without a repository.
func (c Config) ResolverOptions() resolver.Options {
	return resolver.Options{Classifier: c.Classifier, Timeout: c.Timeout}
}
