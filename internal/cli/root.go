// Package cli implements the kiln command line.
package cli

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/bayleafwalker/kiln/internal/config"
	"github.com/bayleafwalker/kiln/internal/repository"
	"github.com/bayleafwalker/kiln/internal/resolver"
)

var (
	v          = config.New()
	configFile string

	// Set by PersistentPreRunE.
	cfg    config.Config
	logger = logr.Discard()
	flush  = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "kiln",
	Short: "Resolve addon dependency graphs against an artifact repository",
	Long: `kiln resolves addons, their dependency graphs, resources and versions against a
local addon repository, and can serve addon status over the gRPC health protocol.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ReadFile(v, configFile); err != nil {
			return err
		}
		c, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = c
		logger, flush = newLogger(cfg.Verbose, cmd.ErrOrStderr())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		flush()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default "+config.FilePath()+")")
	if err := config.BindFlags(v, rootCmd); err != nil {
		panic(err)
	}
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// newResolver builds a resolver over the configured local repository.
func newResolver() (*resolver.DefaultResolver, error) {
	st, err := os.Stat(cfg.Repository)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("opening repository: %s is not a directory", cfg.Repository)
	}
	opts := cfg.ResolverOptions()
	opts.Repository = repository.NewLocal(cfg.Repository)
	opts.Logger = logger.WithName("resolver")
	return resolver.NewDefault(opts), nil
}
