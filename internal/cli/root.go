// Package cli implements marketctl, the operator command line for the market server.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	appRepos "github.com/yigit/marketday/internal/app/repositories"
	"github.com/yigit/marketday/internal/bootstrap"
	"github.com/yigit/marketday/internal/config"
	"github.com/yigit/marketday/internal/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	// OpenStore opens the store named by the config. Tests swap it for a shared memory store.
	OpenStore func(cfg *config.Config, lgr zerolog.Logger) (appRepos.Store, error)
}

// NewRootCommand creates the root command for marketctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{OpenStore: bootstrap.SetupStore}
	return newRootCommand(opts)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marketctl",
		Short: "Market day administration",
		Long:  "Operator tools for the market day server: schema migrations, teacher password hashes and item CSV files.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logger.InfoLevel
			if opts.Verbose {
				level = logger.DebugLevel
			}
			logger.Configure(logger.Config{Level: level, Pretty: true, Output: cmd.ErrOrStderr()})
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", bootstrap.DefaultConfigPath, "path to config.yaml")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewHashPasswordCommand(opts))
	cmd.AddCommand(NewItemsCommand(opts))

	return cmd
}

// loadConfig reads the config named by --config and returns it with the configured logger
func (o *RootOptions) loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, zerolog.Logger{}, err
	}
	return cfg, logger.Get(), nil
}
