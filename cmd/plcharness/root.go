package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/opcpublisher/plcharness/internal/config"
	"github.com/opcpublisher/plcharness/internal/lifecycle"
	"github.com/opcpublisher/plcharness/internal/logging"
)

// rootOptions holds the global flags and what the subcommands share.
type rootOptions struct {
	configPath string
	logLevel   string
	reapMode   string

	goos  string
	extra []lifecycle.Option

	cfg      *config.Config
	closeLog func()
}

func newRootOptions() *rootOptions {
	return &rootOptions{goos: runtime.GOOS}
}

// fixtureOptions returns the lifecycle options every command runs with.
func (o *rootOptions) fixtureOptions() []lifecycle.Option {
	return append([]lifecycle.Option{lifecycle.WithPlatform(o.goos)}, o.extra...)
}

// loadConfig applies defaults, then the config file, then PLCHARNESS_*
// variables, then flags.
func (o *rootOptions) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if cmd.Flags().Changed("reap-mode") {
		cfg.ReapMode = o.reapMode
	}
	o.cfg = cfg

	o.closeLog, err = logging.Init(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	for _, w := range cfg.Validate() {
		logging.Get().Warn().Str("warning", w).Msg("config validation")
	}
	return nil
}

func newRootCmd(o *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "plcharness",
		Short: "Manage the OPC PLC simulator container used by publisher tests",
		Long: `plcharness provisions a fresh OPC PLC simulator container on the local
Docker engine, removing any stale instance of the image first, and tears it
down again when the tests are done.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.loadConfig(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if o.closeLog != nil {
				o.closeLog()
			}
		},
	}

	root.PersistentFlags().StringVar(&o.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error, off)")
	root.PersistentFlags().StringVar(&o.reapMode, "reap-mode", "", "stale container handling: abort or best-effort")

	root.AddCommand(newUpCmd(o))
	root.AddCommand(newDownCmd(o))
	root.AddCommand(newEndpointCmd(o))
	return root
}
