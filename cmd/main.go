// Command facewin turns a directory of per-frame facial telemetry tables
// into windowed, per-subject normalised tensors.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/okian/facewin/internal/app"
	"github.com/okian/facewin/internal/config"
	"github.com/okian/facewin/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// flags holds command-line overrides. Only flags the user set are applied.
type flags struct {
	configFile    string
	profile       string
	logLevel      string
	workers       int
	selection     bool
	intermediates bool
}

func newRootCommand() *cobra.Command {
	var fl flags

	cmd := &cobra.Command{
		Use:   "facewin [input_dir] [output_dir]",
		Short: "Build a windowed tensor dataset from facial telemetry recordings",
		Long: "facewin reads <subject>_<condition>.csv tables, derives per-frame metrics,\n" +
			"normalises each subject against its own baseline and writes one tensor\n" +
			"and label vector per (subject, condition) group.",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd, fl, args)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&fl.configFile, "config", "c", "", "YAML configuration file (also "+config.EnvConfigFile+")")
	f.StringVarP(&fl.profile, "profile", "p", "", "named profile applied before the file and environment layers")
	f.StringVar(&fl.logLevel, "log-level", "", "debug, info, warn or error")
	f.IntVar(&fl.workers, "workers", 0, "parallel file workers; 0 uses every CPU")
	f.BoolVar(&fl.selection, "selection", false, "drop channels that do not separate baseline from the other conditions")
	f.BoolVar(&fl.intermediates, "write-intermediates", false, "also write derived tables and the normalised frame table")

	cmd.AddCommand(newProfilesCommand())
	return cmd
}

func newProfilesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the named configuration profiles",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range config.Profiles() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

func run(cmd *cobra.Command, fl flags, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var opts []config.LoadOption
	if fl.configFile != "" {
		opts = append(opts, config.WithFile(fl.configFile))
	}
	if fl.profile != "" {
		opts = append(opts, config.WithProfile(fl.profile))
	}
	cfg, err := config.Load(ctx, opts...)
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.LogLevel = fl.logLevel
	}
	if changed("workers") {
		cfg.Workers = fl.workers
	}
	if changed("selection") {
		cfg.Selection = fl.selection
	}
	if changed("write-intermediates") {
		cfg.WriteIntermediates = fl.intermediates
	}
	if len(args) > 0 {
		cfg.InputDir = args[0]
	}
	if len(args) > 1 {
		cfg.OutputDir = args[1]
	}

	if err := initLogger(cmd.ErrOrStderr(), cfg); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	p, err := app.New(cfg)
	if err != nil {
		return err
	}
	m, err := p.Run(ctx, cfg.InputDir, cfg.OutputDir)
	if err != nil {
		return err
	}

	windows := 0
	for _, g := range m.Groups {
		windows += g.Windows
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d groups, %d windows, %d excluded -> %s\n",
		m.RunID, len(m.Groups), windows, len(m.Excluded), cfg.OutputDir)
	return nil
}

func initLogger(w io.Writer, cfg *config.Config) error {
	return logger.Init(
		logger.WithWriter(w),
		logger.WithLevel(cfg.LogLevel),
		logger.WithJSON(strings.EqualFold(cfg.LogFormat, "json")),
	)
}
