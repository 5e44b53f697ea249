package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bookloader/internal/config"
	"bookloader/internal/logging"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// app carries what the persistent pre-run resolved for the subcommands.
type app struct {
	cfgFile string
	verbose bool
	quiet   bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "loader",
		Short: "Load Open Library authors and works dumps into a catalog database",
		Long: `loader reads the Open Library authors and works dumps and upserts them
into Postgres or SQLite. Authors are loaded first; works are then written with
their author names resolved from the loaded authors.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./configs/loader.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "quiet output (errors only)")

	root.AddCommand(
		newLoadCmd(a),
		newDownloadCmd(a),
		newRunsCmd(a),
		newShowCmd(a),
	)
	return root
}

func (a *app) init() error {
	config.LoadEnvFiles()

	v, err := config.New(a.cfgFile)
	if err != nil {
		return err
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	switch {
	case a.quiet:
		level = "error"
	case a.verbose:
		level = "debug"
	}
	if err := logging.Setup(level, cfg.Log.Format); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
