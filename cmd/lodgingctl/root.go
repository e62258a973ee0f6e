package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lodging-ledger/internal/config"
	lodgingapp "lodging-ledger/internal/lodging/application"
	lodging "lodging-ledger/internal/lodging/domain"
	"lodging-ledger/internal/lodging/infrastructure"
	"lodging-ledger/internal/observability/logging"
)

// Execute is the entry point called from main.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "lodgingctl",
		Short: "Maintain the lodging ledger from the command line",
		Long: `lodgingctl works on the same storage backend as the lodging server.
It reads the same environment variables and optional YAML config file.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file (defaults to LODGING_CONFIG)")

	root.AddCommand(newShowCmd(opts))
	root.AddCommand(newToggleCmd(opts))
	root.AddCommand(newLogYesterdayCmd(opts))
	root.AddCommand(newCloseCmd(opts))
	root.AddCommand(newReopenCmd(opts))
	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newTokenCmd(opts))
	return root
}

// session is an opened store plus the services built on it.
type session struct {
	cfg    config.Config
	store  *infrastructure.Handle
	ledger *lodgingapp.LedgerService
}

func (s *session) close() {
	if s == nil || s.store == nil {
		return
	}
	_ = s.store.Close(context.Background())
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	return config.Load(opts.configPath)
}

func openSession(ctx context.Context, opts *rootOptions, stderr io.Writer) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	logger := logging.New(stderr, "warn", cfg.Log.Format)
	store, err := infrastructure.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	ledger, err := lodgingapp.NewLedgerService(store.Gateway, lodging.SystemClock{Location: loc}, lodgingapp.WithLogger(logger))
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return &session{cfg: cfg, store: store, ledger: ledger}, nil
}
