package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/classifier"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/config"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/store"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/tzkt"
)

var (
	confPath  string
	clearData bool
)

var rootCmd = &cobra.Command{
	Use:           "tzanalytics",
	Short:         "Tezos NFT marketplace ETL and analytics",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&confPath, "conf", "", "path to YAML config (defaults apply when omitted)")
	rootCmd.PersistentFlags().BoolVar(&clearData, "clear", false, "truncate all stored data before running")
}

// Execute runs the CLI. Errors propagate to main for a non-zero exit.
func Execute() error {
	return rootCmd.Execute()
}

// app bundles the shared wiring every verb needs.
type app struct {
	cfg    *config.Config
	store  *store.Store
	client *tzkt.Client
	cls    *classifier.Classifier
}

// openApp loads config, opens the store, and honors --clear.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(confPath)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	if clearData {
		if err := st.ClearAll(ctx); err != nil {
			st.Close()
			return nil, err
		}
	}
	client := tzkt.NewClient(cfg.IndexerURL, tzkt.Options{
		PageSize:       cfg.PageSize,
		MinRequestGap:  cfg.MinRequestGap,
		RetryAttempts:  cfg.RetryAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
	})
	return &app{
		cfg:    cfg,
		store:  st,
		client: client,
		cls:    classifier.New(client, st),
	}, nil
}

func (a *app) close() {
	a.store.Close()
}

// signalContext cancels on SIGINT or SIGTERM; the pipeline stops at the
// next page boundary.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
