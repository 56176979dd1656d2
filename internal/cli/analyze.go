package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/analyzer"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/ingester"
)

func init() {
	rootCmd.AddCommand(analyzeCmd, fullCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Rebuild all derived tables from raw data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		_, err = analyzer.NewService(a.cfg, a.store, a.cls).Analyze(ctx)
		return err
	},
}

var fullCmd = &cobra.Command{
	Use:   "full",
	Short: "Sync the marketplace scope, then analyze",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		start, end := a.cfg.Window(time.Now().UTC())
		if err := ingester.NewService(a.client, a.store, a.cfg).SyncMarketplace(ctx, start, end); err != nil {
			return err
		}
		_, err = analyzer.NewService(a.cfg, a.store, a.cls).Analyze(ctx)
		return err
	},
}
