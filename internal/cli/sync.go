package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/ingester"
)

func init() {
	rootCmd.AddCommand(syncCmd, syncXtzCmd, syncAllCmd, syncWeekCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Ingest marketplace transactions, token transfers and balance snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		start, end := a.cfg.Window(time.Now().UTC())
		return ingester.NewService(a.client, a.store, a.cfg).SyncMarketplace(ctx, start, end)
	},
}

var syncXtzCmd = &cobra.Command{
	Use:   "sync-xtz",
	Short: "Ingest XTZ transfers for derived buyers and creators",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		start, end := a.cfg.Window(time.Now().UTC())
		return ingester.NewService(a.client, a.store, a.cfg).SyncXtz(ctx, start, end)
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "sync-all",
	Short: "Ingest every transaction and value transfer in the window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		start, end := a.cfg.Window(time.Now().UTC())
		return ingester.NewService(a.client, a.store, a.cfg).SyncComprehensive(ctx, start, end)
	},
}

var syncWeekCmd = &cobra.Command{
	Use:   "sync-week {weekId | status | all}",
	Short: "Run the comprehensive ingest for one ISO week, all weeks, or show progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		svc := ingester.NewService(a.client, a.store, a.cfg)
		switch args[0] {
		case "status":
			return printWeekStatus(ctx, a)
		case "all":
			start, end := a.cfg.Window(time.Now().UTC())
			return svc.SyncAllWeeks(ctx, start, end)
		default:
			return svc.SyncWeek(ctx, args[0])
		}
	},
}

func printWeekStatus(ctx context.Context, a *app) error {
	weeks, err := a.store.ListWeeks(ctx)
	if err != nil {
		return err
	}
	if len(weeks) == 0 {
		fmt.Println("no weeks synced yet")
		return nil
	}
	for _, w := range weeks {
		line := fmt.Sprintf("%s  %-11s  %d txs, %d flows", w.WeekID, w.Status, w.AllTxCount, w.XtzFlowCount)
		if w.ErrorMessage != "" {
			line += "  error: " + w.ErrorMessage
		}
		fmt.Println(line)
	}
	return nil
}
