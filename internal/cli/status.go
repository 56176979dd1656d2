package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show table counts and week progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		counts, err := a.store.Counts(ctx)
		if err != nil {
			return err
		}
		tables := make([]string, 0, len(counts))
		for t := range counts {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		for _, t := range tables {
			fmt.Printf("%-28s %d\n", t, counts[t])
		}

		for _, key := range []string{"last_sync_marketplace", "last_sync_xtz", "last_sync_comprehensive"} {
			v, err := a.store.GetMeta(ctx, key)
			if err != nil {
				return err
			}
			if v != "" {
				fmt.Printf("%-28s %s\n", key, v)
			}
		}

		unclassified, err := a.store.CountUnclassified(ctx)
		if err != nil {
			return err
		}
		if unclassified > 0 {
			fmt.Printf("\n%d transactions not yet classified\n", unclassified)
		}

		return printWeekStatus(ctx, a)
	},
}
