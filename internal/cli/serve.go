package cli

import (
	"github.com/spf13/cobra"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/api"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read API over the derived tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		return api.NewServer(a.cfg, a.store).Start(ctx)
	},
}
