package cli

import (
	"github.com/spf13/cobra"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/domains"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/registry"
)

func init() {
	rootCmd.AddCommand(discoverCmd, resolveCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Type every address seen in raw data into the registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		svc := registry.NewService(a.cfg, a.store, a.client, domains.NewClient(a.cfg.DomainsURL))
		_, err = svc.Discover(ctx)
		return err
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Attach aliases and domains to unresolved wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		svc := registry.NewService(a.cfg, a.store, a.client, domains.NewClient(a.cfg.DomainsURL))
		_, err = svc.Resolve(ctx)
		return err
	},
}
