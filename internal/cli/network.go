package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/flowgraph"
)

var networkNodeCap int

func init() {
	networkCmd.Flags().IntVar(&networkNodeCap, "nodes", flowgraph.DefaultNodeCap, "maximum nodes in the exported graph")
	rootCmd.AddCommand(classifyCmd, networkCmd)
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Categorize every comprehensive-scope transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		_, err = flowgraph.NewEngine(a.cfg, a.store).ClassifyTransactions(ctx)
		return err
	},
}

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Build wallet flow summaries and export the flow graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		engine := flowgraph.NewEngine(a.cfg, a.store)
		if _, err := engine.BuildWalletSummaries(ctx); err != nil {
			return err
		}
		graph, err := engine.BuildGraph(ctx, networkNodeCap)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(a.cfg.OutDir, 0o755); err != nil {
			return fmt.Errorf("create out dir: %w", err)
		}
		out := filepath.Join(a.cfg.OutDir, "network.json")
		data, err := json.MarshalIndent(graph, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Printf("wrote %s (%d nodes, %d edges)\n", out, len(graph.Nodes), len(graph.Edges))
		return nil
	},
}
