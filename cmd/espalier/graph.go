package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/aretw0/espalier/pkg/codec"
	domaingraph "github.com/aretw0/espalier/pkg/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Export the dependency graph of a blueprint",
	Long:  `Reads a blueprint and outputs either a Mermaid flowchart or the raw adjacency mapping over element ids.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		if err := runGraph(args[0], format); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("format", "mermaid", "Output format: 'mermaid' or 'adjacency'")
}

func runGraph(path, format string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	m, err := codec.DecodeDraft(data)
	if err != nil {
		return err
	}

	switch format {
	case "mermaid":
		fmt.Print(graph.GenerateMermaid(m))
	case "adjacency":
		adj := domaingraph.FromModel(m).Adjacency()
		out, err := json.MarshalIndent(adj, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		return fmt.Errorf("unknown format %q (expected mermaid or adjacency)", format)
	}
	return nil
}
