package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/aretw0/espalier/internal/presentation/tui"
	"github.com/aretw0/espalier/pkg/codec"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Render a human-readable summary of a blueprint",
	Long:  `Prints a markdown summary of the blueprint (slices, element counts, specification counts), rendered for the terminal when stdout is one.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runShow(args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	m, err := codec.DecodeDraft(data)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	markdown := tui.Summary(name, m)

	if term.IsTerminal(int(os.Stdout.Fd())) {
		render := tui.NewRenderer()
		out, err := render(markdown)
		if err == nil {
			fmt.Print(out)
			return nil
		}
		// Fall through to plain markdown on render failure.
	}
	fmt.Print(markdown)
	return nil
}
