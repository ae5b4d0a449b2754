package main

import (
	"fmt"
	"os"

	"github.com/aretw0/espalier/pkg/codec"
	"github.com/spf13/cobra"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt <file>",
	Short: "Rewrite a blueprint file in canonical form",
	Long: `Re-serializes the blueprint with stable key order and indentation.
Drafts are accepted: only the schema and global invariants are checked.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		write, _ := cmd.Flags().GetBool("write")
		if err := runFmt(args[0], write); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(fmtCmd)
	fmtCmd.Flags().BoolP("write", "w", false, "Write result back to the file instead of stdout")
}

func runFmt(path string, write bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	m, err := codec.DecodeDraft(data)
	if err != nil {
		return err
	}

	out, err := codec.Encode(m)
	if err != nil {
		return err
	}
	out = append(out, '\n')

	if write {
		return os.WriteFile(path, out, 0o644)
	}
	_, err = os.Stdout.Write(out)
	return err
}
