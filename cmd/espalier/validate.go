package main

import (
	"fmt"
	"os"

	"github.com/aretw0/espalier/pkg/codec"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a blueprint file for structural consistency",
	Long: `Decodes the given JSON blueprint and runs the full rule engine over it:
schema, references, composition, transitions, symmetry and acyclicity.
Sequencing issues are reported as warnings and do not fail the check.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args[0]); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	_, warnings, err := codec.Decode(data)
	if err != nil {
		return err
	}

	for _, w := range warnings {
		fmt.Printf("warning [%s] slice %s: %s\n", w.Kind, w.SliceID, w.Message)
	}
	fmt.Println("Blueprint is valid! ✅")
	return nil
}
