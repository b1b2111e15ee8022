package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph.json>",
	Short: "Check a graph definition for consistency",
	Long:  `Parses the graph definition and reports duplicate node IDs, dangling edges and other structural problems.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args[0]); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Graph is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	g, err := loadGraph(path)
	if err != nil {
		return err
	}
	return validator.ValidateGraph(g)
}
