package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <graph.json>",
	Short: "Export the workflow graph visualization",
	Long: `Reads a graph definition and outputs a Mermaid diagram (graph TD)
representing the workflow. With --run the graph is executed first and nodes
are colored by their run outcome.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runFirst, _ := cmd.Flags().GetBool("run")

		g, err := loadGraph(args[0])
		if err != nil {
			fmt.Printf("Error loading graph: %v\n", err)
			os.Exit(1)
		}

		var overlay *graph.Overlay
		if runFirst {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				fmt.Printf("Error loading config: %v\n", err)
				os.Exit(1)
			}

			engine, err := arbor.New(arbor.WithConfig(cfg))
			if err != nil {
				fmt.Printf("Error initializing arbor: %v\n", err)
				os.Exit(1)
			}

			sessionID, err := engine.CreateSession(cmd.Context())
			if err != nil {
				fmt.Printf("Error creating session: %v\n", err)
				os.Exit(1)
			}

			finals, err := engine.Run(cmd.Context(), sessionID, g)
			if err != nil {
				fmt.Printf("Error executing graph: %v\n", err)
				os.Exit(1)
			}
			overlay = &graph.Overlay{Finals: finals}
		}

		// Generate and print Mermaid graph
		output := graph.GenerateMermaid(g, overlay)
		fmt.Print(output)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().Bool("run", false, "Execute the graph and color nodes by outcome")
}
