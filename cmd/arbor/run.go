package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <graph.json>",
	Short: "Execute a workflow graph and stream its progress",
	Long: `Reads a graph definition (JSON or YAML with nodes and edges), executes it
in a fresh session and prints node-by-node progress until the run finishes.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		headless, _ := cmd.Flags().GetBool("headless")
		jsonMode, _ := cmd.Flags().GetBool("json")
		query, _ := cmd.Flags().GetString("query")

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		g, err := loadGraph(args[0])
		if err != nil {
			fmt.Printf("Error loading graph: %v\n", err)
			os.Exit(1)
		}

		if query != "" && !overrideQuery(g, query) {
			fmt.Println("Error: --query requires an input node in the graph")
			os.Exit(1)
		}

		engine, err := arbor.New(arbor.WithConfig(cfg))
		if err != nil {
			fmt.Printf("Error initializing arbor: %v\n", err)
			os.Exit(1)
		}

		runner := arbor.NewRunner()
		runner.Output = os.Stdout
		runner.Headless = headless
		runner.JSON = jsonMode

		// Banner and markdown rendering only make sense on a real terminal;
		// piped output gets the plain stream.
		if !headless && !jsonMode && term.IsTerminal(int(os.Stdout.Fd())) {
			tui.PrintBanner(arbor.Version)
			runner.Renderer = tui.NewRenderer()
		}

		if err := runner.Run(cmd.Context(), engine, g); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("headless", false, "Run in headless mode (answers and errors only)")
	runCmd.Flags().Bool("json", false, "Emit raw events as NDJSON")
	runCmd.Flags().StringP("query", "q", "", "Override the input node's query")
}

// loadGraph reads a graph definition from a JSON or YAML file.
func loadGraph(path string) (*domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		// YAML graphs share the JSON field names, so bridge through JSON
		// instead of duplicating tags on the domain types.
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse graph: %w", err)
		}
		if data, err = json.Marshal(raw); err != nil {
			return nil, fmt.Errorf("failed to parse graph: %w", err)
		}
	}

	var g domain.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}
	return &g, nil
}

// overrideQuery replaces the query param on the first input node, so one
// graph file can serve many prompts.
func overrideQuery(g *domain.Graph, query string) bool {
	for i := range g.Nodes {
		if g.Nodes[i].Kind == domain.KindInput {
			if g.Nodes[i].Params == nil {
				g.Nodes[i].Params = make(map[string]any)
			}
			g.Nodes[i].Params["query"] = query
			return true
		}
	}
	return false
}
