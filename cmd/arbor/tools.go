package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and invoke registered tools",
	Long:  `List the tools the engine can invoke from tool nodes, or call one directly with JSON parameters.`,
}

var toolsLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List the registered tools",
	Run: func(cmd *cobra.Command, args []string) {
		engine := toolsEngine(cmd)

		descriptors := engine.Tools()
		if len(descriptors) == 0 {
			fmt.Println("No tools registered.")
			return
		}

		fmt.Println("Registered tools:")
		for _, d := range descriptors {
			if d.Description != "" {
				fmt.Printf("- %s: %s\n", d.Name, d.Description)
			} else {
				fmt.Printf("- %s\n", d.Name)
			}
		}
	},
}

var toolsInvokeCmd = &cobra.Command{
	Use:   "invoke <name>",
	Short: "Invoke a tool directly",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		paramsJSON, _ := cmd.Flags().GetString("params")

		var params map[string]any
		if paramsJSON != "" {
			if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
				fmt.Printf("Error parsing params: %v\n", err)
				os.Exit(1)
			}
		}

		engine := toolsEngine(cmd)
		result, err := engine.Registry().Invoke(cmd.Context(), args[0], params)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		// Pretty print JSON
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling result: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	},
}

// toolsEngine builds an engine from the configured path so process-backed
// tools show up alongside the built-ins.
func toolsEngine(cmd *cobra.Command) *arbor.Engine {
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
	return engine
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsLsCmd)
	toolsCmd.AddCommand(toolsInvokeCmd)

	toolsInvokeCmd.Flags().String("params", "", "Tool parameters as a JSON object")
}
