// Package graph renders submitted graphs as Mermaid flowcharts, optionally
// overlaying a finished run's statuses.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Overlay carries the final states of a finished run so the diagram can
// color nodes by outcome.
type Overlay struct {
	Finals map[string]domain.StatePatch
}

// GenerateMermaid produces a Mermaid flowchart (graph TD) from a graph.
// It applies semantic shapes per node kind:
//   - input: [/Parallelogram/]
//   - tool: [[Subroutine]]
//   - llm: ((Circle))
//   - router: {Diamond}
//   - default: [Rectangle]
func GenerateMermaid(g *domain.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range g.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Kind {
		case domain.KindInput:
			opener, closer = "[/", "/]"
		case domain.KindTool:
			opener, closer = "[[", "]]"
		case domain.KindLLM:
			opener, closer = "((", "))"
		case domain.KindRouter:
			opener, closer = "{", "}"
		}

		label := strings.ReplaceAll(node.DisplayName(), "\"", "'")
		if node.Kind == domain.KindTool && node.ToolName != "" {
			label = fmt.Sprintf("%s: %s", label, node.ToolName)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))
	}

	for _, edge := range g.Edges {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n",
			sanitizeMermaidID(edge.Source), sanitizeMermaidID(edge.Target)))
	}

	// Color nodes by run outcome when an overlay is provided.
	if overlay != nil && len(overlay.Finals) > 0 {
		sb.WriteString("\n    %% Run Outcome Styles\n")
		sb.WriteString("    classDef done fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef skipped fill:#eceff1,stroke:#607d8b,stroke-width:1px,color:#000;\n")

		for _, node := range g.Nodes {
			patch, ok := overlay.Finals[node.ID]
			if !ok {
				continue
			}

			var class string
			switch patch.Status {
			case domain.StatusDone, domain.StatusStarted:
				class = "done"
			case domain.StatusError:
				class = "failed"
			case domain.StatusSkipped:
				class = "skipped"
			default:
				continue
			}
			sb.WriteString(fmt.Sprintf("    class %s %s;\n", sanitizeMermaidID(node.ID), class))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
