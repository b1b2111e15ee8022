// Package mcp exposes the engine to MCP clients. Every registry tool is
// republished as an MCP tool under its own name, and run_graph executes a
// full graph synchronously, returning the final states and the event trail.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"log/slog"

	arbor "github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// drainBatch bounds one channel drain while collecting the event trail.
const drainBatch = 64

// Engine defines the surface the MCP server needs from the core.
type Engine interface {
	CreateSession(ctx context.Context) (string, error)
	Run(ctx context.Context, sessionID string, g *domain.Graph) (map[string]domain.StatePatch, error)
	Drain(ctx context.Context, sessionID string, max int) ([]domain.Event, error)
}

// RunGraphResponse is the structured result of the run_graph tool.
type RunGraphResponse struct {
	SessionID   string                       `json:"sessionId" jsonschema_description:"The session the run executed in"`
	FinalStates map[string]domain.StatePatch `json:"finalStates" jsonschema_description:"Final recorded state per node id"`
	Events      []domain.Event               `json:"events,omitempty" jsonschema_description:"Event trail drained from the session channel"`
}

// ToolResponse is the structured result of a republished registry tool.
type ToolResponse struct {
	Result any    `json:"result,omitempty" jsonschema_description:"The tool's output on success"`
	Error  string `json:"error,omitempty" jsonschema_description:"The failure message, if the tool failed"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	tools     ports.ToolSource
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance over the engine and registry.
func NewServer(engine Engine, tools ports.ToolSource) *Server {
	s := &Server{
		engine:    engine,
		tools:     tools,
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("CORS middleware", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// Republish every registry tool under its own name and schema.
	for _, desc := range s.tools.Describe(nil) {
		s.addRegistryTool(desc)
	}

	// TOOL: run_graph
	runTool := mcp.NewTool("run_graph",
		mcp.WithDescription("Execute a node/edge graph and return the final states and the event trail."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("JSON object with nodes and edges")),
		mcp.WithString("session_id", mcp.Description("Existing session id (optional; a session is created when omitted)")),
		mcp.WithOutputSchema[RunGraphResponse](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunGraph))

	// TOOL: list_tools
	s.mcpServer.AddTool(mcp.NewTool("list_tools",
		mcp.WithDescription("List the registered tools and their parameter schemas."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := json.Marshal(s.tools.Describe(nil))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// addRegistryTool exposes one registered tool to MCP clients. Handler
// failures come back as data so the client sees the message instead of a
// protocol error.
func (s *Server) addRegistryTool(desc ports.ToolDescriptor) {
	schema := desc.Parameters
	if len(schema) == 0 {
		schema = json.RawMessage(`{"type":"object"}`)
	}
	tool := mcp.NewToolWithRawSchema(desc.Name, desc.Description, schema)

	s.mcpServer.AddTool(tool, mcp.NewStructuredToolHandler(func(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ToolResponse, error) {
		result, err := s.tools.Invoke(ctx, desc.Name, args)
		if err != nil {
			slog.Warn("MCP tool invocation failed", "tool", desc.Name, "error", err)
			return ToolResponse{Error: err.Error()}, nil
		}
		return ToolResponse{Result: result}, nil
	}))
}

func (s *Server) handleRunGraph(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunGraphResponse, error) {
	graphStr, _ := args["graph"].(string)
	if graphStr == "" {
		return RunGraphResponse{}, fmt.Errorf("graph is required")
	}

	var g domain.Graph
	if err := json.Unmarshal([]byte(graphStr), &g); err != nil {
		return RunGraphResponse{}, fmt.Errorf("invalid graph: %w", err)
	}
	if err := validator.ValidateGraph(&g); err != nil {
		return RunGraphResponse{}, fmt.Errorf("invalid graph: %w", err)
	}

	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		id, err := s.engine.CreateSession(ctx)
		if err != nil {
			return RunGraphResponse{}, fmt.Errorf("create session failed: %w", err)
		}
		sessionID = id
	}

	finals, err := s.engine.Run(ctx, sessionID, &g)
	if err != nil {
		return RunGraphResponse{}, fmt.Errorf("run failed: %w", err)
	}

	var events []domain.Event
	for {
		batch, err := s.engine.Drain(ctx, sessionID, drainBatch)
		if err != nil {
			slog.Error("MCP run_graph: drain failed", "session_id", sessionID, "error", err)
			break
		}
		if len(batch) == 0 {
			break
		}
		events = append(events, batch...)
	}

	return RunGraphResponse{
		SessionID:   sessionID,
		FinalStates: finals,
		Events:      events,
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: arbor://tools
	s.mcpServer.AddResource(mcp.NewResource("arbor://tools", "Registered Tool Catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.tools.Describe(nil))
		if err != nil {
			return nil, fmt.Errorf("failed to encode tool catalog: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "arbor://tools",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
