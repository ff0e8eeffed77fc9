package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TreeResponse is the structured result of the tree tools.
type TreeResponse struct {
	Root     string           `json:"root"`
	Snapshot *domain.Snapshot `json:"snapshot"`
	Markup   string           `json:"markup,omitempty"`
}

// treeOutputSchema describes TreeResponse. Snapshots nest, so the schema is
// declared by hand with a self reference instead of being reflected.
var treeOutputSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "root": {"type": "string", "description": "Identifier of the root"},
    "snapshot": {"$ref": "#/$defs/snapshot", "description": "Committed tree of the root"},
    "markup": {"type": "string", "description": "Host markup, when the host can print itself"}
  },
  "required": ["root", "snapshot"],
  "$defs": {
    "snapshot": {
      "type": "object",
      "properties": {
        "kind": {"type": "string"},
        "component": {"type": "boolean"},
        "text": {"type": "string"},
        "props": {"type": "object"},
        "events": {"type": "array", "items": {"type": "string"}},
        "effect": {"type": "string"},
        "children": {"type": "array", "items": {"$ref": "#/$defs/snapshot"}}
      },
      "required": ["kind"]
    }
  }
}`)

// Server exposes a session.Manager as an MCP Server.
type Server struct {
	manager   *session.Manager
	registry  *registry.Registry
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance. Documents are decoded
// against reg.
func NewServer(manager *session.Manager, reg *registry.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if reg == nil {
		reg = registry.NewRegistry()
	}
	s := &Server{
		manager:   manager,
		registry:  reg,
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
		logger:    logger,
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

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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
	// TOOL: render_tree
	renderTool := mcp.NewTool("render_tree",
		mcp.WithDescription("Mount a YAML or JSON element document on a root and return the committed tree."),
		mcp.WithString("root_id", mcp.Required(), mcp.Description("Identifier of the root to render into")),
		mcp.WithString("document", mcp.Required(), mcp.Description("Element document: {kind, props, children}")),
		mcp.WithRawOutputSchema(treeOutputSchema),
	)
	s.mcpServer.AddTool(renderTool, mcp.NewStructuredToolHandler(s.handleRenderTree))

	// TOOL: dispatch_event
	dispatchTool := mcp.NewTool("dispatch_event",
		mcp.WithDescription("Deliver an event to a host node and return the tree after the resulting pass."),
		mcp.WithString("root_id", mcp.Required(), mcp.Description("Identifier of the root")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Numeric id of the host node")),
		mcp.WithString("event", mcp.Required(), mcp.Description("Event name, e.g. click")),
		mcp.WithString("payload", mcp.Description("JSON payload passed to the handler (optional)")),
		mcp.WithRawOutputSchema(treeOutputSchema),
	)
	s.mcpServer.AddTool(dispatchTool, mcp.NewStructuredToolHandler(s.handleDispatch))

	// TOOL: get_tree
	s.mcpServer.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Get the committed tree of a root as JSON or a Mermaid flowchart."),
		mcp.WithString("root_id", mcp.Required(), mcp.Description("Identifier of the root")),
		mcp.WithString("format", mcp.Description("json (default) or mermaid")),
	), s.handleGetTree)

	// TOOL: list_roots
	s.mcpServer.AddTool(mcp.NewTool("list_roots",
		mcp.WithDescription("List live and stored roots."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.manager.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleRenderTree(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TreeResponse, error) {
	id, _ := args["root_id"].(string)
	doc, _ := args["document"].(string)
	if id == "" {
		return TreeResponse{}, fmt.Errorf("root_id is required")
	}

	el, err := dsl.Decode([]byte(doc), s.registry)
	if err != nil {
		return TreeResponse{}, fmt.Errorf("invalid document: %w", err)
	}

	snap, err := s.manager.Render(ctx, id, el)
	if err != nil {
		s.logger.Error("MCP Render failed", "root", id, "err", err)
		return TreeResponse{}, fmt.Errorf("render failed: %w", err)
	}
	return s.response(ctx, id, snap), nil
}

func (s *Server) handleDispatch(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TreeResponse, error) {
	id, _ := args["root_id"].(string)
	event, _ := args["event"].(string)
	rawNode, _ := args["node_id"].(string)

	node, err := strconv.Atoi(rawNode)
	if err != nil {
		return TreeResponse{}, fmt.Errorf("node_id must be numeric: %q", rawNode)
	}

	var payload any
	if p, ok := args["payload"].(string); ok && p != "" {
		if err := json.Unmarshal([]byte(p), &payload); err != nil {
			return TreeResponse{}, fmt.Errorf("invalid payload: %w", err)
		}
	}

	snap, err := s.manager.Dispatch(ctx, id, node, event, payload)
	if err != nil {
		return TreeResponse{}, fmt.Errorf("dispatch failed: %w", err)
	}
	return s.response(ctx, id, snap), nil
}

func (s *Server) handleGetTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, _ := args["root_id"].(string)
	format, _ := args["format"].(string)

	snap, err := s.manager.Snapshot(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot failed: %v", err)), nil
	}
	if format == "mermaid" {
		return mcp.NewToolResultText(graph.GenerateMermaid(snap, graph.Options{Effects: true})), nil
	}
	jsonBytes, _ := json.Marshal(snap)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// response attaches the host markup, read under the root lock.
func (s *Server) response(ctx context.Context, id string, snap *domain.Snapshot) TreeResponse {
	resp := TreeResponse{Root: id, Snapshot: snap}
	_ = s.manager.WithLock(ctx, id, func(context.Context) error {
		if root, ok := s.manager.Root(id); ok {
			if m, ok := root.Host.(interface{ Markup() string }); ok {
				resp.Markup = m.Markup()
			}
		}
		return nil
	})
	return resp
}

func (s *Server) registerResources() {
	// EXPOSE: arbor://roots
	s.mcpServer.AddResource(mcp.NewResource("arbor://roots", "Known Roots",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.manager.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list roots: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "arbor://roots",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	// EXPOSE: arbor://components
	s.mcpServer.AddResource(mcp.NewResource("arbor://components", "Registered Components",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, _ := json.Marshal(map[string]any{
			"components": s.registry.Components(),
			"schemas":    s.registry.Schemas(),
		})
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "arbor://components",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
