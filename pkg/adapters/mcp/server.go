// Package mcp exposes the builder surface as an MCP tool server so agent
// collaborators can author blueprints over stdio or SSE.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/builder"
	"github.com/aretw0/espalier/pkg/codec"
	"github.com/aretw0/espalier/pkg/domain"
)

// Server wraps the Espalier Engine and exposes it as an MCP server.
type Server struct {
	engine    *espalier.Engine
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance.
func NewServer(engine *espalier.Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("espalier-mcp", strings.TrimSpace(espalier.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on stdin/stdout.
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
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// modelArgs is the base argument set shared by most tools.
type modelArgs struct {
	ModelID string `mapstructure:"model_id"`
}

func decodeArgs(request mcp.CallToolRequest, into any) error {
	if err := mapstructure.Decode(request.GetArguments(), into); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_model",
		mcp.WithDescription("Create a new empty blueprint. Returns the id actually used (collisions get a numeric suffix)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Requested model id")),
	), s.handleCreateModel)

	s.mcpServer.AddTool(mcp.NewTool("list_models",
		mcp.WithDescription("List the ids of all stored blueprints."),
	), s.handleListModels)

	s.mcpServer.AddTool(mcp.NewTool("get_model",
		mcp.WithDescription("Return the canonical JSON of a blueprint."),
		mcp.WithString("model_id", mcp.Required(), mcp.Description("Model id")),
	), s.handleGetModel)

	s.mcpServer.AddTool(mcp.NewTool("add_slice",
		mcp.WithDescription("Add a slice. The slice argument is a JSON object with id, index, title and sliceType (STATE_CHANGE, STATE_VIEW or AUTOMATION)."),
		mcp.WithString("model_id", mcp.Required(), mcp.Description("Model id")),
		mcp.WithString("slice", mcp.Required(), mcp.Description("Slice payload as a JSON string")),
	), s.handleAddSlice)

	s.mcpServer.AddTool(mcp.NewTool("add_element",
		mcp.WithDescription("Add an element to a slice. The element argument is a JSON object with id, title, type (COMMAND, EVENT, READMODEL, SCREEN or AUTOMATION) and optional fields."),
		mcp.WithString("model_id", mcp.Required(), mcp.Description("Model id")),
		mcp.WithString("slice_id", mcp.Required(), mcp.Description("Slice id")),
		mcp.WithString("element", mcp.Required(), mcp.Description("Element payload as a JSON string")),
	), s.handleAddElement)

	s.mcpServer.AddTool(mcp.NewTool("add_dependency",
		mcp.WithDescription("Attach one dependency descriptor to an element. The dependency argument is a JSON object with id, type (INBOUND or OUTBOUND) and elementType."),
		mcp.WithString("model_id", mcp.Required(), mcp.Description("Model id")),
		mcp.WithString("element_id", mcp.Required(), mcp.Description("Element carrying the descriptor")),
		mcp.WithString("dependency", mcp.Required(), mcp.Description("Dependency payload as a JSON string")),
	), s.handleAddDependency)

	s.mcpServer.AddTool(mcp.NewTool("connect_elements",
		mcp.WithDescription("Connect two elements with a symmetric OUTBOUND/INBOUND descriptor pair (from feeds to)."),
		mcp.WithString("model_id", mcp.Required(), mcp.Description("Model id")),
		mcp.WithString("from", mcp.Required(), mcp.Description("Feeding element id")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Fed element id")),
	), s.handleConnect)

	s.mcpServer.AddTool(mcp.NewTool("add_specification",
		mcp.WithDescription("Attach a Given/When/Then specification to a slice. The specification argument is a JSON object."),
		mcp.WithString("model_id", mcp.Required(), mcp.Description("Model id")),
		mcp.WithString("slice_id", mcp.Required(), mcp.Description("Slice id")),
		mcp.WithString("specification", mcp.Required(), mcp.Description("Specification payload as a JSON string")),
	), s.handleAddSpecification)

	s.mcpServer.AddTool(mcp.NewTool("commit_slice",
		mcp.WithDescription("Run the type rule engine over a slice. Returns sequencing warnings, if any."),
		mcp.WithString("model_id", mcp.Required(), mcp.Description("Model id")),
		mcp.WithString("slice_id", mcp.Required(), mcp.Description("Slice id")),
	), s.handleCommitSlice)

	s.mcpServer.AddTool(mcp.NewTool("remove_element",
		mcp.WithDescription("Remove an element. Without cascade the call fails while anything still references it."),
		mcp.WithString("model_id", mcp.Required(), mcp.Description("Model id")),
		mcp.WithString("element_id", mcp.Required(), mcp.Description("Element id")),
		mcp.WithBoolean("cascade", mcp.Description("Also remove referencing descriptors and specification steps")),
	), s.handleRemoveElement)

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Return the dependency graph as an adjacency mapping over element ids."),
		mcp.WithString("model_id", mcp.Required(), mcp.Description("Model id")),
	), s.handleGetGraph)

	s.mcpServer.AddTool(mcp.NewTool("validate_model",
		mcp.WithDescription("Run the full rule engine over a blueprint. Returns warnings, or the first structural error."),
		mcp.WithString("model_id", mcp.Required(), mcp.Description("Model id")),
	), s.handleValidateModel)
}

func (s *Server) handleCreateModel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ID string `mapstructure:"id"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.engine.Create(ctx, args.ID)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(`{"id":%q}`, id)), nil
}

func (s *Server) handleListModels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.engine.List(ctx)
	if err != nil {
		return toolError(err), nil
	}
	data, _ := json.Marshal(map[string]any{"models": ids})
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetModel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args modelArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.engine.Open(ctx, args.ModelID)
	if err != nil {
		return toolError(err), nil
	}
	data, err := b.Serialize()
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleAddSlice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		modelArgs `mapstructure:",squash"`
		Slice     string `mapstructure:"slice"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var slice domain.Slice
	if err := json.Unmarshal([]byte(args.Slice), &slice); err != nil {
		return mcp.NewToolResultError("invalid slice payload: " + err.Error()), nil
	}
	return s.mutate(ctx, args.ModelID, func(b *builder.Builder) error {
		return b.AddSlice(slice)
	})
}

func (s *Server) handleAddElement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		modelArgs `mapstructure:",squash"`
		SliceID   string `mapstructure:"slice_id"`
		Element   string `mapstructure:"element"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var el domain.Element
	if err := json.Unmarshal([]byte(args.Element), &el); err != nil {
		return mcp.NewToolResultError("invalid element payload: " + err.Error()), nil
	}
	return s.mutate(ctx, args.ModelID, func(b *builder.Builder) error {
		return b.AddElement(args.SliceID, el)
	})
}

func (s *Server) handleAddDependency(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		modelArgs  `mapstructure:",squash"`
		ElementID  string `mapstructure:"element_id"`
		Dependency string `mapstructure:"dependency"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var dep domain.Dependency
	if err := json.Unmarshal([]byte(args.Dependency), &dep); err != nil {
		return mcp.NewToolResultError("invalid dependency payload: " + err.Error()), nil
	}
	return s.mutate(ctx, args.ModelID, func(b *builder.Builder) error {
		return b.AddDependency(args.ElementID, dep)
	})
}

func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		modelArgs `mapstructure:",squash"`
		From      string `mapstructure:"from"`
		To        string `mapstructure:"to"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.mutate(ctx, args.ModelID, func(b *builder.Builder) error {
		return b.Connect(args.From, args.To)
	})
}

func (s *Server) handleAddSpecification(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		modelArgs     `mapstructure:",squash"`
		SliceID       string `mapstructure:"slice_id"`
		Specification string `mapstructure:"specification"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var spec domain.Specification
	if err := json.Unmarshal([]byte(args.Specification), &spec); err != nil {
		return mcp.NewToolResultError("invalid specification payload: " + err.Error()), nil
	}
	return s.mutate(ctx, args.ModelID, func(b *builder.Builder) error {
		return b.AddSpecification(args.SliceID, spec)
	})
}

func (s *Server) handleCommitSlice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		modelArgs `mapstructure:",squash"`
		SliceID   string `mapstructure:"slice_id"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.engine.Open(ctx, args.ModelID)
	if err != nil {
		return toolError(err), nil
	}
	warnings, err := b.CommitSlice(args.SliceID)
	if err != nil {
		return toolError(err), nil
	}
	if err := s.engine.Save(ctx, args.ModelID, b); err != nil {
		return toolError(err), nil
	}
	if warnings == nil {
		warnings = []domain.Warning{}
	}
	data, _ := json.Marshal(map[string]any{"warnings": warnings})
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleRemoveElement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		modelArgs `mapstructure:",squash"`
		ElementID string `mapstructure:"element_id"`
		Cascade   bool   `mapstructure:"cascade"`
	}
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.mutate(ctx, args.ModelID, func(b *builder.Builder) error {
		return b.RemoveElement(args.ElementID, args.Cascade)
	})
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args modelArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.engine.Open(ctx, args.ModelID)
	if err != nil {
		return toolError(err), nil
	}
	data, _ := json.Marshal(map[string]any{"adjacency": b.Adjacency()})
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleValidateModel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args modelArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.engine.Open(ctx, args.ModelID)
	if err != nil {
		return toolError(err), nil
	}
	data, err := b.Serialize()
	if err != nil {
		return toolError(err), nil
	}
	_, warnings, err := codec.Decode(data)
	if err != nil {
		return toolError(err), nil
	}
	if warnings == nil {
		warnings = []domain.Warning{}
	}
	out, _ := json.Marshal(map[string]any{"valid": true, "warnings": warnings})
	return mcp.NewToolResultText(string(out)), nil
}

// mutate runs one builder mutation as a load-apply-save round trip.
func (s *Server) mutate(ctx context.Context, modelID string, fn func(b *builder.Builder) error) (*mcp.CallToolResult, error) {
	b, err := s.engine.Open(ctx, modelID)
	if err != nil {
		return toolError(err), nil
	}
	if err := fn(b); err != nil {
		return toolError(err), nil
	}
	if err := s.engine.Save(ctx, modelID, b); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(`{"status":"ok"}`), nil
}

// toolError reports the structural error kind alongside the message so
// agent callers can branch on it.
func toolError(err error) *mcp.CallToolResult {
	if kind := domain.KindOf(err); kind != "" {
		return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", kind, err.Error()))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("espalier://models", "Stored Blueprints",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.engine.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		data, _ := json.Marshal(map[string]any{"models": ids})
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "espalier://models",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
