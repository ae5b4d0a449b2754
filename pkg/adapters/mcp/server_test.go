package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/adapters/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	engine, err := espalier.New("", espalier.WithStore(memory.NewStore()))
	require.NoError(t, err)
	return NewServer(engine)
}

func callReq(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

// call invokes a handler and decodes its JSON text payload.
func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error),
	name string, args map[string]any) (bool, map[string]any, string) {
	t.Helper()

	result, err := handler(context.Background(), callReq(name, args))
	require.NoError(t, err)
	text := textOf(t, result)
	if result.IsError {
		return true, nil, text
	}
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &decoded), "payload: %s", text)
	return false, decoded, text
}

func TestCreateAndListModels(t *testing.T) {
	s := newTestServer(t)

	isErr, body, _ := call(t, s.handleCreateModel, "create_model", map[string]any{"id": "cart"})
	require.False(t, isErr)
	assert.Equal(t, "cart", body["id"])

	isErr, body, _ = call(t, s.handleListModels, "list_models", nil)
	require.False(t, isErr)
	assert.Equal(t, []any{"cart"}, body["models"])
}

func TestAuthoringFlow(t *testing.T) {
	s := newTestServer(t)

	isErr, _, text := call(t, s.handleCreateModel, "create_model", map[string]any{"id": "cart"})
	require.False(t, isErr, text)

	steps := []struct {
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		name    string
		args    map[string]any
	}{
		{s.handleAddSlice, "add_slice", map[string]any{
			"model_id": "cart",
			"slice":    `{"id":"slice-add-item","index":0,"title":"Add Item","sliceType":"STATE_CHANGE"}`,
		}},
		{s.handleAddElement, "add_element", map[string]any{
			"model_id": "cart", "slice_id": "slice-add-item",
			"element": `{"id":"cmd-add-item","title":"Add Item","type":"COMMAND"}`,
		}},
		{s.handleAddElement, "add_element", map[string]any{
			"model_id": "cart", "slice_id": "slice-add-item",
			"element": `{"id":"evt-item-added","title":"Item Added","type":"EVENT"}`,
		}},
		{s.handleConnect, "connect_elements", map[string]any{
			"model_id": "cart", "from": "cmd-add-item", "to": "evt-item-added",
		}},
		{s.handleAddSpecification, "add_specification", map[string]any{
			"model_id": "cart", "slice_id": "slice-add-item",
			"specification": `{"id":"spec-1","title":"First item","when":[{"id":"w1","title":"Add Item","type":"SPEC_COMMAND","linkedId":"cmd-add-item"}],"then":[{"id":"t1","title":"Item Added","type":"SPEC_EVENT","linkedId":"evt-item-added"}]}`,
		}},
	}
	for _, step := range steps {
		isErr, body, text := call(t, step.handler, step.name, step.args)
		require.False(t, isErr, "%s failed: %s", step.name, text)
		assert.Equal(t, "ok", body["status"], step.name)
	}

	isErr, body, text := call(t, s.handleCommitSlice, "commit_slice",
		map[string]any{"model_id": "cart", "slice_id": "slice-add-item"})
	require.False(t, isErr, text)
	assert.Equal(t, []any{}, body["warnings"])

	// The persisted model carries everything the tools wrote.
	isErr, body, text = call(t, s.handleGetModel, "get_model", map[string]any{"model_id": "cart"})
	require.False(t, isErr, text)
	assert.Contains(t, text, `"spec-1"`)
	slices, ok := body["slices"].([]any)
	require.True(t, ok)
	require.Len(t, slices, 1)

	isErr, body, text = call(t, s.handleGetGraph, "get_graph", map[string]any{"model_id": "cart"})
	require.False(t, isErr, text)
	adjacency, ok := body["adjacency"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, adjacency, "cmd-add-item")

	isErr, body, text = call(t, s.handleValidateModel, "validate_model", map[string]any{"model_id": "cart"})
	require.False(t, isErr, text)
	assert.Equal(t, true, body["valid"])
}

func TestToolErrorsCarryKind(t *testing.T) {
	s := newTestServer(t)

	isErr, _, text := call(t, s.handleCreateModel, "create_model", map[string]any{"id": "cart"})
	require.False(t, isErr, text)
	isErr, _, text = call(t, s.handleAddSlice, "add_slice", map[string]any{
		"model_id": "cart",
		"slice":    `{"id":"slice-add-item","index":0,"title":"Add Item","sliceType":"STATE_CHANGE"}`,
	})
	require.False(t, isErr, text)

	tests := []struct {
		name       string
		handler    func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args       map[string]any
		wantPrefix string
	}{
		{
			name:       "duplicate slice",
			handler:    s.handleAddSlice,
			args:       map[string]any{"model_id": "cart", "slice": `{"id":"slice-add-item","index":1,"title":"Again","sliceType":"STATE_CHANGE"}`},
			wantPrefix: "[DUPLICATE_ID]",
		},
		{
			name:       "unknown connection endpoint",
			handler:    s.handleConnect,
			args:       map[string]any{"model_id": "cart", "from": "cmd-ghost", "to": "evt-ghost"},
			wantPrefix: "[UNKNOWN_REFERENCE]",
		},
		{
			name:       "unknown model",
			handler:    s.handleGetModel,
			args:       map[string]any{"model_id": "ghost"},
			wantPrefix: "model not found",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isErr, _, text := call(t, tc.handler, tc.name, tc.args)
			assert.True(t, isErr)
			assert.Contains(t, text, tc.wantPrefix)
		})
	}
}

func TestRemoveElementCascadeArg(t *testing.T) {
	s := newTestServer(t)

	isErr, _, text := call(t, s.handleCreateModel, "create_model", map[string]any{"id": "cart"})
	require.False(t, isErr, text)
	isErr, _, text = call(t, s.handleAddSlice, "add_slice", map[string]any{
		"model_id": "cart",
		"slice":    `{"id":"slice-add-item","index":0,"title":"Add Item","sliceType":"STATE_CHANGE"}`,
	})
	require.False(t, isErr, text)
	for _, el := range []string{
		`{"id":"cmd-add-item","title":"Add Item","type":"COMMAND"}`,
		`{"id":"evt-item-added","title":"Item Added","type":"EVENT"}`,
	} {
		isErr, _, text = call(t, s.handleAddElement, "add_element",
			map[string]any{"model_id": "cart", "slice_id": "slice-add-item", "element": el})
		require.False(t, isErr, text)
	}
	isErr, _, text = call(t, s.handleConnect, "connect_elements",
		map[string]any{"model_id": "cart", "from": "cmd-add-item", "to": "evt-item-added"})
	require.False(t, isErr, text)

	isErr, _, text = call(t, s.handleRemoveElement, "remove_element",
		map[string]any{"model_id": "cart", "element_id": "evt-item-added"})
	assert.True(t, isErr)
	assert.Contains(t, text, "[REFERENCED_ELEMENT]")

	isErr, _, text = call(t, s.handleRemoveElement, "remove_element",
		map[string]any{"model_id": "cart", "element_id": "evt-item-added", "cascade": true})
	require.False(t, isErr, text)

	_, _, text = call(t, s.handleGetModel, "get_model", map[string]any{"model_id": "cart"})
	assert.NotContains(t, text, "evt-item-added")
}

func TestInvalidJSONPayloadRejected(t *testing.T) {
	s := newTestServer(t)

	isErr, _, text := call(t, s.handleCreateModel, "create_model", map[string]any{"id": "cart"})
	require.False(t, isErr, text)

	isErr, _, text = call(t, s.handleAddSlice, "add_slice",
		map[string]any{"model_id": "cart", "slice": "{not json"})
	assert.True(t, isErr)
	assert.Contains(t, text, "invalid slice payload")
}

func TestModelsResource(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	isErr, _, text := call(t, s.handleCreateModel, "create_model", map[string]any{"id": "cart"})
	require.False(t, isErr, text)

	ids, err := s.engine.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cart"}, ids)
}
