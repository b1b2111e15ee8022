package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/domain"
)

func echoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "echoes its params",
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			return params, nil
		},
	}
}

func TestRegisterAndInvoke(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(echoTool("echo")))

	result, err := r.Invoke(context.Background(), "echo", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1}, result)
}

func TestInvokeUnknownTool(t *testing.T) {
	r := New()

	_, err := r.Invoke(context.Background(), "missing", nil)
	require.Error(t, err)

	var unknown *domain.UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "missing", unknown.Tool)
	assert.Contains(t, err.Error(), "missing")
}

func TestInvokeWrapsHandlerFailure(t *testing.T) {
	r := New()
	boom := errors.New("boom")
	require.NoError(t, r.Register(Tool{
		Name: "angry",
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			return nil, boom
		},
	}))

	_, err := r.Invoke(context.Background(), "angry", nil)

	var execErr *domain.ToolExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "angry", execErr.Tool)
	assert.ErrorIs(t, err, boom)
}

func TestInvokeValidatesParamsAgainstSchema(t *testing.T) {
	r := New()
	schema := openapi3.NewObjectSchema().
		WithProperty("city", openapi3.NewStringSchema())
	schema.Required = []string{"city"}

	called := false
	require.NoError(t, r.Register(Tool{
		Name:   "guarded",
		Params: schema,
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			called = true
			return params["city"], nil
		},
	}))

	_, err := r.Invoke(context.Background(), "guarded", map[string]any{})
	var execErr *domain.ToolExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.False(t, called, "handler must not run on schema violation")

	result, err := r.Invoke(context.Background(), "guarded", map[string]any{"city": "Delhi"})
	require.NoError(t, err)
	assert.Equal(t, "Delhi", result)
}

func TestRegisterRejectsDuplicatesAndBadTools(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(echoTool("echo")))

	assert.Error(t, r.Register(echoTool("echo")))
	assert.Error(t, r.Register(Tool{Name: "", Handler: echoTool("x").Handler}))
	assert.Error(t, r.Register(Tool{Name: "nil-handler"}))
}

func TestListAndNamesSorted(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(echoTool("weather")))
	require.NoError(t, r.Register(echoTool("calc")))

	assert.Equal(t, []string{"calc", "weather"}, r.Names())

	tools := r.List()
	require.Len(t, tools, 2)
	assert.Equal(t, "calc", tools[0].Name)
}

func TestDescribeIntersectsWithRegistry(t *testing.T) {
	r := New()
	schema := openapi3.NewObjectSchema().
		WithProperty("expression", openapi3.NewStringSchema())
	require.NoError(t, r.Register(Tool{
		Name:        "calc",
		Description: "evaluates arithmetic",
		Params:      schema,
		Handler:     echoTool("calc").Handler,
	}))
	require.NoError(t, r.Register(echoTool("weather")))

	// Requested names intersect with the registry; unknown names drop out.
	descriptors := r.Describe([]string{"calc", "ghost"})
	require.Len(t, descriptors, 1)
	assert.Equal(t, "calc", descriptors[0].Name)

	var params map[string]any
	require.NoError(t, json.Unmarshal(descriptors[0].Parameters, &params))
	assert.Equal(t, "object", params["type"])

	// Empty request means every registered tool.
	all := r.Describe(nil)
	require.Len(t, all, 2)
	assert.Equal(t, "calc", all[0].Name)
	assert.Equal(t, "weather", all[1].Name)
}
