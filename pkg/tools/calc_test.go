package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/registry"
)

func calcRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, RegisterBuiltins(reg))
	return reg
}

func TestCalcPrecedence(t *testing.T) {
	reg := calcRegistry(t)

	result, err := reg.Invoke(context.Background(), "calc", map[string]any{"expression": "2+3*4"})
	require.NoError(t, err)
	assert.EqualValues(t, 14, result)
}

func TestCalcTrigAndPower(t *testing.T) {
	reg := calcRegistry(t)

	result, err := reg.Invoke(context.Background(), "calc", map[string]any{"expression": "sin(PI/4)**2"})
	require.NoError(t, err)

	value, ok := result.(float64)
	require.True(t, ok, "expected float64, got %T", result)
	assert.InDelta(t, 0.5, value, 1e-9)
}

func TestCalcExpressionTable(t *testing.T) {
	reg := calcRegistry(t)

	cases := []struct {
		expression string
		want       float64
	}{
		{"(1+2)*(3+4)", 21},
		{"10 % 3", 1},
		{"sqrt(16)", 4},
		{"pow(2, 10)", 1024},
		{"cos(0)", 1},
		{"2.5 * 4", 10},
	}

	for _, tc := range cases {
		t.Run(tc.expression, func(t *testing.T) {
			result, err := reg.Invoke(context.Background(), "calc", map[string]any{"expression": tc.expression})
			require.NoError(t, err)
			switch v := result.(type) {
			case int:
				assert.EqualValues(t, tc.want, v)
			case float64:
				assert.InDelta(t, tc.want, v, 1e-9)
			default:
				t.Fatalf("unexpected result type %T", result)
			}
		})
	}
}

func TestCalcIdempotent(t *testing.T) {
	reg := calcRegistry(t)
	params := map[string]any{"expression": "2+3*4"}

	first, err := reg.Invoke(context.Background(), "calc", params)
	require.NoError(t, err)
	second, err := reg.Invoke(context.Background(), "calc", params)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCalcRejectsDisallowedCharacters(t *testing.T) {
	reg := calcRegistry(t)

	for _, expression := range []string{
		`1; 2`,
		`"abc"`,
		`[1,2]`,
		`x ? 1 : 2`,
		`a == b`,
	} {
		t.Run(expression, func(t *testing.T) {
			_, err := reg.Invoke(context.Background(), "calc", map[string]any{"expression": expression})
			assert.Error(t, err)
		})
	}
}

func TestCalcRejectsMalformedExpression(t *testing.T) {
	reg := calcRegistry(t)

	_, err := reg.Invoke(context.Background(), "calc", map[string]any{"expression": "2+*3"})
	assert.Error(t, err)
}

func TestCalcRequiresExpression(t *testing.T) {
	reg := calcRegistry(t)

	_, err := reg.Invoke(context.Background(), "calc", map[string]any{})
	assert.Error(t, err)
}
