package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/aretw0/arbor/pkg/registry"
)

// calcEnv exposes the only identifiers an expression may reference beyond
// the evaluator's arithmetic builtins. No ambient program access.
var calcEnv = map[string]any{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"sqrt": math.Sqrt,
	"pow":  math.Pow,
	"PI":   math.Pi,
	"E":    math.E,
}

type calcParams struct {
	Expression string `mapstructure:"expression"`
}

// Calc returns the restricted arithmetic evaluator tool. It accepts only a
// whitelisted character set, so an expression like "2+3*4" or
// "sin(PI/4)**2" evaluates while anything reaching for quotes, brackets or
// other syntax is rejected before parsing.
func Calc() registry.Tool {
	exprSchema := openapi3.NewStringSchema()
	exprSchema.Description = `Arithmetic expression, e.g. "2+3*4" or "sin(PI/4)**2"`
	schema := openapi3.NewObjectSchema().WithProperty("expression", exprSchema)
	schema.Required = []string{"expression"}

	return registry.Tool{
		Name:        "calc",
		Description: "Evaluates a restricted arithmetic expression and returns the numeric result.",
		Params:      schema,
		Handler:     evalCalc,
	}
}

func evalCalc(ctx context.Context, params map[string]any) (any, error) {
	var p calcParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	expression := strings.TrimSpace(p.Expression)
	if expression == "" {
		return nil, errors.New("expression is empty")
	}
	for _, r := range expression {
		if !allowedCalcRune(r) {
			return nil, fmt.Errorf("disallowed character %q in expression", r)
		}
	}

	program, err := expr.Compile(expression, expr.Env(calcEnv))
	if err != nil {
		return nil, fmt.Errorf("parse expression: %w", err)
	}
	out, err := expr.Run(program, calcEnv)
	if err != nil {
		return nil, fmt.Errorf("evaluate expression: %w", err)
	}

	switch out.(type) {
	case int, int64, float64:
		return out, nil
	default:
		return nil, fmt.Errorf("expression produced %T, not a number", out)
	}
}

func allowedCalcRune(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	}
	return strings.ContainsRune("+-*/%()., ", r)
}
