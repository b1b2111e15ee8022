// Package tools ships the built-in demo tools registered with every
// default engine: a restricted arithmetic evaluator and a fixed-table
// weather lookup. Both are pure functions of their params and safe to
// retry.
package tools

import (
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/arbor/pkg/registry"
)

// RegisterBuiltins adds the built-in tools to reg.
func RegisterBuiltins(reg *registry.Registry) error {
	for _, tool := range []registry.Tool{Calc(), Weather()} {
		if err := reg.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// decodeParams maps a loose params bag onto a typed struct, tolerating
// JSON's habit of widening numbers.
func decodeParams(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
