/*
Package dsl provides a fluent builder for programmatically constructing
arbor graphs.

It allows developers to define node/edge graphs using a type-safe builder
pattern instead of hand-writing JSON payloads. This is particularly useful
for dynamic graph generation, unit testing, and leveraging IDE
autocompletion/type-checking.

Example usage:

	package main

	import (
		"github.com/aretw0/arbor/pkg/dsl"
	)

	func main() {
		b := dsl.New()

		b.Add("ask").
			Input("What is 7 * 2?").
			To("planner")

		b.Add("planner").
			LLM().
			Label("Planner").
			To("answer")

		b.Add("answer").
			Output()

		graph, err := b.Build()
		// ... submit graph with engine.Run(...)
		_ = graph
		_ = err
	}
*/
package dsl
