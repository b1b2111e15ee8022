package arbor_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/registry"
)

// ExampleNew_library demonstrates using arbor purely as a Go library with a
// custom tool, without any server or external planner.
func ExampleNew_library() {
	// 1. Register your own tool.
	reg := registry.New()
	err := reg.Register(registry.Tool{
		Name:        "greet",
		Description: "Greets a person by name.",
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			name, _ := params["name"].(string)
			return "Hello, " + name + "!", nil
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	// 2. Initialize the engine with the custom registry.
	engine, err := arbor.New(arbor.WithRegistry(reg))
	if err != nil {
		log.Fatal(err)
	}

	// 3. Run a graph that calls the tool.
	b := dsl.New()
	b.Add("hello").Tool("greet", map[string]any{"name": "Ada"}).To("out")
	b.Add("out").Output()

	graph, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	sessionID, err := engine.CreateSession(ctx)
	if err != nil {
		log.Fatal(err)
	}

	finals, err := engine.Run(ctx, sessionID, graph)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(finals["hello"].Result)

	// Output:
	// Hello, Ada!
}
