package arbor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// runnerPoll is how often the Runner drains the session channel.
const runnerPoll = 25 * time.Millisecond

// Runner executes one graph run and prints the event stream using the
// provided output. This keeps frontends (CLI, TUI, tests) decoupled from
// the engine itself.
type Runner struct {
	Output io.Writer
	// Headless suppresses progress lines; only answers and errors print.
	Headless bool
	// JSON emits raw events as NDJSON, one per line, instead of
	// formatted text. Headless and Renderer are ignored in this mode.
	JSON     bool
	Renderer ContentRenderer
}

// ContentRenderer transforms answer content before it is written. This
// allows TUI rendering (markdown to ANSI) without coupling the core
// package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a new Runner. Set Output before calling Run.
func NewRunner() *Runner {
	return &Runner{}
}

// Run submits the graph in a fresh session and streams events to Output
// until the terminal done event passes through.
func (r *Runner) Run(ctx context.Context, engine *Engine, g *domain.Graph) error {
	writer := r.Output
	if writer == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}

	sessionID, err := engine.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if err := engine.Submit(ctx, sessionID, g); err != nil {
		return err
	}

	seen := make(map[string]domain.NodeStatus)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		events, err := engine.Drain(ctx, sessionID, 64)
		if err != nil {
			return fmt.Errorf("drain: %w", err)
		}
		for _, ev := range events {
			if r.JSON {
				if data, err := json.Marshal(ev); err == nil {
					fmt.Fprintln(writer, string(data))
				}
			} else {
				r.printEvent(writer, ev, seen)
			}
			if ev.Type == domain.EventDone {
				return nil
			}
		}
		if len(events) == 0 {
			time.Sleep(runnerPoll)
		}
	}
}

func (r *Runner) printEvent(w io.Writer, ev domain.Event, seen map[string]domain.NodeStatus) {
	switch ev.Type {
	case domain.EventNodeEnter:
		if r.Headless {
			return
		}
		if payload, ok := ev.Payload.(map[string]any); ok {
			if msg, ok := payload["message"].(string); ok {
				fmt.Fprintf(w, "%s\n", sanitizeTerminal(msg))
			}
		}

	case domain.EventStatePatch:
		patch, err := ev.Patch()
		if err != nil {
			return
		}

		// Streaming statuses repeat as partial text grows; one line each.
		repeat := seen[ev.Node] == patch.Status &&
			(patch.Status == domain.StatusGenerating || patch.Status == domain.StatusAnswering)
		seen[ev.Node] = patch.Status
		if repeat {
			return
		}

		switch {
		case patch.Error != "":
			fmt.Fprintf(w, "  %s: %s (%s)\n", ev.Node, patch.Status, sanitizeTerminal(patch.Error))
		case patch.Answer != "" && patch.Status == domain.StatusDone:
			answer := sanitizeTerminal(patch.Answer)
			if r.Renderer != nil {
				if rendered, err := r.Renderer(answer); err == nil {
					answer = rendered
				}
			}
			if r.Headless {
				fmt.Fprintln(w, strings.TrimSpace(answer))
				return
			}
			fmt.Fprintf(w, "  %s: %s\n%s\n", ev.Node, patch.Status, strings.TrimSpace(answer))
		default:
			if r.Headless {
				return
			}
			fmt.Fprintf(w, "  %s: %s\n", ev.Node, patch.Status)
		}

	case domain.EventDone:
		if r.Headless {
			return
		}
		if metrics, err := ev.Metrics(); err == nil {
			fmt.Fprintf(w, "Run finished: %d visited, %d failed (%dms)\n",
				metrics.Visited, metrics.Failed, metrics.ElapsedMS)
		}

	case domain.EventError:
		if payload, ok := ev.Payload.(map[string]any); ok {
			if msg, ok := payload["error"].(string); ok {
				fmt.Fprintf(w, "error: %s\n", sanitizeTerminal(msg))
			}
		}
	}
}
