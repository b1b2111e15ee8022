package middleware

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

type piiMiddleware struct {
	next     ports.EventChannel
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of payload keys
// matching the patterns before events reach the backing store. Node params
// and tool results often carry credentials or personal data that must not
// land in a shared Redis.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.EventChannel) ports.EventChannel {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Create(ctx context.Context, sessionID string) error {
	return m.next.Create(ctx, sessionID)
}

func (m *piiMiddleware) Enqueue(ctx context.Context, sessionID string, event domain.Event) error {
	// 1. Normalize the payload to a map. The JSON round trip doubles as a
	// deep copy, so the in-memory payload the dispatcher holds is never
	// touched. Non-object payloads carry no keys to mask.
	payload := payloadToMap(event.Payload)
	if payload == nil {
		return m.next.Enqueue(ctx, sessionID, event)
	}

	// 2. Mask PII
	maskMap(payload, m.patterns)

	masked := event
	masked.Payload = payload
	return m.next.Enqueue(ctx, sessionID, masked)
}

func (m *piiMiddleware) DequeueBatch(ctx context.Context, sessionID string, max int) ([]domain.Event, error) {
	return m.next.DequeueBatch(ctx, sessionID, max)
}

func (m *piiMiddleware) Exists(ctx context.Context, sessionID string) (bool, error) {
	return m.next.Exists(ctx, sessionID)
}

// Helpers

func payloadToMap(payload any) map[string]any {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		// Check key against patterns
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				masked = true
				break
			}
		}
		if masked {
			continue
		}

		// Recurse into nested structures (tool results nest maps in slices)
		switch sub := v.(type) {
		case map[string]any:
			maskMap(sub, patterns)
		case []any:
			for _, item := range sub {
				if subMap, ok := item.(map[string]any); ok {
					maskMap(subMap, patterns)
				}
			}
		}
	}
}
