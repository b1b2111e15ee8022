package middleware

import "github.com/aretw0/arbor/pkg/ports"

// Middleware allows wrapping an EventChannel to add behavior.
type Middleware func(ports.EventChannel) ports.EventChannel
