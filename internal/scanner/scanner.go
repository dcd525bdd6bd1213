package scanner

import "context"

// Result is the outcome of a threat scan.
type Result struct {
	Clean   bool     `json:"clean"`
	Threats []string `json:"threats,omitempty"`
}

// Scanner inspects raw bytes for threats before any persistence happens.
// Implementations may call out to an external scanning engine and must honor
// context cancellation.
type Scanner interface {
	Scan(ctx context.Context, data []byte) (Result, error)
}
