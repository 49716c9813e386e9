package export

import (
	"context"
	"fmt"

	"ledger/internal/export/google"
	"ledger/internal/export/memory"
)

// Sink selects the exporter adapter.
type Sink string

const (
	GoogleSink Sink = "google"
	MemorySink Sink = "memory"
)

func (s Sink) String() string { return string(s) }

// IsValid returns true if the sink is a known adapter.
func (s Sink) IsValid() bool {
	switch s {
	case GoogleSink, MemorySink:
		return true
	default:
		return false
	}
}

// New builds the exporter for the configured sink.
func New(ctx context.Context, sink Sink) (Exporter, error) {
	switch sink {
	case GoogleSink:
		return google.NewFromEnv(ctx)
	case MemorySink:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown export sink: %q", sink)
	}
}
