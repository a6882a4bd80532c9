package agent

import (
	"context"

	ports "github.com/jeffsuperpower/dad/dad/agent/ports"
)

// NopTracer discards all spans and events.
type NopTracer struct{}

func (NopTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(error) {}
}

func (NopTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

// NopTraining supplies an empty training context.
type NopTraining struct{}

func (NopTraining) Context() string { return "" }

var (
	_ ports.Tracer         = NopTracer{}
	_ ports.TrainingSource = NopTraining{}
)
