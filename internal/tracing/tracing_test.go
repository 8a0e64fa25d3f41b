package tracing

import (
	"context"
	"testing"

	"github.com/wudi/wampd/internal/config"
)

func TestDisabledTracerIsNoOp(t *testing.T) {
	tr, err := New(config.TracingConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	spanCtx, span := tr.StartCall(ctx, "realm1", "com.example.proc")
	if spanCtx != ctx {
		t.Fatal("expected unchanged context from a disabled tracer")
	}
	span.End()

	if err := tr.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
