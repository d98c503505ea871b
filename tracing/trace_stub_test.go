//go:build !trace

package tracing

import (
	"context"
	"testing"
)

func TestStubsAreSafe(t *testing.T) {
	if err := Start(""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer Stop()

	ctx, end := StartTask(context.Background(), "task")
	if ctx == nil {
		t.Fatal("nil context from StartTask")
	}
	end()
	StartRegion(ctx, "region")()
	Log(ctx, "category", "message")
}
