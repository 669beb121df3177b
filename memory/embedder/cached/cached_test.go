package cached_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/opencortex/mnemo-go-sdk/memory"
	"github.com/opencortex/mnemo-go-sdk/memory/embedder/cached"
	"github.com/opencortex/mnemo-go-sdk/memory/embedder/mock"
)

// countingEmbedder counts how often the inner embedder is consulted.
type countingEmbedder struct {
	inner memory.Embedder
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

func TestCached_RequiresInner(t *testing.T) {
	if _, err := cached.New(nil, 16); err == nil {
		t.Fatal("expected error for nil inner embedder")
	}
}

func TestCached_ServesHitsWithoutInnerCalls(t *testing.T) {
	ctx := context.Background()
	counting := &countingEmbedder{inner: mock.New()}
	e, err := cached.New(counting, 128)
	if err != nil {
		t.Fatalf("cached.New: %v", err)
	}
	defer e.Close()

	first, err := e.Embed(ctx, "repeated context")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	e.Wait() // make the async cache write visible

	second, err := e.Embed(ctx, "repeated context")
	if err != nil {
		t.Fatalf("second Embed: %v", err)
	}
	if got := counting.calls.Load(); got != 1 {
		t.Errorf("inner embedder called %d times, want 1", got)
	}
	if len(first) != len(second) {
		t.Fatalf("vector sizes differ: %d != %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("cached vector differs from computed vector")
		}
	}
}

func TestCached_DistinctTextsMiss(t *testing.T) {
	ctx := context.Background()
	counting := &countingEmbedder{inner: mock.New()}
	e, err := cached.New(counting, 128)
	if err != nil {
		t.Fatalf("cached.New: %v", err)
	}
	defer e.Close()

	if _, err := e.Embed(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Embed(ctx, "beta"); err != nil {
		t.Fatal(err)
	}
	if got := counting.calls.Load(); got != 2 {
		t.Errorf("inner embedder called %d times, want 2", got)
	}
	if e.Dimensions() != mock.DefaultDimensions {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}
}
