package coordinator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

func TestBatcherSplitsAtMaxSize(t *testing.T) {
	var mu sync.Mutex
	var sizes []int

	b := NewBatcher(context.Background(), 50*time.Millisecond, 10, func(ctx context.Context, inputs []int) ([]int, error) {
		mu.Lock()
		sizes = append(sizes, len(inputs))
		mu.Unlock()

		outputs := make([]int, len(inputs))
		for i, in := range inputs {
			outputs[i] = in * 2
		}
		return outputs, nil
	})
	defer b.Close()

	futures := make([]*Future[int], 12)
	for i := range futures {
		futures[i] = b.Add(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i, f := range futures {
		value, err := f.Await(ctx)
		if err != nil || value != i*2 {
			t.Fatalf("future %d = %d, %v", i, value, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	sort.Ints(sizes)
	if len(sizes) != 2 || sizes[0] != 2 || sizes[1] != 10 {
		t.Fatalf("batch sizes = %v, want [2 10]", sizes)
	}
}

func TestBatcherMissingResult(t *testing.T) {
	b := NewBatcher(context.Background(), time.Hour, 10, func(ctx context.Context, inputs []string) ([]string, error) {
		return []string{"only"}, nil
	})
	defer b.Close()

	first := b.Add("a")
	second := b.Add("b")
	third := b.Add("c")
	b.Flush()

	if value, err := first.Result(); err != nil || value != "only" {
		t.Fatalf("first = %q, %v", value, err)
	}
	for _, f := range []*Future[string]{second, third} {
		if _, err := f.Result(); !types.IsError(err, types.ErrMissingResult) {
			t.Fatalf("expected ErrMissingResult, got %v", err)
		}
	}
}

func TestBatcherErrorRejectsWholeBatch(t *testing.T) {
	errUpstream := errors.New("upstream down")
	b := NewBatcher(context.Background(), time.Hour, 10, func(ctx context.Context, inputs []int) ([]int, error) {
		return nil, errUpstream
	})
	defer b.Close()

	futures := []*Future[int]{b.Add(1), b.Add(2), b.Add(3)}
	b.Flush()

	for _, f := range futures {
		if _, err := f.Result(); !errors.Is(err, errUpstream) {
			t.Fatalf("err = %v", err)
		}
	}
}

func TestBatcherClose(t *testing.T) {
	var calls int
	b := NewBatcher(context.Background(), time.Hour, 10, func(ctx context.Context, inputs []int) ([]int, error) {
		calls++
		return inputs, nil
	})

	queued := b.Add(5)
	b.Close()

	if value, err := queued.Result(); err != nil || value != 5 {
		t.Fatalf("queued = %d, %v", value, err)
	}
	if _, err := b.Add(6).Result(); !types.IsError(err, types.ErrBatcherClosed) {
		t.Fatalf("expected ErrBatcherClosed, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
	b.Close()
}
