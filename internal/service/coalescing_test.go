package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRequestCoalescer_GetOrDo_Coalesces(t *testing.T) {
	coalescer := newRequestCoalescer[string](5 * time.Second)
	var calls int32
	release := make(chan struct{})

	fn := func() (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "seattle", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], _ = coalescer.GetOrDo(context.Background(), "seattle", fn)
		}(i)
	}
	// Let every caller register before the fetch finishes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("fn call count = %d, want 1", got)
	}
	for i, r := range results {
		if r != "seattle" {
			t.Errorf("result[%d] = %q, want seattle", i, r)
		}
	}
}

func TestRequestCoalescer_GetOrDo_SharesError(t *testing.T) {
	coalescer := newRequestCoalescer[string](5 * time.Second)
	wantErr := errors.New("api failure")
	release := make(chan struct{})
	fn := func() (string, error) {
		<-release
		return "", wantErr
	}

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = coalescer.GetOrDo(context.Background(), "seattle", fn)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, wantErr) {
			t.Errorf("request %d error = %v, want %v", i, err, wantErr)
		}
	}
}

func TestRequestCoalescer_GetOrDo_ContextCanceled(t *testing.T) {
	coalescer := newRequestCoalescer[string](5 * time.Second)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := coalescer.GetOrDo(ctx, "seattle", func() (string, error) {
		<-release
		return "late", nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("GetOrDo() error = %v, want deadline exceeded", err)
	}
}

func TestRequestCoalescer_GetOrDo_WaitTimeout(t *testing.T) {
	coalescer := newRequestCoalescer[string](20 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)

	_, err := coalescer.GetOrDo(context.Background(), "seattle", func() (string, error) {
		<-release
		return "late", nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("GetOrDo() error = %v, want deadline exceeded", err)
	}
}

func TestRequestCoalescer_GetOrDo_DifferentKeys(t *testing.T) {
	coalescer := newRequestCoalescer[string](5 * time.Second)
	var calls int32
	fn := func() (string, error) {
		atomic.AddInt32(&calls, 1)
		return "ok", nil
	}

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c", "d", "e"} {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			_, _ = coalescer.GetOrDo(context.Background(), k, fn)
		}(key)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 5 {
		t.Errorf("fn call count = %d, want 5 (no coalescing for different keys)", got)
	}
}

func TestRequestCoalescer_SequentialCallsRefetch(t *testing.T) {
	coalescer := newRequestCoalescer[string](time.Second)
	var calls int32
	fn := func() (string, error) {
		atomic.AddInt32(&calls, 1)
		return "ok", nil
	}
	_, _ = coalescer.GetOrDo(context.Background(), "k", fn)
	_, _ = coalescer.GetOrDo(context.Background(), "k", fn)
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("fn call count = %d, want 2 (completed calls are not cached)", got)
	}
}
