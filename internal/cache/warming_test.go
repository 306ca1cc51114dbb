package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type mockWarmable struct {
	mu     sync.Mutex
	warmed []string
	failOn string
}

func (m *mockWarmable) WarmCity(_ context.Context, city string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warmed = append(m.warmed, city)
	if city == m.failOn {
		return errors.New("api down")
	}
	return nil
}

func TestCacheWarmer_Warm_Success(t *testing.T) {
	target := &mockWarmable{}
	warmer := NewCacheWarmer(target, nil)

	if err := warmer.Warm(context.Background(), []string{"Seattle", "Boston"}); err != nil {
		t.Fatalf("Warm() error = %v, want nil", err)
	}
	if len(target.warmed) != 2 {
		t.Errorf("warmed %v, want both cities", target.warmed)
	}
}

func TestCacheWarmer_Warm_EmptyCities(t *testing.T) {
	warmer := NewCacheWarmer(&mockWarmable{}, nil)

	if err := warmer.Warm(context.Background(), nil); err != nil {
		t.Fatalf("Warm(nil) error = %v, want nil", err)
	}
	if err := warmer.Warm(context.Background(), []string{}); err != nil {
		t.Fatalf("Warm([]) error = %v, want nil", err)
	}
}

func TestCacheWarmer_Warm_PartialFailure(t *testing.T) {
	target := &mockWarmable{failOn: "Seattle"}
	warmer := NewCacheWarmer(target, nil)

	err := warmer.Warm(context.Background(), []string{"Seattle", "Boston"})
	if err == nil {
		t.Fatal("Warm() error = nil, want non-nil")
	}
	if !strings.Contains(err.Error(), "warm Seattle: api down") {
		t.Errorf("Warm() error = %q, want failing city named", err)
	}
	if len(target.warmed) != 2 {
		t.Error("one failure must not stop the other cities")
	}
}

func TestCacheWarmer_WarmPeriodic_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewCacheWarmer(&mockWarmable{}, nil).WarmPeriodic(ctx, []string{"Seattle"}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("WarmPeriodic() error = %v, want context.Canceled", err)
	}
}
