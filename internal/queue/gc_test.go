package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockDLQPurger struct {
	purgeFunc func(ctx context.Context, retention time.Duration) (int, error)
	calls     int
}

func (m *mockDLQPurger) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	m.calls++
	if m.purgeFunc != nil {
		return m.purgeFunc(ctx, retention)
	}
	return 0, nil
}

func TestGarbageCollector_Collect(t *testing.T) {
	t.Parallel()

	mock := &mockDLQPurger{
		purgeFunc: func(ctx context.Context, retention time.Duration) (int, error) {
			if retention != 24*time.Hour {
				t.Errorf("expected retention 24h, got %v", retention)
			}
			return 3, nil
		},
	}

	gc := NewGarbageCollector(mock, time.Hour, 24*time.Hour)
	if err := gc.collect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 1 {
		t.Errorf("expected 1 purge call, got %d", mock.calls)
	}
}

func TestGarbageCollector_CollectError(t *testing.T) {
	t.Parallel()

	mock := &mockDLQPurger{
		purgeFunc: func(ctx context.Context, retention time.Duration) (int, error) {
			return 0, errors.New("broker unavailable")
		},
	}

	gc := NewGarbageCollector(mock, time.Hour, 24*time.Hour)
	if err := gc.collect(context.Background()); err == nil {
		t.Fatal("expected error from purge failure")
	}
}

func TestGarbageCollector_NilPurger(t *testing.T) {
	t.Parallel()

	gc := NewGarbageCollector(nil, time.Hour, 24*time.Hour)
	if err := gc.collect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGarbageCollector_StartStopsOnCancel(t *testing.T) {
	t.Parallel()

	mock := &mockDLQPurger{}
	gc := NewGarbageCollector(mock, 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := gc.Start(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
