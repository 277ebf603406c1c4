package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSchedulerCancelledBeforeStart(t *testing.T) {
	cfg := testEngineConfig(t)
	e := New(cfg, newFakeSource(), &fakeSentiment{}, nil)
	s := NewScheduler(e)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("ожидалась ошибка отмены, получено %v", err)
	}
}

func TestSchedulerCancelledDuringWait(t *testing.T) {
	cfg := testEngineConfig(t)
	e := New(cfg, newFakeSource(), &fakeSentiment{}, nil)
	s := NewScheduler(e)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("ожидалось истечение контекста, получено %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("планировщик не остановился по отмене контекста")
	}

	// Остановка закрывает движок: позиции нет, снимок записан
	if e.Positions().Position() != nil {
		t.Error("после остановки планировщика не должно быть открытой позиции")
	}
}
