package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWorkerDeliversTasks(t *testing.T) {
	w := NewWorker(4, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	done := make(chan struct{})
	w.Enqueue(Task{
		Name: "test",
		To:   "a@example.com",
		Send: func() error {
			close(done)
			return nil
		},
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task was not delivered")
	}
}

func TestWorkerContinuesAfterFailure(t *testing.T) {
	w := NewWorker(4, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	delivered := make(chan string, 2)
	w.Enqueue(Task{
		Name: "failing",
		To:   "a@example.com",
		Send: func() error {
			delivered <- "failing"
			return errors.New("smtp down")
		},
	})
	w.Enqueue(Task{
		Name: "ok",
		To:   "b@example.com",
		Send: func() error {
			delivered <- "ok"
			return nil
		},
	})

	for _, want := range []string{"failing", "ok"} {
		select {
		case got := <-delivered:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("task %q was not processed", want)
		}
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	// no consumer running; capacity 1
	w := NewWorker(1, zap.NewNop())

	w.Enqueue(Task{Name: "first", Send: func() error { return nil }})
	// must not block
	w.Enqueue(Task{Name: "second", Send: func() error { return nil }})

	assert.Len(t, w.tasks, 1)
}
