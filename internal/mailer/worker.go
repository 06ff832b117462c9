package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Task is one queued delivery.
type Task struct {
	Name string
	To   string
	Send func() error
}

// Worker delivers email off the request path. Handlers enqueue and return;
// delivery failures are logged and never affect the originating request.
type Worker struct {
	tasks  chan Task
	logger *zap.Logger
}

// NewWorker creates a worker with the given queue depth.
func NewWorker(queueSize int, logger *zap.Logger) *Worker {
	return &Worker{
		tasks:  make(chan Task, queueSize),
		logger: logger,
	}
}

// Run consumes the queue until the context is cancelled. Call in its own
// goroutine.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("mail worker stopping")
			return
		case task := <-w.tasks:
			if err := task.Send(); err != nil {
				w.logger.Error("mail delivery failed",
					zap.String("task", task.Name),
					zap.String("to", task.To),
					zap.Error(err),
				)
				continue
			}
			w.logger.Info("mail delivered",
				zap.String("task", task.Name),
				zap.String("to", task.To),
			)
		}
	}
}

// Enqueue adds a delivery to the queue. When the queue is full the task is
// dropped with a log line rather than blocking the request.
func (w *Worker) Enqueue(task Task) {
	select {
	case w.tasks <- task:
	default:
		w.logger.Warn("mail queue full, dropping task",
			zap.String("task", task.Name),
			zap.String("to", task.To),
		)
	}
}
