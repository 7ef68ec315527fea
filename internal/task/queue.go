// Package task provides the post-mutation side-effect queue. Handlers such as
// email delivery run on a background worker so the matching engine stays
// synchronous and never blocks a request on an external service.
package task

import (
	"context"
	"fmt"
	"log/slog"
)

// Kind identifies a task type.
type Kind string

// Task kinds.
const (
	KindMatchFound   Kind = "match_found"
	KindWelcomeEmail Kind = "welcome_email"
)

// Task is a unit of deferred work submitted after a successful mutation.
type Task struct {
	Kind    Kind
	Payload map[string]string
}

// Submitter accepts tasks for background processing.
type Submitter interface {
	Submit(Task) error
}

// Handler processes a single task.
type Handler func(ctx context.Context, t Task) error

// Queue is a channel-backed Submitter drained by Run.
type Queue struct {
	inbox    chan Task
	handlers map[Kind]Handler
}

// NewQueue creates a queue with the given buffer size.
func NewQueue(size int) *Queue {
	return &Queue{
		inbox:    make(chan Task, size),
		handlers: make(map[Kind]Handler),
	}
}

// Handle registers the handler for a task kind. Must be called before Run.
func (q *Queue) Handle(kind Kind, h Handler) {
	q.handlers[kind] = h
}

// Submit enqueues a task without blocking. A full queue returns an error so
// the caller can log and move on; submission is best-effort bookkeeping.
func (q *Queue) Submit(t Task) error {
	select {
	case q.inbox <- t:
		return nil
	default:
		return fmt.Errorf("task queue full, dropping %s task", t.Kind)
	}
}

// Run drains the queue until the context is canceled. Handler errors are
// logged, never fatal.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-q.inbox:
			h, ok := q.handlers[t.Kind]
			if !ok {
				slog.Warn("no handler for task kind", "kind", t.Kind)
				continue
			}
			if err := h(ctx, t); err != nil {
				slog.Error("task handler failed", "kind", t.Kind, "error", err)
			}
		}
	}
}
