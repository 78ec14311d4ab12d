// Package tasksvc runs background tasks, either in-process or through a Redis list
// consumed by the worker app.
package tasksvc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/kitab-bazar/server/core"
)

var ErrUnknownTask = errors.New("unknown task")

// Registry maps task names to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]core.TaskHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]core.TaskHandler)}
}

func (r *Registry) Handle(name string, h core.TaskHandler) {
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
}

// Dispatch runs the handler registered for task.Name.
func (r *Registry) Dispatch(ctx context.Context, task core.Task) error {
	r.mu.RLock()
	h, ok := r.handlers[task.Name]
	r.mu.RUnlock()
	if !ok {
		return errors.Wrap(ErrUnknownTask, task.Name)
	}
	return errors.Wrapf(h(ctx, task.Payload), "running task %s", task.Name)
}

// InlineQueue runs tasks in the current process.
// Async tasks run in their own goroutine; Wait blocks until they are all done.
type InlineQueue struct {
	registry *Registry
	logger   core.Logger
	sync     bool
	wg       sync.WaitGroup
}

var _ core.TaskQueue = (*InlineQueue)(nil)

func NewInlineQueue(registry *Registry, logger core.Logger) *InlineQueue {
	return &InlineQueue{registry: registry, logger: logger}
}

// NewSyncQueue runs tasks as they are enqueued and returns their error (used by tests).
func NewSyncQueue(registry *Registry, logger core.Logger) *InlineQueue {
	return &InlineQueue{registry: registry, logger: logger, sync: true}
}

func (q *InlineQueue) Enqueue(ctx context.Context, name string, payload interface{}) error {
	task, err := core.NewTask(name, payload)
	if err != nil {
		return errors.Wrap(err, "encoding task")
	}
	if q.sync {
		return q.registry.Dispatch(ctx, task)
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.registry.Dispatch(context.Background(), task); err != nil {
			q.logger.Error(fmt.Sprintf("tasksvc.InlineQueue: %v", err), err)
		}
	}()
	return nil
}

func (q *InlineQueue) Wait() { q.wg.Wait() }

func decodeTask(data []byte) (core.Task, error) {
	var task core.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return task, errors.Wrap(err, "decoding task")
	}
	return task, nil
}
