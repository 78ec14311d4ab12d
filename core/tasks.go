package core

import (
	"context"
	"encoding/json"
)

// Task names
const (
	TaskSendEmail = "email.send"
)

type (
	// Task is a named unit of background work with a JSON payload.
	Task struct {
		Name    string          `json:"name"`
		Payload json.RawMessage `json:"payload"`
	}

	TaskHandler func(ctx context.Context, payload json.RawMessage) error

	// TaskQueue schedules background work. payload must be JSON serializable.
	TaskQueue interface {
		Enqueue(ctx context.Context, name string, payload interface{}) error
	}
)

// NewTask encodes payload into a Task.
func NewTask(name string, payload interface{}) (Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Task{}, err
	}
	return Task{Name: name, Payload: data}, nil
}
