package tasksvc

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type greeting struct {
	Name string `json:"name"`
}

func TestSyncQueue(t *testing.T) {
	reg := NewRegistry()
	var got string
	reg.Handle("greet", func(_ context.Context, payload json.RawMessage) error {
		var g greeting
		if err := json.Unmarshal(payload, &g); err != nil {
			return err
		}
		got = g.Name
		return nil
	})
	boom := errors.New("boom")
	reg.Handle("fail", func(context.Context, json.RawMessage) error { return boom })

	q := NewSyncQueue(reg, nopLogger{})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "greet", greeting{Name: "Asha"}))
	assert.Equal(t, "Asha", got)

	err := q.Enqueue(ctx, "fail", nil)
	assert.Equal(t, boom, errors.Cause(err))

	err = q.Enqueue(ctx, "missing", nil)
	assert.Equal(t, ErrUnknownTask, errors.Cause(err))
}

func TestInlineQueue(t *testing.T) {
	reg := NewRegistry()
	var n int32
	reg.Handle("count", func(context.Context, json.RawMessage) error {
		atomic.AddInt32(&n, 1)
		return nil
	})

	q := NewInlineQueue(reg, nopLogger{})
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Enqueue(context.Background(), "count", i))
	}
	q.Wait()
	assert.Equal(t, int32(10), atomic.LoadInt32(&n))
}

func TestDecodeTask(t *testing.T) {
	task, err := decodeTask([]byte(`{"name":"email.send","payload":{"subject":"hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, "email.send", task.Name)
	assert.JSONEq(t, `{"subject":"hi"}`, string(task.Payload))

	_, err = decodeTask([]byte("nope"))
	assert.Error(t, err)
}
