package tasksvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kitab-bazar/server/core"
)

// NewRedisClient connects to the Redis server described by conf.Redis.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return client, nil
}

// RedisQueue pushes tasks on a Redis list, to be consumed by a Worker.
type RedisQueue struct {
	client *redis.Client
	key    string
}

var _ core.TaskQueue = (*RedisQueue)(nil)

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, name string, payload interface{}) error {
	task, err := core.NewTask(name, payload)
	if err != nil {
		return errors.Wrap(err, "encoding task")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return errors.Wrap(err, "encoding task")
	}
	if err = q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return errors.Wrapf(err, "enqueuing task %s", name)
	}
	return nil
}

// Worker pops tasks from a Redis list and runs them through a Registry.
type Worker struct {
	client      *redis.Client
	key         string
	registry    *Registry
	logger      core.Logger
	concurrency int
	pollTimeout time.Duration
}

func NewWorker(client *redis.Client, key string, registry *Registry, logger core.Logger, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		client:      client,
		key:         key,
		registry:    registry,
		logger:      logger,
		concurrency: concurrency,
		pollTimeout: 5 * time.Second,
	}
}

// Run consumes tasks until ctx is cancelled. Failed tasks are logged and dropped.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error { return w.loop(ctx) })
	}
	return g.Wait()
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		res, err := w.client.BRPop(ctx, w.pollTimeout, w.key).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			w.logger.Error(fmt.Sprintf("tasksvc.Worker: %v", err), err)
			time.Sleep(time.Second)
			continue
		}
		// res is [key, value]
		w.process(ctx, []byte(res[1]))
	}
}

func (w *Worker) process(ctx context.Context, data []byte) {
	task, err := decodeTask(data)
	if err != nil {
		w.logger.Error(fmt.Sprintf("tasksvc.Worker: %v", err), err)
		return
	}
	start := time.Now()
	if err = w.registry.Dispatch(ctx, task); err != nil {
		w.logger.Error(fmt.Sprintf("tasksvc.Worker: %v", err), err)
		return
	}
	w.logger.Info(fmt.Sprintf("task %s done in %s", task.Name, time.Since(start)))
}
