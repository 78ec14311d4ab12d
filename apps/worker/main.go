// Command worker runs the background tasks enqueued on redis by the API & the admin CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kitab-bazar/server/apps/shared"
	"github.com/kitab-bazar/server/core"
	tasksvc "github.com/kitab-bazar/server/services/tasks"
)

func main() {
	conf := core.NewConfig()
	logger := shared.NewLogger("WORKER", conf)

	if conf.Redis.Addr == "" {
		logger.Fatal("redis.addr is not configured: tasks run in the API process", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shared.LoadAssets(conf, logger)
	registry := shared.NewRegistry(shared.NewEmailService(conf, logger))

	client, err := tasksvc.NewRedisClient(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing redis: %v", err), err)
		}
	}()

	logger.Info(fmt.Sprintf("Worker started : %v, %d workers on %q", conf, conf.Redis.Workers, conf.Redis.QueueKey))
	defer logger.Info("Worker stopped")

	worker := tasksvc.NewWorker(client, conf.Redis.QueueKey, registry, logger, conf.Redis.Workers)
	if err = worker.Run(ctx); err != nil {
		logger.Error(fmt.Sprintf("worker error: %v", err), err)
	}
}
