package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/graphrag/internal/app"
	"github.com/OFFIS-RIT/graphrag/internal/queue"
	"github.com/OFFIS-RIT/graphrag/internal/util"
	"github.com/OFFIS-RIT/graphrag/pkg/logger"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := app.LoadConfig()
	app.InitLogger(cfg, "worker")

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialise", "err", err)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Error("Failed to close store", "err", err)
		}
	}()

	// Init rabbitmq
	conn, err := queue.Init()
	if err != nil {
		logger.Fatal("Failed to connect", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.IngestQueue}); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	ingest := queue.IngestHandler(a.Graph)
	handle := func(ctx context.Context, body []byte) error {
		defer a.LogMetrics()
		return ingest(ctx, body)
	}

	logger.Info("Listening for messages", "queue", queue.IngestQueue)
	if err := queue.Consume(ctx, ch, queue.IngestQueue, handle); err != nil {
		logger.Fatal("Consumer stopped", "err", err)
	}
}
