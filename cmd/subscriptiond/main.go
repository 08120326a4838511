// Command subscriptiond wires a Manager to its PublishQueue and
// Scheduler and runs until SIGINT/SIGTERM.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"opcuasub/modules/manager"
	"opcuasub/modules/queue"
	"opcuasub/modules/scheduler"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	sch, err := scheduler.New(logger)
	if err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sch.Shutdown()

	pq, err := queue.New("db/publish-queue", "publish-queue", logger)
	if err != nil {
		logger.Fatal("failed to open publish queue", zap.Error(err))
	}
	defer pq.Close()

	mgr, err := manager.New("db/subscriptions", pq, sch, logger)
	if err != nil {
		logger.Fatal("failed to open subscription manager", zap.Error(err))
	}
	defer mgr.Close()

	logger.Info("subscription engine started", zap.String("session_id", mgr.SessionID()))

	waitForShutdown(logger)
}

func waitForShutdown(logger *zap.Logger) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	<-signalChan
	logger.Info("shutting down subscription engine")
}
