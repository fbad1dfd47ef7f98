package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/trisbattle/arena/internal/app/server"
	"github.com/trisbattle/arena/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	defer logging.Sync()

	srv := server.NewServer()
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logging.Info("shutting down")
		if err := srv.Close(); err != nil {
			logging.Error("failed to shut down cleanly", zap.Error(err))
		}
	}()

	if err := srv.Start(); err != nil {
		logging.Fatal("Game server exited: ", zap.Error(err))
	}
	<-stopped
}
