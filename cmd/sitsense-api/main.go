package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/config"
	"github.com/ingeniumed/Sitsense/internal/logger"
	"github.com/ingeniumed/Sitsense/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "sitsense-api")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("Starting sitsense api service")

	svc := service.NewAPIService(cfg, log)
	if err := svc.Start(); err != nil {
		log.Fatal("Failed to start api service", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down sitsense api service")
	svc.Stop()
}
