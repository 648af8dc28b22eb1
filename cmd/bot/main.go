package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"restockbot/pkg/bot"
	"restockbot/pkg/config"
	"restockbot/pkg/handlers"
	"restockbot/pkg/logger"
	"restockbot/pkg/notifier"
	"restockbot/pkg/scheduler"
	"restockbot/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateConfig(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(cfg.App.Development, cfg.App.LogFile, cfg.App.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Restock bot starting",
		zap.Int("categories", len(cfg.Categories)),
		zap.Bool("purchase", cfg.Bot.Purchase),
		zap.Bool("notify", cfg.Bot.Notify))

	tgNotifier := notifier.NewTelegramNotifier(cfg.Telegram)
	if err := tgNotifier.ValidateConfig(); err != nil {
		logger.Fatal("Telegram configuration invalid", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	supervisor := bot.NewSupervisor(cfg, tgNotifier)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		supervisor.Shutdown()
		cancel()
	}()

	reportScheduler, err := scheduler.NewReportScheduler(cfg.Scheduler, supervisor.Registry(), supervisor.Purchases(), tgNotifier)
	if err != nil {
		logger.Fatal("Failed to create report scheduler", zap.Error(err))
	}
	go func() {
		if err := reportScheduler.Start(ctx); err != nil {
			logger.Error("Report scheduler failed", zap.Error(err))
		}
	}()

	var httpServer *server.HTTPServer
	if cfg.Server.Enabled {
		handlerSvc := handlers.NewHandlerService(cfg, supervisor.Registry(), supervisor.Purchases())
		handlerSvc.SetScheduler(reportScheduler)
		httpServer = server.NewHTTPServer(cfg.Server, handlerSvc, cfg.App.Development)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error("Status API failed", zap.Error(err))
			}
		}()
	}

	if err := supervisor.Run(ctx); err != nil {
		logger.Error("Supervisor failed", zap.Error(err))
		tgNotifier.Notify("Bot crashed: " + err.Error())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Status API shutdown failed", zap.Error(err))
		}
	}
	if err := reportScheduler.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Scheduler shutdown failed", zap.Error(err))
	}

	logger.Info("Restock bot stopped")
}
