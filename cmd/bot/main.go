package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"breaktime-tracker-bot/internal/config"
	"breaktime-tracker-bot/internal/dashboard"
	"breaktime-tracker-bot/internal/handler"
	"breaktime-tracker-bot/internal/msgraph"
	"breaktime-tracker-bot/internal/repository"
	"breaktime-tracker-bot/internal/service"
	"breaktime-tracker-bot/internal/session"
	"breaktime-tracker-bot/pkg/telegram"

	"github.com/sirupsen/logrus"
)

func main() {
	logrus.Info("Initializing config...")
	cfg := config.GetBotConfig()
	logrus.Info("Config initialized...")

	store, err := repository.NewGormBreakRecordRepository(cfg.DatabaseDir, time.Now().In(cfg.Timezone))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open break record store")
	}

	tracker := session.NewTracker()

	// Excel Online mirroring is optional; the bot runs fine without it.
	var sink service.RecordSink
	var excelSink *msgraph.ExcelSink
	if cfg.ExcelSyncEnabled {
		graphClient := msgraph.NewClient(cfg.MSTenantID, cfg.MSClientID, cfg.MSClientSecret)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := graphClient.VerifyTable(ctx, cfg.ExcelFileID, cfg.ExcelTableName); err != nil {
			logrus.WithError(err).Warn("Excel workbook table unreachable, records will sync once it recovers")
		} else {
			logrus.Infof("Excel sync enabled, table: %s", cfg.ExcelTableName)
		}
		cancel()

		excelSink = msgraph.NewExcelSink(graphClient, cfg.ExcelFileID, cfg.ExcelTableName)
		sink = excelSink
	}

	engine := service.NewBreakEngine(tracker, store, sink)
	agg := service.NewAggregationService(store, tracker, cfg.Timezone, cfg.RetentionDays)

	client, err := telegram.NewClient(cfg.TelegramToken)
	if err != nil {
		logrus.Fatal("Failed to create Telegram client:", err)
	}

	logrus.Infof("Authorized on account %s", client.Bot.Self.UserName)

	botHandler := handler.NewHandler(client, engine, agg, cfg)
	updates := client.Bot.GetUpdatesChan(client.UpdateConfig)

	server := dashboard.NewServer(cfg.DashboardAddr, cfg.StaticDir, agg)

	ctx, cancel := context.WithCancel(context.Background())

	go botHandler.HandleUpdates(updates)
	go botHandler.RunReminderLoop(ctx)
	go botHandler.RunDailyReportLoop(ctx)
	go func() {
		if err := server.Run(); err != nil {
			logrus.WithError(err).Fatal("Dashboard server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	logrus.Info("Bot started. Press Ctrl+C to stop.")
	<-stop

	cancel()
	client.Bot.StopReceivingUpdates()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Dashboard server shutdown failed")
	}

	if excelSink != nil {
		excelSink.Close()
	}
	if err := store.Close(); err != nil {
		logrus.Infof("Error closing record store: %v", err)
	}

	logrus.Info("Bot stopped gracefully")
}
