package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Luisotee/maplelegends-bot/internal/bot"
	"github.com/Luisotee/maplelegends-bot/internal/cash"
	"github.com/Luisotee/maplelegends-bot/internal/config"
	"github.com/Luisotee/maplelegends-bot/internal/maplelegends"
	"github.com/Luisotee/maplelegends-bot/internal/schedule"
	"github.com/Luisotee/maplelegends-bot/internal/status"
	"github.com/Luisotee/maplelegends-bot/internal/store"
)

const (
	taskServerStatusCheck = "server_status_check"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New(cfg.UsersFile, cfg.CashWatchersFile, logger)
	if err := st.Load(); err != nil {
		logger.Fatal("loading watcher store failed", zap.Error(err))
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}
	botAPI.Debug = false

	client := maplelegends.NewClient(cfg.BaseURL, cfg.Timeout(), maplelegends.DefaultRetryOptions(), logger)
	monitor := status.NewMonitor(cfg.StatusThreshold)
	sched := schedule.New(logger)
	sender := bot.NewSender(botAPI, logger)

	engine := cash.NewEngine(st, client, sender, logger)
	rec := schedule.NewReconciler(sched, st, engine, logger)
	h := bot.NewHandler(sender, cfg, st, engine, rec, monitor, client, logger)

	sched.RunRepeating(taskServerStatusCheck, cfg.StatusCheckEvery(), h.CheckServerStatus)
	rec.Rebuild()

	// Graceful shutdown
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	// The poller is the one truly parallel writer; everything else recurring
	// runs on the scheduler goroutine.
	go status.RunPoller(ctx, client, monitor, cfg.PollEvery(), logger)
	go sched.Run(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botAPI.GetUpdatesChan(u)

	logger.Info("maplelegends bot started", zap.String("username", botAPI.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown")
			// Give in-flight sends a moment before the process exits.
			time.Sleep(100 * time.Millisecond)
			return
		case upd := <-updates:
			h.HandleUpdate(ctx, upd)
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	return cfg.Build()
}
