package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/motionbotdev/motionbot/internal/bot"
	"github.com/motionbotdev/motionbot/internal/config"
	"github.com/motionbotdev/motionbot/internal/db"
	"github.com/motionbotdev/motionbot/internal/httpapi"
	"github.com/motionbotdev/motionbot/internal/kie"
	"github.com/motionbotdev/motionbot/internal/logging"
	"github.com/motionbotdev/motionbot/internal/media"
	"github.com/motionbotdev/motionbot/internal/queue"
	"github.com/motionbotdev/motionbot/internal/reconcile"
	"github.com/motionbotdev/motionbot/internal/redisstore"
	"github.com/motionbotdev/motionbot/internal/store"
	"github.com/motionbotdev/motionbot/internal/telegram"
	"github.com/motionbotdev/motionbot/internal/token"
	"github.com/motionbotdev/motionbot/internal/youtube"
)

func main() {
	log := logging.Component("main")
	cfg := config.Load()

	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is not set")
	}

	gdb, err := db.Open(cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	if err := db.Migrate(gdb); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	st := store.New(gdb, store.NewSealer(cfg.Secret))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()
	if err := rds.Ping(ctx); err != nil {
		log.WithError(err).Fatal("redis ping")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.WithError(err).Fatal("init telegram bot")
	}
	log.WithField("username", api.Self.UserName).Info("telegram bot authorized")
	tg := telegram.NewClient(api)

	kieClient := kie.NewClient(cfg.KieBaseURL, cfg.KieAPIKey)
	signer := token.NewSigner(cfg.Secret, 24*time.Hour)

	converter, err := media.NewConverter(cfg.ScratchDir, cfg.PublicBaseURL)
	if err != nil {
		log.WithError(err).Fatal("init converter")
	}
	converter.StartSweeper(ctx, time.Hour, 6*time.Hour)

	publisher, err := queue.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.WithError(err).Fatal("rabbit connect")
	}
	defer publisher.Close()

	reconciler := reconcile.New(st, kieClient, tg)
	if err := reconciler.ResumePending(ctx); err != nil {
		log.WithError(err).Error("resume pending tasks")
	}

	engine := bot.NewEngine(
		st, tg, kieClient, youtube.NewClient(), reconciler,
		publisher, converter, signer, cfg.PublicBaseURL,
	)

	router := httpapi.NewRouter(st, reconciler, signer, converter.Dir())
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server")
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)

	dispatcher := bot.NewDispatcher(engine, rds)
	log.Info("bot started")
	dispatcher.Run(ctx, updates)

	log.Info("shutting down")
	api.StopReceivingUpdates()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
}
