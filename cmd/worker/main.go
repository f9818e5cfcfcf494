// The worker consumes queued YouTube upload attempts and publishes them.
// Run it separately from the bot so long uploads never block conversation
// handling.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/motionbotdev/motionbot/internal/config"
	"github.com/motionbotdev/motionbot/internal/db"
	"github.com/motionbotdev/motionbot/internal/logging"
	"github.com/motionbotdev/motionbot/internal/publish"
	"github.com/motionbotdev/motionbot/internal/queue"
	"github.com/motionbotdev/motionbot/internal/store"
	"github.com/motionbotdev/motionbot/internal/telegram"
	"github.com/motionbotdev/motionbot/internal/youtube"
)

var log = logging.Component("worker")

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	gdb, err := db.Open(cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}

	st := store.New(gdb, store.NewSealer(cfg.Secret))

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.WithError(err).Fatal("init telegram bot")
	}
	tg := telegram.NewClient(api)

	svc := publish.NewService(st, youtube.NewClient(), tg, cfg.ScratchDir)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.WithError(err).Fatal("rabbit dial")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Fatal("rabbit channel")
	}
	defer ch.Close()

	if err := queue.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.WithError(err).Fatal("queue declare")
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.WithError(err).Fatal("qos")
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.WithError(err).Fatal("consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("queue", cfg.RabbitQueue).WithField("concurrency", concurrency).Info("worker started")

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var m queue.AttemptMessage
				if err := json.Unmarshal(d.Body, &m); err != nil || m.AttemptID == "" {
					log.WithError(err).WithField("worker", workerID).Warn("bad message")
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := svc.Run(ctx, m.AttemptID); err != nil {
					log.WithError(err).
						WithField("worker", workerID).
						WithField("attempt_id", m.AttemptID).
						WithField("cost", time.Since(start).String()).
						Error("attempt failed")
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.WithError(err).WithField("attempt_id", m.AttemptID).Error("ack failed")
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Warn("delivery channel closed")
				time.Sleep(time.Second)
				continue
			}
			jobs <- d
		}
	}
}
