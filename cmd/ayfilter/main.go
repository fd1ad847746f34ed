// Command ayfilter runs the continuous crawl coordination engine: the
// adaptive scheduler claims batches from the queue store and fans
// per-URL workers out over them until interrupted.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ayfilter/crawler/crawler"
	"github.com/ayfilter/crawler/crawler/config"
	"github.com/ayfilter/crawler/crawler/store/contentstore"
	"github.com/ayfilter/crawler/crawler/store/queuestore"
	"github.com/ayfilter/crawler/messaging"
)

func main() {
	log := newLogger()
	cfg := config.FromEnv()

	if err := os.MkdirAll("data", 0o755); err != nil {
		log.WithError(err).Fatal("creating data directory failed")
	}

	qs, err := queuestore.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("opening queue store failed")
	}
	defer qs.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := qs.EnsureSchema(ctx); err != nil {
		log.WithError(err).Fatal("queue store schema creation failed")
	}

	cs, err := contentstore.Open(cfg.SQLitePath)
	if err != nil {
		log.WithError(err).Fatal("opening content store failed")
	}
	defer cs.Close()
	if err := cs.EnsureSchema(ctx); err != nil {
		log.WithError(err).Fatal("content store schema creation failed")
	}

	if err := qs.SeedIfEmpty(ctx, cfg.SeedURLs); err != nil {
		log.WithError(err).Fatal("seeding queue store failed")
	}

	queue := messaging.NewChannelQueue()
	go drainQueue(queue, log)

	settings := crawler.NewSettings(cfg, qs, cs, queue, logrus.NewEntry(log))
	scheduler := crawler.NewScheduler(settings)

	log.Info("ayfilter crawler starting")
	scheduler.Run(ctx)
	log.Info("ayfilter crawler stopped")
}

// drainQueue discards crawl-event payloads; a production deployment
// would instead forward them to a real broker through the same
// messaging.Producer/Consumer interfaces.
func drainQueue(queue messaging.ChannelQueue, log *logrus.Logger) {
	events := make(chan []byte)
	go func() {
		for range events {
		}
	}()
	if err := queue.Consume(events); err != nil {
		log.WithError(err).Warn("crawl-event queue consumer stopped")
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   "data/ayfilter.log",
		MaxSize:    10,
		MaxBackups: 2,
	}))
	return log
}
