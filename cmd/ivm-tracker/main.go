package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/fleetlink/notifier/internal/config/ivm-tracker"
	"github.com/fleetlink/notifier/internal/obs"
	kafkaRepo "github.com/fleetlink/notifier/internal/repository/kafka"
	pg "github.com/fleetlink/notifier/internal/repository/postgres"
	ivmsvc "github.com/fleetlink/notifier/internal/services/ivm"
	"github.com/fleetlink/notifier/internal/services/resolver"

	"go.uber.org/zap"
)

func main() {
	// init
	root, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load("../config/ivm-tracker.yaml")
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}

	// otel
	otelCloser, err := obs.SetupOTel(root, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// db
	db, err := pg.New(root, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	// kafka
	cons := kafkaRepo.BootstrapConsumer(root, &kafkaRepo.ConsumerConfig{
		Brokers: cfg.AcksIn.Brokers,
		GroupID: cfg.AcksIn.GroupID,
		Topic:   cfg.AcksIn.Topic,
		Logger:  l,
	}, l)
	defer func() { _ = cons.Close() }()

	tr := kafkaRepo.NewVehicleTransport(cfg.Vehicle.Brokers, cfg.Vehicle.StreamTopic, l)
	defer func() { _ = tr.Close() }()

	feedbackOut := kafkaRepo.NewProducer(cfg.Feedback.Brokers, cfg.Feedback.Topic).WithLogger(l)
	defer func() { _ = feedbackOut.Close() }()

	// wiring
	configs := pg.NewConfigRepo(db)
	dir := pg.NewDirectoryRepo(db)
	res := resolver.New(configs, dir, l)
	dispatcher := ivmsvc.NewDispatcher(
		res, dir,
		pg.NewTrackingRepo(db),
		pg.NewHistoryRepo(db),
		tr,
		kafkaRepo.NewFeedbackKafka(feedbackOut, l),
		cfg.IVM, l,
	)
	ctrl := &ivmsvc.Controller{Log: l, Sub: cons, D: dispatcher}

	// start
	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Run(root) }()

	// loop
	select {
	case <-root.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("controller error", zap.Error(err))
		}
	}

	// graceful metrics server shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
