package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/fleetlink/notifier/internal/config/notify-worker"
	"github.com/fleetlink/notifier/internal/obs"
	kafkaRepo "github.com/fleetlink/notifier/internal/repository/kafka"
	pg "github.com/fleetlink/notifier/internal/repository/postgres"
	"github.com/fleetlink/notifier/internal/repository/redisq"
	"github.com/fleetlink/notifier/internal/services/bounce"
	"github.com/fleetlink/notifier/internal/services/dispatch"
	ivmsvc "github.com/fleetlink/notifier/internal/services/ivm"
	"github.com/fleetlink/notifier/internal/services/resolver"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func wire(
	cfg *config.Config,
	db *pg.DB,
	tr *kafkaRepo.VehicleTransport,
	cache *bounce.Cache,
	l *zap.Logger,
) *dispatch.Engine {
	configs := pg.NewConfigRepo(db)
	dir := pg.NewDirectoryRepo(db)
	history := pg.NewHistoryRepo(db)
	tracking := pg.NewTrackingRepo(db)
	portal := pg.NewPortalRepo(db)

	res := resolver.New(configs, dir, l,
		resolver.WithDefaultBrand(cfg.Resolver.DefaultBrand),
		resolver.WithDefaultLocale(cfg.Resolver.DefaultLocale),
	)

	mailer := dispatch.NewMailer(cfg.SMTP, l)
	smsGateway := dispatch.NewGateway(cfg.SMS)
	mobileOut := kafkaRepo.NewProducer(cfg.Push.Brokers, cfg.Push.Topic).WithLogger(l)
	apiOut := kafkaRepo.NewProducer(cfg.APIPush.Brokers, cfg.APIPush.Topic).WithLogger(l)
	feedbackOut := kafkaRepo.NewProducer(cfg.Feedback.Brokers, cfg.Feedback.Topic).WithLogger(l)

	ivmDispatcher := ivmsvc.NewDispatcher(
		res, dir, tracking, history, tr,
		kafkaRepo.NewFeedbackKafka(feedbackOut, l),
		cfg.IVM, l,
	)

	reg := prometheus.DefaultRegisterer
	providers := []dispatch.Provider{
		dispatch.NewEmail(mailer, cache, reg, l),
		dispatch.NewSMS(smsGateway, reg, l),
		dispatch.NewMobilePush(mobileOut, reg, l),
		dispatch.NewAPIPush(apiOut, reg, l),
		ivmsvc.NewProvider(ivmDispatcher, reg, l),
		dispatch.NewPortal(portal, reg, l),
		dispatch.NewBrowser(portal, reg, l),
	}

	return dispatch.NewEngine(res, dir, history, providers, l)
}

func main() {
	// init
	root, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load("../config/notify-worker.yaml")
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

	// bounce suppression
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()

	queue := redisq.NewWithClient(rdb, cfg.Redis.Queue, l)
	cache := bounce.NewCache(cfg.Bounce.Cache, redisq.NewStore(rdb), l)
	if err := cache.Warm(root); err != nil {
		l.Warn("bounce filter warm failed", zap.Error(err))
	}
	sweeper := bounce.NewRunner(queue, cache, cfg.Bounce.Period, cfg.Bounce.BatchSize, l)

	// kafka
	cons := kafkaRepo.BootstrapConsumer(root, &kafkaRepo.ConsumerConfig{
		Brokers: cfg.AlertsIn.Brokers,
		GroupID: cfg.AlertsIn.GroupID,
		Topic:   cfg.AlertsIn.Topic,
		Logger:  l,
	}, l)
	defer func() { _ = cons.Close() }()

	tr := kafkaRepo.NewVehicleTransport(cfg.Vehicle.Brokers, cfg.Vehicle.StreamTopic, l)
	defer func() { _ = tr.Close() }()

	// wiring
	engine := wire(cfg, db, tr, cache, l)
	ctrl := dispatch.NewController(l, cons, engine)

	// start
	go func() { _ = sweeper.Run(root) }()
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
