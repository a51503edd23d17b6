package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/showza/showza-server/internal/booking"
	"github.com/showza/showza-server/internal/catalog"
	"github.com/showza/showza-server/internal/config"
	"github.com/showza/showza-server/internal/database"
	"github.com/showza/showza-server/internal/handler"
	"github.com/showza/showza-server/internal/notify"
	"github.com/showza/showza-server/internal/payment"
	"github.com/showza/showza-server/internal/queue"
	"github.com/showza/showza-server/internal/repository"
	"github.com/showza/showza-server/internal/router"
	"github.com/showza/showza-server/internal/scheduler"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	if cfg.Env == "dev" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.Pool{
		MaxOpen:         cfg.DBMaxOpenConns,
		MaxIdle:         cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnLifetimeMin) * time.Minute,
	})
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	migCtx, cancelMig := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migCtx, db); err != nil {
		cancelMig()
		log.WithError(err).Fatal("database migration failed")
	}
	cancelMig()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, response cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	store := repository.NewStore(db)
	publisher := queue.NewPublisher(cfg.AMQPURL, log)
	defer publisher.Close()

	mailer := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SenderMail)
	catalogClient := catalog.New(cfg.TMDBAPIKey)
	gateway := payment.New(cfg.PaymentSecretKey)

	jobs := scheduler.New(store.Jobs, log)
	bookingSvc := booking.NewService(store, gateway, jobs, publisher, mailer, log, booking.Config{
		HoldWindow:    cfg.HoldWindow(),
		ReminderEvery: cfg.ReminderEvery(),
		Currency:      cfg.Currency,
	})
	jobs.Register(booking.KindPaymentReconcile, bookingSvc.HandleReconcileJob)
	jobs.Register(booking.KindReminderSweep, bookingSvc.HandleReminderJob)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Seed the periodic sweep; an already-pending occurrence wins on the
	// idempotency key.
	if err := bookingSvc.ScheduleNextReminderSweep(ctx, time.Now().Add(cfg.ReminderEvery())); err != nil {
		log.WithError(err).Error("seed reminder sweep failed")
	}

	go func() {
		if err := jobs.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("scheduler stopped")
		}
	}()

	worker := queue.NewConsumer(cfg.AMQPURL, mailer, store.Users, log)
	go func() {
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("notification worker stopped")
		}
	}()

	e := router.New(router.Handlers{
		Auth:     handler.NewAuthHandler(cfg.AdminEmail, cfg.AdminPasswordHash, cfg.JWTSecret, time.Duration(cfg.AccessTTLMin)*time.Minute, log),
		Booking:  handler.NewBookingHandler(bookingSvc, cfg.PublicOrigin, log),
		Show:     handler.NewShowHandler(store, catalogClient, publisher, log),
		TMDB:     handler.NewTMDBHandler(catalogClient, log),
		Payment:  handler.NewPaymentHandler(cfg.PaymentWebhookSecret, bookingSvc, log),
		Identity: handler.NewIdentityHandler(cfg.IdentityWebhookSecret, store.Users, log),
	}, cfg.JWTSecret, rdb, config.LoadCacheConfig(), config.LoadRateLimitConfig())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("server shutdown failed")
		}
	}()

	log.WithField("port", cfg.Port).Info("server starting")
	if err := e.Start(":" + cfg.Port); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("server stopped unexpectedly")
	}
}
