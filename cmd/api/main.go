package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/harentsoaR/vetclinic-api/internal/config"
	"github.com/harentsoaR/vetclinic-api/internal/handlers"
	"github.com/harentsoaR/vetclinic-api/internal/logger"
	"github.com/harentsoaR/vetclinic-api/internal/metrics"
	"github.com/harentsoaR/vetclinic-api/internal/middleware"
	"github.com/harentsoaR/vetclinic-api/internal/notify"
	"github.com/harentsoaR/vetclinic-api/internal/repository"
	"github.com/harentsoaR/vetclinic-api/internal/repository/memory"
	"github.com/harentsoaR/vetclinic-api/internal/repository/mongostore"
	"github.com/harentsoaR/vetclinic-api/internal/services"
	"github.com/harentsoaR/vetclinic-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	zerolog.DefaultContextLogger = &l
	l.Info().
		Str("store", cfg.StoreDriver).
		Str("mongo_database", cfg.MongoDatabase).
		Str("port", cfg.Port).
		Bool("jwt_secret_set", cfg.JWTSecret != "").
		Bool("smtp_enabled", cfg.SMTP.Enabled()).
		Bool("sms_enabled", cfg.SMS.Enabled()).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	store, closeStore, err := openStore(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeStore()

	if _, err := services.EnsureDefaultAdmin(ctx, store.Staff, services.AdminAccount{
		Name:     cfg.Admin.Name,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}, l); err != nil {
		l.Fatal().Err(err).Msg("Failed to bootstrap admin account")
	}

	m := metrics.New()

	// --- Notifications ---
	queue, err := openQueue(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to open notification queue")
	}
	worker := notify.NewWorker(queue, transports(cfg, l), notify.WorkerConfig{
		MaxAttempts: cfg.Notify.MaxAttempts,
		Backoff:     cfg.Notify.Backoff,
	}, l, m)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = worker.Run(ctx)
	}()

	// --- Services and handlers ---
	svc := services.New(services.Deps{
		Store:         store,
		Sessions:      utils.NewSessionIssuer(cfg.JWTSecret, cfg.SessionTTL),
		Notifications: services.NewNotificationService(queue, cfg.FrontendURL, l, m),
		Tokens: services.TokenTTLs{
			Confirmation: cfg.Tokens.ConfirmationTTL,
			Reset:        cfg.Tokens.ResetTTL,
		},
		Log:     l,
		Metrics: m,
	})

	router := handlers.NewRouter(handlers.NewHandler(svc, m), handlers.RouterOptions{
		Log:            l,
		AllowOrigins:   []string{cfg.FrontendURL},
		TrustedProxies: cfg.TrustedProxies,
		Limiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			PerMinute: cfg.Login.RatePerMinute,
			Burst:     cfg.Login.Burst,
		}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	l.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("Server shutdown failed")
	}
	_ = queue.Close()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		l.Warn().Msg("Notification worker did not stop in time")
	}
}

func openStore(ctx context.Context, cfg *config.Config, l zerolog.Logger) (*repository.Store, func(), error) {
	if cfg.StoreDriver == "memory" {
		l.Warn().Msg("Using the in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	client, err := mongostore.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			l.Error().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}
	db := client.Database(cfg.MongoDatabase)
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		closeFn()
		return nil, nil, err
	}
	l.Info().Msg("Successfully connected to MongoDB")
	return mongostore.NewStore(db), closeFn, nil
}

func openQueue(ctx context.Context, cfg *config.Config, l zerolog.Logger) (notify.Queue, error) {
	if cfg.RedisURL == "" {
		return notify.NewMemoryQueue(1024), nil
	}
	q, err := notify.NewRedisQueue(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	n, err := q.Recover(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		l.Info().Int("jobs", n).Msg("Requeued unacknowledged notifications")
	}
	return q, nil
}

// transports picks the real transport per channel when configured, otherwise
// notifications are only logged.
func transports(cfg *config.Config, l zerolog.Logger) map[notify.Channel]notify.Transport {
	fallback := notify.NewLogTransport(l)
	t := map[notify.Channel]notify.Transport{
		notify.ChannelEmail: fallback,
		notify.ChannelSMS:   fallback,
	}
	if cfg.SMTP.Enabled() {
		t[notify.ChannelEmail] = notify.NewEmailTransport(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.From)
	}
	if cfg.SMS.Enabled() {
		t[notify.ChannelSMS] = notify.NewSMSTransport(cfg.SMS.URL, cfg.SMS.APIKey)
	}
	return t
}
