package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/wagate/pkg/automation"
	"github.com/wagate/pkg/cache"
	"github.com/wagate/pkg/config"
	"github.com/wagate/pkg/database"
	"github.com/wagate/pkg/domains/auth"
	"github.com/wagate/pkg/domains/session"
	"github.com/wagate/pkg/domains/webhook"
	"github.com/wagate/pkg/eventbus"
	"github.com/wagate/pkg/logger"
	"github.com/wagate/pkg/realtime"
	"github.com/wagate/pkg/server"
	"github.com/wagate/pkg/utils"
)

const shutdownBudget = 30 * time.Second

func StartApp() {
	if err := run(); err != nil {
		zlog.Fatal().Err(err).Msg("service stopped")
	}
}

func run() error {
	utils.LoadEnv()
	cfg, err := config.InitConfig()
	if err != nil {
		return err
	}

	log := logger.New(cfg.App.LogLevel, cfg.App.LogPretty)
	zlog.Logger = log
	if cfg.App.Secret == "" {
		return errors.New("app.secret (SECRET) must be set")
	}

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	qr, closeQR := qrCache(cfg.Redis, log)
	defer closeQR()

	bus := eventbus.New(log)
	defer bus.Close()

	lifecycle := session.NewLifecycle(
		session.NewStore(),
		session.NewRepo(db),
		bus,
		qr,
		automation.NewWhatsmeow,
		session.OptionsFromConfig(cfg.Sessions),
		log,
	)

	webhookRepo := webhook.NewRepo(db)
	dispatcher := webhook.NewDispatcher(webhookRepo, webhook.DispatcherOptionsFromConfig(cfg.Webhooks), log)
	dispatcher.Attach(bus)

	hub := realtime.NewHub(cfg.Realtime, log)
	hub.Attach(bus)

	engine, err := server.NewEngine(cfg.App, cfg.Allows, server.Deps{
		Auth:     auth.NewService(auth.NewRepo(db), cfg.App.Secret),
		Sessions: lifecycle,
		Webhooks: webhook.NewService(webhookRepo, dispatcher, cfg.Webhooks.DefaultTimeout),
		Hub:      hub,
	}, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Sessions.RestoreOnStart {
		n := lifecycle.Restore(ctx)
		log.Info().Int("sessions", n).Msg("restored sessions")
	}

	srv := server.NewHTTPServer(cfg.App, engine)
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
	}

	shutdown(srv, lifecycle, dispatcher, hub, log)
	return nil
}

// shutdown order: http, sessions, webhook drain, hub.
func shutdown(srv *http.Server, lifecycle *session.Lifecycle, dispatcher *webhook.Dispatcher, hub *realtime.Hub, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownBudget)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	lifecycle.Shutdown(ctx)
	if err := dispatcher.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("webhook deliveries still in flight")
	}
	hub.Close()
	log.Info().Msg("shutdown complete")
}

func qrCache(rc config.Redis, log zerolog.Logger) (cache.QRCache, func()) {
	if rc.Addr == "" {
		return cache.NewMemoryQRCache(rc.QRTTL), func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Pass,
		DB:       rc.DB,
	})
	log.Info().Str("addr", rc.Addr).Msg("qr cache backed by redis")
	return cache.NewRedisQRCache(rdb, rc.QRTTL), func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
}
