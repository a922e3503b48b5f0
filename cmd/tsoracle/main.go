// Command tsoracle runs the server-query bot: it connects to the chat
// server, keeps a consent-gated audit trail of join/leave/move activity in a
// relational database, and answers the !register/!unregister channel
// commands. An operational HTTP surface exposes health, metrics, and
// aggregate statistics.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"tsoracle/internal/bot"
	"tsoracle/internal/config"
	"tsoracle/internal/domain"
	httpapi "tsoracle/internal/http"
	"tsoracle/internal/observability"
	"tsoracle/internal/repo"
	"tsoracle/internal/services"
	"tsoracle/internal/sysutil"
	"tsoracle/internal/ts"
)

const version = "1.2.0"

func main() {
	// Layered env files: godotenv never overrides already-set keys, so the
	// process environment wins and .env.local overrides .env.
	_ = godotenv.Load(".env.local", ".env")

	cfg := config.MustLoad()
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)
	log.Info().Str("version", version).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	log.Info().Str("driver", cfg.Database.Driver).Msg("connecting to database")
	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			log.Fatal().Err(err).Msg("database tracing setup failed")
		}
	}

	store := services.NewEventStore(db)
	if err := store.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}
	if err := store.RecordMetaEvent(ctx, domain.MetaApplicationStarted); err != nil {
		log.Error().Err(err).Msg("writing start marker failed")
	}

	controller, err := ts.ConnectWithRetry(ctx, ts.Config{
		Host:               cfg.Teamspeak.Host,
		Port:               cfg.Teamspeak.Port,
		User:               cfg.Teamspeak.User,
		Password:           cfg.Teamspeak.Password,
		ServerID:           cfg.Teamspeak.ServerID,
		Nickname:           cfg.Teamspeak.Nickname,
		ChannelName:        cfg.Channel.Name,
		ChannelDescription: cfg.Channel.Description,
	}, cfg.Teamspeak.ConnectAttempts, cfg.Teamspeak.ConnectBackoff, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("server query connection failed")
	}
	defer controller.Close()

	dispatcher := bot.NewDispatcher(
		store,
		services.NewSessionResolver(db),
		controller,
		bot.NewLocalizer(cfg.Locale),
		cfg.CommandRPS,
		cfg.CommandBurst,
		log.Logger,
	)

	var httpSrv *http.Server
	if cfg.HTTPEnabled {
		gin.SetMode(cfg.GinMode)
		engine := gin.New()
		httpapi.RegisterRoutes(engine, db, cfg)
		httpSrv = &http.Server{
			Addr:              ":" + cfg.HTTPPort,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info().Str("addr", httpSrv.Addr).Msg("ops http listening")
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("ops http server failed")
			}
		}()
	}

	log.Info().Msg("listening for server notifications")
	if err := controller.Run(ctx, dispatcher); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("notification loop ended")
	}

	// Best-effort shutdown marker and teardown with a fresh context; the
	// signal context is already cancelled at this point.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.RecordMetaEvent(shutdownCtx, domain.MetaApplicationShutdown); err != nil {
		log.Error().Err(err).Msg("writing shutdown marker failed")
	}
	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("ops http shutdown failed")
		}
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown failed")
	}
	log.Info().Msg("stopped")
}

// openDatabase opens the configured backend.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.Database.Driver == "postgres" {
		return repo.OpenPostgres(
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Name,
			cfg.Database.User,
			cfg.Database.Password,
		)
	}
	return repo.OpenSQLite(cfg.Database.Path)
}
