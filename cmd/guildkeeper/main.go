// Command guildkeeper runs the community management bot: the Discord
// gateway connection, the background sweeps, and the admin HTTP surface.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"guildkeeper/internal/admin"
	"guildkeeper/internal/bot"
	"guildkeeper/internal/config"
	"guildkeeper/internal/domain"
	"guildkeeper/internal/logging"
	"guildkeeper/internal/observability"
	"guildkeeper/internal/repo"
	"guildkeeper/internal/scheduler"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	log := logging.Setup(cfg.LogLevel, cfg.LogPretty, "guildkeeper")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	b, err := bot.New(cfg, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("building bot failed")
	}
	if err := b.Start(); err != nil {
		log.Fatal().Err(err).Msg("connecting to gateway failed")
	}
	defer func() {
		if err := b.Stop(); err != nil {
			log.Warn().Err(err).Msg("closing gateway session failed")
		}
	}()

	sched := scheduler.New(
		db, cfg, log,
		b.Dispatcher,
		b.Sessions,
		scheduler.AnnouncerFunc(func(channelID, content string) error {
			_, err := b.Session.ChannelMessageSend(channelID, content)
			return err
		}),
		func(ctx context.Context, g domain.Giveaway) error {
			return b.Handlers.FinishGiveaway(ctx, g)
		},
	)

	adminRouter := admin.NewRouter(db, cfg, log, func() admin.Status {
		return admin.Status{
			GatewayConnected: b.Connected(),
			GuardInFlight:    b.Dispatcher.Guard().InFlight(),
			WizardSessions:   b.Sessions.Len(),
		}
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := admin.Serve(ctx, cfg, adminRouter, log); err != nil {
			log.Error().Err(err).Msg("admin server failed")
			stop()
		}
	}()

	log.Info().Str("version", version).Msg("guildkeeper running")
	<-ctx.Done()
	log.Info().Msg("shutting down")
	wg.Wait()
}
