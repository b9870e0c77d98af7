package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"ukepenger/internal/engine/pairing"
	"ukepenger/internal/pkg/logger"
	"ukepenger/internal/platform/config"
	"ukepenger/internal/platform/database"
	"ukepenger/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	once := flag.Bool("once", false, "Run a single prune pass and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	pairingSvc := pairing.NewService(db, cfg.Session.SigningKey, cfg.Session.PairingKey, cfg.Server.PublicBaseURL)
	pruner := workers.NewPruner(pairingSvc, cfg.Workers.PruneInterval, cfg.Workers.RevokedRetention)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := pruner.PruneOnce(ctx); err != nil {
			log.Fatal().Err(err).Msg("prune failed")
		}
		return
	}

	log.Info().
		Dur("interval", cfg.Workers.PruneInterval).
		Dur("retention", cfg.Workers.RevokedRetention).
		Msg("worker starting")
	pruner.Run(ctx)
	log.Info().Msg("worker stopped")
}
