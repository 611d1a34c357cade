// Command feed-sim publishes simulated game rounds on the result endpoint
// so roundwatch can be run without the game server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/roundwatch/internal/config"
	"github.com/okian/roundwatch/internal/simfeed"
	"github.com/okian/roundwatch/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	_ = logger.SetLevelString(cfg.LogLevel)
	log := logger.Named("feed-sim")

	srv := simfeed.NewServer(simfeed.Config{
		Addr:           cfg.SimAddr,
		Players:        cfg.SimPlayers,
		Interval:       time.Duration(cfg.SimIntervalMS) * time.Millisecond,
		StartBalance:   cfg.SimStartBalance,
		MaxBet:         cfg.SimMaxBet,
		Rounds:         cfg.SimRounds,
		Seed:           cfg.SimSeed,
		WaitForClients: true,
	})
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Error(ctx, "simulator stopped", logger.Error(err))
		return
	}
	log.Info(ctx, "simulator finished")
}
