package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"videotube/internal/config"
	"videotube/internal/logger"
	"videotube/simulator"
)

func main() {
	log := logger.New(&config.LogConfig{Level: "info", Format: "text", Environment: "development"})

	baseURL := os.Getenv("SIM_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	cfg := simulator.SimConfig{
		NumUsers:           50,
		SimulationTime:     5 * time.Minute,
		SubscribeFrequency: 120.0,
		ProfileFrequency:   240.0,
		RefreshFrequency:   30.0,
		LogoutRate:         0.01,
		LoginRate:          0.05,
		ZipfS:              1.07,
		BatchSize:          10,
		TickInterval:       500 * time.Millisecond,
		BaseURL:            baseURL,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.SimulationTime)
	defer cancel()

	log.Info("simulation configuration",
		"base_url", cfg.BaseURL,
		"users", cfg.NumUsers,
		"duration", cfg.SimulationTime,
		"subscribe_per_hour", cfg.SubscribeFrequency,
		"profile_per_hour", cfg.ProfileFrequency,
		"refresh_per_hour", cfg.RefreshFrequency,
		"zipf_s", cfg.ZipfS,
	)

	sim := simulator.NewSimulator(cfg, log)
	if err := sim.Run(ctx); err != nil {
		log.Error("simulation failed", "error", err)
		os.Exit(1)
	}

	m := sim.GetMetrics()
	log.Info("simulation completed",
		"users", m.TotalUsers,
		"active_users", m.ActiveUsers,
		"subscriptions", m.Subscriptions,
		"unsubscriptions", m.Unsubscriptions,
		"profile_views", m.ProfileViews,
		"refreshes", m.Refreshes,
		"errors", m.ErrorCount,
	)
}
