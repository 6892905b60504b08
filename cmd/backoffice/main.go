package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/app"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := app.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	applyFlags(&cfg, os.Args[1:])
	log.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr": cfg.HTTPAddr,
		"ops_addr":  cfg.OpsAddr,
		"storage":   storageMode(cfg),
		"queue":     queueMode(cfg),
	}).Info("starting back office")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("back office exited with error")
	}

	log.Info("back office stopped")
}

// applyFlags lets local runs override the listen addresses without touching
// the environment. Everything else stays env-driven.
func applyFlags(cfg *app.Config, args []string) {
	fs := flag.NewFlagSet("backoffice", flag.ExitOnError)
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "REST API listen address")
	fs.StringVar(&cfg.OpsAddr, "ops-addr", cfg.OpsAddr, "metrics/health listen address")
	// ExitOnError: Parse never returns an error to handle.
	_ = fs.Parse(args)
}

func storageMode(cfg app.Config) string {
	if cfg.MemoryMode() {
		return "memory"
	}
	return "postgres"
}

func queueMode(cfg app.Config) string {
	if cfg.InProcessQueue() {
		return "in-process"
	}
	return "kafka"
}
