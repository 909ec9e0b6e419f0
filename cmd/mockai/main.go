package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/aiaccountant/internal/logging"
	"github.com/dmitrijs2005/aiaccountant/internal/mockai"
)

func main() {
	cfg, err := mockai.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(os.Getenv("LOG_BACKEND"), os.Getenv("LOG_LEVEL"), os.Stdout)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mockai.Run(ctx, cfg, logger.With("module", "mockai")); err != nil {
		log.Fatalf("%v", err)
	}
}
