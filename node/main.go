package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	server, err := NewNodeServer(cfg)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	log.Printf("INFO: Settlement node stopped")
}
