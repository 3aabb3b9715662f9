package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetdesk/fleetdesk/internal/config"
	"github.com/fleetdesk/fleetdesk/internal/orchestrator"
)

func main() {
	log.Printf("Starting FleetDesk...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	orch := orchestrator.NewOrchestrator(cfg)
	if err := orch.Start(); err != nil {
		log.Fatalf("Failed to start orchestrator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Printf("Shutting down FleetDesk...")
		cancel()
	}()

	log.Printf("FleetDesk ready on :%s", cfg.HTTPPort)

	if err := orch.Run(ctx); err != nil {
		log.Printf("Run error: %v", err)
	}

	orch.Stop()
}
