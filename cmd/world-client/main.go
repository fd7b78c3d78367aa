package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tabletop-core/internal/config"
	"tabletop-core/services/statusapi"
	"tabletop-core/services/worldsync"
)

func main() {
	configPath := flag.String("config", os.Getenv("CLIENT_CONFIG"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutting down world client...")
		cancel()
	}()

	service, err := worldsync.NewService(cfg)
	if err != nil {
		log.Fatalf("World sync: %v", err)
	}
	service.Start(ctx)

	api := statusapi.NewServer(cfg.HTTPAddr, service.Session())
	api.Start()

	<-ctx.Done()
	api.Stop()
	service.Stop()
	log.Println("World client stopped.")
}
