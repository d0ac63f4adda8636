// Example: embed the publisher runtime in a host process and query the live
// hierarchy while it runs.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	opcpublisher "github.com/isabella232/iot-edge-opc-publisher"
)

func main() {
	cfg, err := opcpublisher.LoadConfig("./data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	rt, err := opcpublisher.New(cfg)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	if err := rt.Start(); err != nil {
		log.Fatalf("start runtime: %v", err)
	}

	go func() {
		for range time.Tick(10 * time.Second) {
			counts := rt.Registry().Counts()
			log.Printf("sessions=%d connected=%d items=%d version=%d",
				counts.ConfiguredSessions, counts.ConnectedSessions,
				counts.ConfiguredItems, rt.Registry().Version())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
