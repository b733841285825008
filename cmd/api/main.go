package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dayboard/api/internal/app"
	"dayboard/api/internal/cache"
	"dayboard/api/internal/config"
	"dayboard/api/internal/upstream"
)

func main() {
	cfg := config.Load()

	var snapshots *cache.SnapshotStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		store, err := cache.NewSnapshotStore(cfg.RedisURL, cfg.SnapshotTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer store.Close()
		snapshots = store
		log.Printf("Using Redis snapshot cache")
	} else {
		log.Printf("Snapshot cache disabled; upstream outages degrade to empty feeds")
	}

	client := upstream.New(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, cfg.PageSize)
	service := app.New(cfg, client, snapshots)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Dayboard API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
