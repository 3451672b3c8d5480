package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relay/config"
	"relay/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var addr string
	flag.StringVar(&addr, "addr", cfg.ListenAddr, "server listen address, e.g. :8080")
	flag.Parse()

	log := server.NewLogger(cfg.LogFile)
	defer log.Sync()

	registry := server.NewRegistry()
	metrics := &server.Metrics{}
	handler := server.NewHandler(registry, metrics, log, server.HandlerConfig{
		SendQueueSize: cfg.SendQueueSize,
		ReadLimit:     cfg.ReadLimit,
		WriteTimeout:  cfg.WriteTimeout,
		PongTimeout:   cfg.PongTimeout,
	})
	broadcaster := server.NewBroadcaster(registry, metrics, log, cfg.BroadcastInterval)
	broadcaster.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.HandleWS)
	mux.HandleFunc("/admin/config", server.HandleAdminConfig(broadcaster))
	mux.HandleFunc("/metrics", server.HandleMetrics(registry, metrics))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Infof("relay listening on %s, broadcasting every %s", addr, broadcaster.Interval())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")

	broadcaster.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
