package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"murmur/agent/internal/api"
	"murmur/agent/internal/config"
	"murmur/agent/internal/health"
	"murmur/agent/internal/interrupt"
	"murmur/agent/internal/loop"
	"murmur/agent/internal/responder"
	"murmur/agent/internal/store"
	"murmur/agent/internal/workerws"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	status := health.CheckAll(ctx, cfg)
	cancel()
	log.Print(status.String())

	st := store.New()
	reg := workerws.NewRegistry()
	classifier := interrupt.NewClassifier(cfg.ResolveIgnoreWords())
	rsp := responder.NewOpenAI(cfg)

	disp := loop.New(reg, st, classifier, rsp, cfg.Interrupt.SpeechTimeoutSec)

	h := api.NewHandlers(cfg, st, disp)
	mux := http.NewServeMux()
	mux.Handle("/", api.NewRouter(h))
	mux.Handle("/metrics", promhttp.Handler())

	wss := workerws.NewServer(cfg, st, reg)
	wss.OnMessage = disp.OnMessage
	mux.HandleFunc("/ws/worker", wss.HandleWorkerWS)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Printf("shutdown signal received; stopping server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Printf("server starting on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Println("server error:", err)
		os.Exit(1)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
