package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/submission-gateway/internal/adapters/http"
	"github.com/kirillkom/submission-gateway/internal/bootstrap"
	"github.com/kirillkom/submission-gateway/internal/config"
	"github.com/kirillkom/submission-gateway/internal/observability/logging"
	"github.com/kirillkom/submission-gateway/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.Setup("submission-gateway-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics("submission-gateway-api")
	router := httpadapter.NewRouter(cfg, app.Resolver, app.Device, app.Lifecycle, serverMetrics).Handler()
	server := &http.Server{
		Addr:        ":" + cfg.APIPort,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// Device-code authentication holds the response open for the whole
		// poll budget, so no write deadline here.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
