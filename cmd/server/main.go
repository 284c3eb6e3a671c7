// Package main runs the wallet recon HTTP service: signature listing,
// batched transaction fetching, aggregation and entity classification
// behind POST /v1/wallet/report.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"wallet-recon/internal/analysis"
	"wallet-recon/internal/config"
	"wallet-recon/internal/logger"
	"wallet-recon/internal/observability"
	"wallet-recon/internal/recon"
	"wallet-recon/internal/server"
	"wallet-recon/internal/social"
	"wallet-recon/internal/solana"
	"wallet-recon/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	metrics := observability.NewMetrics("")
	rpc := solana.NewClient(cfg.SolanaRPCURL,
		solana.WithTimeout(timeout),
		solana.WithCallObserver(func(method string, d time.Duration) {
			metrics.RPCCallDuration.WithLabelValues(method).Observe(d.Seconds())
		}),
		solana.WithBatchFallbackHook(metrics.BatchFallbacks.Inc),
	)
	collector := recon.NewCollector(rpc, recon.DefaultLabelTable(), log.WithComponent("collector").Logger)

	var socialClient server.SocialSearcher
	if cfg.EnableXSearch && cfg.XBearerToken != "" {
		socialClient = social.NewClient(cfg.XBearerToken, timeout)
	}
	var analyzer server.Analyzer
	if cfg.BedrockAPIKey != "" {
		analyzer = analysis.NewClient(cfg.AWSRegion, cfg.BedrockModelID, cfg.BedrockAPIKey, 60*time.Second)
	}
	var shipper server.TraceShipper
	if cfg.DDSendLogs {
		shipper = telemetry.NewClient(cfg.DDAPIKey, cfg.DDService, cfg.DDEnv, cfg.DDVersion, cfg.DDSite, timeout)
	}

	srv := server.New(cfg, collector, socialClient, analyzer, shipper, metrics, log.WithComponent("server").Logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: timeout + 90*time.Second,
	}

	go func() {
		log.Info("wallet recon service listening",
			zap.Int("port", cfg.HTTPPort),
			zap.String("rpc_url", cfg.SolanaRPCURL),
			zap.Int("signature_limit", cfg.SignatureLimit))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}
