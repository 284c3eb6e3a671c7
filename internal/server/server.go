// Package server exposes the wallet report engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"wallet-recon/internal/config"
	"wallet-recon/internal/domain"
	"wallet-recon/internal/observability"
	"wallet-recon/internal/solana"
)

// ReportCollector produces the metrics and intelligence structures for one
// wallet.
type ReportCollector interface {
	CollectWalletReport(ctx context.Context, wallet string, maxSignatures int) (*domain.WalletMetrics, *domain.WalletIntelligence, error)
}

// SocialSearcher finds recent social mentions for a set of addresses.
type SocialSearcher interface {
	SearchMentions(ctx context.Context, terms []string, maxResults int) (*domain.SocialIntel, error)
}

// Analyzer produces a narrative analysis from the report structures.
type Analyzer interface {
	AnalyzeWallet(ctx context.Context, wallet string, metrics *domain.WalletMetrics, intel *domain.WalletIntelligence, social *domain.SocialIntel) (string, string, error)
}

// TraceShipper delivers completed report traces to a telemetry sink.
type TraceShipper interface {
	Enabled() bool
	SendWalletTraceLog(ctx context.Context, wallet string, trace []domain.TraceStep, metrics *domain.WalletMetrics, socialCount int) error
}

// Server routes wallet report requests to the engine and its collaborators.
// Social, analyzer and shipper may be nil when the feature is not
// configured.
type Server struct {
	cfg       *config.Config
	collector ReportCollector
	social    SocialSearcher
	analyzer  Analyzer
	shipper   TraceShipper
	metrics   *observability.Metrics
	logger    *zap.Logger
	mux       *http.ServeMux
}

// New creates the HTTP surface over the given collaborators.
func New(cfg *config.Config, collector ReportCollector, social SocialSearcher, analyzer Analyzer, shipper TraceShipper, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		collector: collector,
		social:    social,
		analyzer:  analyzer,
		shipper:   shipper,
		metrics:   metrics,
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("POST /v1/wallet/report", s.handleWalletReport)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWalletReport(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var payload domain.WalletReportRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := solana.ValidateAddress(payload.Wallet); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid Solana wallet format")
		return
	}
	if !solana.IsOnCurve(payload.Wallet) {
		// Off-curve addresses are PDAs: still reportable, worth noting.
		s.logger.Debug("wallet is a program derived address", zap.String("wallet", payload.Wallet))
	}

	maxSignatures := s.cfg.SignatureLimit
	if payload.MaxSignatures != nil {
		maxSignatures = *payload.MaxSignatures
		if maxSignatures < config.MinSignatureLimit || maxSignatures > config.MaxSignatureLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("max_signatures must be within %d..%d", config.MinSignatureLimit, config.MaxSignatureLimit))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	trace := observability.NewTraceCollector()

	var metrics *domain.WalletMetrics
	var intel *domain.WalletIntelligence
	err := trace.Step("solana_research", fmt.Sprintf("max_signatures=%d", maxSignatures), func() error {
		var err error
		metrics, intel, err = s.collector.CollectWalletReport(ctx, payload.Wallet, maxSignatures)
		return err
	})
	if err != nil {
		s.reportError(w, payload.Wallet, err)
		return
	}

	social := s.searchSocial(ctx, trace, payload.Wallet, intel)

	response := &domain.WalletReportResponse{
		Metrics:      metrics,
		Intelligence: intel,
		Social:       social,
	}

	if s.cfg.MetricsOnly || s.analyzer == nil {
		response.Analysis = "Metrics-only mode enabled. Model analysis skipped."
	} else {
		err := trace.Step("model_analysis", "", func() error {
			var err error
			response.Analysis, response.Model, err = s.analyzer.AnalyzeWallet(ctx, payload.Wallet, metrics, intel, social)
			return err
		})
		if err != nil {
			s.countOutcome(func(m *observability.Metrics) *prometheus.CounterVec { return m.AnalysisCalls }, "error")
			writeError(w, http.StatusBadGateway, fmt.Sprintf("Model analysis failed: %v", err))
			return
		}
		s.countOutcome(func(m *observability.Metrics) *prometheus.CounterVec { return m.AnalysisCalls }, "ok")
	}

	response.Trace = trace.Steps()
	s.shipTrace(payload.Wallet, response)

	if s.metrics != nil {
		s.metrics.ReportsTotal.WithLabelValues("ok").Inc()
		s.metrics.ReportDuration.Observe(time.Since(started).Seconds())
	}
	writeJSON(w, http.StatusOK, response)
}

// searchSocial runs the optional mention search. Failures degrade to an
// empty result rather than failing the report.
func (s *Server) searchSocial(ctx context.Context, trace *observability.TraceCollector, wallet string, intel *domain.WalletIntelligence) *domain.SocialIntel {
	if !s.cfg.EnableXSearch || s.social == nil {
		return nil
	}

	terms := []string{wallet}
	for i, edge := range intel.LikelyFunders {
		if i == 2 {
			break
		}
		terms = append(terms, edge.Wallet)
	}
	for i, edge := range intel.LikelyFundedWallets {
		if i == 2 {
			break
		}
		terms = append(terms, edge.Wallet)
	}

	var social *domain.SocialIntel
	err := trace.Step("x_search", fmt.Sprintf("terms=%d", len(terms)), func() error {
		var err error
		social, err = s.social.SearchMentions(ctx, terms, s.cfg.XMaxResults)
		return err
	})
	if err != nil {
		s.countOutcome(func(m *observability.Metrics) *prometheus.CounterVec { return m.SocialSearches }, "error")
		s.logger.Warn("social search failed", zap.String("wallet", wallet), zap.Error(err))
		return &domain.SocialIntel{QueryTerms: []string{}, Mentions: []domain.SocialMention{}}
	}
	s.countOutcome(func(m *observability.Metrics) *prometheus.CounterVec { return m.SocialSearches }, "ok")
	return social
}

// shipTrace sends the completed report to the telemetry sink, best effort.
func (s *Server) shipTrace(wallet string, response *domain.WalletReportResponse) {
	if s.shipper == nil || !s.shipper.Enabled() {
		return
	}
	socialCount := 0
	if response.Social != nil {
		socialCount = response.Social.TotalResults
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.shipper.SendWalletTraceLog(ctx, wallet, response.Trace, response.Metrics, socialCount); err != nil {
		s.logger.Warn("trace shipping failed", zap.String("wallet", wallet), zap.Error(err))
	}
}

// reportError maps engine failures onto HTTP statuses: exhausted rate
// limiting is a retryable 503, everything else an upstream 502.
func (s *Server) reportError(w http.ResponseWriter, wallet string, err error) {
	var rateLimit *solana.RateLimitError
	if errors.As(err, &rateLimit) {
		if s.metrics != nil {
			s.metrics.RateLimitHits.Inc()
			s.metrics.ReportsTotal.WithLabelValues("rate_limited").Inc()
		}
		s.logger.Warn("rpc rate limited", zap.String("wallet", wallet), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Solana RPC rate limited. Use a private RPC URL in SOLANA_RPC_URL and retry.")
		return
	}
	if s.metrics != nil {
		s.metrics.ReportsTotal.WithLabelValues("error").Inc()
	}
	s.logger.Error("wallet report failed", zap.String("wallet", wallet), zap.Error(err))
	writeError(w, http.StatusBadGateway, fmt.Sprintf("Failed to build wallet metrics: %v", err))
}

// countOutcome bumps a labeled counter when metrics are wired, picking the
// vector only after the nil check so tests can run without a registry.
func (s *Server) countOutcome(pick func(*observability.Metrics) *prometheus.CounterVec, outcome string) {
	if s.metrics == nil {
		return
	}
	pick(s.metrics).WithLabelValues(outcome).Inc()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
