// Package api serves company lookups, AI insights, payments and user
// settings over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/RxDataLab/go-edinet"
	"github.com/RxDataLab/go-edinet/internal/billing"
	"github.com/RxDataLab/go-edinet/internal/insights"
	"github.com/RxDataLab/go-edinet/internal/settings"
)

// InsightService is implemented by *insights.Service
type InsightService interface {
	Get(ctx context.Context, ticker string, force bool) (*insights.Insight, error)
	Compare(ctx context.Context, tickers []string) ([]insights.CompareResult, error)
}

// Subscriber is implemented by *billing.Client
type Subscriber interface {
	Subscribe(ctx context.Context, req billing.SubscribeRequest) (*billing.Subscription, error)
}

// SettingsStore is implemented by *settings.Store
type SettingsStore interface {
	Get(ctx context.Context, uid string) (settings.Settings, error)
	Put(ctx context.Context, uid string, s settings.Settings) (settings.Settings, error)
}

// Deps are the services behind the routes. A nil service answers 503.
type Deps struct {
	Resolver    *edinet.Resolver
	Insights    InsightService
	Billing     Subscriber
	Settings    SettingsStore
	Logger      *zap.Logger
	CORSOrigins []string
}

// Server is the HTTP API server
type Server struct {
	router  chi.Router
	deps    Deps
	log     *zap.Logger
	started time.Time
}

// APIResponse is the envelope every endpoint returns
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CompareRequest is the body for POST /api/insights/compare
type CompareRequest struct {
	Tickers []string `json:"tickers"`
}

const maxCompareTickers = 10

// analysisFailedMessage is shown instead of raw model or upstream errors
const analysisFailedMessage = "分析中にエラーが発生しました。もう一度お試しください。"

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &Server{deps: deps, log: deps.Logger, started: time.Now()}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	origins := []string{"*"}
	if len(s.deps.CORSOrigins) > 0 {
		origins = s.deps.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/company/{ticker}", s.handleCompany)

		r.Get("/insights", s.handleInsights)
		r.Post("/insights/compare", s.handleCompare)

		r.Post("/payments", s.handlePayments)

		r.Get("/settings/{uid}", s.handleGetSettings)
		r.Put("/settings/{uid}", s.handlePutSettings)
	})

	return r
}

// requestLogger logs one line per request through zap
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"status":  "ok",
		"version": edinet.VERSION,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	}
	if s.deps.Resolver != nil {
		data["resolver"] = s.deps.Resolver.Stats()
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	if s.deps.Resolver == nil {
		writeError(w, http.StatusServiceUnavailable, "company lookup is not configured")
		return
	}
	ticker := strings.TrimSpace(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	res := s.deps.Resolver.ResolveDetailed(r.Context(), ticker, isTruthy(r.URL.Query().Get("refresh")))
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: edinet.NewReport(res)})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if s.deps.Insights == nil {
		writeError(w, http.StatusServiceUnavailable, "insights are not configured")
		return
	}
	ticker := strings.TrimSpace(r.URL.Query().Get("ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "証券コードを入力してください")
		return
	}
	insight, err := s.deps.Insights.Get(r.Context(), ticker, isTruthy(r.URL.Query().Get("refresh")))
	if err != nil {
		s.writeInsightError(w, ticker, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: insight})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if s.deps.Insights == nil {
		writeError(w, http.StatusServiceUnavailable, "insights are not configured")
		return
	}
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tickers := make([]string, 0, len(req.Tickers))
	for _, t := range req.Tickers {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, t)
		}
	}
	if len(tickers) == 0 {
		writeError(w, http.StatusBadRequest, "tickers are required")
		return
	}
	if len(tickers) > maxCompareTickers {
		writeError(w, http.StatusBadRequest, "too many tickers")
		return
	}

	results, err := s.deps.Insights.Compare(r.Context(), tickers)
	if err != nil {
		s.writeInsightError(w, strings.Join(tickers, ","), err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: results})
}

func (s *Server) writeInsightError(w http.ResponseWriter, ticker string, err error) {
	switch {
	case errors.Is(err, insights.ErrTickerRequired):
		writeError(w, http.StatusBadRequest, "証券コードを入力してください")
	case errors.Is(err, insights.ErrNoAPIKey):
		writeError(w, http.StatusInternalServerError, "Gemini APIキーが設定されていません。環境変数 GEMINI_API_KEY を設定してください。")
	default:
		s.log.Error("AI analysis error", zap.String("ticker", ticker), zap.Error(err))
		writeError(w, http.StatusInternalServerError, analysisFailedMessage)
	}
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	if s.deps.Billing == nil {
		writeError(w, http.StatusServiceUnavailable, "payments are not configured")
		return
	}
	var req billing.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := s.deps.Billing.Subscribe(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, billing.ErrTokenRequired) {
			status = http.StatusBadRequest
		}
		s.log.Error("failed to process payment", zap.String("uid", req.UID), zap.Error(err))
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: sub})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.deps.Settings == nil {
		writeError(w, http.StatusServiceUnavailable, "settings are not configured")
		return
	}
	got, err := s.deps.Settings.Get(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		s.writeSettingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: got})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	if s.deps.Settings == nil {
		writeError(w, http.StatusServiceUnavailable, "settings are not configured")
		return
	}
	var in settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	saved, err := s.deps.Settings.Put(r.Context(), chi.URLParam(r, "uid"), in)
	if err != nil {
		s.writeSettingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: saved})
}

func (s *Server) writeSettingsError(w http.ResponseWriter, err error) {
	if errors.Is(err, settings.ErrUserRequired) || errors.Is(err, settings.ErrInvalidMarket) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Error("settings store error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "failed to access settings")
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to write JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Success: false, Error: msg})
}
