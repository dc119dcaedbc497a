// Package api provides the HTTP REST API server for FinSum.
//
// It serves the cached refresh snapshot, on-demand symbol analysis, article
// summarization and Q&A, and a WebSocket stream of refresh events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/seenimoa/finsum/internal/app"
	"github.com/seenimoa/finsum/internal/config"
	"github.com/seenimoa/finsum/internal/pipeline"
	"github.com/seenimoa/finsum/internal/scheduler"
	"github.com/seenimoa/finsum/pkg/models"
)

// Snapshots is the read and refresh side of the scheduler.
type Snapshots interface {
	Current(ctx context.Context) *models.Snapshot
	Refresh(ctx context.Context) (*models.Snapshot, error)
	Status() scheduler.Status
}

// BatchAnalyzer runs interactive analysis for arbitrary symbols.
type BatchAnalyzer interface {
	Analyze(ctx context.Context, symbols []string) (*pipeline.Result, error)
}

// ArticleEngine summarizes and answers questions about articles.
type ArticleEngine interface {
	Summarize(ctx context.Context, title, content string) string
	Answer(ctx context.Context, article, question string) string
	AnalyzeText(ctx context.Context, article, question string) models.ArticleResult
}

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	cfg       *config.Config
	log       *zap.Logger
	snapshots Snapshots
	analyzer  BatchAnalyzer
	engine    ArticleEngine
	wsHub     *WSHub
	version   string
}

// NewServer creates a configured API server over the application's
// components and subscribes the WebSocket hub to refresh events.
func NewServer(a *app.App, version string) *Server {
	srv := &Server{
		cfg:       a.Config,
		log:       a.Log.Named("api"),
		snapshots: a.Refresher,
		analyzer:  a.Analyzer,
		engine:    a.Engine,
		wsHub:     NewWSHub(),
		version:   version,
	}
	a.Refresher.OnRefresh(srv.broadcastRefresh)
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.wsHub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API server listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Stocks
		r.Get("/stocks", s.handleStocks)
		r.Post("/stocks/analyze", s.handleAnalyze)
		r.Get("/stocks/{symbol}", s.handleStock)
		r.Post("/refresh", s.handleRefresh)

		// Articles
		r.Post("/article", s.handleArticle)
		r.Post("/article/summarize", s.handleSummarize)
		r.Post("/article/ask", s.handleAsk)

		// Configuration
		r.Get("/config/keys", s.handleGetConfigKeys)

		// Brokerage
		r.Get("/brokerage/portfolio", s.handleBrokeragePortfolio)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// requestLogger logs one line per request through zap.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("took", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AnalyzeRequest is the body for POST /api/v1/stocks/analyze. Symbols may be
// given as a list, as free text ("AAPL, msft tsla"), or both.
type AnalyzeRequest struct {
	Symbols []string `json:"symbols"`
	Query   string   `json:"query,omitempty"`
}

// AnalyzeResponse carries the successful analyses in request order.
type AnalyzeResponse struct {
	Stocks []*models.StockAnalysis `json:"stocks"`
	Failed []string                `json:"failed,omitempty"`
}

// SnapshotResponse is the body for GET /api/v1/stocks.
type SnapshotResponse struct {
	CycleID     string                  `json:"cycle_id"`
	RefreshedAt time.Time               `json:"refreshed_at"`
	AgeSeconds  int64                   `json:"age_seconds"`
	Stocks      []*models.StockAnalysis `json:"stocks"`
}

// ArticleRequest is the body for POST /api/v1/article.
type ArticleRequest struct {
	Article  string `json:"article"`
	Question string `json:"question,omitempty"`
}

// SummarizeRequest is the body for POST /api/v1/article/summarize.
type SummarizeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AskRequest is the body for POST /api/v1/article/ask.
type AskRequest struct {
	Article  string `json:"article"`
	Question string `json:"question"`
}

// HealthResponse is the body for the health endpoints.
type HealthResponse struct {
	Status    string           `json:"status"`
	Version   string           `json:"version"`
	Scheduler scheduler.Status `json:"scheduler"`
	WSClients int              `json:"ws_clients"`
	Time      time.Time        `json:"time"`
}

// ============================================================
// Helpers
// ============================================================

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to write JSON response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

func (s *Server) writeData(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}
