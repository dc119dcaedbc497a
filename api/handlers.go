package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/seenimoa/finsum/internal/pipeline"
	"github.com/seenimoa/finsum/pkg/models"
	"github.com/seenimoa/finsum/pkg/utils"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, HealthResponse{
		Status:    "ok",
		Version:   s.version,
		Scheduler: s.snapshots.Status(),
		WSClients: s.wsHub.ClientCount(),
		Time:      time.Now().UTC(),
	})
}

func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshots.Current(r.Context())
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no stock data available yet")
		return
	}
	s.writeData(w, SnapshotResponse{
		CycleID:     snap.CycleID,
		RefreshedAt: snap.RefreshedAt,
		AgeSeconds:  int64(snap.Age(time.Now()).Seconds()),
		Stocks:      snap.Ordered(),
	})
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	sym := utils.NormalizeTicker(chi.URLParam(r, "symbol"))
	if sym == "" {
		s.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	snap := s.snapshots.Current(r.Context())
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no stock data available yet")
		return
	}
	stock, ok := snap.Stocks[sym]
	if !ok {
		s.writeError(w, http.StatusNotFound, "symbol "+sym+" is not in the refreshed list")
		return
	}
	s.writeData(w, stock)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	symbols := append(req.Symbols, utils.SplitSymbols(req.Query)...)
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	res, err := s.analyzer.Analyze(ctx, symbols)
	switch {
	case errors.Is(err, pipeline.ErrNoSymbols):
		s.writeError(w, http.StatusBadRequest, "at least one symbol is required")
		return
	case err != nil:
		s.log.Warn("interactive analysis aborted", zap.Error(err))
		s.writeError(w, http.StatusGatewayTimeout, err.Error())
		return
	}

	resp := AnalyzeResponse{Stocks: res.Ordered()}
	for _, sym := range res.Symbols {
		if _, failed := res.Failed[sym]; failed {
			resp.Failed = append(resp.Failed, sym)
		}
	}
	s.writeData(w, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.Refresh(r.Context())
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeData(w, map[string]interface{}{
		"cycle_id":     snap.CycleID,
		"refreshed_at": snap.RefreshedAt,
		"stocks":       len(snap.Stocks),
	})
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Article) == "" {
		s.writeError(w, http.StatusBadRequest, "article is required")
		return
	}
	s.writeData(w, s.engine.AnalyzeText(r.Context(), req.Article, req.Question))
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.writeData(w, models.ArticleResult{
		Summary: s.engine.Summarize(r.Context(), req.Title, req.Content),
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Article) == "" || strings.TrimSpace(req.Question) == "" {
		s.writeError(w, http.StatusBadRequest, "article and question are required")
		return
	}
	q := strings.TrimSpace(req.Question)
	s.writeData(w, models.ArticleResult{
		Question: q,
		Answer:   s.engine.Answer(r.Context(), req.Article, q),
	})
}

// handleBrokeragePortfolio is a placeholder; no brokerage is connected.
func (s *Server) handleBrokeragePortfolio(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotImplemented, "brokerage integration is not available")
}
