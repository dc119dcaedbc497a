package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seenimoa/finsum/internal/app"
	"github.com/seenimoa/finsum/internal/config"
	"github.com/seenimoa/finsum/internal/pipeline"
	"github.com/seenimoa/finsum/internal/scheduler"
	"github.com/seenimoa/finsum/pkg/models"
	"github.com/seenimoa/finsum/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

type fakeSnapshots struct {
	mu         sync.Mutex
	snap       *models.Snapshot
	refreshErr error
	refreshes  int
}

func (f *fakeSnapshots) Current(context.Context) *models.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSnapshots) Refresh(context.Context) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.snap, nil
}

func (f *fakeSnapshots) Status() scheduler.Status {
	return scheduler.Status{State: scheduler.StateIdle, Symbols: []string{"AAPL"}, Interval: "30m0s"}
}

type fakeAnalyzer struct {
	failing map[string]bool
}

func (f *fakeAnalyzer) Analyze(_ context.Context, symbols []string) (*pipeline.Result, error) {
	syms := utils.NormalizeSymbols(symbols)
	if len(syms) == 0 {
		return nil, pipeline.ErrNoSymbols
	}
	res := &pipeline.Result{
		Symbols: syms,
		Stocks:  map[string]*models.StockAnalysis{},
		Failed:  map[string]error{},
	}
	for _, s := range syms {
		if f.failing[s] {
			res.Failed[s] = errors.New("boom")
			continue
		}
		res.Stocks[s] = &models.StockAnalysis{Symbol: s, Price: 1, RiskLevel: models.RiskLow}
	}
	return res, nil
}

type fakeEngine struct{}

func (fakeEngine) Summarize(_ context.Context, title, content string) string {
	if strings.TrimSpace(content) == "" {
		return "(No content to summarize.)"
	}
	return "summary of " + title
}

func (fakeEngine) Answer(_ context.Context, _, question string) string {
	return "answer to " + question
}

func (e fakeEngine) AnalyzeText(ctx context.Context, article, question string) models.ArticleResult {
	res := models.ArticleResult{Summary: e.Summarize(ctx, "User provided text", article)}
	if question != "" {
		res.Question = question
		res.Answer = e.Answer(ctx, article, question)
	}
	return res
}

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		CycleID: "cycle-1",
		Symbols: []string{"TSLA", "AAPL"},
		Stocks: map[string]*models.StockAnalysis{
			"TSLA": {Symbol: "TSLA", Price: 180, RiskLevel: models.RiskHigh},
			"AAPL": {Symbol: "AAPL", Price: 190, RiskLevel: models.RiskLow},
		},
		RefreshedAt: time.Now(),
	}
}

func testServer(t *testing.T, snaps *fakeSnapshots) *Server {
	t.Helper()
	srv := &Server{
		cfg:       config.Default(),
		log:       zap.NewNop(),
		snapshots: snaps,
		analyzer:  &fakeAnalyzer{failing: map[string]bool{"BAD": true}},
		engine:    fakeEngine{},
		wsHub:     NewWSHub(),
		version:   "test",
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.wsHub.Run(ctx)
	srv.router = srv.buildRouter()
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

// decodeData re-decodes the envelope's data field into v.
func decodeData(t *testing.T, resp APIResponse, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatal(err)
	}
}

// ════════════════════════════════════════════════════════════════════
// Health
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	srv := testServer(t, &fakeSnapshots{})
	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := do(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		var health HealthResponse
		decodeData(t, decodeResponse(t, rec), &health)
		if health.Status != "ok" || health.Version != "test" || health.Scheduler.State != scheduler.StateIdle {
			t.Fatalf("%s: unexpected body %+v", path, health)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Stocks
// ════════════════════════════════════════════════════════════════════

func TestStocksEmptyCache(t *testing.T) {
	srv := testServer(t, &fakeSnapshots{})
	rec := do(t, srv, http.MethodGet, "/api/v1/stocks", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Success || resp.Error == "" {
		t.Fatalf("unexpected envelope %+v", resp)
	}
}

func TestStocksOrdered(t *testing.T) {
	srv := testServer(t, &fakeSnapshots{snap: testSnapshot()})
	rec := do(t, srv, http.MethodGet, "/api/v1/stocks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body SnapshotResponse
	decodeData(t, decodeResponse(t, rec), &body)
	if body.CycleID != "cycle-1" || len(body.Stocks) != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Stocks[0].Symbol != "TSLA" || body.Stocks[1].Symbol != "AAPL" {
		t.Fatalf("stocks not in refresh order: %s, %s", body.Stocks[0].Symbol, body.Stocks[1].Symbol)
	}
}

func TestStockBySymbol(t *testing.T) {
	srv := testServer(t, &fakeSnapshots{snap: testSnapshot()})

	rec := do(t, srv, http.MethodGet, "/api/v1/stocks/aapl", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var stock models.StockAnalysis
	decodeData(t, decodeResponse(t, rec), &stock)
	if stock.Symbol != "AAPL" || stock.Price != 190 {
		t.Fatalf("unexpected stock %+v", stock)
	}

	if rec := do(t, srv, http.MethodGet, "/api/v1/stocks/IBM", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown symbol, got %d", rec.Code)
	}
}

func TestAnalyze(t *testing.T) {
	srv := testServer(t, &fakeSnapshots{})

	rec := do(t, srv, http.MethodPost, "/api/v1/stocks/analyze", `{"symbols":["msft"],"query":"$aapl, bad msft"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body AnalyzeResponse
	decodeData(t, decodeResponse(t, rec), &body)
	if len(body.Stocks) != 2 || body.Stocks[0].Symbol != "MSFT" || body.Stocks[1].Symbol != "AAPL" {
		t.Fatalf("unexpected stocks %+v", body.Stocks)
	}
	if len(body.Failed) != 1 || body.Failed[0] != "BAD" {
		t.Fatalf("unexpected failed list %v", body.Failed)
	}
}

func TestAnalyzeBadRequests(t *testing.T) {
	srv := testServer(t, &fakeSnapshots{})
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"no symbols", `{"symbols":[" "]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, srv, http.MethodPost, "/api/v1/stocks/analyze", tt.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestRefresh(t *testing.T) {
	snaps := &fakeSnapshots{snap: testSnapshot()}
	srv := testServer(t, snaps)

	rec := do(t, srv, http.MethodPost, "/api/v1/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	snaps.mu.Lock()
	snaps.refreshErr = scheduler.ErrRefreshFailed
	snaps.mu.Unlock()
	rec = do(t, srv, http.MethodPost, "/api/v1/refresh", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); !strings.Contains(resp.Error, "refresh failed") {
		t.Fatalf("unexpected error %q", resp.Error)
	}
}

// ════════════════════════════════════════════════════════════════════
// Articles
// ════════════════════════════════════════════════════════════════════

func TestArticle(t *testing.T) {
	srv := testServer(t, &fakeSnapshots{})

	rec := do(t, srv, http.MethodPost, "/api/v1/article", `{"article":"Apple beat estimates.","question":"Did it beat?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var res models.ArticleResult
	decodeData(t, decodeResponse(t, rec), &res)
	if res.Summary != "summary of User provided text" || res.Answer != "answer to Did it beat?" {
		t.Fatalf("unexpected result %+v", res)
	}

	if rec := do(t, srv, http.MethodPost, "/api/v1/article", `{"article":"  "}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank article, got %d", rec.Code)
	}
}

func TestSummarize(t *testing.T) {
	srv := testServer(t, &fakeSnapshots{})
	rec := do(t, srv, http.MethodPost, "/api/v1/article/summarize", `{"title":"T","content":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var res models.ArticleResult
	decodeData(t, decodeResponse(t, rec), &res)
	if res.Summary != "(No content to summarize.)" {
		t.Fatalf("unexpected summary %q", res.Summary)
	}
}

func TestAsk(t *testing.T) {
	srv := testServer(t, &fakeSnapshots{})

	rec := do(t, srv, http.MethodPost, "/api/v1/article/ask", `{"article":"Body","question":" EPS? "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var res models.ArticleResult
	decodeData(t, decodeResponse(t, rec), &res)
	if res.Question != "EPS?" || res.Answer != "answer to EPS?" {
		t.Fatalf("unexpected result %+v", res)
	}

	if rec := do(t, srv, http.MethodPost, "/api/v1/article/ask", `{"article":"Body"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without question, got %d", rec.Code)
	}
}

// ════════════════════════════════════════════════════════════════════
// Config & Brokerage
// ════════════════════════════════════════════════════════════════════

func TestConfigKeys(t *testing.T) {
	srv := testServer(t, &fakeSnapshots{})
	srv.cfg.LLM.OpenAIKey = "sk-abcdefghijklmnop"

	rec := do(t, srv, http.MethodGet, "/api/v1/config/keys", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var keys []config.KeyStatus
	decodeData(t, decodeResponse(t, rec), &keys)
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	if !keys[0].IsSet || keys[0].Masked != "sk-...nop" {
		t.Fatalf("unexpected key status %+v", keys[0])
	}
	if strings.Contains(rec.Body.String(), "abcdefghijklmnop") {
		t.Fatal("raw key leaked in response")
	}
}

func TestBrokerageNotImplemented(t *testing.T) {
	srv := testServer(t, &fakeSnapshots{})
	if rec := do(t, srv, http.MethodGet, "/api/v1/brokerage/portfolio", ""); rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rec.Code)
	}
}

// ════════════════════════════════════════════════════════════════════
// WebSocket
// ════════════════════════════════════════════════════════════════════

func dialWS(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for srv.wsHub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebSocketPing(t *testing.T) {
	srv := testServer(t, &fakeSnapshots{})
	conn := dialWS(t, srv)

	if err := conn.WriteJSON(WSMessage{Type: "ping"}); err != nil {
		t.Fatal(err)
	}
	if msg := readWS(t, conn); msg.Type != MsgPong {
		t.Fatalf("expected pong, got %q", msg.Type)
	}
}

func TestWebSocketRefreshBroadcast(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.DisablePrimary = true
	cfg.Refresh.Symbols = []string{"AAPL", "NVDA"}
	a, err := app.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	srv := NewServer(a, "test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Hub().Run(ctx)

	conn := dialWS(t, srv)
	if _, err := a.Refresher.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	msg := readWS(t, conn)
	if msg.Type != MsgRefreshComplete {
		t.Fatalf("expected %s, got %q", MsgRefreshComplete, msg.Type)
	}
	var ev RefreshEvent
	raw, _ := json.Marshal(msg.Data)
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.CycleID == "" || len(ev.Symbols) != 2 {
		t.Fatalf("unexpected event %+v", ev)
	}

	// The refreshed snapshot is now served without another cycle.
	rec := do(t, srv, http.MethodGet, "/api/v1/stocks/NVDA", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}
