package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/chartscope-portal/internal/client"
	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/config"
	"github.com/bobmcallan/chartscope-portal/internal/history"
	"github.com/bobmcallan/chartscope-portal/internal/results"
	"github.com/bobmcallan/chartscope-portal/internal/session"
	"github.com/bobmcallan/chartscope-portal/internal/settings"
	"github.com/bobmcallan/chartscope-portal/internal/storage/badger"
	"github.com/bobmcallan/chartscope-portal/internal/submission"
	"github.com/bobmcallan/chartscope-portal/internal/tiers"
)

const aaplPayload = `{
  "metadata": {"symbol": "AAPL", "tier": "standard", "timeframe": "1d"},
  "technical": {"current_price": 189.84, "support_resistance": {"support_levels": [185.5, 180, 175, 170, 165, 160]}},
  "synthesis": {"verdict": "STRONG_BULL", "reasoning": "Momentum"},
  "cost_summary": {"total_cost": 2.5}
}`

type fakeAnalyzer struct {
	body  string
	err   error
	forms chan client.Form
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, form client.Form) ([]byte, error) {
	if f.forms != nil {
		f.forms <- form
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fixture struct {
	sessions  *session.Registry
	history   *history.Store
	settings  *settings.Store
	analyze   *AnalyzeHandler
	results   *ResultsHandler
	hist      *HistoryHandler
	dashboard *DashboardHandler
	prefs     *SettingsHandler
	tiers     *TiersHandler
}

func newFixture(t *testing.T, analyzer submission.Analyzer) *fixture {
	t.Helper()
	logger := common.NewSilentLogger()
	mgr, err := badger.NewManager(logger, &config.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open badger: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	store := history.NewStore(mgr.KeyValueStorage(), logger, config.HistoryConfig{MaxRecords: 10, KeepFullResults: 5})
	prefs := settings.NewStore(mgr.KeyValueStorage(), logger, config.SettingsConfig{DefaultTier: "standard"})
	catalog := tiers.NewCatalog(nil, logger)
	sessions := session.NewRegistry(func(nav submission.Navigator) *submission.Controller {
		return submission.NewController(analyzer, logger,
			submission.WithRecorder(store),
			submission.WithNavigator(nav),
			submission.WithBudgetFunc(prefs.BudgetLimit),
			submission.WithStages([]submission.Stage{{Label: "Working", Duration: time.Hour}}),
		)
	}, logger, time.Hour)
	renderer := NewRenderer(logger, false)

	return &fixture{
		sessions:  sessions,
		history:   store,
		settings:  prefs,
		analyze:   NewAnalyzeHandler(logger, renderer, sessions, prefs, catalog),
		results:   NewResultsHandler(logger, renderer, sessions, store, prefs),
		hist:      NewHistoryHandler(logger, renderer, store),
		dashboard: NewDashboardHandler(logger, renderer, store, prefs),
		prefs:     NewSettingsHandler(logger, renderer, prefs, catalog),
		tiers:     NewTiersHandler(logger, catalog),
	}
}

func postTicker(t *testing.T, f *fixture, values url.Values, cookie *http.Cookie) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	f.analyze.HandleSubmit(w, req)
	if cookie == nil {
		for _, c := range w.Result().Cookies() {
			if c.Name == session.CookieName {
				cookie = c
			}
		}
	}
	return w, cookie
}

func decodeOutcome(t *testing.T, w *httptest.ResponseRecorder) OutcomeResponse {
	t.Helper()
	var out OutcomeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal outcome: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestHealthHandler_ReturnsOK(t *testing.T) {
	handler := NewHealthHandler(nil)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %s", body["status"])
	}
}

func TestHealthHandler_RejectsNonGET(t *testing.T) {
	handler := NewHealthHandler(nil)

	req := httptest.NewRequest("POST", "/api/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestVersionHandler_ReturnsJSON(t *testing.T) {
	handler := NewVersionHandler(nil)

	req := httptest.NewRequest("GET", "/api/version", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	for _, key := range []string{"version", "build", "git_commit"} {
		if _, ok := body[key]; !ok {
			t.Errorf("expected %s field in response", key)
		}
	}
}

func TestServerHealthHandler_UpAndDown(t *testing.T) {
	up := NewServerHealthHandler(nil, fakePinger{})
	w := httptest.NewRecorder()
	up.ServeHTTP(w, httptest.NewRequest("GET", "/api/server-health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 when backend is up, got %d", w.Code)
	}

	down := NewServerHealthHandler(common.NewSilentLogger(), fakePinger{err: errors.New("connection refused")})
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest("GET", "/api/server-health", nil))
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "down") {
		t.Errorf("expected 503 down, got %d %s", w.Code, w.Body.String())
	}
}

type countingPinger struct{ calls *int }

func (p countingPinger) Ping(context.Context) error {
	*p.calls++
	return nil
}

func TestServerHealthHandler_ReusesRecentProbe(t *testing.T) {
	calls := 0
	h := NewServerHealthHandler(nil, countingPinger{calls: &calls})
	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/server-health", nil))
	}
	if calls != 1 {
		t.Errorf("expected one backend probe, got %d", calls)
	}
}

func TestAnalyzeHandler_TickerSuccessThenResults(t *testing.T) {
	forms := make(chan client.Form, 1)
	f := newFixture(t, &fakeAnalyzer{body: aaplPayload, forms: forms})

	w, cookie := postTicker(t, f, url.Values{"mode": {"ticker"}, "ticker": {" aapl$ "}, "timeframe": {"1wk"}}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	out := decodeOutcome(t, w)
	if out.State != "succeeded" || out.Symbol != "AAPL" || out.Redirect != "/results" || out.Message != submission.MsgComplete {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}

	form := <-forms
	got := map[string]string{}
	for _, field := range form.Fields {
		got[field.Name] = field.Value
	}
	if got["ticker"] != "AAPL" || got["tier"] != "standard" || got["timeframe"] != "1wk" {
		t.Errorf("unexpected form fields %v", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/results?support=1", nil)
	req.AddCookie(cookie)
	rw := httptest.NewRecorder()
	f.results.ServeResults(rw, req)
	body := rw.Body.String()
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	for _, want := range []string{"AAPL", "Strong Bull", "$160.00", "Page 2 of 2", results.NotAvailable} {
		if !strings.Contains(body, want) {
			t.Errorf("expected results page to contain %q", want)
		}
	}
	if strings.Contains(body, "$185.50") {
		t.Error("expected first support page to be hidden on page 2")
	}

	list, _ := f.history.List(t.Context())
	if len(list) != 1 || list[0].Symbol != "AAPL" || !list[0].HasResults() {
		t.Errorf("expected one stored record, got %+v", list)
	}
}


func TestAnalyzeHandler_ValidationIsBadRequest(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{body: aaplPayload})
	w, _ := postTicker(t, f, url.Values{"mode": {"ticker"}, "ticker": {"$$$"}}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if out := decodeOutcome(t, w); out.State != "idle" || out.Message != "Please enter a ticker symbol." {
		t.Errorf("unexpected outcome %+v", out)
	}
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("mode", "csv")
	mw.WriteField("tier", "premium")
	for name, content := range files {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write([]byte(content))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestAnalyzeHandler_CSVUpload(t *testing.T) {
	forms := make(chan client.Form, 1)
	f := newFixture(t, &fakeAnalyzer{body: `{"technical":{}}`, forms: forms})

	body, ct := multipartBody(t, map[string]string{"prices.CSV": "time,open,high,low,close\n"})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	f.analyze.HandleSubmit(w, req)

	out := decodeOutcome(t, w)
	if out.State != "succeeded" || out.Symbol != "UNKNOWN" || out.Tier != "premium" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	form := <-forms
	if form.File == nil || form.File.Filename != "prices.CSV" || !strings.HasPrefix(string(form.File.Data), "time,open") {
		t.Errorf("unexpected file part %+v", form.File)
	}
}

func TestAnalyzeHandler_RejectsWrongExtension(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{body: aaplPayload})
	body, ct := multipartBody(t, map[string]string{"data.txt": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	f.analyze.HandleSubmit(w, req)

	if out := decodeOutcome(t, w); out.Message != "Invalid file type. Please upload a .csv file." {
		t.Errorf("unexpected outcome %+v", out)
	}
}

func TestAnalyzeHandler_RejectsMultipleFiles(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{body: aaplPayload})
	body, ct := multipartBody(t, map[string]string{"a.csv": "x", "b.csv": "y"})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	f.analyze.HandleSubmit(w, req)

	if out := decodeOutcome(t, w); out.Message != "Please drop a single file." {
		t.Errorf("unexpected outcome %+v", out)
	}
}

func TestAnalyzeHandler_BackendRejection(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{err: &client.StatusError{Status: 400, Body: []byte(`{"detail":"Ticker not found: ZZZZ"}`)}})
	w, _ := postTicker(t, f, url.Values{"ticker": {"ZZZZ"}}, nil)
	out := decodeOutcome(t, w)
	if out.State != "failed" || out.Reason != "rejected" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !strings.Contains(out.Message, "Ticker not found") {
		t.Errorf("expected rewritten message, got %q", out.Message)
	}
	if out.Redirect != "" {
		t.Error("expected no redirect on failure")
	}
}

func TestAnalyzeHandler_FormPostRedirects(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{body: aaplPayload})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("ticker=AAPL"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.analyze.HandleSubmit(w, req)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/results" {
		t.Errorf("expected redirect to /results, got %d %s", w.Code, w.Header().Get("Location"))
	}
}

func TestAnalyzeHandler_StatusAndCancelIdle(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{body: aaplPayload})

	w := httptest.NewRecorder()
	f.analyze.HandleStatus(w, httptest.NewRequest(http.MethodGet, "/api/analyze/status", nil))
	var st StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("failed to unmarshal status: %v", err)
	}
	if st.InFlight || st.State != "idle" {
		t.Errorf("unexpected status %+v", st)
	}

	w = httptest.NewRecorder()
	f.analyze.HandleCancel(w, httptest.NewRequest(http.MethodPost, "/api/analyze/cancel", nil))
	if !strings.Contains(w.Body.String(), `"cancelled":false`) {
		t.Errorf("expected nothing to cancel, got %s", w.Body.String())
	}
}

func TestAnalyzePage_ListsFallbackTiers(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{})
	w := httptest.NewRecorder()
	f.analyze.ServePage(w, httptest.NewRequest(http.MethodGet, "/analyze", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	for _, tier := range tiers.Fallback {
		if !strings.Contains(w.Body.String(), `value="`+tier.ID+`"`) {
			t.Errorf("expected tier %s on the form", tier.ID)
		}
	}
}

// heldAnalyzer blocks until the attempt's context ends.
type heldAnalyzer struct{ started chan struct{} }

func (h *heldAnalyzer) Analyze(ctx context.Context, _ client.Form) ([]byte, error) {
	h.started <- struct{}{}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAnalyzePage_DisablesInputsWhileInFlight(t *testing.T) {
	held := &heldAnalyzer{started: make(chan struct{}, 1)}
	f := newFixture(t, held)

	w := httptest.NewRecorder()
	f.analyze.ServePage(w, httptest.NewRequest(http.MethodGet, "/analyze", nil))
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}
	if body := w.Body.String(); !strings.Contains(body, `<fieldset id="input-fields">`) || !strings.Contains(body, `<fieldset id="tier-fields">`) {
		t.Errorf("expected enabled inputs when idle")
	}

	done := make(chan OutcomeResponse, 1)
	go func() {
		w, _ := postTicker(t, f, url.Values{"mode": {"ticker"}, "ticker": {"AAPL"}}, cookie)
		var out OutcomeResponse
		json.Unmarshal(w.Body.Bytes(), &out)
		done <- out
	}()
	select {
	case <-held.started:
	case <-time.After(5 * time.Second):
		t.Fatal("analysis never started")
	}

	req := httptest.NewRequest(http.MethodGet, "/analyze", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	f.analyze.ServePage(w, req)
	body := w.Body.String()
	for _, want := range []string{
		`<fieldset id="input-fields" disabled>`,
		`<fieldset id="tier-fields" disabled>`,
		`id="submit-btn" disabled`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s while in flight", want)
		}
	}

	cancel := httptest.NewRequest(http.MethodPost, "/api/analyze/cancel", nil)
	cancel.AddCookie(cookie)
	f.analyze.HandleCancel(httptest.NewRecorder(), cancel)
	select {
	case out := <-done:
		if out.State != "cancelled" {
			t.Errorf("expected cancelled outcome, got %+v", out)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("submission did not end after cancel")
	}
}

func TestResultsHandler_NoData(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{})
	w := httptest.NewRecorder()
	f.results.ServeResults(w, httptest.NewRequest(http.MethodGet, "/results", nil))
	if !strings.Contains(w.Body.String(), "No analysis data found") || !strings.Contains(w.Body.String(), `href="/analyze"`) {
		t.Errorf("expected no-data state with call to action, got %s", w.Body.String())
	}
}

func TestResultsHandler_StoredRecord(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{})
	rec, err := f.history.Add(t.Context(), history.Record{Symbol: "MSFT", Tier: "lite", FullResults: json.RawMessage(`{"metadata":{"symbol":"MSFT"}}`)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	trimmed, err := f.history.Add(t.Context(), history.Record{Symbol: "TSLA", Tier: "lite"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	w := httptest.NewRecorder()
	f.results.ServeResults(w, httptest.NewRequest(http.MethodGet, "/results/"+rec.ID, nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "MSFT") {
		t.Errorf("expected stored record to render, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	f.results.ServeResults(w, httptest.NewRequest(http.MethodGet, "/results/"+trimmed.ID, nil))
	if !strings.Contains(w.Body.String(), "No analysis data found") {
		t.Error("expected trimmed record to render the no-data state")
	}

	w = httptest.NewRecorder()
	f.results.ServeResults(w, httptest.NewRequest(http.MethodGet, "/results/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown record, got %d", w.Code)
	}
}

func TestResultsHandler_MarkdownAPI(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{body: aaplPayload})
	_, cookie := postTicker(t, f, url.Values{"ticker": {"AAPL"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/results?format=markdown", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	f.results.HandleCurrent(w, req)
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/markdown") || !strings.Contains(w.Body.String(), "# AAPL") {
		t.Errorf("unexpected markdown response %s", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/results", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	f.results.HandleCurrent(w, req)
	var resp struct {
		Symbol string          `json:"symbol"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if resp.Symbol != "AAPL" || !bytes.Contains(resp.Result, []byte(`"cost_summary"`)) {
		t.Errorf("expected raw payload, got %+v", resp)
	}
}

func TestHistoryHandler_ListExportClear(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{})
	f.history.Add(t.Context(), history.Record{Symbol: "AAPL", Tier: "standard", Cost: 2.5, FullResults: json.RawMessage(`{}`)})

	w := httptest.NewRecorder()
	f.hist.HandleList(w, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	var body struct {
		Records []RecordSummary `json:"records"`
		Stats   struct {
			Total int     `json:"total"`
			Spent float64 `json:"spent"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if len(body.Records) != 1 || !body.Records[0].HasResults || body.Stats.Spent != 2.5 {
		t.Errorf("unexpected history %+v", body)
	}
	if strings.Contains(w.Body.String(), "fullResults") {
		t.Error("expected summaries without payloads")
	}

	w = httptest.NewRecorder()
	f.hist.HandleExport(w, httptest.NewRequest(http.MethodGet, "/api/history.csv", nil))
	if !strings.HasPrefix(w.Body.String(), "id,date,symbol,tier,cost,verdict,status,has_results") {
		t.Errorf("unexpected csv %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	f.hist.HandleClear(w, httptest.NewRequest(http.MethodDelete, "/api/history", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if list, _ := f.history.List(t.Context()); len(list) != 0 {
		t.Errorf("expected empty history, got %d", len(list))
	}
}

func TestDashboardHandler_Stats(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{})
	f.history.Add(t.Context(), history.Record{Symbol: "AAPL", Cost: 2.5})
	f.history.Add(t.Context(), history.Record{Symbol: "MSFT", Cost: 1.5})

	w := httptest.NewRecorder()
	f.dashboard.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, want := range []string{"Total analyses: <strong>2</strong>", "$4.00", "$2.00"} {
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("expected dashboard to contain %q", want)
		}
	}

	w = httptest.NewRecorder()
	f.dashboard.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSettingsHandler_SaveAndBudgetWarning(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{body: aaplPayload})

	req := httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader("default_tier=premium&budget_limit=1&color_vision=deuteranopia"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.prefs.HandleSettings(w, req)
	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", w.Code)
	}
	if got := f.settings.Get(t.Context()); got.DefaultTier != "premium" || got.BudgetLimit != 1 {
		t.Fatalf("unexpected settings %+v", got)
	}

	out := decodeOutcome(t, func() *httptest.ResponseRecorder {
		w, _ := postTicker(t, f, url.Values{"ticker": {"AAPL"}}, nil)
		return w
	}())
	if out.Tier != "premium" {
		t.Errorf("expected default tier premium, got %s", out.Tier)
	}
	if out.Warning != "Budget limit of $1.00 exceeded. Total spent: $2.50." {
		t.Errorf("unexpected warning %q", out.Warning)
	}
}

func TestSettingsHandler_RejectsBadBudget(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{})
	req := httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader("budget_limit=abc"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.prefs.HandleSettings(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestTiersHandler_Fallback(t *testing.T) {
	f := newFixture(t, &fakeAnalyzer{})
	w := httptest.NewRecorder()
	f.tiers.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tiers", nil))
	var body struct {
		Source string       `json:"source"`
		Tiers  []tiers.Tier `json:"tiers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if body.Source != string(tiers.StateFallback) || len(body.Tiers) != len(tiers.Fallback) {
		t.Errorf("unexpected tiers %+v", body)
	}
}

func TestParseTemplates(t *testing.T) {
	tmpl, err := ParseTemplates()
	if err != nil {
		t.Fatalf("templates failed to parse: %v", err)
	}
	for _, name := range []string{"dashboard.html", "analyze.html", "results.html", "history.html", "settings.html"} {
		if tmpl.Lookup(name) == nil {
			t.Errorf("missing template %s", name)
		}
	}
}
