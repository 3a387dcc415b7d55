package submission

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobmcallan/chartscope-portal/internal/client"
)

// funcAnalyzer answers every request with fn.
type funcAnalyzer struct {
	calls atomic.Int32
	forms []client.Form
	mu    sync.Mutex
	fn    func(ctx context.Context, form client.Form) ([]byte, error)
}

func (f *funcAnalyzer) Analyze(ctx context.Context, form client.Form) ([]byte, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.forms = append(f.forms, form)
	f.mu.Unlock()
	return f.fn(ctx, form)
}

func respond(body string) *funcAnalyzer {
	return &funcAnalyzer{fn: func(context.Context, client.Form) ([]byte, error) {
		return []byte(body), nil
	}}
}

// blocking waits for the attempt context and signals when it has started.
func blocking() (*funcAnalyzer, chan struct{}) {
	started := make(chan struct{}, 1)
	return &funcAnalyzer{fn: func(ctx context.Context, _ client.Form) ([]byte, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}}, started
}

type memRecorder struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (m *memRecorder) Save(_ context.Context, rec Record) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memRecorder) TotalSpent(context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, r := range m.records {
		total += r.Cost
	}
	return total, nil
}

func formValue(form client.Form, name string) string {
	for _, f := range form.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func TestController_AAPLScenario(t *testing.T) {
	an := respond(`{"metadata":{"symbol":"AAPL"},"synthesis":{"verdict":"STRONG_BULL"},"cost_summary":{"total_cost":2.4}}`)
	rec := &memRecorder{}
	var handoffs []Handoff
	nav := NavigatorFunc(func(_ context.Context, h Handoff) { handoffs = append(handoffs, h) })
	c := NewController(an, nil, WithRecorder(rec), WithNavigator(nav))

	out := c.Submit(t.Context(), TickerRequest{Symbol: "AAPL", Tier: "standard"})

	if out.State != StateSucceeded {
		t.Fatalf("expected succeeded, got %s (%v)", out.State, out.Err)
	}
	if len(rec.records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(rec.records))
	}
	r := rec.records[0]
	if r.Symbol != "AAPL" || r.Tier != "standard" || r.Cost != 2.4 || r.Verdict != "STRONG_BULL" {
		t.Errorf("unexpected record %+v", r)
	}
	if len(r.FullResults) == 0 {
		t.Error("expected full results on record")
	}
	if len(handoffs) != 1 || handoffs[0].Result == nil || handoffs[0].Result.VerdictText() != "STRONG_BULL" {
		t.Fatalf("expected navigation with full payload, got %+v", handoffs)
	}
	form := an.forms[0]
	if formValue(form, "mode") != "ticker" || formValue(form, "ticker") != "AAPL" ||
		formValue(form, "timeframe") != DefaultTimeframe || formValue(form, "tier") != "standard" {
		t.Errorf("unexpected form %+v", form)
	}
	if c.InFlight() {
		t.Error("expected controller to accept submissions again")
	}
}

func TestController_FileModeSymbolFromPayload(t *testing.T) {
	file := &UploadFile{Name: "spy.CSV", Data: []byte("time,open,high,low,close\n")}

	c := NewController(respond(`{"metadata":{"symbol":"SPY"}}`), nil)
	out := c.Submit(t.Context(), FileRequest{File: file, Tier: "lite"})
	if out.Symbol != "SPY" {
		t.Errorf("expected SPY, got %s", out.Symbol)
	}

	c = NewController(respond(`{}`), nil)
	out = c.Submit(t.Context(), FileRequest{File: file})
	if out.Symbol != "UNKNOWN" {
		t.Errorf("expected UNKNOWN, got %s", out.Symbol)
	}
	if out.Tier != "standard" {
		t.Errorf("expected default tier, got %s", out.Tier)
	}
}

func TestController_ValidationIssuesNoRequest(t *testing.T) {
	an := respond(`{}`)
	c := NewController(an, nil)

	tests := []Request{
		TickerRequest{Symbol: "   "},
		FileRequest{},
		FileRequest{File: &UploadFile{Name: "data.txt", Size: 10}},
		nil,
	}
	for _, req := range tests {
		out := c.Submit(t.Context(), req)
		if out.State != StateIdle {
			t.Errorf("%#v: expected idle, got %s", req, out.State)
		}
		var ve *ValidationError
		if !errors.As(out.Err, &ve) {
			t.Errorf("%#v: expected ValidationError, got %v", req, out.Err)
		}
		if out.Message == "" {
			t.Errorf("%#v: expected a visible message", req)
		}
	}
	if an.calls.Load() != 0 {
		t.Errorf("expected no requests, got %d", an.calls.Load())
	}
}

func TestController_DoubleCancelSingleOutcome(t *testing.T) {
	an, started := blocking()
	c := NewController(an, nil)

	done := make(chan Outcome, 2)
	go func() { done <- c.Submit(context.Background(), TickerRequest{Symbol: "MSFT"}) }()
	<-started

	if !c.Cancel() {
		t.Fatal("expected first cancel to find an attempt")
	}
	c.Cancel()

	out := <-done
	if out.State != StateCancelled || out.Reason != ReasonUser {
		t.Fatalf("expected cancelled(user), got %s(%s)", out.State, out.Reason)
	}
	if !errors.Is(out.Err, ErrUserCancelled) || out.Message != MsgCancelled {
		t.Errorf("unexpected cancel outcome %+v", out)
	}
	select {
	case extra := <-done:
		t.Fatalf("expected exactly one outcome, got a second: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
	if c.Cancel() {
		t.Error("expected cancel after completion to be a no-op")
	}
	if an.calls.Load() != 1 {
		t.Errorf("expected 1 request, got %d", an.calls.Load())
	}
}

func TestController_Timeout(t *testing.T) {
	an, _ := blocking()
	c := NewController(an, nil, WithTimeout(50*time.Millisecond))

	out := c.Submit(t.Context(), TickerRequest{Symbol: "TSLA"})

	if out.State != StateCancelled || out.Reason != ReasonTimeout {
		t.Fatalf("expected cancelled(timeout), got %s(%s)", out.State, out.Reason)
	}
	if !errors.Is(out.Err, ErrClientTimeout) {
		t.Errorf("expected ErrClientTimeout, got %v", out.Err)
	}
	if out.Message != "Analysis took too long. Please try again." {
		t.Errorf("unexpected message %q", out.Message)
	}
}

func TestController_CancelAfterTimeoutKeepsTimeout(t *testing.T) {
	an, _ := blocking()
	c := NewController(an, nil, WithTimeout(20*time.Millisecond))

	done := make(chan Outcome, 1)
	go func() { done <- c.Submit(context.Background(), TickerRequest{Symbol: "TSLA"}) }()
	time.Sleep(40 * time.Millisecond)
	c.Cancel()

	out := <-done
	if out.Reason != ReasonTimeout {
		t.Errorf("expected first cause to win, got %s", out.Reason)
	}
}

func TestController_ParentContextCancelIsUserCancel(t *testing.T) {
	an, started := blocking()
	c := NewController(an, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() { done <- c.Submit(ctx, TickerRequest{Symbol: "NVDA"}) }()
	<-started
	cancel()

	out := <-done
	if out.State != StateCancelled || out.Reason != ReasonUser {
		t.Errorf("expected cancelled(user), got %s(%s)", out.State, out.Reason)
	}
}

func TestController_TransportErrorBeforeCancelStaysFailed(t *testing.T) {
	var c *Controller
	an := &funcAnalyzer{fn: func(ctx context.Context, _ client.Form) ([]byte, error) {
		// The connection drops, then the user cancels before the result is read.
		c.Cancel()
		<-ctx.Done()
		return nil, errors.New("failed to reach analysis backend: connection reset by peer")
	}}
	c = NewController(an, nil)

	out := c.Submit(t.Context(), TickerRequest{Symbol: "AAPL"})

	if out.State != StateFailed || out.Reason != ReasonUnreachable {
		t.Fatalf("expected failed(unreachable), got %s(%s)", out.State, out.Reason)
	}
	var te *TransportError
	if !errors.As(out.Err, &te) {
		t.Errorf("expected TransportError, got %v", out.Err)
	}
}

func TestEndedByContext(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		cause error
		want  bool
	}{
		{"canceled", context.Canceled, context.Canceled, true},
		{"wrapped deadline", fmt.Errorf("read: %w", context.DeadlineExceeded), ErrClientTimeout, true},
		{"cause returned", fmt.Errorf("post: %w", ErrUserCancelled), ErrUserCancelled, true},
		{"transport", errors.New("connection refused"), ErrUserCancelled, false},
		{"nil", nil, ErrUserCancelled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := endedByContext(tt.err, tt.cause); got != tt.want {
				t.Errorf("endedByContext(%v, %v) = %v, want %v", tt.err, tt.cause, got, tt.want)
			}
		})
	}
}

func TestController_ConcurrentSubmitRejected(t *testing.T) {
	an, started := blocking()
	c := NewController(an, nil)

	done := make(chan Outcome, 1)
	go func() { done <- c.Submit(context.Background(), TickerRequest{Symbol: "AMD"}) }()
	<-started

	second := c.Submit(t.Context(), TickerRequest{Symbol: "INTC"})
	if second.State != StateInFlight || !errors.Is(second.Err, ErrSubmissionInFlight) {
		t.Errorf("expected in-flight rejection, got %+v", second)
	}
	if snap := c.Snapshot(); !snap.InFlight || snap.State != StateInFlight {
		t.Errorf("expected in-flight snapshot, got %+v", snap)
	}

	c.Cancel()
	<-done
	if an.calls.Load() != 1 {
		t.Errorf("expected 1 request, got %d", an.calls.Load())
	}
}

func TestController_FreshAttemptAfterTerminal(t *testing.T) {
	an, started := blocking()
	c := NewController(an, nil)

	for i := 1; i <= 2; i++ {
		done := make(chan Outcome, 1)
		go func() { done <- c.Submit(context.Background(), TickerRequest{Symbol: "AAPL"}) }()
		<-started
		snap := c.Snapshot()
		if snap.Attempt != i || snap.StageIndex != 0 {
			t.Errorf("attempt %d: unexpected snapshot %+v", i, snap)
		}
		c.Cancel()
		if out := <-done; out.Attempt != i || out.State != StateCancelled {
			t.Errorf("attempt %d: unexpected outcome %+v", i, out)
		}
	}
	snap := c.Snapshot()
	if snap.InFlight || snap.State != StateCancelled || snap.Message != MsgCancelled {
		t.Errorf("unexpected final snapshot %+v", snap)
	}
}

func TestController_HTTPStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"422 ignores body", http.StatusUnprocessableEntity, `{"detail":"ticker is required"}`, "Missing required fields."},
		{"400 rewritten", http.StatusBadRequest, `{"detail":"Ticker not found: ZZZZ"}`, "Ticker not found. Please check the symbol and try again."},
		{"400 verbatim", http.StatusBadRequest, `{"error":"Weekend data unsupported"}`, "Weekend data unsupported"},
		{"400 empty", http.StatusBadRequest, ``, "Invalid input. Please check your data."},
		{"500 generic", http.StatusInternalServerError, `boom`, "Analysis failed. Please try again."},
		{"503 generic", http.StatusServiceUnavailable, ``, "Analysis failed. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewController(client.NewAnalyzerClient(srv.URL), nil)
			out := c.Submit(t.Context(), TickerRequest{Symbol: "ZZZZ"})

			if out.State != StateFailed || out.Reason != ReasonRejected {
				t.Fatalf("expected failed(rejected), got %s(%s)", out.State, out.Reason)
			}
			var rejected *RequestRejectedError
			if !errors.As(out.Err, &rejected) || rejected.Status != tt.status {
				t.Errorf("expected RequestRejectedError %d, got %v", tt.status, out.Err)
			}
			if out.Message != tt.want {
				t.Errorf("expected %q, got %q", tt.want, out.Message)
			}
		})
	}
}

func TestController_NonObjectSuccessBodyFails(t *testing.T) {
	c := NewController(respond(`["not","an","object"]`), nil)
	out := c.Submit(t.Context(), TickerRequest{Symbol: "AAPL"})
	if out.State != StateFailed || out.Message != MsgAnalysisFailed {
		t.Errorf("expected generic failure, got %+v", out)
	}
}

func TestController_Unreachable(t *testing.T) {
	c := NewController(client.NewAnalyzerClient("http://127.0.0.1:1"), nil)
	out := c.Submit(t.Context(), TickerRequest{Symbol: "AAPL"})

	if out.State != StateFailed || out.Reason != ReasonUnreachable {
		t.Fatalf("expected failed(unreachable), got %s(%s)", out.State, out.Reason)
	}
	var te *TransportError
	if !errors.As(out.Err, &te) {
		t.Errorf("expected TransportError, got %v", out.Err)
	}
	if !strings.HasPrefix(out.Message, "Could not reach the backend") {
		t.Errorf("unexpected message %q", out.Message)
	}
}

func TestController_HistoryFailureIsAbsorbed(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	navigated := false
	c := NewController(respond(`{"cost_summary":{"total_cost":1}}`), nil,
		WithRecorder(rec),
		WithNavigator(NavigatorFunc(func(context.Context, Handoff) { navigated = true })))

	out := c.Submit(t.Context(), TickerRequest{Symbol: "AAPL"})
	if out.State != StateSucceeded || !navigated {
		t.Errorf("expected success despite history failure, got %+v", out)
	}
}

func TestController_BudgetWarning(t *testing.T) {
	rec := &memRecorder{}
	c := NewController(respond(`{"cost_summary":{"total_cost":6}}`), nil,
		WithRecorder(rec), WithBudgetLimit(10))

	if out := c.Submit(t.Context(), TickerRequest{Symbol: "A"}); out.Warning != "" {
		t.Errorf("expected no warning under budget, got %q", out.Warning)
	}
	out := c.Submit(t.Context(), TickerRequest{Symbol: "B"})
	if out.Warning != "Budget limit of $10.00 exceeded. Total spent: $12.00." {
		t.Errorf("unexpected warning %q", out.Warning)
	}
}
