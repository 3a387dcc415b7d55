// Package submission drives one analysis request at a time from validation
// to a single terminal outcome.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/chartscope-portal/internal/analysis"
	"github.com/bobmcallan/chartscope-portal/internal/client"
	"github.com/bobmcallan/chartscope-portal/internal/common"
)

// State is the controller lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateInFlight  State = "in_flight"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether s ends an attempt.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// Reason qualifies Failed and Cancelled states.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonRejected    Reason = "rejected"
	ReasonUnreachable Reason = "unreachable"
	ReasonTimeout     Reason = "timeout"
	ReasonUser        Reason = "user"
)

// DefaultTimeout is the client-side deadline for one attempt.
const DefaultTimeout = 30 * time.Second

// Analyzer sends the request to the backend. client.AnalyzerClient implements it.
type Analyzer interface {
	Analyze(ctx context.Context, form client.Form) ([]byte, error)
}

// Record is what a successful attempt persists.
type Record struct {
	Symbol      string
	Tier        string
	Cost        float64
	Verdict     string
	FullResults json.RawMessage
}

// Recorder persists successful attempts.
type Recorder interface {
	Save(ctx context.Context, rec Record) error
	TotalSpent(ctx context.Context) (float64, error)
}

// Handoff is passed to the Navigator on success.
type Handoff struct {
	Symbol string
	Tier   string
	Result *analysis.Result
}

// Navigator receives the full payload of a successful attempt.
type Navigator interface {
	Navigate(ctx context.Context, h Handoff)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, h Handoff)

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, h Handoff) { f(ctx, h) }

// Outcome is the single result of one Submit call.
type Outcome struct {
	Attempt int
	State   State
	Reason  Reason
	Err     error
	Message string
	Warning string
	Symbol  string
	Tier    string
	Result  *analysis.Result
	Elapsed time.Duration
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	Attempt    int
	State      State
	Reason     Reason
	InFlight   bool
	Message    string
	Stage      string
	StageIndex int
	StageCount int
	Percent    int
	Elapsed    time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout sets the per-attempt deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithStages replaces the cosmetic progress stages.
func WithStages(stages []Stage) Option {
	return func(c *Controller) {
		if len(stages) > 0 {
			c.stages = stages
		}
	}
}

// WithRecorder sets the history recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithNavigator sets the success hand-off target.
func WithNavigator(n Navigator) Option {
	return func(c *Controller) { c.navigator = n }
}

// WithDefaultTier sets the tier used when a request carries none.
func WithDefaultTier(tier string) Option {
	return func(c *Controller) {
		if t := strings.TrimSpace(tier); t != "" {
			c.defaultTier = t
		}
	}
}

// WithBudgetLimit enables the spend warning. Zero disables it.
func WithBudgetLimit(limit float64) Option {
	return WithBudgetFunc(func() float64 { return limit })
}

// WithBudgetFunc reads the budget limit after every successful attempt, so
// settings changes apply to the next completion.
func WithBudgetFunc(f func() float64) Option {
	return func(c *Controller) { c.budget = f }
}

// attempt is the state owned by one in-flight submission.
type attempt struct {
	n        int
	cancel   context.CancelCauseFunc
	timer    *time.Timer
	progress *Progress
	started  time.Time
}

// Controller runs at most one submission at a time.
type Controller struct {
	analyzer    Analyzer
	logger      *common.Logger
	recorder    Recorder
	navigator   Navigator
	timeout     time.Duration
	stages      []Stage
	defaultTier string
	budget      func() float64

	mu       sync.Mutex
	attempts int
	inflight *attempt
	last     Outcome
}

// NewController creates an idle controller.
func NewController(analyzer Analyzer, logger *common.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	c := &Controller{
		analyzer:    analyzer,
		logger:      logger,
		timeout:     DefaultTimeout,
		stages:      DefaultStages,
		defaultTier: "standard",
		last:        Outcome{State: StateIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit validates req, sends it and blocks until the attempt ends. Exactly
// one Outcome is returned per call. Cancelling ctx cancels the attempt as if
// the user had.
func (c *Controller) Submit(ctx context.Context, req Request) Outcome {
	if req == nil {
		ve := &ValidationError{Field: "mode", Message: "Please choose a ticker or a file."}
		return Outcome{State: StateIdle, Err: ve, Message: ve.Message}
	}
	if ve := req.Validate(); ve != nil {
		c.logger.Debug().Str("field", ve.Field).Str("reason", ve.Message).Msg("analysis request rejected locally")
		return Outcome{State: StateIdle, Err: ve, Message: ve.Message}
	}
	tier := req.TierID()
	if tier == "" {
		tier = c.defaultTier
	}

	c.mu.Lock()
	if c.inflight != nil {
		n := c.inflight.n
		c.mu.Unlock()
		return Outcome{Attempt: n, State: StateInFlight, Err: ErrSubmissionInFlight, Message: MsgInFlight}
	}
	c.attempts++
	attemptCtx, cancel := context.WithCancelCause(ctx)
	a := &attempt{
		n:        c.attempts,
		cancel:   cancel,
		progress: NewProgress(c.stages),
		started:  time.Now(),
	}
	a.timer = time.AfterFunc(c.timeout, func() { cancel(ErrClientTimeout) })
	a.progress.Start()
	c.inflight = a
	c.mu.Unlock()

	c.logger.Info().
		Int("attempt", a.n).
		Str("mode", string(req.Mode())).
		Str("tier", tier).
		Msg("analysis submitted")

	body, err := c.analyzer.Analyze(attemptCtx, req.form(tier))
	cause := context.Cause(attemptCtx)
	aborted := attemptCtx.Err() != nil && endedByContext(err, cause)

	a.timer.Stop()
	a.progress.Stop()
	cancel(nil)

	out := Outcome{Attempt: a.n, Tier: tier}
	if err != nil {
		c.classifyFailure(&out, err, aborted, cause)
	} else {
		c.succeed(ctx, &out, req, body)
	}
	out.Elapsed = time.Since(a.started)

	c.mu.Lock()
	c.inflight = nil
	c.last = out
	c.mu.Unlock()

	c.logOutcome(out)
	return out
}

// endedByContext reports whether err is the attempt context ending. A
// failure that is not a context error stands even if a cancel landed after it.
func endedByContext(err, cause error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		(cause != nil && errors.Is(err, cause))
}

func (c *Controller) classifyFailure(out *Outcome, err error, aborted bool, cause error) {
	var status *client.StatusError
	switch {
	case errors.As(err, &status):
		out.State, out.Reason = StateFailed, ReasonRejected
		out.Err = &RequestRejectedError{Status: status.Status, Detail: errorDetail(status.Body)}
	case aborted && errors.Is(cause, ErrClientTimeout):
		out.State, out.Reason = StateCancelled, ReasonTimeout
		out.Err = ErrClientTimeout
	case aborted:
		out.State, out.Reason = StateCancelled, ReasonUser
		out.Err = ErrUserCancelled
	default:
		out.State, out.Reason = StateFailed, ReasonUnreachable
		out.Err = &TransportError{Err: err}
	}
	out.Message = MessageFor(out.Err)
}

func (c *Controller) succeed(ctx context.Context, out *Outcome, req Request, body []byte) {
	result, err := analysis.Parse(body)
	if err != nil {
		out.State, out.Reason = StateFailed, ReasonRejected
		out.Err = &RequestRejectedError{Status: http.StatusOK, Err: err}
		out.Message = MessageFor(out.Err)
		return
	}

	symbol := result.Symbol("UNKNOWN")
	if t, ok := req.(TickerRequest); ok {
		symbol = strings.TrimSpace(t.Symbol)
	}
	out.State = StateSucceeded
	out.Symbol = symbol
	out.Result = result
	out.Message = MsgComplete

	// The attempt context is already cancelled; side effects run on the caller's.
	sideCtx := context.WithoutCancel(ctx)
	c.record(sideCtx, out, result)

	if c.navigator != nil {
		c.navigator.Navigate(sideCtx, Handoff{Symbol: symbol, Tier: out.Tier, Result: result})
	}
}

// record saves the history entry. Failures are logged and never change the outcome.
func (c *Controller) record(ctx context.Context, out *Outcome, result *analysis.Result) {
	if c.recorder == nil {
		return
	}
	rec := Record{
		Symbol:      out.Symbol,
		Tier:        out.Tier,
		Cost:        result.TotalCost(),
		Verdict:     result.VerdictText(),
		FullResults: result.Raw(),
	}
	if err := c.recorder.Save(ctx, rec); err != nil {
		c.logger.Warn().Err(err).Str("symbol", rec.Symbol).Msg("failed to record analysis history")
		return
	}
	if c.budget == nil {
		return
	}
	limit := c.budget()
	if limit <= 0 {
		return
	}
	spent, err := c.recorder.TotalSpent(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read total spend")
		return
	}
	if spent > limit {
		out.Warning = fmt.Sprintf("Budget limit of %s exceeded. Total spent: %s.",
			common.FormatMoney(limit), common.FormatMoney(spent))
	}
}

func (c *Controller) logOutcome(out Outcome) {
	switch out.State {
	case StateSucceeded:
		c.logger.Info().Int("attempt", out.Attempt).Str("symbol", out.Symbol).
			Dur("elapsed", out.Elapsed).Msg("analysis succeeded")
	case StateCancelled:
		c.logger.Info().Int("attempt", out.Attempt).Str("reason", string(out.Reason)).
			Dur("elapsed", out.Elapsed).Msg("analysis cancelled")
	default:
		c.logger.Warn().Int("attempt", out.Attempt).Str("reason", string(out.Reason)).
			Err(out.Err).Msg("analysis failed")
	}
}

// Cancel aborts the in-flight attempt. It reports false when nothing was in
// flight. Repeated calls are no-ops; the first abort cause wins.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	a := c.inflight
	c.mu.Unlock()
	if a == nil {
		return false
	}
	a.cancel(ErrUserCancelled)
	return true
}

// InFlight reports whether an attempt is running.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

// Timeout returns the per-attempt deadline.
func (c *Controller) Timeout() time.Duration {
	return c.timeout
}

// Snapshot reports the in-flight attempt, or the last terminal outcome.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	a := c.inflight
	last := c.last
	attempts := c.attempts
	c.mu.Unlock()

	if a != nil {
		stage := a.progress.Stage()
		return Snapshot{
			Attempt:    a.n,
			State:      StateInFlight,
			InFlight:   true,
			Stage:      stage.Label,
			StageIndex: a.progress.Index(),
			StageCount: len(a.progress.Stages()),
			Percent:    a.progress.Percent(),
			Elapsed:    time.Since(a.started),
		}
	}
	return Snapshot{
		Attempt:    attempts,
		State:      last.State,
		Reason:     last.Reason,
		Message:    last.Message,
		StageCount: len(c.stages),
	}
}

// Last returns the last terminal outcome.
func (c *Controller) Last() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
