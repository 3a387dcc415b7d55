package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/session"
	"github.com/bobmcallan/chartscope-portal/internal/settings"
	"github.com/bobmcallan/chartscope-portal/internal/submission"
	"github.com/bobmcallan/chartscope-portal/internal/tiers"
)

// MaxUploadBody bounds the whole analyze request: one file plus form fields.
const MaxUploadBody = submission.MaxFileBytes + 1<<20

const multipartMemory = 16 << 20

// AnalyzeHandler serves the analysis form and drives the session's controller.
type AnalyzeHandler struct {
	logger   *common.Logger
	renderer *Renderer
	sessions *session.Registry
	settings *settings.Store
	catalog  *tiers.Catalog
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(logger *common.Logger, renderer *Renderer, sessions *session.Registry, prefs *settings.Store, catalog *tiers.Catalog) *AnalyzeHandler {
	return &AnalyzeHandler{
		logger:   logger,
		renderer: renderer,
		sessions: sessions,
		settings: prefs,
		catalog:  catalog,
	}
}

// formState is what the form is re-rendered with after a failed post.
type formState struct {
	Mode      submission.Mode
	Ticker    string
	Timeframe string
	Tier      string
}

// OutcomeResponse is the JSON form of a submission outcome.
type OutcomeResponse struct {
	Attempt   int    `json:"attempt"`
	State     string `json:"state"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message"`
	Warning   string `json:"warning,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Tier      string `json:"tier,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Redirect  string `json:"redirect,omitempty"`
}

// StatusResponse is the JSON form of a controller snapshot.
type StatusResponse struct {
	Attempt    int    `json:"attempt"`
	State      string `json:"state"`
	Reason     string `json:"reason,omitempty"`
	InFlight   bool   `json:"in_flight"`
	Message    string `json:"message,omitempty"`
	Stage      string `json:"stage,omitempty"`
	StageIndex int    `json:"stage_index"`
	StageCount int    `json:"stage_count"`
	Percent    int    `json:"percent"`
	ElapsedMs  int64  `json:"elapsed_ms"`
}

// ServePage handles GET /analyze.
func (h *AnalyzeHandler) ServePage(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	st := h.sessions.FromRequest(w, r)
	h.renderForm(w, r, st, http.StatusOK, formState{}, "", "")
}

func (h *AnalyzeHandler) renderForm(w http.ResponseWriter, r *http.Request, st *session.State, status int, fs formState, message, noticeClass string) {
	prefs := h.settings.Get(r.Context())
	tier := fs.Tier
	if tier == "" {
		tier = prefs.DefaultTier
	}
	timeframe := fs.Timeframe
	if timeframe == "" {
		timeframe = submission.DefaultTimeframe
	}
	h.renderer.Render(w, status, "analyze.html", "analyze", map[string]interface{}{
		"PageTitle":    "ANALYZE",
		"Tiers":        h.catalog.List(r.Context()),
		"DefaultTier":  tier,
		"Timeframes":   submission.Timeframes,
		"Timeframe":    timeframe,
		"Mode":         string(fs.Mode),
		"Ticker":       fs.Ticker,
		"MaxTickerLen": submission.MaxTickerLen,
		"InFlight":     st.Controller.InFlight(),
		"Message":      message,
		"NoticeClass":  noticeClass,
	})
}

// HandleSubmit handles POST /api/analyze. The request blocks until the
// attempt ends; a client disconnect cancels the attempt.
func (h *AnalyzeHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	st := h.sessions.FromRequest(w, r)

	req, fs, ve := h.parseRequest(r)
	var out submission.Outcome
	if ve != nil {
		out = submission.Outcome{State: submission.StateIdle, Err: ve, Message: ve.Message}
	} else {
		out = st.Controller.Submit(r.Context(), req)
	}

	if WantsJSON(r) {
		WriteJSON(w, outcomeStatus(out), toOutcomeResponse(out))
		return
	}
	if out.State == submission.StateSucceeded {
		http.Redirect(w, r, "/results", http.StatusSeeOther)
		return
	}
	class := "error"
	if out.State == submission.StateCancelled {
		class = "warn"
	}
	h.renderForm(w, r, st, outcomeStatus(out), fs, out.Message, class)
}

// parseRequest builds the submission request from the posted form.
func (h *AnalyzeHandler) parseRequest(r *http.Request) (submission.Request, formState, *submission.ValidationError) {
	var fs formState
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fs, &submission.ValidationError{Field: "file", Message: "File too large. Maximum size is 10 MB."}
		}
		return nil, fs, &submission.ValidationError{Field: "form", Message: submission.MsgInvalidInput}
	}

	fs.Mode = submission.ParseMode(r.FormValue("mode"))
	fs.Tier = strings.TrimSpace(r.FormValue("tier"))
	if fs.Tier == "" {
		fs.Tier = h.settings.Get(r.Context()).DefaultTier
	}

	if fs.Mode == submission.ModeTicker {
		fs.Ticker = submission.SanitizeTicker(r.FormValue("ticker"))
		fs.Timeframe = strings.TrimSpace(r.FormValue("timeframe"))
		return submission.TickerRequest{Symbol: fs.Ticker, Timeframe: fs.Timeframe, Tier: fs.Tier}, fs, nil
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["file"]
	}
	files := make([]submission.UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, submission.UploadFile{Name: fh.Filename, Size: fh.Size})
	}
	if _, ve := submission.ValidateFiles(files); ve != nil {
		return nil, fs, ve
	}
	data, err := readUpload(headers[0])
	if err != nil {
		h.logger.Warn().Err(err).Str("file", headers[0].Filename).Msg("failed to read uploaded file")
		return nil, fs, &submission.ValidationError{Field: "file", Message: submission.MsgInvalidInput}
	}
	file := &submission.UploadFile{Name: headers[0].Filename, Size: headers[0].Size, Data: data}
	return submission.FileRequest{File: file, Tier: fs.Tier}, fs, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, submission.MaxFileBytes+1))
}

// HandleCancel handles POST /api/analyze/cancel.
func (h *AnalyzeHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	st := h.sessions.FromRequest(w, r)
	WriteJSON(w, http.StatusOK, map[string]bool{"cancelled": st.Controller.Cancel()})
}

// HandleStatus handles GET /api/analyze/status.
func (h *AnalyzeHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	st := h.sessions.FromRequest(w, r)
	snap := st.Controller.Snapshot()
	WriteJSON(w, http.StatusOK, StatusResponse{
		Attempt:    snap.Attempt,
		State:      string(snap.State),
		Reason:     string(snap.Reason),
		InFlight:   snap.InFlight,
		Message:    snap.Message,
		Stage:      snap.Stage,
		StageIndex: snap.StageIndex,
		StageCount: snap.StageCount,
		Percent:    snap.Percent,
		ElapsedMs:  snap.Elapsed.Milliseconds(),
	})
}

func outcomeStatus(out submission.Outcome) int {
	switch out.State {
	case submission.StateIdle:
		return http.StatusBadRequest
	case submission.StateInFlight:
		return http.StatusConflict
	default:
		return http.StatusOK
	}
}

func toOutcomeResponse(out submission.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		Attempt:   out.Attempt,
		State:     string(out.State),
		Reason:    string(out.Reason),
		Message:   out.Message,
		Warning:   out.Warning,
		Symbol:    out.Symbol,
		Tier:      out.Tier,
		ElapsedMs: out.Elapsed.Milliseconds(),
	}
	if out.State == submission.StateSucceeded {
		resp.Redirect = "/results"
	}
	return resp
}
