package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/bobmcallan/chartscope-portal/internal/tiers"
)

const (
	maxAnalysisBody = 32 << 20
	maxCatalogBody  = 1 << 20
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analysis backend returned %d", e.Status)
}

// Field is one text part of a multipart form.
type Field struct {
	Name  string
	Value string
}

// FilePart is the file part of a multipart form.
type FilePart struct {
	Field    string
	Filename string
	Data     []byte
}

// Form is the multipart body of an analysis request.
type Form struct {
	Fields []Field
	File   *FilePart
}

// AnalyzerClient talks to the chart-analysis backend. It applies no timeout
// of its own; callers bound each call with the context.
type AnalyzerClient struct {
	baseURL     string
	analyzePath string
	tiersPath   string
	healthPath  string
	httpClient  *http.Client
}

// Option configures an AnalyzerClient.
type Option func(*AnalyzerClient)

// WithPaths overrides the endpoint paths. Empty values keep the defaults.
func WithPaths(analyze, tiersPath, health string) Option {
	return func(c *AnalyzerClient) {
		if analyze != "" {
			c.analyzePath = analyze
		}
		if tiersPath != "" {
			c.tiersPath = tiersPath
		}
		if health != "" {
			c.healthPath = health
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *AnalyzerClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewAnalyzerClient creates a client for the backend at baseURL.
func NewAnalyzerClient(baseURL string, opts ...Option) *AnalyzerClient {
	c := &AnalyzerClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		analyzePath: "/analyze/full",
		tiersPath:   "/config/tiers",
		healthPath:  "/health",
		httpClient:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *AnalyzerClient) BaseURL() string {
	return c.baseURL
}

// Analyze posts form to the analyze endpoint and returns the 2xx body.
// Non-2xx answers return a *StatusError carrying the body.
func (c *AnalyzerClient) Analyze(ctx context.Context, form Form) ([]byte, error) {
	body, contentType, err := encodeForm(form)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.analyzePath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach analysis backend: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAnalysisBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Body: data}
	}
	return data, nil
}

// FetchTiers loads the tier catalog.
func (c *AnalyzerClient) FetchTiers(ctx context.Context) ([]tiers.Tier, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.tiersPath, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach analysis backend: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read tier catalog: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tier catalog returned %d", resp.StatusCode)
	}

	var list []tiers.Tier
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse tier catalog: %w", err)
	}
	return list, nil
}

// Ping checks the backend health endpoint.
func (c *AnalyzerClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.healthPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach analysis backend: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analysis backend health returned %d", resp.StatusCode)
	}
	return nil
}

func encodeForm(form Form) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range form.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", err
		}
	}
	if form.File != nil {
		part, err := w.CreateFormFile(form.File.Field, form.File.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(form.File.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
