// Package history keeps a bounded, newest-first list of completed analyses.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/config"
	"github.com/bobmcallan/chartscope-portal/internal/interfaces"
	"github.com/bobmcallan/chartscope-portal/internal/submission"
)

// StorageKey is the key the history list is stored under.
const StorageKey = "analysis_history"

// StatusComplete is the only status a stored record has.
const StatusComplete = "complete"

var (
	// ErrNotFound is returned by Get for an unknown id.
	ErrNotFound = errors.New("analysis record not found")
	// ErrStorageFull is returned when even a fully trimmed list cannot be written.
	ErrStorageFull = errors.New("analysis history storage full")
)

// Record is one completed analysis.
type Record struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Date        time.Time       `json:"date"`
	Tier        string          `json:"tier"`
	Cost        float64         `json:"cost"`
	Status      string          `json:"status"`
	Verdict     string          `json:"verdict,omitempty"`
	FullResults json.RawMessage `json:"fullResults,omitempty"`
}

// HasResults reports whether the full payload is still stored.
func (r Record) HasResults() bool {
	return len(r.FullResults) > 0 && string(r.FullResults) != "null"
}

// Stats summarises the stored history.
type Stats struct {
	Total   int
	Spent   float64
	Average float64
}

// Store persists history in one key of a KeyValueStorage. Records are never
// modified after they are written, except that the full payload of older
// records may be dropped under storage pressure.
type Store struct {
	kv         interfaces.KeyValueStorage
	logger     *common.Logger
	maxRecords int
	keepFull   int
	maxBytes   int64

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// NewStore creates a store over kv using the retention settings in cfg.
func NewStore(kv interfaces.KeyValueStorage, logger *common.Logger, cfg config.HistoryConfig) *Store {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Store{
		kv:         kv,
		logger:     logger,
		maxRecords: cfg.MaxRecords,
		keepFull:   cfg.KeepFullResults,
		maxBytes:   cfg.MaxBytes,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	if s.maxRecords <= 0 {
		s.maxRecords = 10
	}
	if s.keepFull < 0 {
		s.keepFull = 0
	}
	return s
}

// Save implements submission.Recorder.
func (s *Store) Save(ctx context.Context, rec submission.Record) error {
	_, err := s.Add(ctx, Record{
		Symbol:      rec.Symbol,
		Tier:        rec.Tier,
		Cost:        rec.Cost,
		Verdict:     rec.Verdict,
		FullResults: rec.FullResults,
	})
	return err
}

// Add stores rec as the newest record and evicts the oldest past the
// retention count. ID, Date and Status are assigned here.
func (s *Store) Add(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.newID()
	rec.Date = s.now().UTC()
	rec.Status = StatusComplete

	list, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	list = append([]Record{rec}, list...)
	if len(list) > s.maxRecords {
		list = list[:s.maxRecords]
	}
	if err := s.write(ctx, list); err != nil {
		return Record{}, err
	}
	s.logger.Info().Str("id", rec.ID).Str("symbol", rec.Symbol).Int("records", len(list)).Msg("analysis recorded")
	return rec, nil
}

// write stores list, dropping full payloads when the write is too large or
// fails: first from records past keepFull, then from every record.
func (s *Store) write(ctx context.Context, list []Record) error {
	err := s.put(ctx, list)
	if err == nil {
		return nil
	}
	s.logger.Warn().Err(err).Int("keep_full_results", s.keepFull).Msg("history write failed, trimming older results")

	list = trimResults(list, s.keepFull)
	if err = s.put(ctx, list); err == nil {
		return nil
	}
	s.logger.Warn().Err(err).Msg("history write failed, dropping all stored results")

	list = trimResults(list, 0)
	if err = s.put(ctx, list); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageFull, err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, list []Record) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return fmt.Errorf("history is %d bytes, limit %d", len(data), s.maxBytes)
	}
	return s.kv.Set(ctx, StorageKey, string(data))
}

// trimResults returns a copy of list with FullResults removed from every
// record at index keep or later.
func trimResults(list []Record, keep int) []Record {
	out := make([]Record, len(list))
	copy(out, list)
	for i := keep; i < len(out); i++ {
		out[i].FullResults = nil
	}
	return out
}

// load reads the stored list. A missing key or undecodable data is an empty
// history. Any other read failure is returned and nothing is written over it.
func (s *Store) load(ctx context.Context) ([]Record, error) {
	raw, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, interfaces.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read history")
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var list []Record
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		s.logger.Warn().Err(err).Msg("stored history is corrupt, starting empty")
		return nil, nil
	}
	return list, nil
}

// List returns all records, newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get returns the record with id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	list, err := s.List(ctx)
	if err != nil {
		return Record{}, err
	}
	for _, r := range list {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Stats returns totals over the stored records.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	list, err := s.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Total: len(list)}
	for _, r := range list {
		st.Spent += r.Cost
	}
	if st.Total > 0 {
		st.Average = st.Spent / float64(st.Total)
	}
	return st, nil
}

// TotalSpent implements submission.Recorder.
func (s *Store) TotalSpent(ctx context.Context) (float64, error) {
	st, err := s.Stats(ctx)
	return st.Spent, err
}

// SizeBytes returns the stored size of the history.
func (s *Store) SizeBytes(ctx context.Context) (int, error) {
	raw, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, interfaces.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, StorageKey)
}
