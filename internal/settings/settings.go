// Package settings persists the user preferences shared by every session.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/bobmcallan/chartscope-portal/internal/analysis"
	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/config"
	"github.com/bobmcallan/chartscope-portal/internal/interfaces"
)

// StorageKey is the key the settings are stored under.
const StorageKey = "user_settings"

// Settings are the user preferences.
type Settings struct {
	DefaultTier string               `json:"defaultTier"`
	BudgetLimit float64              `json:"budgetLimit"`
	ColorVision analysis.ColorVision `json:"colorVision"`
}

// Store reads and writes Settings, falling back to the configured defaults.
type Store struct {
	kv       interfaces.KeyValueStorage
	logger   *common.Logger
	defaults Settings

	mu      sync.RWMutex
	current *Settings
}

// NewStore creates a store. kv may be nil, in which case settings live in memory.
func NewStore(kv interfaces.KeyValueStorage, logger *common.Logger, cfg config.SettingsConfig) *Store {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Store{
		kv:     kv,
		logger: logger,
		defaults: normalize(Settings{
			DefaultTier: cfg.DefaultTier,
			BudgetLimit: cfg.BudgetLimit,
			ColorVision: analysis.ColorVision(cfg.ColorVision),
		}, Settings{DefaultTier: "standard"}),
	}
}

// Get returns the current settings. Unreadable stored settings are ignored.
func (s *Store) Get(ctx context.Context) Settings {
	s.mu.RLock()
	if s.current != nil {
		cur := *s.current
		s.mu.RUnlock()
		return cur
	}
	s.mu.RUnlock()

	out := s.defaults
	if s.kv != nil {
		raw, err := s.kv.Get(ctx, StorageKey)
		switch {
		case err == nil:
			var stored Settings
			if jerr := json.Unmarshal([]byte(raw), &stored); jerr != nil {
				s.logger.Warn().Err(jerr).Msg("ignoring unreadable settings")
			} else {
				out = normalize(stored, s.defaults)
			}
		case !errors.Is(err, interfaces.ErrNotFound):
			s.logger.Warn().Err(err).Msg("failed to read settings")
			return out
		}
	}

	s.mu.Lock()
	s.current = &out
	s.mu.Unlock()
	return out
}

// Save normalizes and stores in, returning what was stored.
func (s *Store) Save(ctx context.Context, in Settings) (Settings, error) {
	out := normalize(in, s.defaults)
	if s.kv != nil {
		data, err := json.Marshal(out)
		if err != nil {
			return Settings{}, fmt.Errorf("failed to encode settings: %w", err)
		}
		if err := s.kv.Set(ctx, StorageKey, string(data)); err != nil {
			return Settings{}, fmt.Errorf("failed to save settings: %w", err)
		}
	}
	s.mu.Lock()
	s.current = &out
	s.mu.Unlock()

	s.logger.Info().
		Str("default_tier", out.DefaultTier).
		Float64("budget_limit", out.BudgetLimit).
		Str("color_vision", string(out.ColorVision)).
		Msg("settings saved")
	return out, nil
}

// BudgetLimit returns the current budget limit.
func (s *Store) BudgetLimit() float64 {
	return s.Get(context.Background()).BudgetLimit
}

func normalize(in, defaults Settings) Settings {
	out := in
	out.DefaultTier = strings.TrimSpace(out.DefaultTier)
	if out.DefaultTier == "" {
		out.DefaultTier = defaults.DefaultTier
	}
	if out.BudgetLimit < 0 || math.IsNaN(out.BudgetLimit) || math.IsInf(out.BudgetLimit, 0) {
		out.BudgetLimit = 0
	}
	out.ColorVision = analysis.ParseColorVision(string(out.ColorVision))
	return out
}
