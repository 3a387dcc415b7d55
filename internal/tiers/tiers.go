// Package tiers resolves tier ids against the backend's tier catalog.
package tiers

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bobmcallan/chartscope-portal/internal/common"
)

// Tier is one entry of the tier catalog.
type Tier struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	PriceDisplay string   `json:"price_display"`
	Icon         string   `json:"icon"`
	Features     []string `json:"features,omitempty"`
}

// Fallback is used when the catalog cannot be fetched.
var Fallback = []Tier{
	{ID: "lite", Label: "Free", PriceDisplay: "Free", Icon: "free", Features: []string{"Technical analysis"}},
	{ID: "standard", Label: "Standard", PriceDisplay: "~$2.40", Icon: "std", Features: []string{"Technical analysis", "News and sentiment"}},
	{ID: "premium", Label: "Premium", PriceDisplay: "~$5.00", Icon: "pro", Features: []string{"Technical analysis", "News and sentiment", "SEC filings", "AI synthesis"}},
}

// Fetcher loads the tier list from the backend.
type Fetcher interface {
	FetchTiers(ctx context.Context) ([]Tier, error)
}

// State is the catalog lifecycle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StatePopulated     State = "populated"
	StateFallback      State = "fallback"
)

// Catalog fetches the tier list at most once per process. Concurrent callers
// share one in-flight fetch. A failed fetch caches the fallback catalog and is
// never reported to callers.
type Catalog struct {
	fetcher Fetcher
	logger  *common.Logger

	timeout time.Duration

	group singleflight.Group
	mu    sync.RWMutex
	tiers []Tier
	state State
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithFetchTimeout bounds the single catalog fetch.
func WithFetchTimeout(d time.Duration) CatalogOption {
	return func(c *Catalog) { c.timeout = d }
}

// NewCatalog creates a catalog over fetcher. A nil fetcher always yields Fallback.
func NewCatalog(fetcher Fetcher, logger *common.Logger, opts ...CatalogOption) *Catalog {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	c := &Catalog{fetcher: fetcher, logger: logger, state: StateUninitialized}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the catalog, fetching it on first use.
func (c *Catalog) List(ctx context.Context) []Tier {
	c.mu.RLock()
	if c.state != StateUninitialized {
		out := c.tiers
		c.mu.RUnlock()
		return out
	}
	c.mu.RUnlock()

	v, _, _ := c.group.Do("tiers", func() (any, error) {
		c.mu.RLock()
		if c.state != StateUninitialized {
			out := c.tiers
			c.mu.RUnlock()
			return out, nil
		}
		c.mu.RUnlock()

		tiers, state := c.load(ctx)
		c.mu.Lock()
		c.tiers, c.state = tiers, state
		c.mu.Unlock()
		return tiers, nil
	})
	return v.([]Tier)
}

func (c *Catalog) load(ctx context.Context) ([]Tier, State) {
	if c.fetcher == nil {
		return Fallback, StateFallback
	}
	// The result is shared by every waiter, so the first caller going away
	// must not fail the fetch for the rest.
	ctx = context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	fetched, err := c.fetcher.FetchTiers(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("tier catalog unavailable, using fallback")
		return Fallback, StateFallback
	}
	valid := make([]Tier, 0, len(fetched))
	for _, t := range fetched {
		if strings.TrimSpace(t.ID) == "" {
			continue
		}
		valid = append(valid, t)
	}
	if len(valid) == 0 {
		c.logger.Warn().Msg("tier catalog empty, using fallback")
		return Fallback, StateFallback
	}
	c.logger.Info().Int("tiers", len(valid)).Msg("tier catalog loaded")
	return valid, StatePopulated
}

// State reports where the cached catalog came from.
func (c *Catalog) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Lookup resolves id. Unknown ids return a synthesized tier labelled with
// the id itself and ok=false.
func (c *Catalog) Lookup(ctx context.Context, id string) (Tier, bool) {
	for _, t := range c.List(ctx) {
		if strings.EqualFold(t.ID, id) {
			return t, true
		}
	}
	return Tier{ID: id, Label: labelFor(id), Icon: DefaultIcon}, false
}

func labelFor(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return "Unknown"
	}
	return strings.ToUpper(id[:1]) + id[1:]
}
