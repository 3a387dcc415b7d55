package submission

import (
	"math"
	"sync"
	"time"
)

// Stage is one cosmetic progress step.
type Stage struct {
	Label    string
	Duration time.Duration
}

// DefaultStages approximate the backend's pipeline. They are not tied to real
// server progress.
var DefaultStages = []Stage{
	{Label: "PARSING DATA...", Duration: 2 * time.Second},
	{Label: "ANALYZING TECHNICAL PATTERNS...", Duration: 4 * time.Second},
	{Label: "FETCHING NEWS...", Duration: 3 * time.Second},
	{Label: "ANALYZING SEC FILINGS...", Duration: 5 * time.Second},
	{Label: "GENERATING SYNTHESIS...", Duration: 4 * time.Second},
}

// Progress advances through stages on per-stage timers. The index only moves
// forward, stops at the last stage and returns to 0 on Start and Stop.
type Progress struct {
	stages []Stage

	mu      sync.Mutex
	index   int
	running bool
	gen     int
	timer   *time.Timer
}

// NewProgress creates a stopped progress over stages.
func NewProgress(stages []Stage) *Progress {
	if len(stages) == 0 {
		stages = DefaultStages
	}
	return &Progress{stages: stages}
}

// Start resets to the first stage and arms its timer.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.index = 0
	p.running = true
	p.gen++
	p.armLocked()
}

// Stop disarms the current timer and resets to the first stage.
func (p *Progress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.running = false
	p.gen++
	p.index = 0
}

func (p *Progress) stopLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Progress) armLocked() {
	if p.index >= len(p.stages)-1 {
		return
	}
	gen := p.gen
	p.timer = time.AfterFunc(p.stages[p.index].Duration, func() { p.advance(gen) })
}

// advance ignores timers that belong to an earlier Start.
func (p *Progress) advance(gen int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || gen != p.gen {
		return
	}
	if p.index < len(p.stages)-1 {
		p.index++
	}
	p.armLocked()
}

// Running reports whether the progress is between Start and Stop.
func (p *Progress) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Index returns the current 0-based stage index.
func (p *Progress) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Stage returns the current stage.
func (p *Progress) Stage() Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stages[p.index]
}

// Stages returns the configured stages.
func (p *Progress) Stages() []Stage {
	return p.stages
}

// Percent is round((index+1)/len*100) while running and 0 otherwise.
func (p *Progress) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return 0
	}
	return int(math.Round(float64(p.index+1) / float64(len(p.stages)) * 100))
}
