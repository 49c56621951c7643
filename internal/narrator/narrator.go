// Package narrator drives the cosmetic status phrases and progress bar shown
// while an analysis request is in flight. It has no effect on results.
package narrator

import (
	"fmt"
	"sync"
	"time"
)

// DefaultPhrases is the fixed status sequence shown while analyzing.
var DefaultPhrases = []string{
	"Reading your contact files…",
	"Merging and de-duplicating contacts…",
	"Building a targeting strategy…",
	"Scoring contacts against your goal…",
	"Ranking the strongest matches…",
}

type Config struct {
	Phrases          []string
	MessageInterval  time.Duration
	ProgressInterval time.Duration
	ProgressStep     int
	ProgressCap      int
}

func DefaultConfig() Config {
	return Config{
		Phrases:          DefaultPhrases,
		MessageInterval:  2500 * time.Millisecond,
		ProgressInterval: 400 * time.Millisecond,
		ProgressStep:     2,
		ProgressCap:      95,
	}
}

func (c Config) Validate() error {
	if len(c.Phrases) == 0 {
		return fmt.Errorf("at least one phrase is required")
	}
	if c.MessageInterval <= 0 || c.ProgressInterval <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	if c.ProgressStep <= 0 {
		return fmt.Errorf("progress_step must be positive")
	}
	if c.ProgressCap <= 0 || c.ProgressCap >= 100 {
		return fmt.Errorf("progress_cap must be between 1 and 99")
	}
	return nil
}

// Progress is what the narrator currently displays.
type Progress struct {
	Active      bool
	PhraseIndex int
	Phrase      string
	Percent     int
}

// Narrator owns the two ticking cycles. Only one cycle set is live at a time;
// starting again replaces the previous one.
type Narrator struct {
	cfg       Config
	scheduler Scheduler
	onChange  func(Progress)

	mu             sync.Mutex
	generation     uint64
	state          Progress
	cancelMessage  func()
	cancelProgress func()
}

// New returns an idle narrator. onChange, if set, is called after every tick
// that changed the displayed progress, outside the narrator's lock.
func New(cfg Config, scheduler Scheduler, onChange func(Progress)) (*Narrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("narrator config: %w", err)
	}
	if scheduler == nil {
		scheduler = RealScheduler()
	}
	return &Narrator{
		cfg:       cfg,
		scheduler: scheduler,
		onChange:  onChange,
	}, nil
}

// Start resets both cycles to their first position and begins ticking. The
// returned Handle must be stopped on every exit from the analyzing state.
func (n *Narrator) Start() *Handle {
	n.mu.Lock()
	n.cancelLocked()
	n.generation++
	gen := n.generation
	n.state = Progress{
		Active: true,
		Phrase: n.cfg.Phrases[0],
	}
	n.cancelMessage = n.scheduler.Every(n.cfg.MessageInterval, func() { n.nextPhrase(gen) })
	n.cancelProgress = n.scheduler.Every(n.cfg.ProgressInterval, func() { n.step(gen) })
	snapshot := n.state
	n.mu.Unlock()

	n.notify(snapshot)
	return &Handle{n: n, generation: gen}
}

// Progress returns the current display state.
func (n *Narrator) Progress() Progress {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Narrator) nextPhrase(gen uint64) {
	n.mu.Lock()
	if gen != n.generation || !n.state.Active {
		n.mu.Unlock()
		return
	}
	n.state.PhraseIndex = (n.state.PhraseIndex + 1) % len(n.cfg.Phrases)
	n.state.Phrase = n.cfg.Phrases[n.state.PhraseIndex]
	snapshot := n.state
	n.mu.Unlock()

	n.notify(snapshot)
}

func (n *Narrator) step(gen uint64) {
	n.mu.Lock()
	if gen != n.generation || !n.state.Active || n.state.Percent >= n.cfg.ProgressCap {
		n.mu.Unlock()
		return
	}
	n.state.Percent = min(n.state.Percent+n.cfg.ProgressStep, n.cfg.ProgressCap)
	snapshot := n.state
	n.mu.Unlock()

	n.notify(snapshot)
}

func (n *Narrator) cancelLocked() {
	if n.cancelMessage != nil {
		n.cancelMessage()
		n.cancelMessage = nil
	}
	if n.cancelProgress != nil {
		n.cancelProgress()
		n.cancelProgress = nil
	}
}

func (n *Narrator) notify(p Progress) {
	if n.onChange != nil {
		n.onChange(p)
	}
}

// Handle ends one narration cycle. Its methods are no-ops once a newer cycle
// has started or the handle was stopped.
type Handle struct {
	n          *Narrator
	generation uint64
}

// Complete snaps progress to 100 and stops the progress cycle. The phrase
// cycle keeps running until Stop.
func (h *Handle) Complete() {
	if h == nil {
		return
	}
	n := h.n
	n.mu.Lock()
	if h.generation != n.generation || !n.state.Active {
		n.mu.Unlock()
		return
	}
	if n.cancelProgress != nil {
		n.cancelProgress()
		n.cancelProgress = nil
	}
	n.state.Percent = 100
	snapshot := n.state
	n.mu.Unlock()

	n.notify(snapshot)
}

// Stop cancels both cycles and clears the display state. After Stop returns no
// tick of this cycle mutates the narrator.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	n := h.n
	n.mu.Lock()
	defer n.mu.Unlock()
	if h.generation != n.generation {
		return
	}
	n.cancelLocked()
	n.generation++
	n.state = Progress{}
}
