// Package session owns the workflow state of one visitor: objective and files,
// the analysis round trip, the preview gate and the email unlock.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"leadgate/internal/common/errors"
	"leadgate/internal/common/logger"
	"leadgate/internal/common/metrics"
	"leadgate/internal/common/validation"
	"leadgate/internal/gate"
	"leadgate/internal/models"
	"leadgate/internal/narrator"
	"leadgate/internal/services/analysis"
	"leadgate/internal/services/delivery"
)

// ErrInvalidEmail is returned by Unlock for an address without "@".
var ErrInvalidEmail = errors.ErrInvalidEmail

// Snapshot is a consistent, caller-owned view of the controller. Seq grows
// with every state or progress change, so a receiver can drop snapshots older
// than one it already holds.
type Snapshot struct {
	Seq       uint64
	Session   models.Session
	Visible   []models.Candidate
	Hidden    int
	Caption   string
	Progress  narrator.Progress
	Notice    string
	CanSubmit bool
}

// Controller is the only writer of session state. All transitions are
// serialized by mu; network calls run on their own goroutines and re-enter
// through mu, where a changed epoch discards them.
type Controller struct {
	analyzer    Analyzer
	deliverer   Deliverer
	logger      logger.Logger
	errHandler  *errors.ErrorHandler
	metrics     *metrics.Funnel
	narrator    *narrator.Narrator
	scheduler   narrator.Scheduler
	finishDelay time.Duration

	mu      sync.Mutex
	session models.Session
	notice  string
	epoch   uint64
	handle  *narrator.Handle
	closed  bool
	seq     atomic.Uint64

	closeCtx   context.Context
	closeFunc  context.CancelFunc
	background sync.WaitGroup

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int

	dirty        chan struct{}
	done         chan struct{}
	dispatchDone chan struct{}
	closeOnce    sync.Once
}

func New(opts Options) (*Controller, error) {
	if opts.Analyzer == nil {
		return nil, fmt.Errorf("session: analyzer is required")
	}
	if opts.Deliverer == nil {
		return nil, fmt.Errorf("session: deliverer is required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.Narrator.Phrases == nil && opts.Narrator.MessageInterval == 0 {
		opts.Narrator = narrator.DefaultConfig()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = narrator.RealScheduler()
	}

	c := &Controller{
		analyzer:     opts.Analyzer,
		deliverer:    opts.Deliverer,
		logger:       opts.Logger,
		errHandler:   errors.NewErrorHandler(opts.Logger),
		metrics:      opts.Metrics,
		scheduler:    opts.Scheduler,
		finishDelay:  opts.FinishDelay,
		subs:         make(map[int]func(Snapshot)),
		dirty:        make(chan struct{}, 1),
		done:         make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}

	n, err := narrator.New(opts.Narrator, opts.Scheduler, func(narrator.Progress) {
		c.seq.Add(1)
		c.signal()
	})
	if err != nil {
		return nil, err
	}
	c.narrator = n
	c.closeCtx, c.closeFunc = context.WithCancel(context.Background())

	go c.dispatch()
	return c, nil
}

// ==========================
// Input
// ==========================

// SetObjective replaces the objective. Ignored unless idle.
func (c *Controller) SetObjective(objective string) bool {
	c.mu.Lock()
	if c.closed || c.session.Status != models.StatusIdle {
		c.mu.Unlock()
		return false
	}
	c.session.Objective = objective
	c.seq.Add(1)
	c.mu.Unlock()

	c.signal()
	return true
}

// SelectFiles replaces the selected files. Ignored unless idle.
func (c *Controller) SelectFiles(files []models.SourceFile) bool {
	c.mu.Lock()
	if c.closed || c.session.Status != models.StatusIdle {
		c.mu.Unlock()
		return false
	}
	if len(files) == 0 {
		c.session.SourceFiles = nil
	} else {
		c.session.SourceFiles = append([]models.SourceFile(nil), files...)
	}
	c.seq.Add(1)
	c.mu.Unlock()

	c.signal()
	return true
}

// DismissNotice clears the failure notice.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	changed := c.notice != ""
	c.notice = ""
	if changed {
		c.seq.Add(1)
	}
	c.mu.Unlock()

	if changed {
		c.signal()
	}
}

// ==========================
// Transitions
// ==========================

// Submit starts an analysis when the session is idle, has a non-blank
// objective and at least one file. Otherwise it does nothing and returns false.
func (c *Controller) Submit(ctx context.Context) bool {
	c.mu.Lock()
	if c.closed || !c.session.CanSubmit() {
		c.mu.Unlock()
		return false
	}

	c.epoch++
	epoch := c.epoch
	c.session.Status = models.StatusAnalyzing
	c.notice = ""
	c.seq.Add(1)
	c.handle = c.narrator.Start()

	req := &analysis.Request{
		Objective: c.session.Objective,
		Files:     c.session.Clone().SourceFiles,
		ScanID:    uuid.NewString(),
	}

	runCtx, cancel := c.backgroundContext(ctx)
	c.background.Add(1)
	c.mu.Unlock()

	c.logger.Info("analysis submitted", map[string]interface{}{
		"scanId":    req.ScanID,
		"fileCount": len(req.Files),
	})
	c.metrics.Submitted()
	c.signal()

	go func() {
		defer c.background.Done()
		defer cancel()
		c.runAnalysis(runCtx, epoch, req)
	}()
	return true
}

func (c *Controller) runAnalysis(ctx context.Context, epoch uint64, req *analysis.Request) {
	start := time.Now()
	result, err := c.analyzer.Analyze(ctx, req)
	if err == nil && result == nil {
		err = errors.NewAnalysisBadResponseError(fmt.Errorf("%w: no result", analysis.ErrAnalysisFailed))
	}
	if err != nil {
		c.failAnalysis(epoch, req.ScanID, time.Since(start), err)
		return
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.handle.Complete()
	c.mu.Unlock()

	if c.finishDelay > 0 {
		select {
		case <-c.scheduler.After(c.finishDelay):
		case <-ctx.Done():
		}
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	candidates := result.Candidates
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	c.session.Strategy = result.Strategy
	c.session.Candidates = candidates
	c.session.SessionID = result.SessionID
	c.session.Unlocked = false
	c.session.ContactEmail = ""
	c.session.Status = models.StatusResultsReady
	c.seq.Add(1)
	c.leaveAnalyzingLocked()
	c.mu.Unlock()

	c.logger.Info("analysis results ready", map[string]interface{}{
		"scanId":         req.ScanID,
		"sessionId":      result.SessionID,
		"candidateCount": len(candidates),
	})
	c.metrics.Succeeded(time.Since(start), len(candidates))
	c.signal()
}

func (c *Controller) failAnalysis(epoch uint64, scanID string, elapsed time.Duration, err error) {
	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	c.session.Status = models.StatusIdle
	c.session.Strategy = nil
	c.session.Candidates = nil
	c.session.SessionID = ""
	c.notice = errors.Notice(err)
	c.seq.Add(1)
	c.leaveAnalyzingLocked()
	c.mu.Unlock()

	stdErr := c.errHandler.Handle("analysis failed", err, map[string]interface{}{
		"scanId": scanID,
	})
	c.metrics.Failed(elapsed, string(stdErr.Code))
	c.signal()
}

func (c *Controller) leaveAnalyzingLocked() {
	c.handle.Stop()
	c.handle = nil
}

// Unlock reveals the full candidate list and sends the report in the
// background. It returns ErrInvalidEmail, without any network call, for an
// address lacking "@". Unlocking twice or outside resultsReady does nothing.
// Delivery failures are logged and never revert the unlock.
func (c *Controller) Unlock(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)

	c.mu.Lock()
	if c.closed || c.session.Status != models.StatusResultsReady || c.session.Unlocked {
		c.mu.Unlock()
		return nil
	}
	if !validation.ValidateEmail(email) {
		c.mu.Unlock()
		return errors.NewInvalidEmailError(email)
	}

	c.session.Unlocked = true
	c.session.ContactEmail = email
	c.seq.Add(1)
	snap := c.session.Clone()

	runCtx, cancel := c.backgroundContext(ctx)
	c.background.Add(1)
	c.mu.Unlock()

	c.logger.Info("results unlocked", map[string]interface{}{
		"sessionId":      snap.SessionID,
		"candidateCount": len(snap.Candidates),
	})
	c.metrics.Unlocked()
	c.signal()

	req := &delivery.Request{
		Email:           email,
		Candidates:      snap.Candidates,
		Objective:       snap.Objective,
		Persona:         snap.Persona(),
		SummaryAnalysis: snap.SummaryAnalysis(),
		SessionID:       snap.SessionID,
	}
	go func() {
		defer c.background.Done()
		defer cancel()
		c.deliver(runCtx, req)
	}()
	return nil
}

func (c *Controller) deliver(ctx context.Context, req *delivery.Request) {
	receipt, err := c.deliverer.Deliver(ctx, req)
	if err != nil {
		fields := map[string]interface{}{"sessionId": req.SessionID}
		if receipt != nil {
			fields["statusCode"] = receipt.StatusCode
		}
		c.errHandler.Handle("report delivery failed", err, fields)
		c.metrics.Delivered(false)
		return
	}
	c.metrics.Delivered(true)
}

// NewScan returns a finished session to the initial empty state. It does
// nothing while idle or analyzing.
func (c *Controller) NewScan() bool {
	c.mu.Lock()
	if c.closed || c.session.Status != models.StatusResultsReady {
		c.mu.Unlock()
		return false
	}
	c.epoch++
	c.session = models.Session{}
	c.notice = ""
	c.seq.Add(1)
	c.mu.Unlock()

	c.logger.Info("new scan started", nil)
	c.signal()
	return true
}

// ==========================
// Query / observe
// ==========================

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.seq.Load()
	s := c.session.Clone()
	return Snapshot{
		Seq:       seq,
		Session:   s,
		Visible:   gate.Visible(s.Candidates, s.Unlocked),
		Hidden:    gate.Hidden(s.Candidates, s.Unlocked),
		Caption:   gate.Caption(s.Candidates, s.Unlocked),
		Progress:  c.narrator.Progress(),
		Notice:    c.notice,
		CanSubmit: s.CanSubmit(),
	}
}

// Subscribe registers fn to receive snapshots after state changes. Calls are
// made from a single goroutine, outside any controller lock, and coalesce:
// fn sees the latest state, not every intermediate one.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	c.signal()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

func (c *Controller) signal() {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

func (c *Controller) dispatch() {
	defer close(c.dispatchDone)
	for {
		select {
		case <-c.done:
			return
		case <-c.dirty:
			snap := c.Snapshot()

			c.subMu.Lock()
			subs := make([]func(Snapshot), 0, len(c.subs))
			for _, fn := range c.subs {
				subs = append(subs, fn)
			}
			c.subMu.Unlock()

			for _, fn := range subs {
				fn(snap)
			}
		}
	}
}

// ==========================
// Lifecycle
// ==========================

// backgroundContext derives a context that ends with parent or with Close.
func (c *Controller) backgroundContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(c.closeCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Wait blocks until in-flight analysis and delivery calls have finished.
func (c *Controller) Wait() {
	c.background.Wait()
}

// Close cancels in-flight work, stops the narrator and the dispatcher, and
// waits for them. Any result arriving afterwards is discarded.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.epoch++
		if c.handle != nil {
			c.handle.Stop()
			c.handle = nil
		}
		c.mu.Unlock()

		c.closeFunc()
		c.background.Wait()
		close(c.done)
		<-c.dispatchDone
	})
}
