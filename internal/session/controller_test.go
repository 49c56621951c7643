package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"leadgate/internal/common/errors"
	"leadgate/internal/common/logger"
	"leadgate/internal/models"
	"leadgate/internal/narrator"
	"leadgate/internal/services/analysis"
	"leadgate/internal/services/delivery"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ==========================
// Mocks
// ==========================

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, req *analysis.Request) (*analysis.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analysis.Result), args.Error(1)
}

type MockDeliverer struct {
	mock.Mock
}

func (m *MockDeliverer) Deliver(ctx context.Context, req *delivery.Request) (*delivery.Receipt, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.Receipt), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

type fixture struct {
	ctrl      *Controller
	analyzer  *MockAnalyzer
	deliverer *MockDeliverer
	sched     *narrator.ManualScheduler
}

func newFixture(t *testing.T, finishDelay time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		analyzer:  new(MockAnalyzer),
		deliverer: new(MockDeliverer),
		sched:     narrator.NewManualScheduler(),
	}
	ctrl, err := New(Options{
		Analyzer:    f.analyzer,
		Deliverer:   f.deliverer,
		Logger:      logger.NewTestLogger(t),
		Narrator:    narrator.DefaultConfig(),
		Scheduler:   f.sched,
		FinishDelay: finishDelay,
	})
	require.NoError(t, err)
	f.ctrl = ctrl
	t.Cleanup(ctrl.Close)
	return f
}

func createCandidates(n int) []models.Candidate {
	out := make([]models.Candidate, n)
	for i := range out {
		out[i] = models.Candidate{
			Score:   float64(100 - i*7),
			Name:    fmt.Sprintf("Contact %d", i),
			Role:    "Partner",
			Company: "Fund",
		}
	}
	return out
}

func createResult(n int) *analysis.Result {
	return &analysis.Result{
		Strategy:   &models.Strategy{Persona: "Seed investors", SummaryAnalysis: "Lead with traction"},
		Candidates: createCandidates(n),
		SessionID:  "sess-1",
	}
}

func (f *fixture) prepare(objective string) {
	f.ctrl.SetObjective(objective)
	f.ctrl.SelectFiles([]models.SourceFile{{Name: "contacts.csv", Data: []byte("Name\nAda\n")}})
}

// runToResults submits and waits for a result set of n candidates.
func (f *fixture) runToResults(t *testing.T, n int) {
	t.Helper()
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(createResult(n), nil).Once()
	f.prepare("Find investors")
	require.True(t, f.ctrl.Submit(context.Background()))
	f.ctrl.Wait()
	require.Equal(t, models.StatusResultsReady, f.ctrl.Snapshot().Session.Status)
}

// ==========================
// Submit guard
// ==========================

func TestSubmit_Guard(t *testing.T) {
	tests := []struct {
		name      string
		objective string
		files     []models.SourceFile
	}{
		{"no objective no files", "", nil},
		{"blank objective", "   \t", []models.SourceFile{{Name: "a.csv"}}},
		{"no files", "Find investors", nil},
		{"empty file list", "Find investors", []models.SourceFile{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0)
			f.ctrl.SetObjective(tt.objective)
			f.ctrl.SelectFiles(tt.files)
			before := f.ctrl.Snapshot()

			assert.False(t, f.ctrl.Submit(context.Background()))
			f.ctrl.Wait()

			after := f.ctrl.Snapshot()
			assert.Equal(t, before, after)
			assert.Equal(t, models.StatusIdle, after.Session.Status)
			assert.False(t, after.CanSubmit)
			f.analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
			assert.Zero(t, f.sched.Active())
		})
	}
}

func TestSubmit_OnlyOneInFlight(t *testing.T) {
	f := newFixture(t, 0)
	release := make(chan time.Time)
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(createResult(2), nil).WaitUntil(release).Once()
	f.prepare("Find investors")

	require.True(t, f.ctrl.Submit(context.Background()))
	assert.False(t, f.ctrl.Submit(context.Background()))
	assert.Equal(t, models.StatusAnalyzing, f.ctrl.Snapshot().Session.Status)

	close(release)
	f.ctrl.Wait()
	f.analyzer.AssertNumberOfCalls(t, "Analyze", 1)
}

func TestSubmit_SendsObjectiveAndFiles(t *testing.T) {
	f := newFixture(t, 0)
	files := []models.SourceFile{{Name: "a.csv", Data: []byte("x")}, {Name: "b.csv", Data: []byte("y")}}

	f.analyzer.On("Analyze", mock.Anything, mock.MatchedBy(func(req *analysis.Request) bool {
		return req.Objective == "Find investors" &&
			len(req.Files) == 2 &&
			req.Files[0].Name == "a.csv" &&
			req.Files[1].Name == "b.csv" &&
			req.ScanID != ""
	})).Return(createResult(1), nil).Once()

	f.ctrl.SetObjective("Find investors")
	f.ctrl.SelectFiles(files)
	files[0].Name = "mutated.csv"

	require.True(t, f.ctrl.Submit(context.Background()))
	f.ctrl.Wait()
	f.analyzer.AssertExpectations(t)
}

func TestSetters_IgnoredOutsideIdle(t *testing.T) {
	f := newFixture(t, 0)
	release := make(chan time.Time)
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(createResult(1), nil).WaitUntil(release).Once()
	f.prepare("Find investors")
	require.True(t, f.ctrl.Submit(context.Background()))

	assert.False(t, f.ctrl.SetObjective("something else"))
	assert.False(t, f.ctrl.SelectFiles(nil))

	close(release)
	f.ctrl.Wait()

	snap := f.ctrl.Snapshot()
	assert.Equal(t, "Find investors", snap.Session.Objective)
	assert.Len(t, snap.Session.SourceFiles, 1)
	assert.False(t, f.ctrl.SetObjective("x"))
}

// ==========================
// Analysis outcomes
// ==========================

func TestAnalysis_PreviewThenUnlock(t *testing.T) {
	f := newFixture(t, 0)
	f.runToResults(t, 5)

	snap := f.ctrl.Snapshot()
	want := createCandidates(5)
	assert.Equal(t, want[:3], snap.Visible)
	assert.Equal(t, 2, snap.Hidden)
	assert.Equal(t, "Showing Top 3 Preview.", snap.Caption)
	assert.Equal(t, "sess-1", snap.Session.SessionID)
	assert.Equal(t, "Seed investors", snap.Session.Persona())
	assert.False(t, snap.Session.Unlocked)
	assert.False(t, snap.Progress.Active)

	f.deliverer.On("Deliver", mock.Anything, mock.MatchedBy(func(req *delivery.Request) bool {
		return req.Email == "a@b.co" &&
			len(req.Candidates) == 5 &&
			req.Objective == "Find investors" &&
			req.Persona == "Seed investors" &&
			req.SummaryAnalysis == "Lead with traction" &&
			req.SessionID == "sess-1"
	})).Return(&delivery.Receipt{StatusCode: 200}, nil).Once()

	require.NoError(t, f.ctrl.Unlock(context.Background(), "a@b.co"))

	snap = f.ctrl.Snapshot()
	assert.True(t, snap.Session.Unlocked)
	assert.Equal(t, "a@b.co", snap.Session.ContactEmail)
	assert.Equal(t, want, snap.Visible)
	assert.Zero(t, snap.Hidden)
	assert.Equal(t, "Showing all 5 candidates.", snap.Caption)

	f.ctrl.Wait()
	f.deliverer.AssertExpectations(t)
}

func TestAnalysis_SmallResultSets(t *testing.T) {
	for n := 0; n <= 3; n++ {
		t.Run(fmt.Sprintf("%d candidates", n), func(t *testing.T) {
			f := newFixture(t, 0)
			f.runToResults(t, n)

			snap := f.ctrl.Snapshot()
			assert.Len(t, snap.Visible, n)
			assert.Zero(t, snap.Hidden)
			assert.NotNil(t, snap.Session.Candidates)
		})
	}
}

func TestAnalysis_FailureRevertsToIdle(t *testing.T) {
	f := newFixture(t, 0)
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).
		Return(nil, errors.NewAnalysisRequestFailedError(fmt.Errorf("%w: 502", analysis.ErrAnalysisFailed))).Once()
	f.prepare("Find investors")

	require.True(t, f.ctrl.Submit(context.Background()))
	f.ctrl.Wait()

	snap := f.ctrl.Snapshot()
	assert.Equal(t, models.StatusIdle, snap.Session.Status)
	assert.Equal(t, "We couldn't analyze your files. Please check the service and try again.", snap.Notice)
	assert.Nil(t, snap.Session.Candidates)
	assert.Nil(t, snap.Session.Strategy)
	assert.Empty(t, snap.Session.SessionID)
	assert.Empty(t, snap.Visible)
	assert.Equal(t, "Find investors", snap.Session.Objective)
	assert.Len(t, snap.Session.SourceFiles, 1)
	assert.True(t, snap.CanSubmit)
	assert.Equal(t, narrator.Progress{}, snap.Progress)
	assert.Zero(t, f.sched.Active())

	// Retry immediately with the same inputs.
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(createResult(4), nil).Once()
	require.True(t, f.ctrl.Submit(context.Background()))
	assert.Empty(t, f.ctrl.Snapshot().Notice)
	f.ctrl.Wait()
	assert.Equal(t, models.StatusResultsReady, f.ctrl.Snapshot().Session.Status)
}

func TestAnalysis_NilResultIsFailure(t *testing.T) {
	f := newFixture(t, 0)
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(nil, nil).Once()
	f.prepare("Find investors")

	require.True(t, f.ctrl.Submit(context.Background()))
	f.ctrl.Wait()

	snap := f.ctrl.Snapshot()
	assert.Equal(t, models.StatusIdle, snap.Session.Status)
	assert.Equal(t, "We couldn't analyze your files. Please check the service and try again.", snap.Notice)
	assert.Nil(t, snap.Session.Candidates)
	assert.True(t, snap.CanSubmit)
	assert.Zero(t, f.sched.Active())
}

func TestAnalysis_ProgressWhileAnalyzing(t *testing.T) {
	f := newFixture(t, 600*time.Millisecond)
	release := make(chan time.Time)
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(createResult(5), nil).WaitUntil(release).Once()
	f.prepare("Find investors")

	require.True(t, f.ctrl.Submit(context.Background()))
	snap := f.ctrl.Snapshot()
	assert.True(t, snap.Progress.Active)
	assert.Zero(t, snap.Progress.Percent)
	assert.Equal(t, narrator.DefaultPhrases[0], snap.Progress.Phrase)

	f.sched.Advance(2500 * time.Millisecond)
	snap = f.ctrl.Snapshot()
	assert.Equal(t, 12, snap.Progress.Percent)
	assert.Equal(t, 1, snap.Progress.PhraseIndex)

	f.sched.Advance(time.Minute)
	assert.Equal(t, 95, f.ctrl.Snapshot().Progress.Percent)

	close(release)
	require.Eventually(t, func() bool {
		return f.ctrl.Snapshot().Progress.Percent == 100 && f.sched.Pending() == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, models.StatusAnalyzing, f.ctrl.Snapshot().Session.Status)

	f.sched.Advance(600 * time.Millisecond)
	f.ctrl.Wait()

	snap = f.ctrl.Snapshot()
	assert.Equal(t, models.StatusResultsReady, snap.Session.Status)
	assert.False(t, snap.Progress.Active)
	assert.Zero(t, f.sched.Active())
}

func TestAnalysis_RelocksAfterNewScan(t *testing.T) {
	f := newFixture(t, 0)
	f.runToResults(t, 5)

	f.deliverer.On("Deliver", mock.Anything, mock.Anything).Return(&delivery.Receipt{StatusCode: 200}, nil)
	require.NoError(t, f.ctrl.Unlock(context.Background(), "a@b"))
	f.ctrl.Wait()

	require.True(t, f.ctrl.NewScan())
	f.runToResults(t, 5)

	snap := f.ctrl.Snapshot()
	assert.False(t, snap.Session.Unlocked)
	assert.Empty(t, snap.Session.ContactEmail)
	assert.Len(t, snap.Visible, 3)
}

// ==========================
// Unlock
// ==========================

func TestUnlock_InvalidEmail(t *testing.T) {
	f := newFixture(t, 0)
	f.runToResults(t, 5)

	for _, email := range []string{"", "user.example.com", "   "} {
		err := f.ctrl.Unlock(context.Background(), email)
		require.Error(t, err, email)
		assert.ErrorIs(t, err, ErrInvalidEmail)
		assert.Equal(t, "Please enter a valid email address.", errors.Notice(err))
	}

	f.ctrl.Wait()
	snap := f.ctrl.Snapshot()
	assert.False(t, snap.Session.Unlocked)
	assert.Len(t, snap.Visible, 3)
	f.deliverer.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
}

func TestUnlock_DeliveryFailureKeepsUnlocked(t *testing.T) {
	f := newFixture(t, 0)
	f.runToResults(t, 5)
	f.deliverer.On("Deliver", mock.Anything, mock.Anything).
		Return(&delivery.Receipt{StatusCode: 500}, errors.NewDeliveryFailedError(delivery.ErrDeliveryFailed)).Once()

	require.NoError(t, f.ctrl.Unlock(context.Background(), "a@b"))
	f.ctrl.Wait()

	snap := f.ctrl.Snapshot()
	assert.True(t, snap.Session.Unlocked)
	assert.Len(t, snap.Visible, 5)
	assert.Empty(t, snap.Notice)
}

func TestUnlock_NoOps(t *testing.T) {
	f := newFixture(t, 0)

	// idle
	require.NoError(t, f.ctrl.Unlock(context.Background(), "a@b"))
	assert.False(t, f.ctrl.Snapshot().Session.Unlocked)

	f.runToResults(t, 5)
	f.deliverer.On("Deliver", mock.Anything, mock.Anything).Return(&delivery.Receipt{StatusCode: 200}, nil).Once()
	require.NoError(t, f.ctrl.Unlock(context.Background(), "first@b"))
	require.NoError(t, f.ctrl.Unlock(context.Background(), "second@b"))
	f.ctrl.Wait()

	assert.Equal(t, "first@b", f.ctrl.Snapshot().Session.ContactEmail)
	f.deliverer.AssertNumberOfCalls(t, "Deliver", 1)
}

func TestUnlock_Monotone(t *testing.T) {
	f := newFixture(t, 0)
	f.runToResults(t, 5)
	f.deliverer.On("Deliver", mock.Anything, mock.Anything).Return(&delivery.Receipt{StatusCode: 200}, nil)
	require.NoError(t, f.ctrl.Unlock(context.Background(), "a@b"))

	require.NoError(t, f.ctrl.Unlock(context.Background(), "bad"))
	f.ctrl.Wait()
	assert.True(t, f.ctrl.Snapshot().Session.Unlocked)
}

// ==========================
// New scan
// ==========================

func TestNewScan_ResetsToInitial(t *testing.T) {
	f := newFixture(t, 0)
	f.runToResults(t, 5)
	f.deliverer.On("Deliver", mock.Anything, mock.Anything).Return(&delivery.Receipt{StatusCode: 200}, nil)
	require.NoError(t, f.ctrl.Unlock(context.Background(), "a@b"))
	f.ctrl.Wait()

	require.True(t, f.ctrl.NewScan())

	snap := f.ctrl.Snapshot()
	assert.Equal(t, models.Session{}, snap.Session)
	assert.Empty(t, snap.Notice)
	assert.False(t, snap.CanSubmit)
}

func TestNewScan_IgnoredWhileAnalyzingOrIdle(t *testing.T) {
	f := newFixture(t, 0)
	assert.False(t, f.ctrl.NewScan())

	release := make(chan time.Time)
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(createResult(2), nil).WaitUntil(release).Once()
	f.prepare("Find investors")
	require.True(t, f.ctrl.Submit(context.Background()))
	assert.False(t, f.ctrl.NewScan())

	close(release)
	f.ctrl.Wait()
	assert.Equal(t, models.StatusResultsReady, f.ctrl.Snapshot().Session.Status)
}

// ==========================
// Observation and lifecycle
// ==========================

func TestSubscribe_ReceivesLatestState(t *testing.T) {
	f := newFixture(t, 0)

	var mu sync.Mutex
	var last Snapshot
	unsubscribe := f.ctrl.Subscribe(func(s Snapshot) {
		mu.Lock()
		last = s
		mu.Unlock()
	})

	f.runToResults(t, 5)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last.Session.Status == models.StatusResultsReady && len(last.Visible) == 3
	}, time.Second, time.Millisecond)

	unsubscribe()
	unsubscribe()
	f.ctrl.NewScan()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, models.StatusResultsReady, last.Session.Status)
}

func TestSnapshot_IsCallerOwned(t *testing.T) {
	f := newFixture(t, 0)
	f.runToResults(t, 5)

	snap := f.ctrl.Snapshot()
	snap.Session.Candidates[0].Name = "changed"
	snap.Visible[1].Name = "changed"

	again := f.ctrl.Snapshot()
	assert.Equal(t, "Contact 0", again.Session.Candidates[0].Name)
	assert.Equal(t, "Contact 1", again.Visible[1].Name)
}

func TestSnapshot_SeqAdvancesWithEveryChange(t *testing.T) {
	f := newFixture(t, 0)
	f.deliverer.On("Deliver", mock.Anything, mock.Anything).Return(&delivery.Receipt{StatusCode: 200}, nil)

	last := f.ctrl.Snapshot().Seq
	advanced := func(step string) {
		t.Helper()
		seq := f.ctrl.Snapshot().Seq
		assert.Greater(t, seq, last, step)
		last = seq
	}

	f.ctrl.SetObjective("Find investors")
	advanced("objective")
	f.ctrl.SelectFiles([]models.SourceFile{{Name: "a.csv"}})
	advanced("files")

	f.analyzer.On("Analyze", mock.Anything, mock.Anything).Return(createResult(5), nil).Once()
	require.True(t, f.ctrl.Submit(context.Background()))
	f.ctrl.Wait()
	advanced("results")

	f.sched.Advance(time.Hour)
	assert.Equal(t, last, f.ctrl.Snapshot().Seq, "no ticks after analyzing")

	require.NoError(t, f.ctrl.Unlock(context.Background(), "a@b.co"))
	advanced("unlock")
	f.ctrl.Wait()

	// Rejected operations leave the sequence alone.
	assert.NoError(t, f.ctrl.Unlock(context.Background(), "x@y.z"))
	assert.False(t, f.ctrl.SetObjective("ignored"))
	assert.Equal(t, last, f.ctrl.Snapshot().Seq)

	require.True(t, f.ctrl.NewScan())
	advanced("new scan")
}

func TestSnapshot_SeqAdvancesWithProgress(t *testing.T) {
	f := newFixture(t, 0)
	release := make(chan struct{})
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(createResult(1), nil).Once()
	f.prepare("Find investors")
	require.True(t, f.ctrl.Submit(context.Background()))

	before := f.ctrl.Snapshot()
	f.sched.Advance(400 * time.Millisecond)
	after := f.ctrl.Snapshot()
	assert.Greater(t, after.Progress.Percent, before.Progress.Percent)
	assert.Greater(t, after.Seq, before.Seq)

	close(release)
	f.ctrl.Wait()
}

func TestClose_DiscardsInFlightAnalysis(t *testing.T) {
	f := newFixture(t, 0)
	f.analyzer.On("Analyze", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()
	f.prepare("Find investors")
	require.True(t, f.ctrl.Submit(context.Background()))

	f.ctrl.Close()

	snap := f.ctrl.Snapshot()
	assert.Empty(t, snap.Notice)
	assert.Nil(t, snap.Session.Candidates)
	assert.Zero(t, f.sched.Active())
	assert.False(t, f.ctrl.Submit(context.Background()))
	f.ctrl.Close()
}

func TestNew_RequiresServices(t *testing.T) {
	_, err := New(Options{Deliverer: new(MockDeliverer)})
	assert.Error(t, err)
	_, err = New(Options{Analyzer: new(MockAnalyzer)})
	assert.Error(t, err)
}
