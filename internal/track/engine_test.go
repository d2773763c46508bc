package track

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runpulse/runpulse/internal/srcom"
)

// fakeFetcher serves canned leaderboards keyed by category id and records
// peak concurrency. A non-nil gate blocks every fetch until it is closed.
type fakeFetcher struct {
	mu    sync.Mutex
	times map[string]float64
	errs  map[string]error

	delay time.Duration
	gate  chan struct{}

	inflight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (f *fakeFetcher) Leaderboard(ctx context.Context, gameID, categoryID, levelID string, variables map[string]string) (*srcom.Leaderboard, error) {
	f.calls.Add(1)

	cur := f.inflight.Add(1)
	defer f.inflight.Add(-1)

	for {
		p := f.peak.Load()
		if cur <= p || f.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.errs[categoryID]; ok {
		return nil, err
	}

	secs, ok := f.times[categoryID]
	if !ok {
		return &srcom.Leaderboard{}, nil
	}

	return boardWith("run-"+categoryID, secs, "runner1"), nil
}

// startEngine runs the engine loop in the background and returns a stop
// function that shuts it down and waits for the final state write.
func startEngine(t *testing.T, e *Engine) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- e.Run(ctx) }()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			cancel()

			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("engine did not stop")
			}
		})
	}
	t.Cleanup(stop)

	return stop
}

func waitReport(t *testing.T, ch <-chan CycleReport) CycleReport {
	t.Helper()

	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for cycle report")
		return CycleReport{}
	}
}

func engineFixture(t *testing.T, f Fetcher, cfg EngineConfig) (*Engine, *Store, string) {
	t.Helper()

	s := NewStore(testLogger())
	path := filepath.Join(t.TempDir(), "state.json")

	cfg.Store = s
	cfg.Writer = NewWriter(path, 50*time.Millisecond, testLogger())
	cfg.Fetcher = f
	cfg.Logger = testLogger()

	return NewEngine(cfg), s, path
}

func TestEngineCycleDetectsNewRecord(t *testing.T) {
	f := &fakeFetcher{times: map[string]float64{"cat1": 118.0}}
	e, s, path := engineFixture(t, f, EngineConfig{})

	run := newRun("Any%", 120.5)
	s.Upsert("game1", GameMeta{Name: "Game"}, "", "", ConfigKey("cat1", nil), run)

	stop := startEngine(t, e)

	ch, err := e.RunCycle(context.Background())
	require.NoError(t, err)

	report := waitReport(t, ch)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.NewRecords)
	assert.False(t, e.IsChecking())

	stop()

	// Shutdown flushes pending state synchronously.
	assert.FileExists(t, path)

	loaded := NewStore(testLogger())
	require.NoError(t, loaded.Load(path))
	got, ok := loaded.Get("game1", ConfigKey("cat1", nil), "")
	require.True(t, ok)
	assert.InDelta(t, 118.0, *got.Time, 0.0001)
	assert.True(t, got.NewRecordBroken)
}

func TestEngineEmptyCycle(t *testing.T) {
	e, _, _ := engineFixture(t, &fakeFetcher{}, EngineConfig{})
	startEngine(t, e)

	ch, err := e.RunCycle(context.Background())
	require.NoError(t, err)

	report := waitReport(t, ch)
	assert.Zero(t, report.Total)
}

func TestEngineRejectsConcurrentCycle(t *testing.T) {
	gate := make(chan struct{})
	f := &fakeFetcher{times: map[string]float64{"cat1": 100}, gate: gate}
	e, s, _ := engineFixture(t, f, EngineConfig{})

	s.Upsert("game1", GameMeta{Name: "Game"}, "", "", ConfigKey("cat1", nil), newRun("Any%", 100))

	startEngine(t, e)

	ch, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, e.IsChecking())

	_, err = e.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)

	close(gate)
	waitReport(t, ch)

	// Once idle, a new cycle is accepted again.
	ch, err = e.RunCycle(context.Background())
	require.NoError(t, err)
	waitReport(t, ch)
}

func TestEngineWorkerCeiling(t *testing.T) {
	f := &fakeFetcher{times: map[string]float64{}, delay: 10 * time.Millisecond}
	e, s, _ := engineFixture(t, f, EngineConfig{MaxWorkers: 2})

	for _, cat := range []string{"c1", "c2", "c3", "c4", "c5", "c6"} {
		f.times[cat] = 100
		s.Upsert("game1", GameMeta{Name: "Game"}, "", "", ConfigKey(cat, nil), newRun("Any%", 100))
	}

	startEngine(t, e)

	ch, err := e.RunCycle(context.Background())
	require.NoError(t, err)

	report := waitReport(t, ch)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, int32(6), f.calls.Load())
	assert.LessOrEqual(t, f.peak.Load(), int32(2))
}

func TestEngineObsoleteLeavesRotation(t *testing.T) {
	f := &fakeFetcher{
		times: map[string]float64{"cat2": 100},
		errs: map[string]error{
			"cat1": &srcom.APIError{StatusCode: 404, Kind: srcom.KindNotFound, Err: srcom.ErrNotFound},
		},
	}
	e, s, _ := engineFixture(t, f, EngineConfig{})

	s.Upsert("game1", GameMeta{Name: "Game"}, "", "", ConfigKey("cat1", nil), newRun("Any%", 120))
	s.Upsert("game1", GameMeta{Name: "Game"}, "", "", ConfigKey("cat2", nil), newRun("100%", 100))

	startEngine(t, e)

	ch, err := e.RunCycle(context.Background())
	require.NoError(t, err)

	report := waitReport(t, ch)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Obsoleted)

	ch, err = e.RunCycle(context.Background())
	require.NoError(t, err)

	report = waitReport(t, ch)
	assert.Equal(t, 1, report.Total, "obsolete run is no longer checked")
}

func TestEngineDoInterleavesWithCycle(t *testing.T) {
	gate := make(chan struct{})
	f := &fakeFetcher{times: map[string]float64{"cat1": 50}, gate: gate}
	e, s, _ := engineFixture(t, f, EngineConfig{})

	key := ConfigKey("cat1", nil)
	s.Upsert("game1", GameMeta{Name: "Game"}, "", "", key, newRun("Any%", 100))

	startEngine(t, e)

	ch, err := e.RunCycle(context.Background())
	require.NoError(t, err)

	// Untrack the run while its check is stuck in flight.
	var removed bool
	require.NoError(t, e.Do(context.Background(), func() {
		removed = s.Remove("game1", key, "")
	}))
	require.True(t, removed)

	close(gate)

	report := waitReport(t, ch)
	assert.Equal(t, 1, report.Total)
	assert.Zero(t, report.NewRecords, "result for an untracked run is discarded")
	assert.Zero(t, report.Updated)

	_, ok := s.Game("game1")
	assert.False(t, ok)
}

func TestEngineFailedChecksCountWithoutMutation(t *testing.T) {
	f := &fakeFetcher{
		errs: map[string]error{
			"cat1": &srcom.APIError{Kind: srcom.KindRetriesExhausted, Err: srcom.ErrRetriesExhausted},
		},
	}
	e, s, _ := engineFixture(t, f, EngineConfig{})

	s.Upsert("game1", GameMeta{Name: "Game"}, "", "", ConfigKey("cat1", nil), newRun("Any%", 120))

	startEngine(t, e)

	ch, err := e.RunCycle(context.Background())
	require.NoError(t, err)

	report := waitReport(t, ch)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Updated)

	run, _ := s.Get("game1", ConfigKey("cat1", nil), "")
	assert.InDelta(t, 120, *run.Time, 0.0001)
	assert.False(t, run.Obsolete)
}

func TestEngineAbandonedCycleStillHoldsBusy(t *testing.T) {
	gate := make(chan struct{})
	f := &fakeFetcher{times: map[string]float64{"cat1": 100}, gate: gate}
	e, s, _ := engineFixture(t, f, EngineConfig{})

	s.Upsert("game1", GameMeta{Name: "Game"}, "", "", ConfigKey("cat1", nil), newRun("Any%", 100))

	// Queue a cycle request while the coordinator is not yet running,
	// then abandon the call before it executes.
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := e.RunCycle(ctx)
		errCh <- err
	}()

	require.Eventually(t, func() bool { return len(e.cmds) == 1 }, 2*time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	startEngine(t, e)

	// The queued cycle runs anyway and keeps the busy flag until it
	// finishes, so a second cycle cannot overlap it.
	require.Eventually(t, e.IsChecking, 2*time.Second, 5*time.Millisecond)

	_, err := e.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)

	close(gate)

	require.Eventually(t, func() bool { return !e.IsChecking() }, 2*time.Second, 5*time.Millisecond)

	ch, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	waitReport(t, ch)
}

func TestEngineSecondCycleUnchangedSkipsWrite(t *testing.T) {
	f := &fakeFetcher{times: map[string]float64{"cat1": 118.0}}
	e, s, path := engineFixture(t, f, EngineConfig{})

	s.Upsert("game1", GameMeta{Name: "Game"}, "", "", ConfigKey("cat1", nil), newRun("Any%", 120.5))

	startEngine(t, e)

	ch, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	report := waitReport(t, ch)
	require.Equal(t, 1, report.NewRecords)

	// Wait for the debounced write from the first cycle to land.
	require.Eventually(t, func() bool {
		dirty := true
		if err := e.Do(context.Background(), func() { dirty = e.writer.Dirty() }); err != nil {
			return false
		}

		return !dirty
	}, 5*time.Second, 10*time.Millisecond)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	ch, err = e.RunCycle(context.Background())
	require.NoError(t, err)

	report = waitReport(t, ch)
	assert.Zero(t, report.Updated)
	assert.Zero(t, report.NewRecords)

	var dirty bool
	require.NoError(t, e.Do(context.Background(), func() { dirty = e.writer.Dirty() }))
	assert.False(t, dirty, "unchanged store does not arm another write")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEngineDoAfterStop(t *testing.T) {
	e, _, _ := engineFixture(t, &fakeFetcher{}, EngineConfig{})

	stop := startEngine(t, e)
	stop()

	err := e.Do(context.Background(), func() {})
	assert.ErrorIs(t, err, ErrEngineStopped)

	_, err = e.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrEngineStopped)
}
