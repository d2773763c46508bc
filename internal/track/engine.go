package track

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/runpulse/runpulse/internal/srcom"
)

const (
	// DefaultMaxWorkers caps how many leaderboard fetches run at once.
	DefaultMaxWorkers = 100
	// DefaultDrainInterval is how often the coordinator drains finished
	// checks and gives the debounced writer a chance to flush.
	DefaultDrainInterval = 25 * time.Millisecond
	// DefaultShutdownTimeout bounds how long shutdown waits for in-flight
	// workers after cancelling them.
	DefaultShutdownTimeout = 5 * time.Second
)

// ErrCycleInProgress is returned when a check cycle is requested while one
// is already running.
var ErrCycleInProgress = errors.New("track: check cycle already in progress")

// ErrEngineStopped is returned by Do and RunCycle once the coordinating
// loop has exited.
var ErrEngineStopped = errors.New("track: engine stopped")

// Fetcher fetches one leaderboard. Satisfied by *srcom.Client.
type Fetcher interface {
	Leaderboard(ctx context.Context, gameID, categoryID, levelID string, variables map[string]string) (*srcom.Leaderboard, error)
}

// EngineConfig wires an engine together. Store, Writer, and Fetcher are
// required; everything else has defaults.
type EngineConfig struct {
	Store    *Store
	Writer   *Writer
	Fetcher  Fetcher
	Notifier Notifier
	Logger   *slog.Logger

	MaxWorkers      int
	DrainInterval   time.Duration
	ShutdownTimeout time.Duration
}

// checkResult is one finished fetch, queued for the coordinator.
type checkResult struct {
	task  CheckTask
	board *srcom.Leaderboard
	err   error
}

// cycleState tracks one in-flight check cycle. Owned by the coordinator.
type cycleState struct {
	id      string
	total   int
	checked int
	report  CycleReport
	started time.Time

	cancel       context.CancelFunc
	dispatchDone chan struct{}
	done         chan CycleReport
}

// Engine runs check cycles: a bounded pool of fetch workers feeds results
// to a single coordinating goroutine that owns the store, the reconciler,
// and the writer. All store access goes through that goroutine, either as
// reconciliation or as a function posted via Do.
type Engine struct {
	store      *Store
	writer     *Writer
	fetcher    Fetcher
	notifier   Notifier
	reconciler *Reconciler
	logger     *slog.Logger

	maxWorkers      int
	drainInterval   time.Duration
	shutdownTimeout time.Duration

	checking atomic.Bool
	cmds     chan func()
	results  chan checkResult
	stopped  chan struct{}

	// Coordinator-owned, never touched from outside Run.
	cycle  *cycleState
	runCtx context.Context
}

// NewEngine creates an engine from the config, filling in defaults.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}

	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = DefaultDrainInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		store:           cfg.Store,
		writer:          cfg.Writer,
		fetcher:         cfg.Fetcher,
		notifier:        cfg.Notifier,
		reconciler:      NewReconciler(cfg.Store, cfg.Logger),
		logger:          cfg.Logger,
		maxWorkers:      cfg.MaxWorkers,
		drainInterval:   cfg.DrainInterval,
		shutdownTimeout: cfg.ShutdownTimeout,
		cmds:            make(chan func(), 16),
		results:         make(chan checkResult, cfg.MaxWorkers),
		stopped:         make(chan struct{}),
	}
}

// IsChecking reports whether a check cycle is currently running. Safe from
// any goroutine.
func (e *Engine) IsChecking() bool {
	return e.checking.Load()
}

// Run is the coordinating loop. It executes posted functions, drains
// finished checks, and lets the writer flush on a debounce tick. It returns
// after ctx is cancelled, once in-flight workers have stopped and pending
// state has been written.
func (e *Engine) Run(ctx context.Context) error {
	e.runCtx = ctx

	ticker := time.NewTicker(e.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			close(e.stopped)

			return nil
		case fn := <-e.cmds:
			fn()
		case res := <-e.results:
			e.handleResult(res)
			e.drainResults()
			e.flushTick()
		case <-ticker.C:
			e.drainResults()
			e.flushTick()
		}
	}
}

// Do runs fn on the coordinating goroutine and waits for it to finish.
// This is how commands read or mutate the store while the engine runs.
// Once the coordinator has exited, Do fails with ErrEngineStopped instead
// of parking the caller on a queue nobody drains.
func (e *Engine) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})

	select {
	case e.cmds <- func() { fn(); close(done) }:
	case <-e.stopped:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-e.stopped:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunCycle starts a check cycle over a snapshot of the store's active runs.
// The returned channel delivers the cycle report and is then closed. If a
// cycle is already running, ErrCycleInProgress is returned and no new cycle
// starts.
//
// Admission happens on the coordinating goroutine, so at most one cycle is
// ever in flight even when a caller abandons its request: a queued cycle
// whose caller's ctx was cancelled still runs, still holds the busy flag,
// and releases it through finishCycle like any other. The report channel is
// buffered so an abandoned cycle can complete without a reader.
func (e *Engine) RunCycle(ctx context.Context) (<-chan CycleReport, error) {
	done := make(chan CycleReport, 1)
	admitted := false

	if err := e.Do(ctx, func() {
		admitted = e.checking.CompareAndSwap(false, true)
		if admitted {
			e.startCycle(done)
		}
	}); err != nil {
		return nil, err
	}

	if !admitted {
		return nil, ErrCycleInProgress
	}

	return done, nil
}

func (e *Engine) startCycle(done chan CycleReport) {
	tasks := e.store.ActiveTasks()

	c := &cycleState{
		id:           uuid.NewString(),
		total:        len(tasks),
		started:      time.Now(),
		dispatchDone: make(chan struct{}),
		done:         done,
	}
	c.report = CycleReport{ID: c.id, Total: c.total}
	e.cycle = c

	e.notifier.CycleStarted(c.total)
	e.logger.Info("check cycle started",
		slog.String("cycle_id", c.id),
		slog.Int("total", c.total),
	)

	if c.total == 0 {
		close(c.dispatchDone)
		e.finishCycle()

		return
	}

	wctx, cancel := context.WithCancel(e.runCtx)
	c.cancel = cancel

	go e.dispatch(wctx, c, tasks)
}

// dispatch fans the cycle's tasks out over a bounded worker pool. Workers
// never return errors into the group, so one failed fetch cannot cancel its
// siblings; failures travel in the result instead.
func (e *Engine) dispatch(ctx context.Context, c *cycleState, tasks []CheckTask) {
	defer close(c.dispatchDone)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxWorkers)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			board, err := e.check(gctx, task)

			select {
			case e.results <- checkResult{task: task, board: board, err: err}:
			case <-gctx.Done():
			}

			return nil
		})
	}

	_ = g.Wait()
}

func (e *Engine) check(ctx context.Context, task CheckTask) (*srcom.Leaderboard, error) {
	categoryID, variables, err := ParseKey(task.Key)
	if err != nil {
		return nil, err
	}

	return e.fetcher.Leaderboard(ctx, task.GameID, categoryID, task.LevelID, variables)
}

func (e *Engine) drainResults() {
	for {
		select {
		case res := <-e.results:
			e.handleResult(res)
		default:
			return
		}
	}
}

func (e *Engine) handleResult(res checkResult) {
	c := e.cycle
	if c == nil {
		return
	}

	outcome := e.reconciler.Reconcile(res.task, res.board, res.err)
	c.checked++

	switch outcome {
	case OutcomeNewRecord:
		c.report.NewRecords++
		c.report.Updated++
		e.storeChanged()
	case OutcomeUpdated:
		c.report.Updated++
		e.storeChanged()
	case OutcomeObsolete:
		c.report.Obsoleted++
		e.storeChanged()
	case OutcomeFailed:
		c.report.Failed++
	}

	e.notifier.TaskChecked(c.checked, c.total)

	if c.checked == c.total {
		e.finishCycle()
	}
}

// storeChanged marks state dirty for the debounced writer and tells
// listeners the store moved under them.
func (e *Engine) storeChanged() {
	e.writer.MarkDirty()
	e.notifier.StoreChanged()
}

func (e *Engine) flushTick() {
	if err := e.writer.MaybeFlush(e.store); err != nil {
		e.logger.Error("saving state failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) finishCycle() {
	c := e.cycle
	c.report.Duration = time.Since(c.started)

	if c.cancel != nil {
		c.cancel()
	}

	e.cycle = nil
	e.checking.Store(false)

	e.logger.Info("check cycle finished",
		slog.String("cycle_id", c.id),
		slog.Int("total", c.report.Total),
		slog.Int("updated", c.report.Updated),
		slog.Int("new_records", c.report.NewRecords),
		slog.Int("obsoleted", c.report.Obsoleted),
		slog.Int("failed", c.report.Failed),
		slog.Duration("duration", c.report.Duration),
	)

	e.notifier.CycleFinished(c.report)

	if c.done != nil {
		c.done <- c.report
		close(c.done)
	}
}

// shutdown cancels in-flight workers, waits for them up to the shutdown
// timeout, and writes any pending state synchronously.
func (e *Engine) shutdown() {
	if c := e.cycle; c != nil {
		if c.cancel != nil {
			c.cancel()
		}

		select {
		case <-c.dispatchDone:
		case <-time.After(e.shutdownTimeout):
			e.logger.Warn("workers did not stop before shutdown timeout")
		}

		e.cycle = nil
		e.checking.Store(false)
	}

	if e.writer.Dirty() {
		if err := e.writer.Flush(e.store); err != nil {
			e.logger.Error("final state write failed", slog.String("error", err.Error()))
		}
	}
}
