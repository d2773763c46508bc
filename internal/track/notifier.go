package track

import "log/slog"

// Notifier receives engine progress callbacks. Implementations are invoked
// from the engine's coordinating goroutine and must not block.
type Notifier interface {
	// CycleStarted fires when a check cycle begins, with the task count.
	CycleStarted(total int)
	// TaskChecked fires after each task is reconciled.
	TaskChecked(checked, total int)
	// CycleFinished fires once every task of the cycle is accounted for.
	CycleFinished(report CycleReport)
	// StoreChanged fires whenever reconciliation mutated the store.
	StoreChanged()
}

// NopNotifier ignores all callbacks.
type NopNotifier struct{}

func (NopNotifier) CycleStarted(int)          {}
func (NopNotifier) TaskChecked(int, int)      {}
func (NopNotifier) CycleFinished(CycleReport) {}
func (NopNotifier) StoreChanged()             {}

// LogNotifier reports cycle progress through structured logs. The per-task
// callback logs at debug so long cycles stay quiet at the default level.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs through logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) CycleStarted(total int) {
	n.logger.Info("checking tracked runs", slog.Int("total", total))
}

func (n *LogNotifier) TaskChecked(checked, total int) {
	n.logger.Debug("task checked", slog.Int("checked", checked), slog.Int("total", total))
}

func (n *LogNotifier) CycleFinished(report CycleReport) {
	n.logger.Info("check cycle finished",
		slog.Int("total", report.Total),
		slog.Int("updated", report.Updated),
		slog.Int("new_records", report.NewRecords),
		slog.Int("obsoleted", report.Obsoleted),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration),
	)
}

func (n *LogNotifier) StoreChanged() {}
