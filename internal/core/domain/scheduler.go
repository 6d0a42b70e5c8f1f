package domain

import "time"

// ReconcileTrigger describes why a reconciliation runs.
type ReconcileTrigger string

const (
	// TriggerSelected runs when a provider just became active.
	TriggerSelected ReconcileTrigger = "selected"

	// TriggerChanged runs when the provider's underlying data changed.
	TriggerChanged ReconcileTrigger = "changed"

	// TriggerPersistentChange runs when the low-power listener fired while
	// no in-process observer existed.
	TriggerPersistentChange ReconcileTrigger = "persistent_changed"
)

// ReconcileRequest carries a trigger and, for persistent changes, the
// content URI the listener was registered on.
type ReconcileRequest struct {
	Trigger    ReconcileTrigger
	ContentURI string
}

// ReconcileResult is the three-valued outcome of a unit of sync work.
type ReconcileResult int

const (
	// ResultSuccess means the work completed.
	ResultSuccess ReconcileResult = iota
	// ResultRetry means the work should be retried with backoff.
	ResultRetry
	// ResultFail means there is nothing to do; the job is dropped.
	ResultFail
)

// String returns the lowercase name of the result.
func (r ReconcileResult) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultRetry:
		return "retry"
	case ResultFail:
		return "fail"
	default:
		return "unknown"
	}
}

// SchedulingIntent is the computed load decision for one reconciliation.
// It is derived fresh every time and never stored.
type SchedulingIntent struct {
	// LoadNow requests an immediate artwork load.
	LoadNow bool

	// PeriodicInterval is the recurring load interval; zero disables it.
	PeriodicInterval time.Duration

	// WifiOnly restricts periodic loads to unmetered networks.
	WifiOnly bool
}

// JobKind distinguishes how a job is triggered.
type JobKind string

const (
	// JobOneOff runs once as soon as possible.
	JobOneOff JobKind = "one_off"
	// JobPeriodic runs every Interval.
	JobPeriodic JobKind = "periodic"
	// JobContentChange runs once, the next time ContentURI changes.
	JobContentChange JobKind = "content_change"
)

// JobConstraints restricts when a job may run.
type JobConstraints struct {
	// WifiOnly defers the job while the device is on a metered network.
	WifiOnly bool
}

// Job is a unit of deferred work owned by the job scheduler.
type Job struct {
	// ID is the unique identifier for the job.
	ID string

	// Tag groups jobs for idempotent cancellation.
	Tag string

	// Kind says how the job is triggered.
	Kind JobKind

	// Payload is handler-specific input data.
	Payload map[string]string

	// Interval is the period of a periodic job.
	Interval time.Duration

	// ContentURI is the locator a content-change job listens on.
	ContentURI string

	// Constraints restrict when the job may run.
	Constraints JobConstraints

	// NextRun is when the job is due. Zero for content-change jobs that
	// have not fired yet.
	NextRun time.Time

	// Attempts counts consecutive retries.
	Attempts int

	// CreatedAt is when the job was first enqueued.
	CreatedAt time.Time
}

// JobResult represents the outcome of a job execution.
type JobResult struct {
	// JobID identifies which job was run.
	JobID string

	// Tag is the job's tag.
	Tag string

	// StartedAt is when the job started.
	StartedAt time.Time

	// EndedAt is when the job completed.
	EndedAt time.Time

	// Result is the handler outcome.
	Result ReconcileResult
}

// Job tags understood by the scheduler's handlers.
const (
	TagLoadNext          = "artwork-load-next"
	TagLoadPeriodic      = "artwork-load-periodic"
	TagProviderSelected  = "provider-selected"
	TagProviderChanged   = "provider-changed"
	TagPersistentChanged = "persistent_changed"
)

// Payload keys.
const (
	PayloadTrigger    = "trigger"
	PayloadContentURI = "content_uri"
)

// SchedulerConfig holds job scheduler configuration.
type SchedulerConfig struct {
	// BaseBackoff is the first retry delay.
	BaseBackoff time.Duration

	// MaxBackoff caps the retry delay.
	MaxBackoff time.Duration

	// ConstraintRecheck is how long a job blocked by its constraints waits
	// before it is evaluated again.
	ConstraintRecheck time.Duration

	// HistoryLimit is how many results are kept per tag.
	HistoryLimit int
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		BaseBackoff:       30 * time.Second,
		MaxBackoff:        5 * time.Minute,
		ConstraintRecheck: time.Minute,
		HistoryLimit:      100,
	}
}

// Backoff returns the retry delay after the given number of attempts.
// The delay doubles per attempt starting at BaseBackoff, capped at MaxBackoff.
func (c SchedulerConfig) Backoff(attempts int) time.Duration {
	d := c.BaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	if c.MaxBackoff > 0 && d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}
