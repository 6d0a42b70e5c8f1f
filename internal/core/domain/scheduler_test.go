package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	assert.Equal(t, 30*time.Second, config.BaseBackoff)
	assert.Equal(t, 5*time.Minute, config.MaxBackoff)
	assert.Equal(t, time.Minute, config.ConstraintRecheck)
	assert.Equal(t, 100, config.HistoryLimit)
}

func TestSchedulerConfig_Backoff(t *testing.T) {
	config := SchedulerConfig{BaseBackoff: 30 * time.Second, MaxBackoff: 5 * time.Minute}

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 30 * time.Second},
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 120 * time.Second},
		{4, 240 * time.Second},
		{5, 5 * time.Minute},
		{50, 5 * time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, config.Backoff(tt.attempts), "attempts=%d", tt.attempts)
	}
}

func TestSchedulerConfig_Backoff_NoCap(t *testing.T) {
	config := SchedulerConfig{BaseBackoff: time.Second}
	assert.Equal(t, 8*time.Second, config.Backoff(4))
}

func TestReconcileResult_String(t *testing.T) {
	assert.Equal(t, "success", ResultSuccess.String())
	assert.Equal(t, "retry", ResultRetry.String())
	assert.Equal(t, "fail", ResultFail.String())
	assert.Equal(t, "unknown", ReconcileResult(42).String())
}

func TestTagConstants(t *testing.T) {
	assert.Equal(t, "artwork-load-next", TagLoadNext)
	assert.Equal(t, "artwork-load-periodic", TagLoadPeriodic)
	assert.Equal(t, "persistent_changed", TagPersistentChanged)
	assert.Equal(t, string(TriggerPersistentChange), TagPersistentChanged)
}
