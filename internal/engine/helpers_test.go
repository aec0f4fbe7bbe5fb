package engine

import (
	"testing"
	"time"

	"github.com/septivank/energy-insight-engine/internal/clock"
	"github.com/septivank/energy-insight-engine/internal/config"
	"github.com/septivank/energy-insight-engine/internal/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC)

func testConfig() config.EngineConfig {
	return config.EngineConfig{
		Timezone:           "UTC",
		InsightWindow:      24 * time.Hour,
		BillingCycle:       30 * 24 * time.Hour,
		TipDedupWindow:     7 * 24 * time.Hour,
		MaxTips:            2,
		LowCreditPolicy:    config.NotifyOncePerCrossing,
		NotifyOnExhausted:  true,
		NotificationWindow: 24 * time.Hour,
	}
}

// firstTips picks catalog-ordered tips so assertions are deterministic
func firstTips(eligible []db.Tip, n int) []db.Tip {
	if n > len(eligible) {
		n = len(eligible)
	}
	return eligible[:n]
}

func newTestEngine(t *testing.T, store Store, cfg config.EngineConfig, logger *zap.Logger, opts ...Option) (*Engine, *recordingPublisher) {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	pub := &recordingPublisher{}
	opts = append([]Option{WithClock(clock.Fixed(testNow)), WithTipPicker(firstTips)}, opts...)
	e, err := New(store, pub, cfg, logger, opts...)
	require.NoError(t, err)
	return e, pub
}

func at(hour int) time.Time {
	return time.Date(2025, 3, 15, hour, 0, 0, 0, time.UTC)
}

func ptr(v float64) *float64 { return &v }

func fixedClock(t time.Time) clock.Fixed { return clock.Fixed(t) }
