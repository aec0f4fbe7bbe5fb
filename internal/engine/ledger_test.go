package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/septivank/energy-insight-engine/internal/config"
	"github.com/septivank/energy-insight-engine/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// creditStore has one user with a single billed reading costing cost
func creditStore(balance, threshold, cost float64) *fakeStore {
	store := newFakeStore()
	store.addUser(1, balance, threshold)
	store.addDevice(10, 1, "Fridge", db.DeviceAppliance)
	if cost > 0 {
		r := store.addReading(10, testNow.Add(-48*time.Hour), cost)
		r.DurationHours = ptr(1)
		r.Rate = ptr(1)
	}
	return store
}

func TestGetRemainingCredit_LowCreditEndToEnd(t *testing.T) {
	store := creditStore(200, 60, 0)
	r := store.addReading(10, testNow.Add(-2*24*time.Hour), 1000)
	r.DurationHours = ptr(0.5)
	r.Rate = ptr(0.3)

	e, pub := newTestEngine(t, store, testConfig(), nil)

	status, err := e.GetRemainingCredit(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, status.Remaining.Equal(decimal.NewFromInt(50)), "remaining %s", status.Remaining)
	assert.True(t, status.Threshold.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, testNow.Add(30*24*time.Hour), status.BillingCycleEnd)

	require.Len(t, store.notifications, 1)
	assert.Equal(t, db.NotificationLowCredit, store.notifications[0].Type)
	assert.Equal(t, "Your remaining power credit is low: 50.00", store.notifications[0].Message)

	require.Len(t, pub.notifications, 1)
	assert.Equal(t, int64(1), pub.notifications[0].UserID)
	assert.NotEmpty(t, pub.notifications[0].EventID)
}

func TestGetRemainingCredit_EmptyReadings(t *testing.T) {
	store := creditStore(200, 60, 0)
	e, _ := newTestEngine(t, store, testConfig(), nil)

	status, err := e.GetRemainingCredit(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, status.Remaining.Equal(decimal.NewFromInt(200)))
	assert.Empty(t, store.notifications)
}

func TestGetRemainingCredit_IgnoresReadingsBeforeCycle(t *testing.T) {
	store := creditStore(200, 60, 0)
	r := store.addReading(10, testNow.Add(-31*24*time.Hour), 500)
	r.DurationHours = ptr(1)
	r.Rate = ptr(1)

	e, _ := newTestEngine(t, store, testConfig(), nil)

	status, err := e.GetRemainingCredit(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, status.Remaining.Equal(decimal.NewFromInt(200)))
}

func TestGetRemainingCredit_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		name      string
		cost      float64
		wantTypes []string
	}{
		{"above threshold", 100, nil},
		{"exactly at threshold", 140, []string{db.NotificationLowCredit}},
		{"just above zero", 199.99, []string{db.NotificationLowCredit}},
		{"exactly zero", 200, []string{db.NotificationCreditExhausted}},
		{"negative", 250, []string{db.NotificationCreditExhausted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := creditStore(200, 60, tt.cost)
			e, _ := newTestEngine(t, store, testConfig(), nil)

			_, err := e.GetRemainingCredit(context.Background(), 1)
			require.NoError(t, err)

			var got []string
			for _, n := range store.notifications {
				got = append(got, n.Type)
			}
			assert.Equal(t, tt.wantTypes, got)
		})
	}
}

func TestGetRemainingCredit_NegativeRemainingSurfaced(t *testing.T) {
	store := creditStore(100, 60, 150)
	cfg := testConfig()
	cfg.NotifyOnExhausted = false
	e, _ := newTestEngine(t, store, cfg, nil)

	status, err := e.GetRemainingCredit(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, status.Remaining.Equal(decimal.NewFromInt(-50)))
	assert.Empty(t, store.notifications)
}

func TestGetRemainingCredit_NotifyPolicy(t *testing.T) {
	tests := []struct {
		policy string
		want   int
	}{
		{config.NotifyOncePerCrossing, 1},
		{config.NotifyOncePerCycle, 1},
		{config.NotifyAlways, 3},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			store := creditStore(200, 60, 150)
			cfg := testConfig()
			cfg.LowCreditPolicy = tt.policy
			e, pub := newTestEngine(t, store, cfg, nil)

			for i := 0; i < 3; i++ {
				_, err := e.GetRemainingCredit(context.Background(), 1)
				require.NoError(t, err)
			}

			assert.Len(t, store.notifications, tt.want)
			assert.Len(t, pub.notifications, tt.want)
		})
	}
}

func TestGetRemainingCredit_OncePerCycleRenotifiesNextCycle(t *testing.T) {
	store := creditStore(200, 60, 150)
	store.notifications = []db.Notification{{
		ID: 1, UserID: 1, Type: db.NotificationLowCredit,
		Message: "Your remaining power credit is low: 55.00", CreatedAt: testNow.Add(-31 * 24 * time.Hour),
	}}

	cfg := testConfig()
	cfg.LowCreditPolicy = config.NotifyOncePerCycle
	e, _ := newTestEngine(t, store, cfg, nil)

	_, err := e.GetRemainingCredit(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, store.notifications, 2)
}

func TestGetRemainingCredit_OncePerCrossingRenotifiesAfterTopUp(t *testing.T) {
	store := creditStore(200, 60, 150)
	cfg := testConfig()

	check := func(at time.Time, wantRemaining int64) {
		t.Helper()
		e, _ := newTestEngine(t, store, cfg, nil, WithClock(fixedClock(at)))
		status, err := e.GetRemainingCredit(context.Background(), 1)
		require.NoError(t, err)
		assert.True(t, status.Remaining.Equal(decimal.NewFromInt(wantRemaining)), "remaining %s", status.Remaining)
	}

	check(testNow, 50)
	check(testNow.Add(time.Hour), 50)
	require.Len(t, store.notifications, 1)

	store.users[1].CreditBalance = 1000
	check(testNow.Add(2*time.Hour), 850)
	assert.Equal(t, testNow.Add(2*time.Hour), store.recoveries[1])

	store.users[1].CreditBalance = 200
	check(testNow.Add(24*time.Hour), 50)
	check(testNow.Add(25*time.Hour), 50)

	require.Len(t, store.notifications, 2)
	for _, n := range store.notifications {
		assert.Equal(t, db.NotificationLowCredit, n.Type)
	}
	assert.Equal(t, testNow.Add(24*time.Hour), store.notifications[1].CreatedAt)
}

func TestGetRemainingCredit_OncePerCrossingExhaustionIsNewCrossing(t *testing.T) {
	store := creditStore(200, 60, 150)
	e, _ := newTestEngine(t, store, testConfig(), nil)

	_, err := e.GetRemainingCredit(context.Background(), 1)
	require.NoError(t, err)

	store.users[1].CreditBalance = 100
	_, err = e.GetRemainingCredit(context.Background(), 1)
	require.NoError(t, err)
	_, err = e.GetRemainingCredit(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, store.notifications, 2)
	assert.Equal(t, db.NotificationLowCredit, store.notifications[0].Type)
	assert.Equal(t, db.NotificationCreditExhausted, store.notifications[1].Type)
}

func TestGetRemainingCredit_AboveThresholdWithoutAlertWritesNothing(t *testing.T) {
	store := creditStore(1000, 60, 150)
	e, _ := newTestEngine(t, store, testConfig(), nil)

	_, err := e.GetRemainingCredit(context.Background(), 1)
	require.NoError(t, err)

	assert.Empty(t, store.notifications)
	assert.Empty(t, store.recoveries)
}

func TestGetRemainingCredit_Errors(t *testing.T) {
	t.Run("unknown user", func(t *testing.T) {
		e, _ := newTestEngine(t, newFakeStore(), testConfig(), nil)

		_, err := e.GetRemainingCredit(context.Background(), 42)

		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "user", nf.Resource)
	})

	t.Run("reading failure aborts", func(t *testing.T) {
		store := creditStore(200, 60, 150)
		store.readingsErr = errors.New("connection reset")
		e, pub := newTestEngine(t, store, testConfig(), nil)

		status, err := e.GetRemainingCredit(context.Background(), 1)

		assert.ErrorIs(t, err, ErrStore)
		assert.True(t, status.Remaining.IsZero())
		assert.Empty(t, store.notifications)
		assert.Empty(t, pub.notifications)
	})

	t.Run("append failure aborts", func(t *testing.T) {
		store := creditStore(200, 60, 150)
		store.appendErr = errors.New("disk full")
		e, _ := newTestEngine(t, store, testConfig(), nil)

		_, err := e.GetRemainingCredit(context.Background(), 1)

		var se *StoreError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "append notification", se.Op)
		assert.Empty(t, store.notifications)
	})

	t.Run("recovery write failure aborts", func(t *testing.T) {
		store := creditStore(1000, 60, 150)
		store.notifications = []db.Notification{{
			ID: 1, UserID: 1, Type: db.NotificationLowCredit, CreatedAt: testNow.Add(-time.Hour),
		}}
		store.appendErr = errors.New("disk full")
		e, _ := newTestEngine(t, store, testConfig(), nil)

		_, err := e.GetRemainingCredit(context.Background(), 1)

		var se *StoreError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "rearm credit alerts", se.Op)
		assert.Empty(t, store.recoveries)
	})

	t.Run("publish failure keeps notification", func(t *testing.T) {
		store := creditStore(200, 60, 150)
		e, pub := newTestEngine(t, store, testConfig(), nil)
		pub.err = errors.New("broker down")

		_, err := e.GetRemainingCredit(context.Background(), 1)

		require.NoError(t, err)
		assert.Len(t, store.notifications, 1)
	})
}

func TestUpdateCreditThreshold(t *testing.T) {
	store := creditStore(200, 60, 0)
	e, _ := newTestEngine(t, store, testConfig(), nil)

	_, err := e.UpdateCreditThreshold(context.Background(), 1, 5)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "threshold", verr.Field)
	assert.Equal(t, 60.0, store.users[1].CreditThreshold)

	result, err := e.UpdateCreditThreshold(context.Background(), 1, 500)
	require.NoError(t, err)
	assert.Equal(t, 500.0, result.Threshold)

	user, err := store.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 500.0, user.CreditThreshold)
}

func TestUpdateCreditThreshold_Bounds(t *testing.T) {
	tests := []struct {
		value float64
		ok    bool
	}{
		{9.99, false},
		{10, true},
		{1000, true},
		{1000.01, false},
		{-50, false},
	}

	for _, tt := range tests {
		store := creditStore(200, 60, 0)
		e, _ := newTestEngine(t, store, testConfig(), nil)

		_, err := e.UpdateCreditThreshold(context.Background(), 1, tt.value)
		if tt.ok {
			assert.NoError(t, err, "value %v", tt.value)
		} else {
			assert.ErrorIs(t, err, ErrValidation, "value %v", tt.value)
		}
	}
}

func TestUpdateCreditThreshold_UnknownUser(t *testing.T) {
	e, _ := newTestEngine(t, newFakeStore(), testConfig(), nil)

	_, err := e.UpdateCreditThreshold(context.Background(), 9, 100)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.UpdateCreditThreshold(context.Background(), 0, 100)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "user_id", verr.Field)
}

func TestRecentNotifications(t *testing.T) {
	store := creditStore(200, 60, 0)
	store.notifications = []db.Notification{
		{ID: 1, UserID: 1, Type: db.NotificationLowCredit, CreatedAt: testNow.Add(-48 * time.Hour)},
		{ID: 2, UserID: 1, Type: db.NotificationLowCredit, CreatedAt: testNow.Add(-time.Hour)},
		{ID: 3, UserID: 2, Type: db.NotificationLowCredit, CreatedAt: testNow},
	}
	e, _ := newTestEngine(t, store, testConfig(), nil)

	got, err := e.RecentNotifications(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}
