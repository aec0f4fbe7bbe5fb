package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/septivank/energy-insight-engine/internal/config"
	"github.com/septivank/energy-insight-engine/internal/db"
	"github.com/septivank/energy-insight-engine/internal/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// thresholdUpdate is the validated input of UpdateCreditThreshold
type thresholdUpdate struct {
	UserID int64   `validate:"gt=0"`
	Value  float64 `validate:"gte=10,lte=1000"`
}

// GetRemainingCredit computes balance minus the trailing billing cycle cost
// and appends a notification when the remaining credit is at or below the
// user's threshold. Any store failure aborts the whole operation.
func (e *Engine) GetRemainingCredit(ctx context.Context, userID int64) (status CreditStatus, err error) {
	start := time.Now()
	defer func() { observe("get_remaining_credit", start, err) }()

	if err := validateUserID(userID); err != nil {
		return CreditStatus{}, err
	}

	reqLogger := e.requestLogger("get_remaining_credit", userID)
	now := e.clock.Now()

	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return CreditStatus{}, &NotFoundError{Resource: "user", ID: userID}
		}
		return CreditStatus{}, storeErr("get user", err)
	}

	readings, err := e.store.ReadingsForUser(ctx, userID, now.Add(-e.cfg.BillingCycle))
	if err != nil {
		return CreditStatus{}, storeErr("readings for user", err)
	}

	cost := BillingCost(readings)
	balance := decimal.NewFromFloat(user.CreditBalance)
	threshold := decimal.NewFromFloat(user.CreditThreshold)
	remaining := balance.Sub(cost)

	status = CreditStatus{
		Remaining:       remaining,
		Threshold:       threshold,
		BillingCycleEnd: now.Add(e.cfg.BillingCycle),
	}

	kind, message := e.creditAlert(remaining, threshold)
	if kind == "" {
		if remaining.GreaterThan(threshold) && e.cfg.LowCreditPolicy == config.NotifyOncePerCrossing {
			if err := e.rearmCreditAlerts(ctx, userID, now); err != nil {
				reqLogger.Error("failed to record credit recovery", zap.Error(err))
				return CreditStatus{}, storeErr("rearm credit alerts", err)
			}
		}
		reqLogger.Debug("credit above threshold", zap.String("remaining", remaining.StringFixed(2)))
		return status, nil
	}

	notification, err := e.appendCreditNotification(ctx, userID, kind, message, now)
	if err != nil {
		reqLogger.Error("failed to append credit notification", zap.String("type", kind), zap.Error(err))
		return CreditStatus{}, storeErr("append notification", err)
	}

	if notification == nil {
		metrics.NotificationsSuppressed.WithLabelValues(kind).Inc()
		reqLogger.Debug("credit notification suppressed by policy", zap.String("type", kind))
		return status, nil
	}

	metrics.NotificationsAppended.WithLabelValues(kind).Inc()
	reqLogger.Info("credit notification appended",
		zap.String("type", kind),
		zap.String("remaining", remaining.StringFixed(2)),
	)

	// Publish after commit; delivery failures do not undo the notification
	event := NotificationEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		Type:      notification.Type,
		Message:   notification.Message,
		CreatedAt: notification.CreatedAt,
	}
	if err := e.publisher.PublishNotification(ctx, event); err != nil {
		reqLogger.Error("failed to publish notification event", zap.Error(err))
	}

	return status, nil
}

// creditAlert decides which notification, if any, the remaining credit calls for
func (e *Engine) creditAlert(remaining, threshold decimal.Decimal) (kind, message string) {
	switch {
	case remaining.IsPositive() && remaining.LessThanOrEqual(threshold):
		return db.NotificationLowCredit, fmt.Sprintf("Your remaining power credit is low: %s", remaining.StringFixed(2))
	case !remaining.IsPositive() && e.cfg.NotifyOnExhausted:
		return db.NotificationCreditExhausted, fmt.Sprintf("Your power credit is exhausted: %s", remaining.StringFixed(2))
	}
	return "", ""
}

// appendCreditNotification writes the notification under the per-user
// transaction. It returns nil without error when the policy suppresses it.
func (e *Engine) appendCreditNotification(ctx context.Context, userID int64, kind, message string, now time.Time) (*db.Notification, error) {
	var appended *db.Notification
	err := e.store.InUserTx(ctx, userID, func(tx UserTx) error {
		appended = nil

		switch e.cfg.LowCreditPolicy {
		case config.NotifyOncePerCycle:
			last, err := tx.LastNotification(ctx, userID, kind)
			switch {
			case err == nil && last.CreatedAt.After(now.Add(-e.cfg.BillingCycle)):
				return nil
			case err != nil && !errors.Is(err, db.ErrNotFound):
				return err
			}
		case config.NotifyOncePerCrossing:
			notified, err := notifiedSinceRecovery(ctx, tx, userID, kind)
			if err != nil {
				return err
			}
			if notified {
				return nil
			}
		}

		n, err := tx.AppendNotification(ctx, userID, kind, message, now)
		if err != nil {
			return err
		}
		appended = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appended, nil
}

// rearmCreditAlerts records that remaining credit is back above the
// threshold, so the next fall below it counts as a new crossing. Nothing is
// written while no alert has fired since the last recovery.
func (e *Engine) rearmCreditAlerts(ctx context.Context, userID int64, now time.Time) error {
	return e.store.InUserTx(ctx, userID, func(tx UserTx) error {
		for _, kind := range []string{db.NotificationLowCredit, db.NotificationCreditExhausted} {
			notified, err := notifiedSinceRecovery(ctx, tx, userID, kind)
			if err != nil {
				return err
			}
			if notified {
				return tx.SetCreditRecoveredAt(ctx, userID, now)
			}
		}
		return nil
	})
}

// notifiedSinceRecovery reports whether a notification of kind was appended
// after the user's credit last recovered above the threshold
func notifiedSinceRecovery(ctx context.Context, tx UserTx, userID int64, kind string) (bool, error) {
	last, err := tx.LastNotification(ctx, userID, kind)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	recovered, err := tx.CreditRecoveredAt(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return last.CreatedAt.After(recovered), nil
}

// UpdateCreditThreshold validates and persists a new low credit threshold
func (e *Engine) UpdateCreditThreshold(ctx context.Context, userID int64, value float64) (result ThresholdResult, err error) {
	start := time.Now()
	defer func() { observe("update_credit_threshold", start, err) }()

	if err := e.validate.Struct(thresholdUpdate{UserID: userID, Value: value}); err != nil {
		return ThresholdResult{}, thresholdValidationError(err)
	}

	reqLogger := e.requestLogger("update_credit_threshold", userID)

	if err := e.store.SetThreshold(ctx, userID, value); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ThresholdResult{}, &NotFoundError{Resource: "user", ID: userID}
		}
		reqLogger.Error("failed to update threshold", zap.Error(err))
		return ThresholdResult{}, storeErr("set threshold", err)
	}

	metrics.ThresholdUpdates.Inc()
	reqLogger.Info("credit threshold updated", zap.Float64("threshold", value))

	return ThresholdResult{Threshold: value, Message: "Threshold updated successfully"}, nil
}

func thresholdValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Field() == "UserID" {
			return &ValidationError{Field: "user_id", Reason: "must be positive"}
		}
		return &ValidationError{Field: "threshold", Reason: "must be between 10 and 1000"}
	}
	return &ValidationError{Field: "threshold", Reason: err.Error()}
}

// RecentNotifications returns the notifications of the trailing
// notification window, newest first.
func (e *Engine) RecentNotifications(ctx context.Context, userID int64) (notifications []db.Notification, err error) {
	start := time.Now()
	defer func() { observe("recent_notifications", start, err) }()

	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	notifications, err = e.store.RecentNotifications(ctx, userID, e.clock.Now().Add(-e.cfg.NotificationWindow))
	if err != nil {
		return nil, storeErr("recent notifications", err)
	}
	return notifications, nil
}
