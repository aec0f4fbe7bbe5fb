package engine

import (
	"encoding/json"
	"time"

	"github.com/septivank/energy-insight-engine/internal/db"
	"github.com/shopspring/decimal"
)

// InsightType enumerates the advisory record kinds
type InsightType string

const (
	InsightPeakHours        InsightType = "peak_hours"
	InsightDeviceEfficiency InsightType = "device_efficiency"
	InsightHVAC             InsightType = "hvac_optimization"
	InsightGeneralTip       InsightType = "general_tip"
)

// Insight is a transient advisory record. It is never persisted.
type Insight struct {
	Type            InsightType `json:"type"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Impact          db.Impact   `json:"impact"`
	PotentialSaving string      `json:"potential_saving"`
}

// CreditStatus is the billing cycle position of a user
type CreditStatus struct {
	Remaining       decimal.Decimal `json:"remaining"`
	Threshold       decimal.Decimal `json:"threshold"`
	BillingCycleEnd time.Time       `json:"billing_cycle_end"`
}

// MarshalJSON writes the amounts as numbers rounded to cents
func (c CreditStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Remaining       json.Number `json:"remaining"`
		Threshold       json.Number `json:"threshold"`
		BillingCycleEnd time.Time   `json:"billing_cycle_end"`
	}{
		Remaining:       json.Number(c.Remaining.StringFixed(2)),
		Threshold:       json.Number(c.Threshold.StringFixed(2)),
		BillingCycleEnd: c.BillingCycleEnd,
	})
}

// ThresholdResult is returned by a successful threshold update
type ThresholdResult struct {
	Threshold float64 `json:"threshold"`
	Message   string  `json:"message"`
}

// NotificationEvent is published after a notification row commits
type NotificationEvent struct {
	EventID   string    `json:"event_id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// DeviceRemovedEvent is published after a device and its readings are gone
type DeviceRemovedEvent struct {
	EventID   string    `json:"event_id"`
	UserID    int64     `json:"user_id"`
	DeviceID  int64     `json:"device_id"`
	RemovedAt time.Time `json:"removed_at"`
}
