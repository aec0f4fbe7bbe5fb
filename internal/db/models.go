package db

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a row does not exist
var ErrNotFound = errors.New("record not found")

// DeviceType classifies a device
type DeviceType string

const (
	DeviceHVAC        DeviceType = "HVAC"
	DeviceAppliance   DeviceType = "Appliance"
	DeviceLighting    DeviceType = "Lighting"
	DeviceElectronics DeviceType = "Electronics"
	DeviceOther       DeviceType = "Other"
)

// Impact is the advisory weight of a tip or insight
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Notification types appended by the credit ledger
const (
	NotificationLowCredit       = "low_credit"
	NotificationCreditExhausted = "credit_exhausted"
)

// User represents a household account with its credit position
type User struct {
	ID              int64
	CreditBalance   float64
	CreditThreshold float64
}

// Device represents a metered device owned by a user
type Device struct {
	ID       int64
	UserID   int64
	Name     string
	Type     DeviceType
	MaxPower float64
	Location string
}

// PowerReading represents one power sample. DeviceName and DeviceType are
// joined in from the owning device when read back.
type PowerReading struct {
	ID            int64
	DeviceID      int64
	UserID        int64
	DeviceName    string
	DeviceType    DeviceType
	Timestamp     time.Time
	PowerUsage    float64
	Voltage       *float64
	Current       *float64
	DurationHours *float64
	Rate          *float64
}

// Tip is a catalog entry of energy saving advice
type Tip struct {
	ID              int64
	Title           string
	Description     string
	ImpactLevel     Impact
	EstimatedSaving string
}

// ShownTip records that a tip was surfaced to a user
type ShownTip struct {
	UserID  int64
	TipID   int64
	ShownAt time.Time
}

// Notification is an append-only user notification
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
