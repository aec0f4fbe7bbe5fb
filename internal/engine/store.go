package engine

import (
	"context"
	"time"

	"github.com/septivank/energy-insight-engine/internal/db"
)

// Store is the read/write view the engine needs over persisted state.
// Implementations return db.ErrNotFound for missing rows.
type Store interface {
	ReadingsForUser(ctx context.Context, userID int64, since time.Time) ([]db.PowerReading, error)
	ReadingsForDeviceType(ctx context.Context, userID int64, deviceType db.DeviceType, since time.Time) ([]db.PowerReading, error)

	GetUser(ctx context.Context, userID int64) (*db.User, error)
	SetThreshold(ctx context.Context, userID int64, value float64) error
	RecentNotifications(ctx context.Context, userID int64, since time.Time) ([]db.Notification, error)

	GetDevice(ctx context.Context, deviceID int64) (*db.Device, error)
	// DeleteDeviceAndReadings removes every reading of the device and then
	// the device row in one transaction. The device must belong to userID.
	DeleteDeviceAndReadings(ctx context.Context, userID, deviceID int64) error

	// InUserTx runs fn in a transaction serialized against every other
	// InUserTx call for the same user. fn's error rolls the transaction back.
	InUserTx(ctx context.Context, userID int64, fn func(tx UserTx) error) error

	Ping(ctx context.Context) error
}

// UserTx is the append-only log access available inside InUserTx
type UserTx interface {
	TipsCatalog(ctx context.Context) ([]db.Tip, error)
	// ShownTips returns the IDs of tips shown to the user strictly after since
	ShownTips(ctx context.Context, userID int64, since time.Time) (map[int64]struct{}, error)
	AppendShownTip(ctx context.Context, userID, tipID int64, when time.Time) error

	AppendNotification(ctx context.Context, userID int64, kind, message string, when time.Time) (*db.Notification, error)
	LastNotification(ctx context.Context, userID int64, kind string) (*db.Notification, error)

	// CreditRecoveredAt returns when remaining credit was last recorded back
	// above the threshold, or db.ErrNotFound if it never was.
	CreditRecoveredAt(ctx context.Context, userID int64) (time.Time, error)
	SetCreditRecoveredAt(ctx context.Context, userID int64, when time.Time) error
}

// EventPublisher delivers committed changes to downstream consumers
type EventPublisher interface {
	PublishNotification(ctx context.Context, event NotificationEvent) error
	PublishDeviceRemoved(ctx context.Context, event DeviceRemovedEvent) error
}

// NopPublisher discards events. Used when messaging is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishNotification(context.Context, NotificationEvent) error   { return nil }
func (NopPublisher) PublishDeviceRemoved(context.Context, DeviceRemovedEvent) error { return nil }
