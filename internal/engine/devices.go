package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/energy-insight-engine/internal/db"
	"github.com/septivank/energy-insight-engine/internal/metrics"
	"go.uber.org/zap"
)

// RemoveDevice deletes a device together with all of its readings. A device
// that does not exist and one owned by another user are reported the same way.
func (e *Engine) RemoveDevice(ctx context.Context, userID, deviceID int64) (err error) {
	start := time.Now()
	defer func() { observe("remove_device", start, err) }()

	if err := validateUserID(userID); err != nil {
		return err
	}
	if deviceID <= 0 {
		return &ValidationError{Field: "device_id", Reason: "must be positive"}
	}

	reqLogger := e.requestLogger("remove_device", userID).With(zap.Int64("device_id", deviceID))
	notFound := &NotFoundError{Resource: "device", ID: deviceID}

	device, err := e.store.GetDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return notFound
		}
		return storeErr("get device", err)
	}
	if device.UserID != userID {
		reqLogger.Warn("device removal denied for non-owner")
		return notFound
	}

	if err := e.store.DeleteDeviceAndReadings(ctx, userID, deviceID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return notFound
		}
		reqLogger.Error("failed to delete device", zap.Error(err))
		return storeErr("delete device and readings", err)
	}

	metrics.DevicesRemoved.Inc()
	reqLogger.Info("device removed")

	event := DeviceRemovedEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		DeviceID:  deviceID,
		RemovedAt: e.clock.Now(),
	}
	if err := e.publisher.PublishDeviceRemoved(ctx, event); err != nil {
		reqLogger.Error("failed to publish device removed event", zap.Error(err))
	}

	return nil
}
