package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/septivank/energy-insight-engine/internal/anomaly"
	"github.com/septivank/energy-insight-engine/internal/clock"
	"github.com/septivank/energy-insight-engine/internal/config"
	"github.com/septivank/energy-insight-engine/internal/db"
	"github.com/septivank/energy-insight-engine/internal/logging"
	"github.com/septivank/energy-insight-engine/internal/metrics"
	"github.com/septivank/energy-insight-engine/internal/validator"
	"go.uber.org/zap"
)

// Ingest outcomes, used as metric labels
const (
	StatusAccepted = "accepted"
	StatusInvalid  = "invalid"
	StatusOrphaned = "orphaned"
	StatusFailed   = "failed"
)

// ErrRejected marks messages that can never be stored. The consumer
// dead-letters them like any other processing error.
var ErrRejected = errors.New("reading rejected")

// IngestMessage represents the incoming reading message from RabbitMQ
type IngestMessage struct {
	RequestID  string    `json:"request_id"`
	ReceivedAt time.Time `json:"received_at"`
	validator.ReadingData
}

// ProcessedEvent is published after a reading has been stored
type ProcessedEvent struct {
	ReadingID int64   `json:"reading_id"`
	DeviceID  int64   `json:"device_id"`
	UserID    int64   `json:"user_id"`
	Usage     float64 `json:"power_usage"`
	Timestamp string  `json:"timestamp"`
	Anomaly   string  `json:"anomaly,omitempty"`
}

// ReadingStore is the persistence the ingest path needs
type ReadingStore interface {
	GetDevice(ctx context.Context, deviceID int64) (*db.Device, error)
	RecentDeviceUsage(ctx context.Context, deviceID int64, limit int) ([]float64, error)
	// InsertReading returns db.ErrNotFound when the device no longer exists
	InsertReading(ctx context.Context, reading *db.PowerReading) error
}

// ReadingPublisher announces stored readings
type ReadingPublisher interface {
	PublishReadingProcessed(ctx context.Context, event ProcessedEvent) error
}

// ProcessorService handles message processing logic
type ProcessorService struct {
	store     ReadingStore
	publisher ReadingPublisher
	detector  *anomaly.Detector
	validator *validator.Validator
	cfg       *config.Config
	clock     clock.Clock
	logger    *zap.Logger
}

// NewProcessorService creates a new processor service
func NewProcessorService(
	store ReadingStore,
	publisher ReadingPublisher,
	detector *anomaly.Detector,
	validator *validator.Validator,
	cfg *config.Config,
	clk clock.Clock,
	logger *zap.Logger,
) *ProcessorService {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &ProcessorService{
		store:     store,
		publisher: publisher,
		detector:  detector,
		validator: validator,
		cfg:       cfg,
		clock:     clk,
		logger:    logger,
	}
}

// ProcessMessage processes an incoming power reading message
func (s *ProcessorService) ProcessMessage(ctx context.Context, body []byte) error {
	var msg IngestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		metrics.ReadingsIngested.WithLabelValues(StatusInvalid).Inc()
		return fmt.Errorf("%w: failed to unmarshal message: %v", ErrRejected, err)
	}

	reqLogger := logging.WithRequestID(s.logger, msg.RequestID).With(zap.Int64("device_id", msg.DeviceID))
	reqLogger.Info("processing message")

	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.clock.Now()
	}

	readingTime, result := s.validator.ValidateReading(msg.ReadingData, receivedAt)
	if !result.IsValid {
		metrics.ReadingsIngested.WithLabelValues(StatusInvalid).Inc()
		reqLogger.Warn("invalid reading", zap.String("reason", result.AnomalyReason))
		return fmt.Errorf("%w: %s", ErrRejected, result.AnomalyReason)
	}

	device, err := s.store.GetDevice(ctx, msg.DeviceID)
	if errors.Is(err, db.ErrNotFound) {
		metrics.ReadingsIngested.WithLabelValues(StatusOrphaned).Inc()
		reqLogger.Warn("reading for unknown device")
		return fmt.Errorf("%w: device %d not found", ErrRejected, msg.DeviceID)
	}
	if err != nil {
		metrics.ReadingsIngested.WithLabelValues(StatusFailed).Inc()
		reqLogger.Error("failed to get device", zap.Error(err))
		return fmt.Errorf("failed to get device: %w", err)
	}

	usage := *msg.PowerUsage
	anomalyKind := s.checkAnomaly(ctx, device, usage, reqLogger)

	reading := &db.PowerReading{
		DeviceID:      device.ID,
		Timestamp:     readingTime,
		PowerUsage:    usage,
		Voltage:       msg.Voltage,
		Current:       msg.Current,
		DurationHours: msg.DurationHours,
		Rate:          msg.Rate,
	}

	if err := s.store.InsertReading(ctx, reading); err != nil {
		// the device can be removed between lookup and insert
		if errors.Is(err, db.ErrNotFound) {
			metrics.ReadingsIngested.WithLabelValues(StatusOrphaned).Inc()
			reqLogger.Warn("device removed before reading was stored")
			return fmt.Errorf("%w: device %d not found", ErrRejected, msg.DeviceID)
		}
		metrics.ReadingsIngested.WithLabelValues(StatusFailed).Inc()
		reqLogger.Error("failed to insert reading", zap.Error(err))
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	metrics.ReadingsIngested.WithLabelValues(StatusAccepted).Inc()

	// Publish after the reading is stored
	event := ProcessedEvent{
		ReadingID: reading.ID,
		DeviceID:  reading.DeviceID,
		UserID:    reading.UserID,
		Usage:     reading.PowerUsage,
		Timestamp: reading.Timestamp.UTC().Format(time.RFC3339),
		Anomaly:   string(anomalyKind),
	}
	if err := s.publisher.PublishReadingProcessed(ctx, event); err != nil {
		// Log error but don't fail the message, the reading is committed
		reqLogger.Error("failed to publish event", zap.Error(err), zap.Int64("reading_id", reading.ID))
	}

	reqLogger.Info("message processed successfully",
		zap.Int64("reading_id", reading.ID),
		zap.Int64("user_id", reading.UserID),
	)
	return nil
}

func (s *ProcessorService) checkAnomaly(ctx context.Context, device *db.Device, usage float64, logger *zap.Logger) anomaly.Kind {
	history, err := s.store.RecentDeviceUsage(ctx, device.ID, s.cfg.Anomaly.HistoryLimit)
	if err != nil {
		logger.Warn("failed to get historical readings for anomaly detection", zap.Error(err))
		history = nil
	}

	kind, reason := s.detector.DetectAnomaly(usage, device.MaxPower, history)
	if kind != anomaly.KindNone {
		metrics.ReadingAnomalies.WithLabelValues(string(kind)).Inc()
		logger.Warn("anomaly detected",
			zap.String("kind", string(kind)),
			zap.Float64("value", usage),
			zap.String("reason", reason),
		)
	}
	return kind
}

// NopReadingPublisher discards processed events. Used when messaging is disabled.
type NopReadingPublisher struct{}

func (NopReadingPublisher) PublishReadingProcessed(context.Context, ProcessedEvent) error {
	return nil
}
