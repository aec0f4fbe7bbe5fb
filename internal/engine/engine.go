// Package engine turns power readings into ranked advisory insights and
// keeps the billing-cycle credit position of each user.
//
// Every operation is synchronous and keeps its state on the call stack;
// the only shared state is the store behind the Store interface.
package engine

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/septivank/energy-insight-engine/internal/clock"
	"github.com/septivank/energy-insight-engine/internal/config"
	"github.com/septivank/energy-insight-engine/internal/logging"
	"github.com/septivank/energy-insight-engine/internal/metrics"
	"go.uber.org/zap"
)

// Engine exposes the insight, credit and device lifecycle operations
type Engine struct {
	store     Store
	publisher EventPublisher
	cfg       config.EngineConfig
	loc       *time.Location
	clock     clock.Clock
	pickTips  TipPicker
	validate  *validator.Validate
	logger    *zap.Logger
}

// Option customizes an Engine
type Option func(*Engine)

// WithTipPicker replaces the random tip picker
func WithTipPicker(p TipPicker) Option {
	return func(e *Engine) { e.pickTips = p }
}

// WithClock replaces the system clock
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// New creates a new engine
func New(
	store Store,
	publisher EventPublisher,
	cfg config.EngineConfig,
	logger *zap.Logger,
	opts ...Option,
) (*Engine, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}

	e := &Engine{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		loc:       loc,
		clock:     clock.SystemClock{},
		pickTips:  RandomTipPicker,
		validate:  validator.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) requestLogger(operation string, userID int64) *zap.Logger {
	l := logging.WithRequestID(e.logger, uuid.NewString())
	return logging.WithUserID(l, userID).With(zap.String("operation", operation))
}

func observe(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.OperationDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

func validateUserID(userID int64) error {
	if userID <= 0 {
		return &ValidationError{Field: "user_id", Reason: "must be positive"}
	}
	return nil
}
