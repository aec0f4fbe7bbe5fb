package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/septivank/energy-insight-engine/tools/timeparser"
)

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid       bool
	AnomalyReason string
}

// ReadingData is a single power reading as sent by a meter gateway
type ReadingData struct {
	DeviceID      int64    `json:"device_id" validate:"gt=0"`
	Timestamp     string   `json:"timestamp" validate:"required"`
	PowerUsage    *float64 `json:"power_usage" validate:"required,gte=0"`
	Voltage       *float64 `json:"voltage,omitempty" validate:"omitempty,gt=0"`
	Current       *float64 `json:"current,omitempty" validate:"omitempty,gte=0"`
	DurationHours *float64 `json:"duration_hours,omitempty" validate:"omitempty,gte=0"`
	Rate          *float64 `json:"rate,omitempty" validate:"omitempty,gte=0"`
}

// Validator handles reading validation with configurable parameters
type Validator struct {
	timestampToleranceMinutes int
	location                  *time.Location
	validate                  *validator.Validate
}

// NewValidator creates a new validator with the specified tolerance.
// Zone-less timestamps are read in loc.
func NewValidator(timestampToleranceMinutes int, loc *time.Location) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		timestampToleranceMinutes: timestampToleranceMinutes,
		location:                  loc,
		validate:                  v,
	}
}

// ValidateReading validates a single reading and returns its parsed timestamp
func (v *Validator) ValidateReading(reading ReadingData, receivedAt time.Time) (time.Time, ValidationResult) {
	result := ValidationResult{IsValid: true}

	if err := v.validate.Struct(reading); err != nil {
		result.IsValid = false
		result.AnomalyReason = describe(err)
		return time.Time{}, result
	}

	readingTime, err := timeparser.ParseReadingTimestamp(reading.Timestamp, v.location)
	if err != nil {
		result.IsValid = false
		result.AnomalyReason = fmt.Sprintf("invalid timestamp format: %v", err)
		return time.Time{}, result
	}

	if !timeparser.IsWithinTolerance(readingTime, receivedAt, v.timestampToleranceMinutes) {
		result.IsValid = false
		result.AnomalyReason = fmt.Sprintf("timestamp outside tolerance window (±%d minutes)", v.timestampToleranceMinutes)
		return readingTime, result
	}

	return readingTime, result
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("missing %s", fe.Field())
	case "gte":
		if fe.Param() == "0" {
			return fmt.Sprintf("negative %s", fe.Field())
		}
	}
	return fmt.Sprintf("invalid %s: must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
}
