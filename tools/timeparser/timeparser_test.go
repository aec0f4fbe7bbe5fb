package timeparser_test

import (
	"testing"
	"time"

	"github.com/septivank/energy-insight-engine/tools/timeparser"
)

func TestParseReadingTimestamp_GatewayFormat(t *testing.T) {
	result, err := timeparser.ParseReadingTimestamp("2025-12-29 10:30:45", time.UTC)
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseReadingTimestamp_UsesLocationForZonelessLayouts(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)

	result, err := timeparser.ParseReadingTimestamp("2025-12-29 10:30:45", loc)
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 3, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseReadingTimestamp_DayFirst(t *testing.T) {
	result, err := timeparser.ParseReadingTimestamp("29/12/2025 10:30:45", nil)
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseReadingTimestamp_RFC3339(t *testing.T) {
	result, err := timeparser.ParseReadingTimestamp("2025-12-29T10:30:45+02:00", time.UTC)
	if err != nil {
		t.Fatalf("Failed to parse timestamp: %v", err)
	}

	expected := time.Date(2025, 12, 29, 8, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseReadingTimestamp_Invalid(t *testing.T) {
	_, err := timeparser.ParseReadingTimestamp("invalid-date-string", time.UTC)
	if err == nil {
		t.Error("Expected error for invalid timestamp")
	}
}

func TestIsWithinTolerance_WithinRange(t *testing.T) {
	readingTime := time.Date(2025, 12, 29, 10, 30, 0, 0, time.UTC)
	receivedTime := time.Date(2025, 12, 29, 10, 33, 0, 0, time.UTC) // 3 minutes later

	if !timeparser.IsWithinTolerance(readingTime, receivedTime, 5) {
		t.Error("Expected timestamp to be within tolerance")
	}
}

func TestIsWithinTolerance_OutsideRange(t *testing.T) {
	readingTime := time.Date(2025, 12, 29, 10, 30, 0, 0, time.UTC)
	receivedTime := time.Date(2025, 12, 29, 10, 36, 0, 0, time.UTC) // 6 minutes later

	if timeparser.IsWithinTolerance(readingTime, receivedTime, 5) {
		t.Error("Expected timestamp to be outside tolerance")
	}
}

func TestIsWithinTolerance_ExactBoundary(t *testing.T) {
	readingTime := time.Date(2025, 12, 29, 10, 30, 0, 0, time.UTC)
	receivedTime := time.Date(2025, 12, 29, 10, 25, 0, 0, time.UTC) // Exactly 5 minutes before

	if !timeparser.IsWithinTolerance(readingTime, receivedTime, 5) {
		t.Error("Expected timestamp at exact boundary to be within tolerance")
	}
}
