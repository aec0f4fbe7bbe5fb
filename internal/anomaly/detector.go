package anomaly

import (
	"fmt"
)

// Kind classifies a detected anomaly
type Kind string

const (
	KindNone         Kind = ""
	KindSpike        Kind = "spike"
	KindOverCapacity Kind = "over_capacity"
)

// Detector handles anomaly detection with configurable thresholds
type Detector struct {
	spikeThreshold            float64
	minDataPointsForDetection int
}

// NewDetector creates a new anomaly detector with the specified thresholds
func NewDetector(spikeThreshold float64, minDataPointsForDetection int) *Detector {
	return &Detector{
		spikeThreshold:            spikeThreshold,
		minDataPointsForDetection: minDataPointsForDetection,
	}
}

// DetectAnomaly checks a device's power usage against its rated maximum and
// its recent history. maxPower <= 0 means the rating is unknown. Negative
// usage never gets here: the validator rejects it.
func (d *Detector) DetectAnomaly(value, maxPower float64, historicalValues []float64) (Kind, string) {
	if maxPower > 0 && value > maxPower {
		return KindOverCapacity, fmt.Sprintf("value %.2f exceeds device max power %.2f", value, maxPower)
	}

	// Need enough historical data for spike detection
	if len(historicalValues) < d.minDataPointsForDetection {
		return KindNone, ""
	}

	sum := 0.0
	for _, v := range historicalValues {
		sum += v
	}
	average := sum / float64(len(historicalValues))

	// Detect sudden spike (>threshold x rolling average)
	if average > 0 && value > d.spikeThreshold*average {
		return KindSpike, fmt.Sprintf("sudden spike detected: value %.2f exceeds %.1fx rolling average %.2f",
			value, d.spikeThreshold, average)
	}

	return KindNone, ""
}
