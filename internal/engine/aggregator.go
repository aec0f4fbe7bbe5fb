package engine

import (
	"sort"
	"time"

	"github.com/septivank/energy-insight-engine/internal/db"
	"github.com/shopspring/decimal"
)

// HourBucket accumulates the readings that fall in one hour of the day
type HourBucket struct {
	TotalUsage  float64
	SampleCount int
}

// DeviceUsage accumulates the readings of one device
type DeviceUsage struct {
	DeviceID    int64
	DeviceName  string
	TotalUsage  float64
	SampleCount int
}

// Average returns the mean power usage, or 0 for an empty bucket
func (d DeviceUsage) Average() float64 {
	if d.SampleCount == 0 {
		return 0
	}
	return d.TotalUsage / float64(d.SampleCount)
}

// HourlyUsage buckets readings by hour of day in loc. Hours without
// samples are absent from the result.
func HourlyUsage(readings []db.PowerReading, loc *time.Location) map[int]HourBucket {
	if loc == nil {
		loc = time.Local
	}
	hourly := make(map[int]HourBucket)
	for _, r := range readings {
		hour := r.Timestamp.In(loc).Hour()
		b := hourly[hour]
		b.TotalUsage += r.PowerUsage
		b.SampleCount++
		hourly[hour] = b
	}
	return hourly
}

// DeviceAverages groups readings per device, ordered by device ID
func DeviceAverages(readings []db.PowerReading) []DeviceUsage {
	byDevice := make(map[int64]*DeviceUsage)
	for _, r := range readings {
		d, ok := byDevice[r.DeviceID]
		if !ok {
			d = &DeviceUsage{DeviceID: r.DeviceID, DeviceName: r.DeviceName}
			byDevice[r.DeviceID] = d
		}
		d.TotalUsage += r.PowerUsage
		d.SampleCount++
	}

	out := make([]DeviceUsage, 0, len(byDevice))
	for _, d := range byDevice {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// AverageUsage returns the mean power usage across readings. ok is false
// when there are no readings.
func AverageUsage(readings []db.PowerReading) (avg float64, ok bool) {
	if len(readings) == 0 {
		return 0, false
	}
	var total float64
	for _, r := range readings {
		total += r.PowerUsage
	}
	return total / float64(len(readings)), true
}

// BillingCost sums power_usage × duration_hours × rate. Readings missing a
// duration or rate contribute nothing.
func BillingCost(readings []db.PowerReading) decimal.Decimal {
	cost := decimal.Zero
	for _, r := range readings {
		if r.DurationHours == nil || r.Rate == nil {
			continue
		}
		cost = cost.Add(decimal.NewFromFloat(r.PowerUsage).
			Mul(decimal.NewFromFloat(*r.DurationHours)).
			Mul(decimal.NewFromFloat(*r.Rate)))
	}
	return cost
}
