package engine

import (
	"fmt"
	"sort"

	"github.com/septivank/energy-insight-engine/internal/db"
)

const (
	highUsageWatts      = 1000.0
	maxEfficiencyAlerts = 3
)

// HighUsageDevices keeps devices averaging above 1000 W, highest first,
// capped at three.
func HighUsageDevices(devices []DeviceUsage) []DeviceUsage {
	var high []DeviceUsage
	for _, d := range devices {
		if d.Average() > highUsageWatts {
			high = append(high, d)
		}
	}
	sort.SliceStable(high, func(i, j int) bool {
		ai, aj := high[i].Average(), high[j].Average()
		if ai != aj {
			return ai > aj
		}
		return high[i].DeviceID < high[j].DeviceID
	})
	if len(high) > maxEfficiencyAlerts {
		high = high[:maxEfficiencyAlerts]
	}
	return high
}

func deviceEfficiencyInsights(devices []DeviceUsage) []Insight {
	insights := make([]Insight, 0, len(devices))
	for _, d := range devices {
		name := d.DeviceName
		if name == "" {
			name = fmt.Sprintf("device %d", d.DeviceID)
		}
		insights = append(insights, Insight{
			Type:            InsightDeviceEfficiency,
			Title:           "High Usage: " + name,
			Description:     fmt.Sprintf("Your %s is consuming more power than average (%.0f W). Consider upgrading to an energy-efficient model.", name, d.Average()),
			Impact:          db.ImpactMedium,
			PotentialSaving: "$15-25/month",
		})
	}
	return insights
}
