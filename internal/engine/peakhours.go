package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/septivank/energy-insight-engine/internal/db"
)

// RankedHour is one hour of day with its summed usage
type RankedHour struct {
	Hour       int
	TotalUsage float64
}

// RankHours orders hours by total usage descending. Equal totals are
// ordered by hour ascending so the ranking is deterministic.
func RankHours(hourly map[int]HourBucket) []RankedHour {
	ranked := make([]RankedHour, 0, len(hourly))
	for hour, b := range hourly {
		ranked = append(ranked, RankedHour{Hour: hour, TotalUsage: b.TotalUsage})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalUsage != ranked[j].TotalUsage {
			return ranked[i].TotalUsage > ranked[j].TotalUsage
		}
		return ranked[i].Hour < ranked[j].Hour
	})
	return ranked
}

// SelectPeakHours returns the top 20% of hours with data, rounded up, and
// at least one hour when any hour has data.
func SelectPeakHours(hourly map[int]HourBucket) []RankedHour {
	ranked := RankHours(hourly)
	if len(ranked) == 0 {
		return nil
	}
	// ceil(H * 0.2) in integer arithmetic
	n := (len(ranked) + 4) / 5
	return ranked[:n]
}

func peakHoursInsight(selected []RankedHour) []Insight {
	if len(selected) == 0 {
		return nil
	}
	hours := make([]string, len(selected))
	for i, h := range selected {
		hours[i] = fmt.Sprintf("%02d:00", h.Hour)
	}
	return []Insight{{
		Type:            InsightPeakHours,
		Title:           "Peak Usage Hours Detected",
		Description:     fmt.Sprintf("Your energy usage peaks at %s. Consider shifting some activities to off-peak hours for cost savings.", strings.Join(hours, ", ")),
		Impact:          db.ImpactHigh,
		PotentialSaving: "$30-50/month",
	}}
}
