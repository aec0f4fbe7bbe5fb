package engine

import (
	"testing"

	"github.com/septivank/energy-insight-engine/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hoursWithUsage(n int) map[int]HourBucket {
	hourly := make(map[int]HourBucket, n)
	for h := 0; h < n; h++ {
		hourly[h] = HourBucket{TotalUsage: float64(100 + h), SampleCount: 1}
	}
	return hourly
}

func TestSelectPeakHours_SelectionSize(t *testing.T) {
	// ceil(H * 0.2), at least one when H >= 1
	want := map[int]int{0: 0, 1: 1, 2: 1, 5: 1, 6: 2, 10: 2, 11: 3, 15: 3, 16: 4, 23: 5, 24: 5}

	for h, n := range want {
		assert.Len(t, SelectPeakHours(hoursWithUsage(h)), n, "H=%d", h)
	}
}

func TestRankHours_TieBreakByHour(t *testing.T) {
	hourly := map[int]HourBucket{
		18: {TotalUsage: 700, SampleCount: 1},
		7:  {TotalUsage: 700, SampleCount: 2},
		3:  {TotalUsage: 900, SampleCount: 1},
		12: {TotalUsage: 700, SampleCount: 1},
	}

	for i := 0; i < 20; i++ {
		ranked := RankHours(hourly)
		require.Len(t, ranked, 4)
		assert.Equal(t, []int{3, 7, 12, 18}, []int{ranked[0].Hour, ranked[1].Hour, ranked[2].Hour, ranked[3].Hour})
	}
}

func TestSelectPeakHours_TieAtBoundary(t *testing.T) {
	// six hours select two; hours 9 and 4 tie for second place
	hourly := map[int]HourBucket{
		1: {TotalUsage: 50}, 2: {TotalUsage: 60}, 4: {TotalUsage: 300},
		9: {TotalUsage: 300}, 11: {TotalUsage: 500}, 20: {TotalUsage: 10},
	}

	selected := SelectPeakHours(hourly)

	require.Len(t, selected, 2)
	assert.Equal(t, 11, selected[0].Hour)
	assert.Equal(t, 4, selected[1].Hour)
}

func TestPeakHoursInsight(t *testing.T) {
	assert.Empty(t, peakHoursInsight(nil))

	insights := peakHoursInsight([]RankedHour{{Hour: 14, TotalUsage: 900}, {Hour: 2, TotalUsage: 800}})

	require.Len(t, insights, 1)
	assert.Equal(t, InsightPeakHours, insights[0].Type)
	assert.Equal(t, db.ImpactHigh, insights[0].Impact)
	assert.Equal(t, "$30-50/month", insights[0].PotentialSaving)
	assert.Contains(t, insights[0].Description, "14:00, 02:00")
}
