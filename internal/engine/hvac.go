package engine

import "github.com/septivank/energy-insight-engine/internal/db"

const hvacAlertWatts = 2000.0

func hvacInsight(avg float64, ok bool) []Insight {
	if !ok || avg <= hvacAlertWatts {
		return nil
	}
	return []Insight{{
		Type:            InsightHVAC,
		Title:           "HVAC Efficiency Alert",
		Description:     "Your HVAC system is running at high power. Consider setting the thermostat 2°F higher in summer or lower in winter to save energy.",
		Impact:          db.ImpactHigh,
		PotentialSaving: "$40-60/month",
	}}
}
