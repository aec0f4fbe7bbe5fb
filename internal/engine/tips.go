package engine

import (
	"math/rand/v2"

	"github.com/septivank/energy-insight-engine/internal/db"
)

// TipPicker chooses up to n tips from eligible. It must not repeat a tip.
type TipPicker func(eligible []db.Tip, n int) []db.Tip

// RandomTipPicker picks uniformly at random without replacement
func RandomTipPicker(eligible []db.Tip, n int) []db.Tip {
	if n > len(eligible) {
		n = len(eligible)
	}
	picked := make([]db.Tip, 0, n)
	for _, i := range rand.Perm(len(eligible))[:n] {
		picked = append(picked, eligible[i])
	}
	return picked
}

// EligibleTips filters out tips present in shown, preserving catalog order
func EligibleTips(catalog []db.Tip, shown map[int64]struct{}) []db.Tip {
	eligible := make([]db.Tip, 0, len(catalog))
	for _, tip := range catalog {
		if _, seen := shown[tip.ID]; seen {
			continue
		}
		eligible = append(eligible, tip)
	}
	return eligible
}

func tipInsight(tip db.Tip) Insight {
	return Insight{
		Type:            InsightGeneralTip,
		Title:           tip.Title,
		Description:     tip.Description,
		Impact:          tip.ImpactLevel,
		PotentialSaving: tip.EstimatedSaving,
	}
}
