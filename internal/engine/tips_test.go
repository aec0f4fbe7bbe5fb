package engine

import (
	"testing"

	"github.com/septivank/energy-insight-engine/internal/db"
	"github.com/stretchr/testify/assert"
)

func TestEligibleTips(t *testing.T) {
	catalog := db.DefaultTips()
	shown := map[int64]struct{}{1: {}, 4: {}, 8: {}}

	eligible := EligibleTips(catalog, shown)

	assert.Len(t, eligible, len(catalog)-3)
	for _, tip := range eligible {
		assert.NotContains(t, shown, tip.ID)
	}
}

func TestRandomTipPicker(t *testing.T) {
	catalog := db.DefaultTips()

	for i := 0; i < 50; i++ {
		picked := RandomTipPicker(catalog, 2)
		assert.Len(t, picked, 2)
		assert.NotEqual(t, picked[0].ID, picked[1].ID)
	}

	assert.Len(t, RandomTipPicker(catalog[:1], 2), 1)
	assert.Empty(t, RandomTipPicker(nil, 2))
}
