package engine

import (
	"context"
	"time"

	"github.com/septivank/energy-insight-engine/internal/db"
	"github.com/septivank/energy-insight-engine/internal/metrics"
	"go.uber.org/zap"
)

// insightRequest carries the per-invocation state shared by generators
type insightRequest struct {
	userID int64
	now    time.Time
	since  time.Time

	loaded   bool
	readings []db.PowerReading
	err      error
}

// window loads the trailing insight window once per invocation
func (r *insightRequest) window(ctx context.Context, store Store) ([]db.PowerReading, error) {
	if !r.loaded {
		r.readings, r.err = store.ReadingsForUser(ctx, r.userID, r.since)
		r.loaded = true
	}
	if r.err != nil {
		return nil, storeErr("readings for user", r.err)
	}
	return r.readings, nil
}

type generator struct {
	name string
	run  func(ctx context.Context, req *insightRequest) ([]Insight, error)
}

// GenerateInsights runs the peak hour, device efficiency, HVAC and tip
// generators in that order and concatenates their output. A failing
// generator contributes nothing; the others still run.
func (e *Engine) GenerateInsights(ctx context.Context, userID int64) (insights []Insight, err error) {
	start := time.Now()
	defer func() { observe("generate_insights", start, err) }()

	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	reqLogger := e.requestLogger("generate_insights", userID)
	now := e.clock.Now()
	req := &insightRequest{
		userID: userID,
		now:    now,
		since:  now.Add(-e.cfg.InsightWindow),
	}

	generators := []generator{
		{name: string(InsightPeakHours), run: e.peakHours},
		{name: string(InsightDeviceEfficiency), run: e.deviceEfficiency},
		{name: string(InsightHVAC), run: e.hvacUsage},
		{name: string(InsightGeneralTip), run: e.generalTips},
	}

	insights = make([]Insight, 0)
	for _, g := range generators {
		out, err := g.run(ctx, req)
		if err != nil {
			reqLogger.Warn("insight generator failed",
				zap.String("generator", g.name),
				zap.Error(err),
			)
			metrics.GeneratorFailures.WithLabelValues(g.name).Inc()
			continue
		}
		for _, in := range out {
			metrics.InsightsGenerated.WithLabelValues(string(in.Type)).Inc()
		}
		insights = append(insights, out...)
	}

	reqLogger.Info("insights generated", zap.Int("count", len(insights)))
	return insights, nil
}

func (e *Engine) peakHours(ctx context.Context, req *insightRequest) ([]Insight, error) {
	readings, err := req.window(ctx, e.store)
	if err != nil {
		return nil, err
	}
	return peakHoursInsight(SelectPeakHours(HourlyUsage(readings, e.loc))), nil
}

func (e *Engine) deviceEfficiency(ctx context.Context, req *insightRequest) ([]Insight, error) {
	readings, err := req.window(ctx, e.store)
	if err != nil {
		return nil, err
	}
	return deviceEfficiencyInsights(HighUsageDevices(DeviceAverages(readings))), nil
}

func (e *Engine) hvacUsage(ctx context.Context, req *insightRequest) ([]Insight, error) {
	readings, err := e.store.ReadingsForDeviceType(ctx, req.userID, db.DeviceHVAC, req.since)
	if err != nil {
		return nil, storeErr("readings for device type", err)
	}
	return hvacInsight(AverageUsage(readings)), nil
}

// generalTips selects and records shown tips in one per-user transaction so
// concurrent invocations cannot both pick a tip inside its dedup window.
func (e *Engine) generalTips(ctx context.Context, req *insightRequest) ([]Insight, error) {
	if e.cfg.MaxTips == 0 {
		return nil, nil
	}

	var picked []db.Tip
	err := e.store.InUserTx(ctx, req.userID, func(tx UserTx) error {
		picked = nil

		catalog, err := tx.TipsCatalog(ctx)
		if err != nil {
			return err
		}
		shown, err := tx.ShownTips(ctx, req.userID, req.now.Add(-e.cfg.TipDedupWindow))
		if err != nil {
			return err
		}

		seen := make(map[int64]struct{})
		for _, tip := range e.pickTips(EligibleTips(catalog, shown), e.cfg.MaxTips) {
			if _, dup := seen[tip.ID]; dup {
				continue
			}
			if _, wasShown := shown[tip.ID]; wasShown {
				continue
			}
			seen[tip.ID] = struct{}{}
			if err := tx.AppendShownTip(ctx, req.userID, tip.ID, req.now); err != nil {
				return err
			}
			picked = append(picked, tip)
			if len(picked) == e.cfg.MaxTips {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("select tips", err)
	}

	insights := make([]Insight, 0, len(picked))
	for _, tip := range picked {
		insights = append(insights, tipInsight(tip))
	}
	return insights, nil
}
