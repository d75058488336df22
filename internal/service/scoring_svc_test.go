package service

import (
	"context"
	"errors"
	"testing"

	"github.com/abm312/expert-suitability-engine/internal/metric"
	"github.com/abm312/expert-suitability-engine/internal/model"
)

func TestScore_RescalesWeightsOverAvailableMetrics(t *testing.T) {
	c := creator(1, 1000)
	engine := NewScoringEngine(stubRegistry(
		uniform(model.MetricCredibility, 0.8, 1),
		uniform(model.MetricFreshness, 0.4, 1),
		uniform(model.MetricGrowth, 0.9), // no creators: unavailable
	), nil)

	res, err := engine.Score(context.Background(), c, map[model.MetricID]model.MetricConfig{
		model.MetricCredibility: {Enabled: true, Weight: 0.2},
		model.MetricFreshness:   {Enabled: true, Weight: 0.2},
		model.MetricGrowth:      {Enabled: true, Weight: 0.6},
	}, metric.TopicContext{Now: testNow})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	// (0.8*0.2 + 0.4*0.2) / 0.4 = 0.6
	if !almostEqual(res.OverallScore, 0.6, 1e-9) {
		t.Errorf("overall = %.4f, want 0.6000", res.OverallScore)
	}

	var sum float64
	for _, w := range res.WeightsApplied {
		sum += w
	}
	if !almostEqual(sum, 1, 1e-9) {
		t.Errorf("applied weights sum = %.4f, want 1.0000", sum)
	}
	if _, ok := res.WeightsApplied[model.MetricGrowth]; ok {
		t.Error("unavailable metric should carry no weight")
	}

	growth := res.MetricScores[model.MetricGrowth]
	if growth.Available || growth.Score != 0 {
		t.Errorf("growth = %+v, want unavailable with score 0", growth)
	}
	if len(growth.Factors) != 1 || growth.Factors[0] != "Growth not available for this creator" {
		t.Errorf("growth factors = %v", growth.Factors)
	}
}

func TestScore_UnavailableMatchesDisabled(t *testing.T) {
	c := creator(1, 1000)
	engine := NewScoringEngine(stubRegistry(
		uniform(model.MetricCredibility, 0.7, 1),
		uniform(model.MetricTopicAuthority, 0.3, 1),
		uniform(model.MetricGrowth, 0.9),
	), nil)
	tc := metric.TopicContext{Now: testNow}

	withUnavailable, err := engine.Score(context.Background(), c, map[model.MetricID]model.MetricConfig{
		model.MetricCredibility:    {Enabled: true, Weight: 0.5},
		model.MetricTopicAuthority: {Enabled: true, Weight: 0.25},
		model.MetricGrowth:         {Enabled: true, Weight: 0.25},
	}, tc)
	if err != nil {
		t.Fatal(err)
	}
	withDisabled, err := engine.Score(context.Background(), c, map[model.MetricID]model.MetricConfig{
		model.MetricCredibility:    {Enabled: true, Weight: 0.5},
		model.MetricTopicAuthority: {Enabled: true, Weight: 0.25},
		model.MetricGrowth:         {Enabled: false, Weight: 0.25},
	}, tc)
	if err != nil {
		t.Fatal(err)
	}

	if !almostEqual(withUnavailable.OverallScore, withDisabled.OverallScore, 1e-12) {
		t.Errorf("overall = %.6f vs %.6f, want equal", withUnavailable.OverallScore, withDisabled.OverallScore)
	}
	for id, w := range withDisabled.WeightsApplied {
		if !almostEqual(withUnavailable.WeightsApplied[id], w, 1e-12) {
			t.Errorf("weight[%s] = %.4f, want %.4f", id, withUnavailable.WeightsApplied[id], w)
		}
	}
	if _, ok := withDisabled.MetricScores[model.MetricGrowth]; ok {
		t.Error("disabled metric should not appear in metric scores")
	}
}

func TestScore_ZeroTotalWeight(t *testing.T) {
	engine := NewScoringEngine(stubRegistry(uniform(model.MetricCredibility, 0.9, 1)), nil)
	res, err := engine.Score(context.Background(), creator(1, 10), map[model.MetricID]model.MetricConfig{
		model.MetricCredibility: {Enabled: true, Weight: 0},
	}, metric.TopicContext{})
	if err != nil {
		t.Fatal(err)
	}
	if res.OverallScore != 0 {
		t.Errorf("overall = %.2f, want 0.00", res.OverallScore)
	}
	if len(res.WeightsApplied) != 0 {
		t.Errorf("weights = %v, want empty", res.WeightsApplied)
	}
}

func TestScore_FactorsCappedPerMetric(t *testing.T) {
	m := uniform(model.MetricCredibility, 0.5, 1)
	m.factors = []string{"a", "b", "c"}
	engine := NewScoringEngine(stubRegistry(m, uniform(model.MetricFreshness, 0.5, 1)), nil)

	res, err := engine.Score(context.Background(), creator(1, 10), map[model.MetricID]model.MetricConfig{
		model.MetricCredibility: {Enabled: true, Weight: 0.5},
		model.MetricFreshness:   {Enabled: true, Weight: 0.5},
	}, metric.TopicContext{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "freshness factor"}
	if len(res.Factors) != len(want) {
		t.Fatalf("factors = %v, want %v", res.Factors, want)
	}
	for i := range want {
		if res.Factors[i] != want[i] {
			t.Errorf("factors[%d] = %q, want %q", i, res.Factors[i], want[i])
		}
	}
}

func TestScore_PanickingMetricIsUnavailable(t *testing.T) {
	bad := &stubMetric{id: model.MetricCommunication, panics: true}
	engine := NewScoringEngine(stubRegistry(uniform(model.MetricCredibility, 0.4, 1), bad), nil)

	res, err := engine.Score(context.Background(), creator(1, 10), map[model.MetricID]model.MetricConfig{
		model.MetricCredibility:   {Enabled: true, Weight: 0.5},
		model.MetricCommunication: {Enabled: true, Weight: 0.5},
	}, metric.TopicContext{})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	comm := res.MetricScores[model.MetricCommunication]
	if comm.Available {
		t.Error("panicking metric should be unavailable")
	}
	if comm.Factors[0] != "Communication could not be computed" {
		t.Errorf("factor = %q", comm.Factors[0])
	}
	if !almostEqual(res.OverallScore, 0.4, 1e-9) {
		t.Errorf("overall = %.2f, want 0.40", res.OverallScore)
	}
}

func TestScore_UnknownMetric(t *testing.T) {
	engine := NewScoringEngine(stubRegistry(uniform(model.MetricCredibility, 0.4, 1)), nil)
	_, err := engine.Score(context.Background(), creator(1, 10), map[model.MetricID]model.MetricConfig{
		"charisma": {Enabled: true, Weight: 1},
	}, metric.TopicContext{})
	if !errors.Is(err, metric.ErrUnknownMetric) {
		t.Errorf("err = %v, want ErrUnknownMetric", err)
	}
}

func TestScore_CancelledContext(t *testing.T) {
	engine := NewScoringEngine(stubRegistry(uniform(model.MetricCredibility, 0.4, 1)), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := engine.Score(ctx, creator(1, 10), map[model.MetricID]model.MetricConfig{
		model.MetricCredibility: {Enabled: true, Weight: 1},
	}, metric.TopicContext{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if res != nil {
		t.Error("cancelled pass should not return partial results")
	}
}
