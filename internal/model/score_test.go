package model

import (
	"math"
	"testing"
)

func TestClamp01(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.2, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}

	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewMetricResult_DefaultsEmptyCollections(t *testing.T) {
	r := NewMetricResult(3, true, nil, nil)

	if r.Score != 1 {
		t.Errorf("Score = %.2f, want 1.00", r.Score)
	}
	if r.Factors == nil || r.RawData == nil {
		t.Error("Factors and RawData should be non-nil")
	}
}

func TestUnavailable(t *testing.T) {
	r := Unavailable("no data")

	if r.Available || r.Score != 0 {
		t.Errorf("Unavailable() = {%.2f, %v}, want {0, false}", r.Score, r.Available)
	}
	if len(r.Factors) != 1 || r.Factors[0] != "no data" {
		t.Errorf("Factors = %v, want [no data]", r.Factors)
	}
}
