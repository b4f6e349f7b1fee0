package histogram

import (
	"testing"
	"time"
)

func TestCalculateBucketSizeOneHourSpan(t *testing.T) {
	got := CalculateBucketSize(time.Hour)
	if got != time.Minute {
		t.Errorf("CalculateBucketSize(1h) = %v, want %v (span/20 is 3m; the next canonical size, 5m, exceeds it)", got, time.Minute)
	}
}

func TestCalculateBucketSizeNeverZero(t *testing.T) {
	if got := CalculateBucketSize(0); got != time.Second {
		t.Errorf("CalculateBucketSize(0) = %v, want 1s", got)
	}
	if got := CalculateBucketSize(-5 * time.Second); got != time.Second {
		t.Errorf("CalculateBucketSize(negative) = %v, want 1s", got)
	}
	if got := CalculateBucketSize(500 * time.Millisecond); got != time.Second {
		t.Errorf("CalculateBucketSize(sub-second) = %v, want 1s", got)
	}
}

func TestCalculateBucketSizeLargeSpan(t *testing.T) {
	got := CalculateBucketSize(1000 * 24 * time.Hour)
	if got != 30*24*time.Hour {
		t.Errorf("CalculateBucketSize(1000d) = %v, want 30d", got)
	}
}

func TestBuildCoverage(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var instants []time.Time
	for i := 0; i < 150; i++ {
		instants = append(instants, base.Add(time.Duration(i)*time.Minute))
	}

	h := Build(instants, time.Hour)

	total := 0
	for _, b := range h.Buckets {
		total += b.Count
	}
	if total != len(instants) {
		t.Errorf("Sigma bucket counts = %d, want %d", total, len(instants))
	}

	if !h.Buckets[0].Start.Equal(base) {
		t.Errorf("first bucket start = %v, want aligned to %v", h.Buckets[0].Start, base)
	}

	last := h.Buckets[len(h.Buckets)-1]
	finalInstant := instants[len(instants)-1]
	if finalInstant.Before(last.Start) || !finalInstant.Before(last.End) {
		t.Errorf("final bucket %v-%v does not contain final instant %v", last.Start, last.End, finalInstant)
	}
}

func TestBuildEmpty(t *testing.T) {
	h := Build(nil, time.Minute)
	if len(h.Buckets) != 0 {
		t.Errorf("Build(nil) produced %d buckets, want 0", len(h.Buckets))
	}
}

func TestAnomalyDetection(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var instants []time.Time

	// 120 minutes of uniform traffic: one per minute.
	for i := 0; i < 120; i++ {
		instants = append(instants, base.Add(time.Duration(i)*time.Minute))
	}
	// A 10x spike between minutes 60 and 75.
	for i := 60; i < 75; i++ {
		for j := 0; j < 9; j++ {
			instants = append(instants, base.Add(time.Duration(i)*time.Minute).Add(time.Duration(j)*time.Second))
		}
	}

	h := Build(instants, time.Minute)
	anomalies := h.Anomalies()
	if len(anomalies) == 0 {
		t.Fatal("expected at least one anomalous bucket")
	}

	found := false
	for _, a := range anomalies {
		if a.Deviation >= 2.0 {
			idx := a.BucketIndex
			if idx >= 60 && idx < 75 {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("no anomaly with deviation >= 2 sigma located within the spike window; got %+v", anomalies)
	}
}

func TestDeviationLabelFormat(t *testing.T) {
	a := Anomaly{Deviation: 3.14159}
	a.Deviation = 3.1
	if got := a.DeviationLabel(); got != "3.1σ" {
		t.Errorf("DeviationLabel() = %q, want %q", got, "3.1σ")
	}
}

func TestASCIIBarProportional(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := Build([]time.Time{base, base, base.Add(time.Hour)}, time.Hour)
	lines := h.ASCII()
	if len(lines) != len(h.Buckets) {
		t.Fatalf("ASCII() produced %d lines, want %d", len(lines), len(h.Buckets))
	}
	for _, l := range lines {
		if len(l) == 0 {
			t.Error("empty ASCII line")
		}
	}
}
