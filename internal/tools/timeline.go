package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/fidde/logexplorer/internal/config"
	"github.com/fidde/logexplorer/internal/histogram"
	"github.com/fidde/logexplorer/internal/ingest"
	"github.com/fidde/logexplorer/internal/linematch"
	"github.com/fidde/logexplorer/internal/session"
)

// TimelineArgs is the input to Timeline. ClusterID, when non-nil, scopes
// the histogram to that cluster's own timestamps rather than the whole
// file. BucketSize is one of "auto", "minute", "hour", "day"; anything
// else is treated as "auto".
type TimelineArgs struct {
	File       string `json:"file"`
	ClusterID  *int   `json:"cluster_id"`
	BucketSize string `json:"bucket_size"`
}

// BucketView is one rendered histogram bucket.
type BucketView struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`
}

// AnomalyView is one bucket flagged as a count outlier.
type AnomalyView struct {
	BucketIndex int       `json:"bucket_index"`
	Start       time.Time `json:"start"`
	Count       int       `json:"count"`
	Deviation   float64   `json:"deviation"`
	Label       string    `json:"label"`
}

// TimelineResult is Timeline's output.
type TimelineResult struct {
	Error      string        `json:"error,omitempty"`
	BucketSize string        `json:"bucket_size"`
	TimeRange  *TimeRange    `json:"time_range"`
	Buckets    []BucketView  `json:"buckets"`
	Anomalies  []AnomalyView `json:"anomalies"`
	ASCII      []string      `json:"ascii"`
}

// Timeline buckets the observed timestamps for file (or, with ClusterID
// set, just that cluster's timestamps) and returns a histogram with an
// ASCII bar rendering and any anomalous buckets.
func Timeline(ctx context.Context, cache *session.Cache, cfg config.Config, args TimelineArgs) TimelineResult {
	if _, errMsg := statFile(args.File); errMsg != "" {
		return TimelineResult{Error: errMsg}
	}

	var timestamps []time.Time

	if args.ClusterID != nil {
		_, cl, ok := findClusterByID(cache, args.File, *args.ClusterID)
		if !ok {
			return TimelineResult{Error: fmt.Sprintf("unknown cluster: id %d has not been issued for %s (run cluster first)", *args.ClusterID, args.File)}
		}
		timestamps = cl.Timestamps
	} else {
		key, err := sessionKey(args.File, cfg.DefaultMaxClusters, cfg.DefaultThreshold, "")
		if err != nil {
			return TimelineResult{Error: err.Error()}
		}
		entry, err := cache.GetOrIngest(ctx, key, false, func(ctx context.Context) (*session.Entry, error) {
			return ingest.Run(ctx, args.File, cfg.DefaultMaxClusters, cfg.DefaultThreshold, linematch.Matcher{}, time.Now())
		})
		if err != nil {
			return TimelineResult{Error: err.Error()}
		}
		if !entry.HasRecognizer {
			return TimelineResult{Error: "no timestamp format was detected for this file"}
		}
		timestamps = entry.Timestamps
	}

	if len(timestamps) == 0 {
		return TimelineResult{Error: "no timestamps observed"}
	}

	start, end := minMaxTime(timestamps)
	span := end.Sub(start)

	var bucketSize time.Duration
	switch args.BucketSize {
	case "minute":
		bucketSize = time.Minute
	case "hour":
		bucketSize = time.Hour
	case "day":
		bucketSize = 24 * time.Hour
	default:
		bucketSize = histogram.CalculateBucketSize(span)
	}

	h := histogram.Build(timestamps, bucketSize)

	buckets := make([]BucketView, len(h.Buckets))
	for i, b := range h.Buckets {
		buckets[i] = BucketView{Start: b.Start, End: b.End, Count: b.Count}
	}

	anomalies := make([]AnomalyView, 0)
	for _, a := range h.Anomalies() {
		anomalies = append(anomalies, AnomalyView{
			BucketIndex: a.BucketIndex,
			Start:       a.Bucket.Start,
			Count:       a.Bucket.Count,
			Deviation:   a.Deviation,
			Label:       a.DeviationLabel(),
		})
	}

	return TimelineResult{
		BucketSize: bucketSize.String(),
		TimeRange:  &TimeRange{Start: start, End: end, Duration: span},
		Buckets:    buckets,
		Anomalies:  anomalies,
		ASCII:      h.ASCII(),
	}
}
