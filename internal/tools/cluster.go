package tools

import (
	"context"
	"time"

	"github.com/fidde/logexplorer/internal/config"
	"github.com/fidde/logexplorer/internal/ingest"
	"github.com/fidde/logexplorer/internal/linematch"
	"github.com/fidde/logexplorer/internal/session"
)

// maxClusterExamples bounds how many raw lines cluster echoes per
// cluster in its result, independent of how many a Cluster retains
// internally.
const maxClusterExamples = 3

// ClusterArgs is the input to Cluster.
type ClusterArgs struct {
	File         string  `json:"file"`
	MaxClusters  int     `json:"max_clusters"`
	Threshold    float64 `json:"threshold"`
	Filter       string  `json:"filter"`
	ForceRefresh bool    `json:"force_refresh"`
}

// ClusterSummary is one cluster as reported to a caller.
type ClusterSummary struct {
	ID       int      `json:"id"`
	Count    int      `json:"count"`
	Percent  float64  `json:"percent"`
	Template string   `json:"template"`
	Examples []string `json:"examples"`
}

// ClusterResult is Cluster's output.
type ClusterResult struct {
	Error       string           `json:"error,omitempty"`
	TotalLines  int              `json:"total_lines"`
	MaxClusters int              `json:"max_clusters"`
	Threshold   float64          `json:"threshold"`
	Clusters    []ClusterSummary `json:"clusters"`
}

// Cluster ingests (or reuses a cached ingest of) file and returns its
// clusters sorted by count descending, each with up to three examples.
// MaxClusters and Threshold are clamped into their valid ranges rather
// than rejected; a zero value falls back to cfg's configured default.
func Cluster(ctx context.Context, cache *session.Cache, cfg config.Config, args ClusterArgs) ClusterResult {
	if _, errMsg := statFile(args.File); errMsg != "" {
		return ClusterResult{Error: errMsg}
	}

	maxClusters, threshold := args.MaxClusters, args.Threshold
	if maxClusters == 0 {
		maxClusters = cfg.DefaultMaxClusters
	}
	if threshold == 0 {
		threshold = cfg.DefaultThreshold
	}
	maxClusters = config.ClampMaxClusters(maxClusters)
	threshold = config.ClampThreshold(threshold)

	filter, err := linematch.Compile(args.Filter)
	if err != nil {
		return ClusterResult{Error: err.Error()}
	}

	key, err := sessionKey(args.File, maxClusters, threshold, args.Filter)
	if err != nil {
		return ClusterResult{Error: err.Error()}
	}

	entry, err := cache.GetOrIngest(ctx, key, args.ForceRefresh, func(ctx context.Context) (*session.Entry, error) {
		return ingest.Run(ctx, args.File, maxClusters, threshold, filter, time.Now())
	})
	if err != nil {
		return ClusterResult{Error: err.Error()}
	}

	views := entry.Clusterer.Stats()
	clusters := make([]ClusterSummary, len(views))
	for i, v := range views {
		examples := v.Examples
		if len(examples) > maxClusterExamples {
			examples = examples[:maxClusterExamples]
		}
		clusters[i] = ClusterSummary{
			ID:       v.ID,
			Count:    v.Count,
			Percent:  v.Percent,
			Template: v.Template,
			Examples: examples,
		}
	}

	return ClusterResult{
		TotalLines:  entry.TotalLines,
		MaxClusters: maxClusters,
		Threshold:   threshold,
		Clusters:    clusters,
	}
}
