package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/fidde/logexplorer/internal/cluster"
	"github.com/fidde/logexplorer/internal/config"
	"github.com/fidde/logexplorer/internal/linematch"
	"github.com/fidde/logexplorer/internal/session"
)

// findClusterByID searches every cached entry for path for one whose
// clusterer holds clusterID, returning the owning keyed entry and cluster.
// A file can have been ingested under several distinct (max_clusters,
// threshold, filter) tuples; cluster_id is only unique within the pass
// that produced it, so this walks all of them.
func findClusterByID(cache *session.Cache, path string, clusterID int) (session.KeyedEntry, *cluster.Cluster, bool) {
	ident, err := session.Stat(path)
	if err != nil {
		return session.KeyedEntry{}, nil, false
	}
	for _, ke := range cache.EntriesForFile(ident) {
		if cl, ok := ke.Entry.Clusterer.Get(clusterID); ok {
			return ke, cl, true
		}
	}
	return session.KeyedEntry{}, nil, false
}

// ClusterDrillArgs is the input to ClusterDrill.
type ClusterDrillArgs struct {
	File           string `json:"file"`
	ClusterID      int    `json:"cluster_id"`
	MaxSubclusters int    `json:"max_subclusters"`
}

// ClusterDrillResult is ClusterDrill's output.
type ClusterDrillResult struct {
	Error          string           `json:"error,omitempty"`
	ParentID       int              `json:"parent_id"`
	ParentTemplate string           `json:"parent_template"`
	ParentCount    int              `json:"parent_count"`
	SubClusters    []ClusterSummary `json:"sub_clusters"`
}

// ClusterDrill re-scans file for lines matching the parent cluster above
// the fixed membership floor (config.DrillThreshold) and sub-clusters them
// with a fresh Clusterer built at config.DrillClustererThreshold. The
// parent cluster must already exist in the session cache: it has no
// effect other than to locate which prior ingest pass produced
// cluster_id, so a cluster_drill against an id that was never issued (or
// has since been evicted) fails with an unknown-cluster error.
func ClusterDrill(ctx context.Context, cache *session.Cache, cfg config.Config, args ClusterDrillArgs) ClusterDrillResult {
	if _, errMsg := statFile(args.File); errMsg != "" {
		return ClusterDrillResult{Error: errMsg}
	}

	ke, parent, ok := findClusterByID(cache, args.File, args.ClusterID)
	if !ok {
		return ClusterDrillResult{Error: fmt.Sprintf("unknown cluster: id %d has not been issued for %s (run cluster first)", args.ClusterID, args.File)}
	}

	maxSub := args.MaxSubclusters
	if maxSub <= 0 {
		maxSub = cfg.DefaultMaxSubClusters
	}

	filter, err := linematch.Compile(ke.Key.Filter)
	if err != nil {
		return ClusterDrillResult{Error: err.Error()}
	}

	sub := cluster.New(config.DrillClustererThreshold, maxSub)

	f, err := os.Open(args.File)
	if err != nil {
		return ClusterDrillResult{Error: err.Error()}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return ClusterDrillResult{Error: err.Error()}
		}
		line := scanner.Text()
		if !filter.Match(line) {
			continue
		}
		if cluster.Similarity(parent, line) < config.DrillThreshold {
			continue
		}
		if _, err := sub.Add(line, nil); err != nil {
			continue
		}
	}
	if err := scanner.Err(); err != nil {
		return ClusterDrillResult{Error: err.Error()}
	}

	views := sub.Stats()
	subClusters := make([]ClusterSummary, len(views))
	for i, v := range views {
		examples := v.Examples
		if len(examples) > maxClusterExamples {
			examples = examples[:maxClusterExamples]
		}
		subClusters[i] = ClusterSummary{
			ID:       v.ID,
			Count:    v.Count,
			Percent:  v.Percent,
			Template: v.Template,
			Examples: examples,
		}
	}

	return ClusterDrillResult{
		ParentID:       parent.ID,
		ParentTemplate: parent.Template.Pattern,
		ParentCount:    parent.Count,
		SubClusters:    subClusters,
	}
}
