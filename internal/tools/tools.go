// Package tools implements the six tool operations that make up the
// engine's external surface: overview, cluster, cluster_drill, timeline,
// grep, and fetch. Each is a plain Go function over a structured argument
// and result type; the JSON-RPC-shaped transport that dispatches them to
// a caller lives outside this package (see cmd/logexplorer).
package tools

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/fidde/logexplorer/internal/session"
)

// TimeRange describes the span of timestamps observed in a file or cluster.
type TimeRange struct {
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
}

// statFile resolves path to an os.FileInfo, translating ENOENT into the
// file-not-found error kind and any other I/O failure into its own
// message, both meant to be attached to a result's Error field rather than
// returned as a Go error.
func statFile(path string) (os.FileInfo, string) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Sprintf("file not found: %s", path)
		}
		return nil, err.Error()
	}
	if info.IsDir() {
		return nil, fmt.Sprintf("not a regular file: %s", path)
	}
	return info, ""
}

// humanSize formats n bytes the way overview's "size in bytes + human"
// field requires.
func humanSize(n int64) string {
	return humanize.Bytes(uint64(n))
}

// sessionKey builds the cache key used by overview, cluster, and
// timeline's whole-file pass. cluster_drill and timeline's per-cluster
// lookup find a prior pass through session.Cache.EntriesForFile instead.
func sessionKey(path string, maxClusters int, threshold float64, filter string) (session.Key, error) {
	ident, err := session.Stat(path)
	if err != nil {
		return session.Key{}, err
	}
	return session.Key{FileIdentity: ident, MaxClusters: maxClusters, Threshold: threshold, Filter: filter}, nil
}

// minMaxTime returns the earliest and latest instant in ts. The caller
// must ensure ts is non-empty.
func minMaxTime(ts []time.Time) (time.Time, time.Time) {
	min, max := ts[0], ts[0]
	for _, t := range ts[1:] {
		if t.Before(min) {
			min = t
		}
		if t.After(max) {
			max = t
		}
	}
	return min, max
}
