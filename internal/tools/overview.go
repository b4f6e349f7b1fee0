package tools

import (
	"context"
	"time"

	"github.com/fidde/logexplorer/internal/config"
	"github.com/fidde/logexplorer/internal/ingest"
	"github.com/fidde/logexplorer/internal/linematch"
	"github.com/fidde/logexplorer/internal/session"
)

// OverviewArgs is the input to Overview.
type OverviewArgs struct {
	File string `json:"file"`
}

// OverviewResult is Overview's output. Format is empty when no timestamp
// format was detected; TimeRange is nil under the same condition.
type OverviewResult struct {
	Error      string     `json:"error,omitempty"`
	SizeBytes  int64      `json:"size_bytes"`
	SizeHuman  string     `json:"size_human"`
	TotalLines int        `json:"total_lines"`
	Format     string     `json:"format,omitempty"`
	TimeRange  *TimeRange `json:"time_range,omitempty"`
}

// Overview reports a file's size, line count, detected timestamp format,
// and observed time range. It runs (or reuses a cached) full ingest pass
// under the engine's default cluster parameters and an empty filter,
// since overview needs the same total-line-count and timestamp series a
// plain cluster call over the whole file would produce.
func Overview(ctx context.Context, cache *session.Cache, cfg config.Config, args OverviewArgs) OverviewResult {
	info, errMsg := statFile(args.File)
	if errMsg != "" {
		return OverviewResult{Error: errMsg}
	}

	key, err := sessionKey(args.File, cfg.DefaultMaxClusters, cfg.DefaultThreshold, "")
	if err != nil {
		return OverviewResult{Error: err.Error()}
	}

	entry, err := cache.GetOrIngest(ctx, key, false, func(ctx context.Context) (*session.Entry, error) {
		return ingest.Run(ctx, args.File, cfg.DefaultMaxClusters, cfg.DefaultThreshold, linematch.Matcher{}, time.Now())
	})
	if err != nil {
		return OverviewResult{Error: err.Error()}
	}

	result := OverviewResult{
		SizeBytes:  info.Size(),
		SizeHuman:  humanSize(info.Size()),
		TotalLines: entry.TotalLines,
	}
	if entry.HasRecognizer {
		result.Format = entry.Recognizer.Name
	}
	if len(entry.Timestamps) > 0 {
		start, end := minMaxTime(entry.Timestamps)
		result.TimeRange = &TimeRange{Start: start, End: end, Duration: end.Sub(start)}
	}
	return result
}
