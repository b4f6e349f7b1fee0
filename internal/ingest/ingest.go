// Package ingest streams a log file line by line into the clustering and
// temporal-extraction core, bounded by the spec's memory model: the full
// file is never resident, only up to MaxSample lines are buffered while
// the timestamp format is being detected.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fidde/logexplorer/internal/cluster"
	"github.com/fidde/logexplorer/internal/linematch"
	"github.com/fidde/logexplorer/internal/session"
	"github.com/fidde/logexplorer/internal/timestamp"
)

// maxLineBuffer bounds the longest single line bufio.Scanner will accept.
const maxLineBuffer = 10 * 1024 * 1024

// Run scans the file at path, feeding every line that satisfies filter
// into a fresh Clusterer, and returns the completed session.Entry. now is
// sampled once and used for any recognizer (like syslog) that needs the
// wall clock to resolve a missing field.
func Run(ctx context.Context, path string, maxClusters int, threshold float64, filter linematch.Matcher, now time.Time) (*session.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBuffer)

	clusterer := cluster.New(threshold, maxClusters)

	var sample []string
	var pending []string
	sampling := true
	var recognizer timestamp.Recognizer
	var hasRecognizer bool
	var timestamps []time.Time
	totalLines := 0

	admit := func(line string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		var tsPtr *time.Time
		if hasRecognizer {
			if t, ok := recognizer.Extract(line, now); ok {
				tsPtr = &t
				timestamps = append(timestamps, t)
			}
		}

		if _, err := clusterer.Add(line, tsPtr); err != nil {
			log.Printf("ingest: %s: skipping line: %v", path, err)
		}
		return nil
	}

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := scanner.Text()
		if !filter.Match(line) {
			continue
		}
		totalLines++

		if sampling {
			sample = append(sample, line)
			pending = append(pending, line)
			if len(sample) >= timestamp.MaxSample {
				recognizer, hasRecognizer = timestamp.Detect(sample, now)
				sampling = false
				for _, l := range pending {
					if err := admit(l); err != nil {
						return nil, err
					}
				}
				pending = nil
			}
			continue
		}

		if err := admit(line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", path, err)
	}

	if sampling {
		recognizer, hasRecognizer = timestamp.Detect(sample, now)
		for _, l := range pending {
			if err := admit(l); err != nil {
				return nil, err
			}
		}
	}

	return &session.Entry{
		TotalLines:    totalLines,
		Clusterer:     clusterer,
		Timestamps:    timestamps,
		Recognizer:    recognizer,
		HasRecognizer: hasRecognizer,
	}, nil
}
