package tools

import (
	"bufio"
	"context"
	"os"

	"github.com/fidde/logexplorer/internal/config"
	"github.com/fidde/logexplorer/internal/linematch"
)

// FetchArgs is the input to Fetch.
type FetchArgs struct {
	File   string `json:"file"`
	Filter string `json:"filter"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// FetchedLine is one raw line with its physical line number.
type FetchedLine struct {
	LineNumber int    `json:"line_number"`
	Line       string `json:"line"`
}

// FetchResult is Fetch's output. TotalScanned is the number of matching
// lines observed up to and including the returned window, not the total
// number of matches in the whole file: Fetch stops scanning as soon as
// the window is filled.
type FetchResult struct {
	Error        string        `json:"error,omitempty"`
	Lines        []FetchedLine `json:"lines"`
	TotalScanned int           `json:"total_scanned"`
}

// Fetch returns raw lines from file matching filter, skipping the first
// offset matches and returning up to limit of the rest.
func Fetch(ctx context.Context, cfg config.Config, args FetchArgs) FetchResult {
	if _, errMsg := statFile(args.File); errMsg != "" {
		return FetchResult{Error: errMsg}
	}

	offset := args.Offset
	if offset < 0 {
		offset = 0
	}
	limit := args.Limit
	if limit <= 0 {
		limit = cfg.DefaultFetchLimit
	}

	matcher, err := linematch.Compile(args.Filter)
	if err != nil {
		return FetchResult{Error: err.Error()}
	}

	f, err := os.Open(args.File)
	if err != nil {
		return FetchResult{Error: err.Error()}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	matched := 0
	lineNo := 0
	var lines []FetchedLine

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return FetchResult{Error: err.Error()}
		}
		lineNo++
		line := scanner.Text()
		if !matcher.Match(line) {
			continue
		}
		matched++
		if matched > offset && len(lines) < limit {
			lines = append(lines, FetchedLine{LineNumber: lineNo, Line: line})
		}
		if len(lines) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return FetchResult{Error: err.Error()}
	}

	return FetchResult{Lines: lines, TotalScanned: matched}
}
