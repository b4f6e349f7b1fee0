package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/fidde/logexplorer/internal/config"
	"github.com/fidde/logexplorer/internal/linematch"
)

// GrepArgs is the input to Grep.
type GrepArgs struct {
	File         string `json:"file"`
	Pattern      string `json:"pattern"`
	MaxExamples  int    `json:"max_examples"`
	ContextLines int    `json:"context_lines"`
}

// GrepExample is one matched line together with any surrounding context.
type GrepExample struct {
	LineNumber int      `json:"line_number"`
	Line       string   `json:"line"`
	Before     []string `json:"before,omitempty"`
	After      []string `json:"after,omitempty"`
}

// GrepResult is Grep's output.
type GrepResult struct {
	Error        string        `json:"error,omitempty"`
	TotalMatches int           `json:"total_matches"`
	Examples     []GrepExample `json:"examples"`
	Truncated    bool          `json:"truncated"`
	Hint         string        `json:"hint,omitempty"`
}

// Grep counts every line in file matching pattern and returns up to
// max_examples of them with context_lines of surrounding context on each
// side. It exists only so a caller can confirm a hypothesis formed from a
// cluster template; fetch is the tool for paging through bulk matches.
func Grep(ctx context.Context, cfg config.Config, args GrepArgs) GrepResult {
	if _, errMsg := statFile(args.File); errMsg != "" {
		return GrepResult{Error: errMsg}
	}

	maxExamples := args.MaxExamples
	if maxExamples <= 0 {
		maxExamples = cfg.DefaultMaxExamples
	}
	contextLines := args.ContextLines
	if contextLines < 0 {
		contextLines = 0
	}

	matcher, err := linematch.Compile(args.Pattern)
	if err != nil {
		return GrepResult{Error: err.Error()}
	}

	f, err := os.Open(args.File)
	if err != nil {
		return GrepResult{Error: err.Error()}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var window []string
	var examples []GrepExample
	pendingAfter := make(map[int]int)
	totalMatches := 0
	lineNo := 0

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return GrepResult{Error: err.Error()}
		}
		lineNo++
		line := scanner.Text()

		for idx, remaining := range pendingAfter {
			if remaining <= 0 {
				continue
			}
			examples[idx].After = append(examples[idx].After, line)
			pendingAfter[idx]--
			if pendingAfter[idx] == 0 {
				delete(pendingAfter, idx)
			}
		}

		if matcher.Match(line) {
			totalMatches++
			if len(examples) < maxExamples {
				before := append([]string(nil), window...)
				examples = append(examples, GrepExample{LineNumber: lineNo, Line: line, Before: before})
				if contextLines > 0 {
					pendingAfter[len(examples)-1] = contextLines
				}
			}
		}

		if contextLines > 0 {
			window = append(window, line)
			if len(window) > contextLines {
				window = window[len(window)-contextLines:]
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return GrepResult{Error: err.Error()}
	}

	result := GrepResult{TotalMatches: totalMatches, Examples: examples}
	if totalMatches > len(examples) {
		result.Truncated = true
		result.Hint = fmt.Sprintf("only %d of %d matches shown; use fetch with the same pattern as filter to page through the rest", len(examples), totalMatches)
	}
	return result
}
