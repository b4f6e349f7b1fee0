// Package template builds and incrementally generalizes line templates: a
// pattern of literal fragments interleaved with a ".*" wildcard marker,
// synthesized from pairs of lines or from a template and a new line.
package template

import (
	"strings"

	"github.com/fidde/logexplorer/internal/blockmatch"
	"github.com/fidde/logexplorer/internal/token"
)

// Wildcard is the gap marker used in Pattern between static fragments.
const Wildcard = ".*"

// sentinel separates a template's static parts when reconstructing a
// synthetic line to re-run the block matcher against during Merge. Lines
// are assumed never to contain it; AssertNoSentinel enforces that at the
// point a line is admitted to a cluster.
const sentinel = "\x00"

// Template is a pattern of literal fragments and wildcard gaps, together
// with the ordered fragments pattern was built from.
type Template struct {
	Pattern     string
	StaticParts []string
}

// AssertNoSentinel reports whether line is free of the NUL byte used
// internally to join static parts during Merge; it returns false for a
// line containing NUL. Callers should refuse to admit such a line to a
// cluster (see internal/cluster).
func AssertNoSentinel(line string) bool {
	return strings.IndexByte(line, 0) < 0
}

// Extract builds a Template from a pair of raw lines, along with the
// similarity of the two lines: 2*matched_len / (len(a)+len(b)), where
// matched_len is the total character count of the fragments that ended up
// static.
func Extract(a, b string) (Template, float64) {
	tokA := token.Tokenize(a)
	tokB := token.Tokenize(b)
	blocks := blockmatch.Match(tokA, tokB)

	if len(blocks) == 0 {
		return Template{Pattern: Wildcard}, 0
	}

	var parts []string
	matchedLen := 0
	for _, blk := range blocks {
		frag := sliceText(tokA, blk.AStart, blk.AEnd)
		parts = append(parts, frag)
		matchedLen += len([]rune(frag))
	}

	pattern := composePattern(parts, blocks[0].AStart != 0, blocks[len(blocks)-1].AEnd != len(tokA))

	similarity := 0.0
	if total := len([]rune(a)) + len([]rune(b)); total > 0 {
		similarity = 2 * float64(matchedLen) / float64(total)
	}

	return Template{Pattern: pattern, StaticParts: parts}, similarity
}

// Merge updates tmpl against a newly admitted line, returning the
// generalized template and the merge-specific similarity:
// 2*new_matched_len / (len(tmpl.Pattern)+len(line)). This differs from
// Extract's formula (it mixes pattern length, which shrinks as a template
// generalizes, with the new line's length) but callers of package cluster
// depend on this exact, asymmetric definition.
func Merge(tmpl Template, line string) (Template, float64) {
	syntheticA := strings.Join(tmpl.StaticParts, sentinel)
	tokA := token.Tokenize(syntheticA)
	tokB := token.Tokenize(line)
	blocks := blockmatch.Match(tokA, tokB)

	if len(blocks) == 0 {
		return Template{Pattern: Wildcard}, 0
	}

	var fragments []string // "" marks a gap (wildcard) in order
	matchedLen := 0
	for _, blk := range blocks {
		raw := sliceText(tokA, blk.AStart, blk.AEnd)
		stripped := strings.ReplaceAll(raw, sentinel, "")
		if stripped == "" {
			fragments = append(fragments, "")
			continue
		}
		fragments = append(fragments, stripped)
		matchedLen += len([]rune(stripped))
	}

	// A wildcard the template already had at either end is kept even when
	// the matched blocks reach that end of the joined static parts.
	leadingGap := blocks[0].AStart != 0 || strings.HasPrefix(tmpl.Pattern, Wildcard)
	trailingGap := blocks[len(blocks)-1].AEnd != len(tokA) || strings.HasSuffix(tmpl.Pattern, Wildcard)

	pattern, staticParts := composeMergedPattern(fragments, leadingGap, trailingGap)

	similarity := 0.0
	if total := len([]rune(tmpl.Pattern)) + len([]rune(line)); total > 0 {
		similarity = 2 * float64(matchedLen) / float64(total)
	}

	return Template{Pattern: pattern, StaticParts: staticParts}, similarity
}

// composePattern joins literal fragments (all non-empty, as produced by
// Extract) with Wildcard, adding a leading/trailing wildcard as directed.
func composePattern(parts []string, leadingGap, trailingGap bool) string {
	var b strings.Builder
	if leadingGap {
		b.WriteString(Wildcard)
	}
	for i, p := range parts {
		if i > 0 {
			b.WriteString(Wildcard)
		}
		b.WriteString(p)
	}
	if trailingGap {
		b.WriteString(Wildcard)
	}
	return collapseWildcards(b.String())
}

// composeMergedPattern joins a mix of literal fragments and "" gap markers
// (from Merge), inserting a wildcard between every pair of fragments (a gap
// always existed where the block matcher did not claim tokens) and for any
// leading/trailing uncovered span, then collapses consecutive wildcards.
func composeMergedPattern(fragments []string, leadingGap, trailingGap bool) (string, []string) {
	var b strings.Builder
	var staticParts []string

	if leadingGap {
		b.WriteString(Wildcard)
	}
	for i, f := range fragments {
		if i > 0 {
			b.WriteString(Wildcard)
		}
		if f == "" {
			b.WriteString(Wildcard)
			continue
		}
		b.WriteString(f)
		staticParts = append(staticParts, f)
	}
	if trailingGap {
		b.WriteString(Wildcard)
	}

	return collapseWildcards(b.String()), staticParts
}

// collapseWildcards replaces any run of consecutive Wildcard markers with a
// single one, preserving the canonical-pattern invariant.
func collapseWildcards(pattern string) string {
	for strings.Contains(pattern, Wildcard+Wildcard) {
		pattern = strings.ReplaceAll(pattern, Wildcard+Wildcard, Wildcard)
	}
	return pattern
}

func sliceText(toks []token.Token, start, end int) string {
	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(toks[i].Text)
	}
	return b.String()
}
