// Package blockmatch finds non-overlapping runs of equal tokens between two
// token sequences, favoring long, information-dense runs over a classical
// LCS reconstruction.
package blockmatch

import (
	"sort"

	"github.com/fidde/logexplorer/internal/token"
)

// Block is a correspondence between equal-length, equal-text slices of two
// token sequences: A[AStart:AEnd] == B[BStart:BEnd] token-for-token.
type Block struct {
	AStart, AEnd int
	BStart, BEnd int
}

// Len reports the number of tokens covered by the block.
func (b Block) Len() int { return b.AEnd - b.AStart }

type candidate struct {
	aEnd, bEnd, length int
	score              int
}

// Match returns the blocks admitted between a and b, ordered by AStart
// ascending, with no two blocks overlapping in either sequence. Every
// returned block contains at least one significant (word, length >= 2)
// token.
//
// The algorithm fills a suffix-length DP table, turns every positive cell
// into a scored candidate, and greedily admits candidates highest score
// first provided neither side has already been claimed. This -- longest
// common *suffix* per cell, not the classical LCS back-pointer walk --
// is what lets the matcher tolerate reordering between lines while still
// preferring long blocks.
func Match(a, b []token.Token) []Block {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}

	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}

	var candidates []candidate
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if a[i-1].Text != b[j-1].Text {
				continue
			}
			dp[i][j] = dp[i-1][j-1] + 1
			length := dp[i][j]

			if !hasSignificant(a, i-length, i) {
				continue
			}

			score := length + countNonDelim(a, i-length, i)
			candidates = append(candidates, candidate{aEnd: i, bEnd: j, length: length, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	usedA := make([]bool, n)
	usedB := make([]bool, m)

	var blocks []Block
	for _, c := range candidates {
		aStart, aEnd := c.aEnd-c.length, c.aEnd
		bStart, bEnd := c.bEnd-c.length, c.bEnd

		if rangeUsed(usedA, aStart, aEnd) || rangeUsed(usedB, bStart, bEnd) {
			continue
		}

		markUsed(usedA, aStart, aEnd)
		markUsed(usedB, bStart, bEnd)
		blocks = append(blocks, Block{AStart: aStart, AEnd: aEnd, BStart: bStart, BEnd: bEnd})
	}

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].AStart < blocks[j].AStart
	})

	return blocks
}

func hasSignificant(toks []token.Token, start, end int) bool {
	for i := start; i < end; i++ {
		if toks[i].Significant() {
			return true
		}
	}
	return false
}

func countNonDelim(toks []token.Token, start, end int) int {
	n := 0
	for i := start; i < end; i++ {
		if !toks[i].IsDelimiter {
			n++
		}
	}
	return n
}

func rangeUsed(used []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if used[i] {
			return true
		}
	}
	return false
}

func markUsed(used []bool, start, end int) {
	for i := start; i < end; i++ {
		used[i] = true
	}
}
