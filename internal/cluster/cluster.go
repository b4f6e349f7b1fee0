// Package cluster implements the online, bounded-capacity clusterer: for
// each incoming line it finds the best-matching cluster above a similarity
// threshold, updates it, or opens a new one, evicting the
// least-populated cluster when the collection is full.
package cluster

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fidde/logexplorer/internal/template"
)

// MaxExamples bounds how many raw lines a cluster retains.
const MaxExamples = 5

// ErrSentinelInLine is returned by Add when a line contains the NUL byte
// used internally by package template to join static parts during merge.
var ErrSentinelInLine = errors.New("cluster: line contains NUL byte, which is reserved for template merging")

// Cluster is one group of syntactically similar lines.
type Cluster struct {
	ID         int
	Template   template.Template
	Count      int
	Examples   []string
	Timestamps []time.Time

	insertionSeq int
}

// View is a read-only summary of a cluster, as returned by Stats.
type View struct {
	ID       int
	Count    int
	Percent  float64
	Template string
	Examples []string
}

// Clusterer is an online, bounded collection of clusters.
type Clusterer struct {
	Threshold   float64
	MaxClusters int

	nextID  int
	nextSeq int
	order   []*Cluster // insertion order, oldest first
	byID    map[int]*Cluster
}

// New creates a Clusterer with the given similarity threshold and capacity.
func New(threshold float64, maxClusters int) *Clusterer {
	return &Clusterer{
		Threshold:   threshold,
		MaxClusters: maxClusters,
		byID:        make(map[int]*Cluster),
	}
}

// Add admits line (with an optional timestamp) into the best-matching
// cluster, or opens a new cluster for it, returning the cluster's id.
func (c *Clusterer) Add(line string, ts *time.Time) (int, error) {
	if !template.AssertNoSentinel(line) {
		return 0, fmt.Errorf("cluster: %w", ErrSentinelInLine)
	}

	best, bestTmpl, bestSim := c.findBest(line)

	if best != nil && bestSim >= c.Threshold {
		best.Template = bestTmpl
		best.Count++
		if len(best.Examples) < MaxExamples {
			best.Examples = append(best.Examples, line)
		}
		if ts != nil {
			best.Timestamps = append(best.Timestamps, *ts)
		}
		return best.ID, nil
	}

	return c.open(line, ts), nil
}

// findBest returns the cluster maximizing similarity to line, along with
// the merge result against it and the similarity score. It returns a nil
// cluster if the clusterer is empty.
func (c *Clusterer) findBest(line string) (*Cluster, template.Template, float64) {
	var best *Cluster
	var bestTmpl template.Template
	bestSim := -1.0

	for _, cl := range c.order {
		merged, sim := template.Merge(cl.Template, line)
		if sim > bestSim {
			best = cl
			bestTmpl = merged
			bestSim = sim
		}
	}

	return best, bestTmpl, bestSim
}

// Similarity reports how well line would match cl under this clusterer's
// template-merge semantics, without mutating cl. Used by the drill-down
// protocol to decide parent-cluster membership (see package tools).
func Similarity(cl *Cluster, line string) float64 {
	_, sim := template.Merge(cl.Template, line)
	return sim
}

func (c *Clusterer) open(line string, ts *time.Time) int {
	if c.MaxClusters > 0 && len(c.order) >= c.MaxClusters {
		c.evict()
	}

	id := c.nextID
	c.nextID++

	cl := &Cluster{
		ID:           id,
		Template:     template.Template{Pattern: line, StaticParts: []string{line}},
		Count:        1,
		Examples:     []string{line},
		insertionSeq: c.nextSeq,
	}
	c.nextSeq++
	if ts != nil {
		cl.Timestamps = append(cl.Timestamps, *ts)
	}

	c.order = append(c.order, cl)
	c.byID[id] = cl

	return id
}

// evict removes the cluster with the smallest count, breaking ties by
// oldest insertion order. The evicted id is never reused.
func (c *Clusterer) evict() {
	if len(c.order) == 0 {
		return
	}

	victimIdx := 0
	for i, cl := range c.order {
		v := c.order[victimIdx]
		if cl.Count < v.Count || (cl.Count == v.Count && cl.insertionSeq < v.insertionSeq) {
			victimIdx = i
		}
	}

	victim := c.order[victimIdx]
	delete(c.byID, victim.ID)
	c.order = append(c.order[:victimIdx], c.order[victimIdx+1:]...)
}

// Get returns the cluster with the given id, if present.
func (c *Clusterer) Get(id int) (*Cluster, bool) {
	cl, ok := c.byID[id]
	return cl, ok
}

// Len reports the number of live clusters.
func (c *Clusterer) Len() int { return len(c.order) }

// All returns the live clusters in insertion order. Callers must not
// mutate the returned slice's clusters.
func (c *Clusterer) All() []*Cluster { return c.order }

// Stats returns a view of every live cluster sorted by count descending,
// with percent computed against the total admitted count.
func (c *Clusterer) Stats() []View {
	total := 0
	for _, cl := range c.order {
		total += cl.Count
	}

	views := make([]View, len(c.order))
	for i, cl := range c.order {
		pct := 0.0
		if total > 0 {
			pct = round1(100 * float64(cl.Count) / float64(total))
		}
		views[i] = View{
			ID:       cl.ID,
			Count:    cl.Count,
			Percent:  pct,
			Template: cl.Template.Pattern,
			Examples: cl.Examples,
		}
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Count > views[j].Count
	})

	return views
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
