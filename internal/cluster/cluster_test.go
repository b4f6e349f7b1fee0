package cluster

import (
	"testing"
	"time"
)

func TestAddSingleLine(t *testing.T) {
	c := New(0.4, 10)
	id, err := c.Add("a single line", nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	cl, ok := c.Get(id)
	if !ok {
		t.Fatal("cluster not found after Add")
	}
	if cl.Count != 1 || cl.Template.Pattern != "a single line" {
		t.Errorf("cluster = %+v, want count=1 pattern=%q", cl, "a single line")
	}
}

func TestRepeatedLineProducesSingleCluster(t *testing.T) {
	c := New(0.4, 10)
	const n = 50
	var lastID int
	for i := 0; i < n; i++ {
		id, err := c.Add("identical repeated log line", nil)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		lastID = id
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	cl, _ := c.Get(lastID)
	if cl.Count != n {
		t.Errorf("Count = %d, want %d", cl.Count, n)
	}
	if cl.Template.Pattern != "identical repeated log line" {
		t.Errorf("Pattern = %q, want unchanged literal", cl.Template.Pattern)
	}
}

func TestClusterCountConservationNoEviction(t *testing.T) {
	c := New(0.4, 100)
	lines := []string{
		"User john logged in from 10.0.0.1",
		"User admin logged in from 10.0.0.2",
		"ERROR: disk full on /dev/sda1",
		"ERROR: disk full on /dev/sdb2",
		"ERROR: disk full on /dev/sdc3",
		"unrelated one-off line of text",
	}
	for _, l := range lines {
		if _, err := c.Add(l, nil); err != nil {
			t.Fatalf("Add(%q): %v", l, err)
		}
	}

	total := 0
	for _, v := range c.Stats() {
		total += v.Count
	}
	if total != len(lines) {
		t.Errorf("Sigma count = %d, want %d", total, len(lines))
	}
}

func TestEvictionKeepsHighestCount(t *testing.T) {
	c := New(0.9, 10)
	// "apple" is admitted twice before the loop adds it a third time, so
	// its cluster holds the highest count when the collection overflows.
	appleID, err := c.Add("apple", nil)
	if err != nil {
		t.Fatalf("Add(apple): %v", err)
	}
	if _, err := c.Add("apple", nil); err != nil {
		t.Fatalf("Add(apple): %v", err)
	}
	words := []string{
		"apple", "banjo", "cactus", "dodge", "eagle", "falcon",
		"guitar", "hammer", "igloo", "jacket", "kettle", "lumber",
	}
	for _, w := range words {
		if _, err := c.Add(w, nil); err != nil {
			t.Fatalf("Add(%q): %v", w, err)
		}
	}
	if c.Len() != 10 {
		t.Fatalf("Len() = %d, want 10 after eviction", c.Len())
	}
	if cl, ok := c.Get(appleID); !ok || cl.Count != 3 {
		t.Errorf("highest-count cluster (apple, count 3) not kept: ok=%v cluster=%+v", ok, cl)
	}
}

func TestEvictedIDNeverReused(t *testing.T) {
	c := New(0.99, 2)
	id1, _ := c.Add("line one", nil)
	_, _ = c.Add("line two", nil)
	_, _ = c.Add("line three", nil) // evicts id1 (smallest count, oldest)

	if _, ok := c.Get(id1); ok {
		t.Errorf("evicted id %d still present", id1)
	}

	id4, _ := c.Add("line four", nil)
	if id4 == id1 {
		t.Errorf("evicted id %d was reused", id1)
	}
}

func TestAdmitsIntoHighestSimilarityNotFirstAboveThreshold(t *testing.T) {
	c := New(0.3, 10)
	_, _ = c.Add("connection from 10.0.0.1 established", nil)
	_, _ = c.Add("request to /api/v1/users failed", nil)

	id, err := c.Add("connection from 10.0.0.2 established", nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	stats := c.Stats()
	var got *View
	for i := range stats {
		if stats[i].ID == id {
			got = &stats[i]
		}
	}
	if got == nil {
		t.Fatal("admitted cluster not found in stats")
	}
	if got.Count != 2 {
		t.Errorf("admitted into cluster with Count=%d, want the connection-cluster (Count=2)", got.Count)
	}
}

func TestTimestampKeptWhenClusterOpens(t *testing.T) {
	c := New(0.4, 10)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id, _ := c.Add("some line", &ts)
	cl, _ := c.Get(id)
	if len(cl.Timestamps) != 1 {
		t.Fatalf("Timestamps = %v, want one entry", cl.Timestamps)
	}
	if !cl.Timestamps[0].Equal(ts) {
		t.Errorf("Timestamps[0] = %v, want %v", cl.Timestamps[0], ts)
	}
}

func TestExamplesCapped(t *testing.T) {
	c := New(0.9, 10)
	var id int
	for i := 0; i < MaxExamples+5; i++ {
		var err error
		id, err = c.Add("capped example line", nil)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	cl, _ := c.Get(id)
	if len(cl.Examples) != MaxExamples {
		t.Errorf("len(Examples) = %d, want %d", len(cl.Examples), MaxExamples)
	}
	if cl.Examples[0] != "capped example line" {
		t.Errorf("Examples[0] = %q, want first-admitted line preserved", cl.Examples[0])
	}
}

func TestAddRejectsSentinelByte(t *testing.T) {
	c := New(0.4, 10)
	if _, err := c.Add("line with \x00 sentinel", nil); err == nil {
		t.Error("Add accepted a line containing NUL")
	}
}

func TestStatsSortedByCountDescending(t *testing.T) {
	c := New(0.95, 10)
	_, _ = c.Add("line alpha", nil)
	for i := 0; i < 3; i++ {
		_, _ = c.Add("line beta", nil)
	}
	for i := 0; i < 2; i++ {
		_, _ = c.Add("line gamma", nil)
	}

	stats := c.Stats()
	for i := 1; i < len(stats); i++ {
		if stats[i-1].Count < stats[i].Count {
			t.Errorf("Stats not sorted descending: %+v", stats)
		}
	}
}
