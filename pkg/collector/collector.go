// Package collector accumulates unique records up to a target count.
package collector

import "xscraper/pkg/models"

// Collector owns the record list and seen-key set of one engine run.
// It is not safe for concurrent use.
type Collector struct {
	state models.CollectionState
}

// New creates a collector that accepts at most target records.
func New(target int) *Collector {
	if target < 0 {
		target = 0
	}
	return &Collector{state: models.CollectionState{
		Records:     make([]models.Record, 0, target),
		SeenKeys:    make(map[string]struct{}, target),
		TargetCount: target,
	}}
}

// Offer appends rec when its key is unseen and capacity remains.
// It reports whether the record was accepted.
func (c *Collector) Offer(rec models.Record) bool {
	if c.Full() {
		return false
	}
	key := rec.Key()
	if _, dup := c.state.SeenKeys[key]; dup {
		return false
	}
	c.state.SeenKeys[key] = struct{}{}
	c.state.Records = append(c.state.Records, rec)
	return true
}

// Seed offers previously collected records, e.g. from a checkpoint.
// It returns how many were accepted.
func (c *Collector) Seed(recs []models.Record) int {
	n := 0
	for _, r := range recs {
		if c.Offer(r) {
			n++
		}
	}
	return n
}

// Seen reports whether a record with this key was already accepted.
func (c *Collector) Seen(rec models.Record) bool {
	_, ok := c.state.SeenKeys[rec.Key()]
	return ok
}

func (c *Collector) Len() int    { return len(c.state.Records) }
func (c *Collector) Target() int { return c.state.TargetCount }

// Full reports whether the target count has been reached.
func (c *Collector) Full() bool {
	return len(c.state.Records) >= c.state.TargetCount
}

// Records returns a copy of the accepted records in insertion order,
// trimmed to the target count.
func (c *Collector) Records() []models.Record {
	n := len(c.state.Records)
	if n > c.state.TargetCount {
		n = c.state.TargetCount
	}
	out := make([]models.Record, n)
	copy(out, c.state.Records[:n])
	return out
}

// State exposes the underlying state so the engine can track stall counters.
func (c *Collector) State() *models.CollectionState {
	return &c.state
}
