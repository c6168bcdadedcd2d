package entities

import "sync"

// Counters maps outcomes to running counts for one run.
// Record is the only mutation, so the sum of all buckets always equals Processed.
type Counters struct {
	mu        sync.RWMutex
	values    map[Outcome]int64
	processed int64
}

// NewCounters creates zeroed counters with every bucket present
func NewCounters() *Counters {
	values := make(map[Outcome]int64, len(Outcomes))
	for _, o := range Outcomes {
		values[o] = 0
	}
	return &Counters{values: values}
}

// Record counts one processed member
func (c *Counters) Record(outcome Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[outcome]++
	c.processed++
}

// Get returns one bucket
func (c *Counters) Get(outcome Outcome) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[outcome]
}

// Processed returns the number of members recorded so far
func (c *Counters) Processed() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.processed
}

// Snapshot returns a copy of all buckets
func (c *Counters) Snapshot() map[Outcome]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[Outcome]int64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Errors returns everything that was neither a success nor a skipped bot
func (c *Counters) Errors() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.processed - c.values[OutcomeSuccess] - c.values[OutcomeBot]
}
