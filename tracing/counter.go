package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/joskern/sim"
)

// Counter is a hook that counts invocations per hook position.
type Counter struct {
	lock   sync.Mutex
	filter Filter
	kinds  []string
	counts map[string]uint64
}

// NewCounter creates a Counter. A nil filter counts everything.
func NewCounter(filter Filter) *Counter {
	return &Counter{
		filter: filter,
		counts: make(map[string]uint64),
	}
}

// Func counts the invocation.
func (c *Counter) Func(ctx sim.HookCtx) {
	if c.filter != nil && !c.filter(ctx) {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.counts[ctx.Pos.Name]; !ok {
		c.kinds = append(c.kinds, ctx.Pos.Name)
	}

	c.counts[ctx.Pos.Name]++
}

// Kinds returns the names of the positions seen, in first-seen order.
func (c *Counter) Kinds() []string {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([]string(nil), c.kinds...)
}

// Count returns how often the named position was invoked.
func (c *Counter) Count(kind string) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.counts[kind]
}

// KindCount is the number of invocations of one position.
type KindCount struct {
	Kind  string `json:"kind"`
	Count uint64 `json:"count"`
}

// Snapshot returns all counts sorted by kind.
func (c *Counter) Snapshot() []KindCount {
	c.lock.Lock()
	defer c.lock.Unlock()

	out := make([]KindCount, 0, len(c.counts))
	for kind, n := range c.counts {
		out = append(out, KindCount{Kind: kind, Count: n})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })

	return out
}
