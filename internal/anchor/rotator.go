package anchor

// Rotator spreads anchor usage across a site by always handing out the
// least-used anchor of a category. Ties break by pool declaration order,
// which keeps selection deterministic across runs.
type Rotator struct {
	pools  map[string][]string       // category -> anchors in declaration order
	counts map[string]map[string]int // category -> anchor -> usage count
}

// NewRotator initializes usage counts to zero for every anchor in every
// configured pool.
func NewRotator(pools map[string][]string) *Rotator {
	r := &Rotator{
		pools:  make(map[string][]string, len(pools)),
		counts: make(map[string]map[string]int, len(pools)),
	}
	for category, anchors := range pools {
		r.pools[category] = append([]string(nil), anchors...)
		c := make(map[string]int, len(anchors))
		for _, a := range anchors {
			c[a] = 0
		}
		r.counts[category] = c
	}
	return r
}

// NextAnchor returns the anchor with the lowest usage count in the category.
// ok is false for unknown or empty categories.
func (r *Rotator) NextAnchor(category string) (string, bool) {
	pool := r.pools[category]
	if len(pool) == 0 {
		return "", false
	}

	counts := r.counts[category]
	best := pool[0]
	for _, a := range pool[1:] {
		if counts[a] < counts[best] {
			best = a
		}
	}
	return best, true
}

// RecordUsage increments the usage count for the anchor. Unknown categories
// or anchors are silently ignored.
func (r *Rotator) RecordUsage(category, anchorText string) {
	counts, ok := r.counts[category]
	if !ok {
		return
	}
	if _, ok := counts[anchorText]; !ok {
		return
	}
	counts[anchorText]++
}

// UsageStats returns a copy of the current usage counts.
func (r *Rotator) UsageStats() map[string]map[string]int {
	out := make(map[string]map[string]int, len(r.counts))
	for category, counts := range r.counts {
		c := make(map[string]int, len(counts))
		for a, n := range counts {
			c[a] = n
		}
		out[category] = c
	}
	return out
}
