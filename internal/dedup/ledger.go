// Package dedup tracks already-observed message GUIDs across poll cycles.
package dedup

// Ledger is a bounded set of string IDs that remembers insertion order.
// Once the set grows past max entries, Prune discards everything but the
// most recently added keep entries. Insertion order stands in for recency:
// messages are visited oldest-first within a poll and polls are
// time-ordered, so this is close enough to LRU without the bookkeeping.
type Ledger struct {
	max    int
	keep   int
	order  []string
	member map[string]struct{}
}

const (
	DefaultMax  = 1000
	DefaultKeep = 500
)

func NewLedger(max, keep int) *Ledger {
	if max <= 0 {
		max = DefaultMax
	}
	if keep <= 0 || keep > max {
		keep = max / 2
	}
	return &Ledger{
		max:    max,
		keep:   keep,
		member: make(map[string]struct{}),
	}
}

// Add records id. Re-adding an existing id is a no-op and does not refresh
// its position.
func (l *Ledger) Add(id string) {
	if _, ok := l.member[id]; ok {
		return
	}
	l.member[id] = struct{}{}
	l.order = append(l.order, id)
}

func (l *Ledger) Contains(id string) bool {
	_, ok := l.member[id]
	return ok
}

func (l *Ledger) Len() int {
	return len(l.order)
}

// Prune drops all but the keep most recently added entries once the ledger
// exceeds max. Below the threshold it does nothing.
func (l *Ledger) Prune() {
	if len(l.order) <= l.max {
		return
	}
	cut := l.order[:len(l.order)-l.keep]
	for _, id := range cut {
		delete(l.member, id)
	}
	kept := make([]string, l.keep)
	copy(kept, l.order[len(l.order)-l.keep:])
	l.order = kept
}
