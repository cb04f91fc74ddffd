package tablebase

import (
	"cmp"
	"slices"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
)

// approximate bytes per map entry including bucket overhead.
const entryCost = 24

const (
	minPresize = 1 << 10
	maxPresize = 1 << 26
)

// Entry is a single stored outcome.
type Entry struct {
	Key     uint64
	Outcome Outcome
}

// Table is the transposition table. Entries are write-once: once a key is
// stored its outcome is never revised. A Table is owned by one solver and
// is not safe for concurrent use.
type Table struct {
	entries map[uint64]Outcome
	created uint64
	lookups uint64
	hits    uint64
}

func New(sizeHint int) *Table {
	return &Table{entries: make(map[uint64]Outcome, sizeHint)}
}

// NewForMemory presizes the table to roughly fractionOfMemory of total
// system memory.
func NewForMemory(fractionOfMemory float64) *Table {
	totalMem := memory.TotalMemory()
	desired := fractionOfMemory * float64(totalMem) / entryCost
	hint := int(desired)
	if hint < minPresize {
		hint = minPresize
	}
	if hint > maxPresize {
		hint = maxPresize
	}
	log.Info().Int("presize", hint).
		Float64("desired-num-elems", desired).
		Int("estimated-total-memory-bytes", hint*entryCost).
		Uint64("total-system-memory-bytes", totalMem).
		Msg("transposition-table-size")
	return New(hint)
}

// Lookup returns the stored outcome for key.
func (t *Table) Lookup(key uint64) (Outcome, bool) {
	t.lookups++
	o, ok := t.entries[key]
	if ok {
		t.hits++
	}
	return o, ok
}

// Peek is Lookup without touching the counters.
func (t *Table) Peek(key uint64) (Outcome, bool) {
	o, ok := t.entries[key]
	return o, ok
}

func (t *Table) Contains(key uint64) bool {
	_, ok := t.entries[key]
	return ok
}

// Store saves o under key unless key is already present. It returns whether
// the entry was new. Unknown is never stored.
func (t *Table) Store(key uint64, o Outcome) bool {
	if !o.Valid() {
		return false
	}
	if _, ok := t.entries[key]; ok {
		return false
	}
	t.entries[key] = o
	t.created++
	return true
}

func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns every entry sorted by key.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for k, o := range t.entries {
		out = append(out, Entry{Key: k, Outcome: o})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

// Merge stores every entry not already present and returns how many were
// added.
func (t *Table) Merge(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if t.Store(e.Key, e.Outcome) {
			n++
		}
	}
	return n
}

// Counters returns the number of stores, lookups and lookup hits since the
// table was created or last reset.
func (t *Table) Counters() (created, lookups, hits uint64) {
	return t.created, t.lookups, t.hits
}

// Reset empties the table and its counters.
func (t *Table) Reset() {
	clear(t.entries)
	t.created = 0
	t.lookups = 0
	t.hits = 0
}
