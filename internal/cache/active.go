package cache

import (
	"sync"

	"github.com/optiplus/clinic-api/internal/model"
)

// ActiveExaminations is the in-memory projection of every visit still in
// flight, keyed by patient id. Snapshot order is insertion order, so the
// panels render patients in arrival order. All methods are safe for
// concurrent use.
type ActiveExaminations struct {
	mu      sync.RWMutex
	entries map[int64]*model.ActiveExamination
	order   []int64
}

func NewActiveExaminations() *ActiveExaminations {
	return &ActiveExaminations{
		entries: make(map[int64]*model.ActiveExamination),
	}
}

// Put inserts or replaces the entry for a patient. A replaced entry keeps
// its original position in the snapshot.
func (c *ActiveExaminations) Put(entry *model.ActiveExamination) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[entry.ID]; !ok {
		c.order = append(c.order, entry.ID)
	}
	c.entries[entry.ID] = entry
}

// Patch applies fn to the entry for patientID, if present, and reports
// whether an entry existed.
func (c *ActiveExaminations) Patch(patientID int64, fn func(*model.ActiveExamination)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[patientID]
	if !ok {
		return false
	}
	fn(entry)
	return true
}

func (c *ActiveExaminations) Get(patientID int64) (*model.ActiveExamination, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[patientID]
	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

func (c *ActiveExaminations) Remove(patientID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[patientID]; !ok {
		return
	}
	delete(c.entries, patientID)
	for i, id := range c.order {
		if id == patientID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Snapshot returns copies of all entries in insertion order.
func (c *ActiveExaminations) Snapshot() []*model.ActiveExamination {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.ActiveExamination, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id].Clone())
	}
	return out
}

func (c *ActiveExaminations) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
