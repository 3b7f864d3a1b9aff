// File: internal/dom/arena.go
package dom

import "sync"

// Arena indexes the elements returned by one query. Each element gets a local
// index valid only for the scan that produced the arena. Arenas are rebuilt on
// every scan because earlier interactions may have changed the DOM.
type Arena struct {
	elems []Element
	index map[ElementID]int
}

// NewArena builds an arena over elems. Duplicate handles keep their first index.
func NewArena(elems []Element) *Arena {
	a := &Arena{
		elems: make([]Element, 0, len(elems)),
		index: make(map[ElementID]int, len(elems)),
	}
	for _, el := range elems {
		if el == nil {
			continue
		}
		if _, dup := a.index[el.ID()]; dup {
			continue
		}
		a.index[el.ID()] = len(a.elems)
		a.elems = append(a.elems, el)
	}
	return a
}

func (a *Arena) Len() int { return len(a.elems) }

// At returns the element at local index i.
func (a *Arena) At(i int) Element { return a.elems[i] }

// IndexOf returns the local index of the element with id.
func (a *Arena) IndexOf(id ElementID) (int, bool) {
	i, ok := a.index[id]
	return i, ok
}

// UsedSet records elements already bound to a field during a run.
type UsedSet struct {
	mu   sync.RWMutex
	seen map[ElementID]struct{}
}

func NewUsedSet() *UsedSet {
	return &UsedSet{seen: make(map[ElementID]struct{})}
}

// Add marks el as consumed. Nil elements are ignored.
func (u *UsedSet) Add(el Element) {
	if el == nil {
		return
	}
	u.mu.Lock()
	u.seen[el.ID()] = struct{}{}
	u.mu.Unlock()
}

// Has reports whether the element with id has been consumed. A nil set is empty.
func (u *UsedSet) Has(id ElementID) bool {
	if u == nil {
		return false
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.seen[id]
	return ok
}

func (u *UsedSet) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.seen)
}
