package category

import (
	"sync"
)

// Joke is an opaque joke payload as delivered by the remote service.
type Joke = string

// Category is a named bucket of jokes. Its position is implied by where it
// sits in the owning Index.
type Category struct {
	Name  string
	Jokes []Joke
}

// Index is an ordered collection of categories keyed by name.
// It owns every Category it holds; Snapshot and Get hand out copies.
type Index struct {
	mu      sync.RWMutex
	entries []*Category
	byName  map[string]*Category
}

func NewIndex() *Index {
	return &Index{byName: make(map[string]*Category)}
}

// Seed replaces the contents with one empty category per name, in input
// order. Repeated names keep their first occurrence and empty names are
// skipped so the index stays unique.
func (x *Index) Seed(names []string) {
	entries := make([]*Category, 0, len(names))
	byName := make(map[string]*Category, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, dup := byName[name]; dup {
			continue
		}
		c := &Category{Name: name, Jokes: []Joke{}}
		entries = append(entries, c)
		byName[name] = c
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = entries
	x.byName = byName
}

// Append adds jokes to the end of the named category and reports whether the
// category was present. An absent name is a stale result and is ignored.
func (x *Index) Append(name string, jokes []Joke) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	c, ok := x.byName[name]
	if !ok {
		return false
	}
	c.Jokes = append(c.Jokes, jokes...)
	return true
}

// MoveToFront moves the named category to position 0. It reports whether the
// order changed; absent names and the current head are left alone.
func (x *Index) MoveToFront(name string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	pos := x.position(name)
	if pos <= 0 {
		return false
	}
	c := x.entries[pos]
	copy(x.entries[1:pos+1], x.entries[:pos])
	x.entries[0] = c
	return true
}

// Clear empties the index.
func (x *Index) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = nil
	x.byName = make(map[string]*Category)
}

// Snapshot returns the categories in display order.
func (x *Index) Snapshot() []Category {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]Category, len(x.entries))
	for i, c := range x.entries {
		out[i] = clone(c)
	}
	return out
}

func (x *Index) Get(name string) (Category, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	c, ok := x.byName[name]
	if !ok {
		return Category{}, false
	}
	return clone(c), true
}

func (x *Index) Has(name string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.byName[name]
	return ok
}

// Count returns how many jokes the named category holds, or -1 if absent.
func (x *Index) Count(name string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	c, ok := x.byName[name]
	if !ok {
		return -1
	}
	return len(c.Jokes)
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

func (x *Index) Names() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	names := make([]string, len(x.entries))
	for i, c := range x.entries {
		names[i] = c.Name
	}
	return names
}

// Position returns the zero-based position of name, or -1.
func (x *Index) Position(name string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.position(name)
}

func (x *Index) position(name string) int {
	if _, ok := x.byName[name]; !ok {
		return -1
	}
	for i, c := range x.entries {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func clone(c *Category) Category {
	jokes := make([]Joke, len(c.Jokes))
	copy(jokes, c.Jokes)
	return Category{Name: c.Name, Jokes: jokes}
}
