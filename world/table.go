package world

// Table is a side table holding one component kind, indexed by entity slot.
type Table[T any] struct {
	items []T
	gens  []uint32
	has   []bool
	count int
}

func (t *Table[T]) grow(index uint32) {
	for uint32(len(t.items)) <= index {
		var zero T
		t.items = append(t.items, zero)
		t.gens = append(t.gens, 0)
		t.has = append(t.has, false)
	}
}

func (t *Table[T]) Insert(e Entity, v T) {
	t.grow(e.Index)
	if !t.has[e.Index] {
		t.count++
	}
	t.items[e.Index] = v
	t.gens[e.Index] = e.Gen
	t.has[e.Index] = true
}

// Get returns the component owned by e, or false when e has none.
func (t *Table[T]) Get(e Entity) (*T, bool) {
	if !t.Has(e) {
		return nil, false
	}
	return &t.items[e.Index], true
}

func (t *Table[T]) Has(e Entity) bool {
	return e.Index < uint32(len(t.has)) && t.has[e.Index] && t.gens[e.Index] == e.Gen
}

func (t *Table[T]) Remove(e Entity) {
	if !t.Has(e) {
		return
	}
	var zero T
	t.items[e.Index] = zero
	t.has[e.Index] = false
	t.count--
}

func (t *Table[T]) Len() int {
	return t.count
}

// Each visits every component in slot order, which keeps systems
// deterministic from run to run.
func (t *Table[T]) Each(fn func(Entity, *T)) {
	for i := range t.items {
		if !t.has[i] {
			continue
		}
		fn(Entity{Index: uint32(i), Gen: t.gens[i]}, &t.items[i])
	}
}
