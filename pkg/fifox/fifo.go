package fifox

// FIFO tracks assignment order for a fixed number of slots.
// Slots are enqueued by Assign and evicted oldest-assignment-first;
// only slots marked evictable are eligible. Slot IDs are [0..capacity).
type FIFO struct {
	order     []int // slot ids, oldest assignment first
	evictable []bool
	present   []bool
	size      int // number of evictable slots
}

func New(capacity int) *FIFO {
	if capacity <= 0 {
		capacity = 1
	}
	return &FIFO{
		order:     make([]int, 0, capacity),
		evictable: make([]bool, capacity),
		present:   make([]bool, capacity),
		size:      0,
	}
}

func (f *FIFO) Capacity() int { return len(f.evictable) }

// Assign records that slot was (re)assigned, moving it to the back of
// the order. A reassigned slot starts out non-evictable.
func (f *FIFO) Assign(id int) {
	if id < 0 || id >= len(f.evictable) {
		return
	}
	if f.present[id] {
		f.unlink(id)
		if f.evictable[id] {
			f.evictable[id] = false
			f.size--
		}
	}
	f.present[id] = true
	f.order = append(f.order, id)
}

// SetEvictable marks whether slot can be evicted (e.g., pin==0).
func (f *FIFO) SetEvictable(id int, evictable bool) {
	if id < 0 || id >= len(f.evictable) {
		return
	}
	if !f.present[id] {
		// Ignore unknown slot.
		return
	}

	old := f.evictable[id]
	if old == evictable {
		return
	}

	f.evictable[id] = evictable
	if evictable {
		f.size++
	} else {
		f.size--
	}
}

// Evict returns the oldest-assigned evictable slot id and ok flag.
// It also removes the victim from tracking (present=false).
func (f *FIFO) Evict() (id int, ok bool) {
	if f.size == 0 {
		return -1, false
	}

	for _, idx := range f.order {
		if f.present[idx] && f.evictable[idx] {
			f.unlink(idx)
			f.present[idx] = false
			f.evictable[idx] = false
			f.size--
			return idx, true
		}
	}

	return -1, false
}

// Remove removes slot from tracking (present=false).
func (f *FIFO) Remove(id int) {
	if id < 0 || id >= len(f.evictable) {
		return
	}
	if !f.present[id] {
		return
	}

	if f.evictable[id] {
		f.size--
	}
	f.unlink(id)
	f.present[id] = false
	f.evictable[id] = false
}

func (f *FIFO) Size() int { return f.size }

func (f *FIFO) unlink(id int) {
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			return
		}
	}
}
