package buffer

import "github.com/tuannm99/pinedb/pkg/fifox"

// fifoAdapter bridges the pool's Replacer interface to pkg/fifox.
// Eviction order is FIFO by assignment, matching the scan order of an
// insertion-ordered residency map: the frame assigned longest ago that
// is unpinned gets evicted first.
type fifoAdapter struct {
	f *fifox.FIFO
}

func newFIFOAdapter(capacity int) Replacer {
	return &fifoAdapter{f: fifox.New(capacity)}
}

func (a *fifoAdapter) Assign(frameID int) {
	a.f.Assign(frameID)
}

func (a *fifoAdapter) SetEvictable(frameID int, e bool) {
	a.f.SetEvictable(frameID, e)
}

func (a *fifoAdapter) Evict() (int, bool) {
	return a.f.Evict()
}

func (a *fifoAdapter) Remove(frameID int) {
	a.f.Remove(frameID)
}

func (a *fifoAdapter) Size() int {
	return a.f.Size()
}
