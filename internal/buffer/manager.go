package buffer

import (
	"errors"
	"sync"

	"github.com/tuannm99/pinedb/internal/storage"
	"github.com/tuannm99/pinedb/internal/wal"
)

var (
	DefaultPoolSize = 8

	// ErrNoAvailableBuffer is the allocation failure surfaced by Pin and
	// PinNew when every frame is pinned. Callers recover by retrying,
	// aborting their transaction, or polling Available.
	ErrNoAvailableBuffer = errors.New("buffer: no available buffer (all pinned)")
)

// Replacer tracks which frames are eligible for eviction and in what
// order. Frame ids are indices into the pool's frame array.
type Replacer interface {
	Assign(frameID int)
	SetEvictable(frameID int, evictable bool)
	Evict() (frameID int, ok bool)
	Remove(frameID int)
	Size() int
}

// Manager owns a fixed pool of frames and the mapping from resident
// blocks to frames. Pin/PinNew/Unpin/FlushAll/Available each run under
// one exclusive lock, so residency check, eviction, assignment and
// pinning happen as a single indivisible step. Operations never block
// waiting for a frame: a full pool fails immediately with
// ErrNoAvailableBuffer.
type Manager struct {
	fm *storage.FileManager
	lm *wal.Manager

	mu        sync.Mutex
	frames    []*Buffer
	residents map[storage.BlockID]int // block -> frame id, bijective
	free      []int                   // frames not holding any block
	repl      Replacer
	available int // frames with pins == 0, maintained incrementally
}

func NewManager(fm *storage.FileManager, lm *wal.Manager, poolSize int) *Manager {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	m := &Manager{
		fm:        fm,
		lm:        lm,
		frames:    make([]*Buffer, poolSize),
		residents: make(map[storage.BlockID]int),
		free:      make([]int, 0, poolSize),
		repl:      newFIFOAdapter(poolSize),
		available: poolSize,
	}
	for i := range m.frames {
		m.frames[i] = newBuffer(i, fm, lm)
		m.free = append(m.free, i)
	}
	return m
}

// Pin returns a pinned buffer holding blk. If blk is already resident
// its frame is reused and nothing is evicted; otherwise an unpinned
// frame is claimed (freshly available first, then oldest-assigned) and
// the block is loaded into it. The buffer stays resident until it has
// been unpinned as many times as it was pinned.
func (m *Manager) Pin(blk storage.BlockID) (*Buffer, error) {
	if blk.Num < 0 {
		panic("buffer: pin of invalid block " + blk.String())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// HIT: never evicts, never touches other frames.
	if id, ok := m.residents[blk]; ok {
		b := m.frames[id]
		if !b.IsPinned() {
			m.available--
			m.repl.SetEvictable(id, false)
		}
		b.pin()
		return b, nil
	}

	id, fromFree, err := m.claimFrame()
	if err != nil {
		return nil, err
	}
	b := m.frames[id]

	// Flush before the old mapping is removed: if the write fails the
	// frame is untouched and the pool state stays exactly as it was.
	if err := b.flush(); err != nil {
		m.release(id, fromFree)
		return nil, err
	}

	if prev := b.Block(); prev != nil {
		delete(m.residents, *prev)
	}
	if err := b.assignToBlock(blk); err != nil {
		// Content may be partially overwritten; retire the frame to the
		// free list rather than leave a mapping to garbage.
		b.reset()
		m.repl.Remove(id)
		m.free = append(m.free, id)
		return nil, err
	}

	m.residents[blk] = id
	m.repl.Assign(id)
	m.available--
	b.pin()
	return b, nil
}

// PinNew allocates a brand-new block at the end of filename, formats
// it via fmtr, and returns it pinned. The new block's identity never
// collides with a resident block.
func (m *Manager) PinNew(filename string, fmtr PageFormatter) (*Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, fromFree, err := m.claimFrame()
	if err != nil {
		return nil, err
	}
	b := m.frames[id]

	if err := b.flush(); err != nil {
		m.release(id, fromFree)
		return nil, err
	}

	if prev := b.Block(); prev != nil {
		delete(m.residents, *prev)
	}
	if err := b.assignToNew(filename, fmtr); err != nil {
		b.reset()
		m.repl.Remove(id)
		m.free = append(m.free, id)
		return nil, err
	}

	m.residents[*b.Block()] = id
	m.repl.Assign(id)
	m.available--
	b.pin()
	return b, nil
}

// Unpin decrements the buffer's pin count; at zero the frame becomes
// eligible for eviction again. Unpinning an unpinned buffer is a
// caller bug and panics.
func (m *Manager) Unpin(b *Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b.unpin()
	if !b.IsPinned() {
		m.available++
		m.repl.SetEvictable(b.id, true)
	}
}

// FlushAll persists every frame last modified by txnum and clears its
// modified marker. Frames written by other transactions are untouched.
// A pinned frame may be flushed; the pin only prevents reassignment.
func (m *Manager) FlushAll(txnum int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.frames {
		if b.ModifyingTx() == txnum {
			if err := b.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Available returns the number of unpinned frames. Callers can poll it
// to decide whether to wait before pinning instead of busy-failing.
func (m *Manager) Available() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// claimFrame picks an unpinned frame for a new block: a frame holding
// no block if one exists, else the oldest-assigned unpinned frame.
// Fails before any state changes, so a failed Pin leaves the pool
// exactly as it was.
func (m *Manager) claimFrame() (id int, fromFree bool, err error) {
	if m.available == 0 {
		return -1, false, ErrNoAvailableBuffer
	}
	if n := len(m.free); n > 0 {
		id = m.free[n-1]
		m.free = m.free[:n-1]
		return id, true, nil
	}
	id, ok := m.repl.Evict()
	if !ok {
		return -1, false, ErrNoAvailableBuffer
	}
	return id, false, nil
}

// release puts a claimed-but-unassigned frame back where it came from.
func (m *Manager) release(id int, fromFree bool) {
	if fromFree {
		m.free = append(m.free, id)
		return
	}
	// Put the victim back as evictable.
	m.repl.Assign(id)
	m.repl.SetEvictable(id, true)
}
