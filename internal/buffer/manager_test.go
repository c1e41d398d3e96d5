package buffer

import (
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/pinedb/internal/storage"
	"github.com/tuannm99/pinedb/internal/wal"
)

const testBlockSize = 128

// newTestManager creates a temp-dir backed FileManager, WAL and pool.
func newTestManager(t *testing.T, poolSize int) (*Manager, *storage.FileManager) {
	t.Helper()

	dir := t.TempDir()

	fm, err := storage.NewFileManager(dir, testBlockSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fm.Close() })

	lm, err := wal.Open(filepath.Join(dir, "wal"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = lm.Close() })

	return NewManager(fm, lm, poolSize), fm
}

type markFormatter struct {
	marker byte
}

func (f markFormatter) Format(p *storage.Page) {
	p.Zero()
	p.Buf[0] = f.marker
}

func TestManager_PinHit_SameBufferAndPinCount(t *testing.T) {
	m, _ := newTestManager(t, 4)

	blk := storage.NewBlockID("tbl", 0)

	b1, err := m.Pin(blk)
	require.NoError(t, err)
	require.NotNil(t, b1)
	require.Equal(t, blk, *b1.Block())
	require.Equal(t, int32(1), b1.pins)
	require.Equal(t, 3, m.Available())

	// Second pin of the same block returns the same frame; no frame
	// state changes besides the pin count.
	b2, err := m.Pin(blk)
	require.NoError(t, err)
	require.Same(t, b1, b2)
	require.Equal(t, int32(2), b1.pins)
	require.Equal(t, 3, m.Available())

	m.Unpin(b1)
	require.Equal(t, 3, m.Available())
	m.Unpin(b1)
	require.Equal(t, 4, m.Available())
}

func TestManager_AvailableEqualsPoolMinusPinned(t *testing.T) {
	const n = 4
	m, _ := newTestManager(t, n)

	pinned := func() int {
		count := 0
		for _, b := range m.frames {
			if b.IsPinned() {
				count++
			}
		}
		return count
	}

	var held []*Buffer
	for i := int32(0); i < n; i++ {
		b, err := m.Pin(storage.NewBlockID("tbl", i))
		require.NoError(t, err)
		held = append(held, b)
		require.Equal(t, n-pinned(), m.Available())
	}
	require.Equal(t, 0, m.Available())

	for _, b := range held {
		m.Unpin(b)
		require.Equal(t, n-pinned(), m.Available())
	}
	require.Equal(t, n, m.Available())
}

func TestManager_PoolSizeOne(t *testing.T) {
	m, _ := newTestManager(t, 1)

	blkA := storage.NewBlockID("tbl", 0)
	blkB := storage.NewBlockID("tbl", 1)

	bufA, err := m.Pin(blkA)
	require.NoError(t, err)

	// While A is pinned the pool is exhausted.
	_, err = m.Pin(blkB)
	require.ErrorIs(t, err, ErrNoAvailableBuffer)

	// The failed pin changed nothing.
	require.Equal(t, 0, m.Available())
	_, resident := m.residents[blkA]
	require.True(t, resident)
	require.Len(t, m.residents, 1)

	m.Unpin(bufA)

	bufB, err := m.Pin(blkB)
	require.NoError(t, err)
	require.Equal(t, blkB, *bufB.Block())

	// A's mapping is gone; the bijection holds.
	_, resident = m.residents[blkA]
	require.False(t, resident)
	require.Len(t, m.residents, 1)
}

func TestManager_PinResident_NeverEvicts(t *testing.T) {
	m, _ := newTestManager(t, 2)

	blkA := storage.NewBlockID("tbl", 0)
	blkB := storage.NewBlockID("tbl", 1)

	bufA, err := m.Pin(blkA)
	require.NoError(t, err)
	bufB, err := m.Pin(blkB)
	require.NoError(t, err)

	// Unpin A so it is the eviction candidate, then re-pin it: a hit
	// must reclaim the same frame, not evict anything.
	m.Unpin(bufA)
	bufA2, err := m.Pin(blkA)
	require.NoError(t, err)
	require.Same(t, bufA, bufA2)
	require.Len(t, m.residents, 2)
	require.Equal(t, blkB, *bufB.Block())
}

func TestManager_EvictsOldestAssignedUnpinned(t *testing.T) {
	m, _ := newTestManager(t, 3)

	var bufs []*Buffer
	for i := int32(0); i < 3; i++ {
		b, err := m.Pin(storage.NewBlockID("tbl", i))
		require.NoError(t, err)
		bufs = append(bufs, b)
	}
	for _, b := range bufs {
		m.Unpin(b)
	}

	// All unpinned; the frame assigned first (block 0) is the victim.
	_, err := m.Pin(storage.NewBlockID("tbl", 3))
	require.NoError(t, err)

	_, resident := m.residents[storage.NewBlockID("tbl", 0)]
	require.False(t, resident)
	_, resident = m.residents[storage.NewBlockID("tbl", 1)]
	require.True(t, resident)
	_, resident = m.residents[storage.NewBlockID("tbl", 2)]
	require.True(t, resident)
}

func TestManager_FlushAll_OnlyNamedTxn(t *testing.T) {
	m, fm := newTestManager(t, 4)

	blkA := storage.NewBlockID("tbl", 0)
	blkB := storage.NewBlockID("tbl", 1)

	bufA, err := m.Pin(blkA)
	require.NoError(t, err)
	bufB, err := m.Pin(blkB)
	require.NoError(t, err)

	bufA.Contents().PutU32(4, 0xCAFE)
	bufA.SetModified(1, 0)
	bufB.Contents().PutU32(4, 0xBEEF)
	bufB.SetModified(2, 0)

	// Flushing txn 1 persists A and leaves B marked.
	require.NoError(t, m.FlushAll(1))
	require.Equal(t, int32(-1), bufA.ModifyingTx())
	require.Equal(t, int32(2), bufB.ModifyingTx())

	p := storage.NewPage(testBlockSize)
	require.NoError(t, fm.Read(blkA, p))
	require.Equal(t, uint32(0xCAFE), p.U32(4))

	require.NoError(t, fm.Read(blkB, p))
	require.Equal(t, uint32(0), p.U32(4))

	// Flushing a pinned frame is legal; B is still pinned here.
	require.NoError(t, m.FlushAll(2))
	require.Equal(t, int32(-1), bufB.ModifyingTx())
}

func TestManager_PinNew_DistinctBlocksPinnedOnce(t *testing.T) {
	m, fm := newTestManager(t, 4)

	seen := make(map[storage.BlockID]bool)
	for i := 0; i < 3; i++ {
		b, err := m.PinNew("tbl", markFormatter{marker: 0x7F})
		require.NoError(t, err)
		require.Equal(t, int32(1), b.pins)
		require.False(t, seen[*b.Block()])
		seen[*b.Block()] = true
		require.Equal(t, byte(0x7F), b.Contents().Buf[0])
		m.Unpin(b)
	}

	size, err := fm.Size("tbl")
	require.NoError(t, err)
	require.Equal(t, int32(3), size)
}

func TestManager_PinNew_PoolExhausted(t *testing.T) {
	m, _ := newTestManager(t, 1)

	b, err := m.PinNew("tbl", markFormatter{marker: 1})
	require.NoError(t, err)

	_, err = m.PinNew("tbl", markFormatter{marker: 2})
	require.ErrorIs(t, err, ErrNoAvailableBuffer)

	m.Unpin(b)
	_, err = m.PinNew("tbl", markFormatter{marker: 2})
	require.NoError(t, err)
}

func TestManager_ContentSurvivesEviction(t *testing.T) {
	m, _ := newTestManager(t, 1)

	blkA := storage.NewBlockID("tbl", 0)
	blkB := storage.NewBlockID("tbl", 1)

	bufA, err := m.Pin(blkA)
	require.NoError(t, err)
	bufA.Contents().PutStr(0, "hello")
	bufA.SetModified(7, 0)
	m.Unpin(bufA)

	// Pinning B evicts A; the dirty frame is flushed on reassignment.
	bufB, err := m.Pin(blkB)
	require.NoError(t, err)
	m.Unpin(bufB)

	bufA2, err := m.Pin(blkA)
	require.NoError(t, err)
	require.Equal(t, "hello", bufA2.Contents().Str(0))
}

func TestManager_UnpinUnpinned_Panics(t *testing.T) {
	m, _ := newTestManager(t, 2)

	b, err := m.Pin(storage.NewBlockID("tbl", 0))
	require.NoError(t, err)
	m.Unpin(b)

	require.Panics(t, func() { m.Unpin(b) })
}

func TestManager_PinInvalidBlock_Panics(t *testing.T) {
	m, _ := newTestManager(t, 2)

	require.Panics(t, func() {
		_, _ = m.Pin(storage.NewBlockID("tbl", -1))
	})
}

func TestManager_ConcurrentPinUnpin_KeepsBijection(t *testing.T) {
	const (
		poolSize = 4
		blocks   = 16
		workers  = 8
		rounds   = 200
	)
	m, _ := newTestManager(t, poolSize)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < rounds; i++ {
				blk := storage.NewBlockID("tbl", int32(rng.Intn(blocks)))
				b, err := m.Pin(blk)
				if err != nil {
					// Pool exhausted under contention; try again later.
					continue
				}
				if got := *b.Block(); got != blk {
					t.Errorf("pinned %v but frame holds %v", blk, got)
				}
				m.Unpin(b)
			}
		}(int64(w))
	}
	wg.Wait()

	// Every pin was matched by an unpin.
	require.Equal(t, poolSize, m.Available())

	// Residency is a bijection: each mapping points at a frame holding
	// exactly that block, and no frame is mapped twice.
	usedFrames := make(map[int]bool)
	for blk, id := range m.residents {
		require.False(t, usedFrames[id])
		usedFrames[id] = true
		require.NotNil(t, m.frames[id].Block())
		require.Equal(t, blk, *m.frames[id].Block())
	}
	for _, b := range m.frames {
		require.GreaterOrEqual(t, b.pins, int32(0))
	}
}
