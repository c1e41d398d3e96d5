package buffer

import (
	"fmt"

	"github.com/tuannm99/pinedb/internal/storage"
	"github.com/tuannm99/pinedb/internal/wal"
)

// PageFormatter initializes the layout of a newly allocated block
// before it is appended to disk. Supplied by callers of PinNew.
type PageFormatter interface {
	Format(p *storage.Page)
}

// Buffer is one frame of the pool: a page-sized slab of memory plus
// bookkeeping about the block it holds, its pin count and the
// transaction that last wrote to it. Frames are allocated once at
// Manager construction and reused for the manager's whole lifetime;
// only their fields change as blocks come and go.
//
// The pool's mutex guards all mutation. The one exception is
// SetModified: callers invoke it while holding a pin, after writing
// through Contents, and every reader of txnum/lsn runs under the pool
// lock, so the pin itself serializes it.
type Buffer struct {
	id       int // index into the pool's frame array
	fm       *storage.FileManager
	lm       *wal.Manager
	contents *storage.Page
	block    *storage.BlockID
	pins     int32
	txnum    int32
	lsn      uint64
}

func newBuffer(id int, fm *storage.FileManager, lm *wal.Manager) *Buffer {
	return &Buffer{
		id:       id,
		fm:       fm,
		lm:       lm,
		contents: storage.NewPage(fm.BlockSize()),
		txnum:    -1,
	}
}

// Contents returns the in-memory page. The bytes are shared between
// the manager and the caller; whoever writes through it must report
// the write via SetModified or the change will never be flushed.
func (b *Buffer) Contents() *storage.Page {
	return b.contents
}

// Block returns the identity of the resident block, or nil when the
// frame is unassigned.
func (b *Buffer) Block() *storage.BlockID {
	return b.block
}

func (b *Buffer) IsPinned() bool {
	return b.pins > 0
}

// ModifyingTx returns the id of the transaction that last wrote to
// this frame, or -1 if the frame is clean.
func (b *Buffer) ModifyingTx() int32 {
	return b.txnum
}

// SetModified records that txnum wrote to this frame. lsn is the log
// position covering the write; 0 means no log record was generated
// for this update and leaves the stored lsn unchanged.
func (b *Buffer) SetModified(txnum int32, lsn uint64) {
	b.txnum = txnum
	if lsn > 0 {
		b.lsn = lsn
	}
}

// flush writes the frame to its disk block if it is dirty. The log is
// flushed up to the frame's lsn first, so log records always hit disk
// before the data they cover.
func (b *Buffer) flush() error {
	if b.txnum < 0 {
		return nil
	}
	if err := b.lm.Flush(b.lsn); err != nil {
		return fmt.Errorf("flush log for txn %d: %w", b.txnum, err)
	}
	if err := b.fm.Write(*b.block, b.contents); err != nil {
		return fmt.Errorf("flush block %v: %w", *b.block, err)
	}
	b.txnum = -1
	return nil
}

// assignToBlock reads blk from disk into the frame. The caller must
// have flushed the frame first.
func (b *Buffer) assignToBlock(blk storage.BlockID) error {
	if err := b.fm.Read(blk, b.contents); err != nil {
		return err
	}
	b.block = &blk
	b.pins = 0
	return nil
}

// assignToNew formats the frame's page and appends it as a brand-new
// block at the end of filename. The caller must have flushed first.
func (b *Buffer) assignToNew(filename string, fmtr PageFormatter) error {
	fmtr.Format(b.contents)
	blk, err := b.fm.Append(filename, b.contents)
	if err != nil {
		return err
	}
	b.block = &blk
	b.pins = 0
	return nil
}

func (b *Buffer) pin() { b.pins++ }

func (b *Buffer) unpin() {
	if b.pins <= 0 {
		panic(fmt.Sprintf("buffer: unpin of unpinned buffer %v", b.block))
	}
	b.pins--
}

// reset returns the frame to the unassigned state after a failed load.
func (b *Buffer) reset() {
	b.block = nil
	b.pins = 0
	b.txnum = -1
	b.lsn = 0
	b.contents.Zero()
}
