package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileManager performs block-grained I/O on files inside a single
// directory. Open handles are cached per file name and kept until
// Close. All methods are safe for concurrent use.
type FileManager struct {
	dir       string
	blockSize int

	mu   sync.Mutex
	open map[string]*os.File
}

func NewFileManager(dir string, blockSize int) (*FileManager, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if err := os.MkdirAll(dir, FileMode0755); err != nil {
		return nil, fmt.Errorf("filemgr: create dir: %w", err)
	}
	return &FileManager{
		dir:       dir,
		blockSize: blockSize,
		open:      make(map[string]*os.File),
	}, nil
}

func (fm *FileManager) BlockSize() int { return fm.blockSize }

// Read reads the block into p. If the file is shorter than the
// requested block, the remainder is zero-filled; this allows sparse
// blocks that are lazily initialized by higher layers.
func (fm *FileManager) Read(blk BlockID, p *Page) error {
	if len(p.Buf) != fm.blockSize {
		return ErrWrongSize
	}
	if blk.Num < 0 {
		return ErrInvalidBlock
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	f, err := fm.file(blk.File)
	if err != nil {
		return err
	}

	n, err := f.ReadAt(p.Buf, int64(blk.Num)*int64(fm.blockSize))
	if err != nil && err != io.EOF {
		return fmt.Errorf("filemgr: read %v: %w", blk, err)
	}
	// Zero-fill the rest of the page if we hit EOF early or a short read.
	for i := n; i < fm.blockSize; i++ {
		p.Buf[i] = 0
	}
	return nil
}

// Write writes p to the block's location on disk.
func (fm *FileManager) Write(blk BlockID, p *Page) error {
	if len(p.Buf) != fm.blockSize {
		return ErrWrongSize
	}
	if blk.Num < 0 {
		return ErrInvalidBlock
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	return fm.writeLocked(blk, p)
}

// Append extends filename by one block holding p's bytes and returns
// the new block's identity.
func (fm *FileManager) Append(filename string, p *Page) (BlockID, error) {
	if len(p.Buf) != fm.blockSize {
		return BlockID{}, ErrWrongSize
	}

	fm.mu.Lock()
	defer fm.mu.Unlock()

	num, err := fm.sizeLocked(filename)
	if err != nil {
		return BlockID{}, err
	}
	blk := NewBlockID(filename, num)
	if err := fm.writeLocked(blk, p); err != nil {
		return BlockID{}, err
	}
	return blk, nil
}

// Size returns the current length of filename in blocks.
func (fm *FileManager) Size(filename string) (int32, error) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.sizeLocked(filename)
}

func (fm *FileManager) Close() error {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	var firstErr error
	for name, f := range fm.open {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(fm.open, name)
	}
	return firstErr
}

func (fm *FileManager) writeLocked(blk BlockID, p *Page) error {
	f, err := fm.file(blk.File)
	if err != nil {
		return err
	}
	n, err := f.WriteAt(p.Buf, int64(blk.Num)*int64(fm.blockSize))
	if err != nil {
		return fmt.Errorf("filemgr: write %v: %w", blk, err)
	}
	if n != fm.blockSize {
		return io.ErrShortWrite
	}
	return nil
}

func (fm *FileManager) sizeLocked(filename string) (int32, error) {
	f, err := fm.file(filename)
	if err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return int32(info.Size() / int64(fm.blockSize)), nil
}

// file returns the cached handle for filename, opening it on first use.
// Callers must hold fm.mu.
func (fm *FileManager) file(filename string) (*os.File, error) {
	if f, ok := fm.open[filename]; ok {
		return f, nil
	}
	path := filepath.Join(fm.dir, filename)
	// RDWR | CREATE (no truncate)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode0644)
	if err != nil {
		return nil, fmt.Errorf("filemgr: open %s: %w", filename, err)
	}
	fm.open[filename] = f
	return f, nil
}
