package engine

import (
	"log/slog"
	"path/filepath"

	"github.com/tuannm99/pinedb/internal"
	"github.com/tuannm99/pinedb/internal/buffer"
	"github.com/tuannm99/pinedb/internal/storage"
	"github.com/tuannm99/pinedb/internal/wal"
)

// Engine wires the storage collaborators together: one FileManager for
// block I/O, one WAL manager, and the buffer manager mediating between
// them and the transaction layer.
type Engine struct {
	DataDir string

	fm *storage.FileManager
	lm *wal.Manager
	bm *buffer.Manager
}

// Open builds an engine rooted at dataDir. The WAL lives under
// <dataDir>/wal. Zero blockSize/poolSize fall back to defaults.
func Open(dataDir string, blockSize, poolSize int) (*Engine, error) {
	fm, err := storage.NewFileManager(dataDir, blockSize)
	if err != nil {
		return nil, err
	}

	lm, err := wal.Open(filepath.Join(dataDir, "wal"))
	if err != nil {
		_ = fm.Close()
		return nil, err
	}

	bm := buffer.NewManager(fm, lm, poolSize)

	slog.Info("engine:: opened",
		"data_dir", dataDir,
		"block_size", fm.BlockSize(),
		"pool_size", poolSize,
		"last_lsn", lm.LastLSN())

	return &Engine{DataDir: dataDir, fm: fm, lm: lm, bm: bm}, nil
}

// OpenFromConfig maps config fields onto Open.
func OpenFromConfig(cfg *internal.PineDBConfig) (*Engine, error) {
	return Open(cfg.Storage.Workdir, cfg.Storage.BlockSize, cfg.Storage.PoolSize)
}

func (e *Engine) FileMgr() *storage.FileManager { return e.fm }
func (e *Engine) LogMgr() *wal.Manager          { return e.lm }
func (e *Engine) BufferMgr() *buffer.Manager    { return e.bm }

// Close makes the WAL durable and releases open file handles. Dirty
// frames are the transaction layer's responsibility to flush (via
// FlushAll) before shutdown.
func (e *Engine) Close() error {
	if err := e.lm.Flush(e.lm.LastLSN()); err != nil {
		return err
	}
	if err := e.lm.Close(); err != nil {
		return err
	}
	if err := e.fm.Close(); err != nil {
		return err
	}
	slog.Info("engine:: closed", "data_dir", e.DataDir)
	return nil
}
