package storage

import "errors"

const (
	OneKB = 1 << 10 // 1,024
	OneMB = 1 << 20 // 1,048,576

	// DefaultBlockSize is the on-disk block granularity (8 KiB).
	DefaultBlockSize = 1 << 13
)

const (
	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

var (
	ErrWrongSize    = errors.New("storage: page buffer size != block size")
	ErrInvalidBlock = errors.New("storage: block number must be >= 0")
)
