package storage

import "github.com/tuannm99/pinedb/pkg/bx"

// Page holds exactly one block's worth of bytes in memory.
// The buffer manager owns the allocation; callers read and write
// through the typed accessors (or Buf directly for raw access).
type Page struct {
	Buf []byte
}

func NewPage(blockSize int) *Page {
	return &Page{Buf: make([]byte, blockSize)}
}

func (p *Page) Size() int { return len(p.Buf) }

// Zero clears the whole page.
func (p *Page) Zero() {
	for i := range p.Buf {
		p.Buf[i] = 0
	}
}

// ---- typed accessors (little-endian, offset-addressed) ----

func (p *Page) U32(off int) uint32       { return bx.U32At(p.Buf, off) }
func (p *Page) PutU32(off int, v uint32) { bx.PutU32At(p.Buf, off, v) }

func (p *Page) U64(off int) uint64       { return bx.U64At(p.Buf, off) }
func (p *Page) PutU64(off int, v uint64) { bx.PutU64At(p.Buf, off, v) }

func (p *Page) I32(off int) int32       { return bx.I32(p.Buf[off:]) }
func (p *Page) PutI32(off int, v int32) { bx.PutU32At(p.Buf, off, uint32(v)) }

// Bytes returns a length-prefixed byte slice stored at off.
// The returned slice aliases the page buffer.
func (p *Page) Bytes(off int) []byte {
	n := int(bx.U16At(p.Buf, off))
	return p.Buf[off+2 : off+2+n]
}

func (p *Page) PutBytes(off int, b []byte) {
	bx.PutU16At(p.Buf, off, uint16(len(b)))
	copy(p.Buf[off+2:], b)
}

func (p *Page) Str(off int) string { return string(p.Bytes(off)) }

func (p *Page) PutStr(off int, s string) { p.PutBytes(off, []byte(s)) }
