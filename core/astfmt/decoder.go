package astfmt

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/sketchvm/core/ast"
)

// MaxBufferSize bounds what DecodeReader will read.
const MaxBufferSize = 16 * 1024 * 1024

// Decode reconstructs the tree held in buf. Any error is a *FormatError or a
// *CorruptDataError; no partial tree is ever returned.
func Decode(buf []byte) (*Program, error) {
	d := &decoder{buf: buf}
	prog, err := d.decode()
	if err != nil {
		return nil, err
	}
	prog.Digest = blake2b.Sum256(buf)
	return prog, nil
}

// DecodeReader reads r to EOF and decodes the result.
func DecodeReader(r io.Reader) (*Program, error) {
	buf, err := io.ReadAll(io.LimitReader(r, MaxBufferSize+1))
	if err != nil {
		return nil, fmt.Errorf("read buffer: %w", err)
	}
	if len(buf) > MaxBufferSize {
		return nil, corrupt(MaxBufferSize, -1, "buffer exceeds %d bytes", MaxBufferSize)
	}
	return Decode(buf)
}

type decoder struct {
	buf     []byte
	strings []string
	nodes   []*ast.Node
	kids    [][]uint16
	offsets []int
}

func (d *decoder) decode() (*Program, error) {
	hdr, err := d.readHeader()
	if err != nil {
		return nil, err
	}

	if hdr.StringTableSize > 0 {
		if err := d.readStrings(HeaderSize, int(hdr.StringTableSize)); err != nil {
			return nil, err
		}
	}

	offset := align4(HeaderSize + int(hdr.StringTableSize))
	if offset > len(d.buf) {
		return nil, corrupt(len(d.buf), -1, "node table starts at %d, past the end of the buffer", offset)
	}
	if err := d.readNodes(offset, int(hdr.NodeCount)); err != nil {
		return nil, err
	}
	if err := d.link(); err != nil {
		return nil, err
	}

	return &Program{
		Header:  hdr,
		Strings: d.strings,
		Root:    d.nodes[0],
	}, nil
}

func (d *decoder) readHeader() (Header, error) {
	var h Header
	if len(d.buf) < HeaderSize {
		return h, corrupt(len(d.buf), -1, "buffer of %d bytes is shorter than the %d-byte header", len(d.buf), HeaderSize)
	}

	h.Magic = binary.BigEndian.Uint32(d.buf[0:4])
	if h.Magic != Magic {
		return h, formatErr("invalid magic: got 0x%08x, expected 0x%08x", h.Magic, Magic)
	}

	h.Version = binary.LittleEndian.Uint16(d.buf[4:6])
	if !Supported(h.Version) {
		return h, formatErr("unsupported version %s (0x%04x), newest supported is %s",
			VersionString(h.Version), h.Version, VersionString(Version))
	}

	h.Flags = binary.LittleEndian.Uint16(d.buf[6:8])
	h.NodeCount = binary.LittleEndian.Uint32(d.buf[8:12])
	h.StringTableSize = binary.LittleEndian.Uint32(d.buf[12:16])

	if h.NodeCount == 0 {
		return h, corrupt(8, -1, "node count is zero")
	}
	if h.NodeCount > maxNodes {
		return h, corrupt(8, -1, "node count %d exceeds maximum %d", h.NodeCount, maxNodes)
	}
	if uint64(h.StringTableSize) > uint64(len(d.buf)-HeaderSize) {
		return h, corrupt(12, -1, "string table size %d exceeds the %d bytes after the header",
			h.StringTableSize, len(d.buf)-HeaderSize)
	}
	// Each node entry needs at least its 4-byte prefix.
	rest := len(d.buf) - align4(HeaderSize+int(h.StringTableSize))
	if rest < 0 || uint64(h.NodeCount)*nodeEntrySize > uint64(rest) {
		return h, corrupt(8, -1, "node count %d does not fit in the remaining buffer", h.NodeCount)
	}
	return h, nil
}

func (d *decoder) readStrings(start, size int) error {
	table := d.buf[start : start+size]
	if len(table) < 4 {
		return corrupt(start, -1, "string table of %d bytes has no count", len(table))
	}
	count := binary.LittleEndian.Uint32(table)
	// An entry takes at least 3 bytes (length and terminator).
	if uint64(count)*3 > uint64(len(table)-4) {
		return corrupt(start, -1, "string count %d does not fit in a %d-byte table", count, len(table))
	}

	d.strings = make([]string, 0, count)
	pos := 4
	for i := uint32(0); i < count; i++ {
		if pos+2 > len(table) {
			return corrupt(start+pos, -1, "string %d: truncated length", i)
		}
		n := int(binary.LittleEndian.Uint16(table[pos:]))
		pos += 2
		if pos+n+1 > len(table) {
			return corrupt(start+pos, -1, "string %d: %d bytes overrun the table", i, n)
		}
		if table[pos+n] != 0 {
			return corrupt(start+pos+n, -1, "string %d: missing null terminator", i)
		}
		d.strings = append(d.strings, string(table[pos:pos+n]))
		pos += n + 1
	}
	return nil
}

func (d *decoder) readNodes(offset, count int) error {
	d.nodes = make([]*ast.Node, count)
	d.kids = make([][]uint16, count)
	d.offsets = make([]int, count)

	for i := 0; i < count; i++ {
		d.offsets[i] = offset
		if offset+nodeEntrySize > len(d.buf) {
			return corrupt(offset, i, "truncated node entry")
		}
		kind := ast.Kind(d.buf[offset])
		flags := ast.Flags(d.buf[offset+1])
		size := int(binary.LittleEndian.Uint16(d.buf[offset+2:]))
		if !kind.Valid() {
			return corrupt(offset, i, "unknown node kind 0x%02x", uint8(kind))
		}

		body := offset + nodeEntrySize
		end := body + size
		if end > len(d.buf) {
			return corrupt(offset, i, "data size %d overruns the buffer", size)
		}

		n := &ast.Node{Kind: kind, Flags: flags.Semantic()}
		pos := body
		if flags&ast.FlagHasValue != 0 {
			v, next, err := d.readScalar(pos, end, i)
			if err != nil {
				return err
			}
			n.Value = v
			pos = next
		}

		if flags&ast.FlagHasChildren != 0 {
			if (end-pos)%2 != 0 {
				return corrupt(pos, i, "odd child data length %d", end-pos)
			}
			idx := make([]uint16, 0, (end-pos)/2)
			for ; pos < end; pos += 2 {
				idx = append(idx, binary.LittleEndian.Uint16(d.buf[pos:]))
			}
			d.kids[i] = idx
		}

		if pos != end {
			return corrupt(pos, i, "declared data size %d, consumed %d", size, pos-body)
		}
		d.nodes[i] = n
		offset = end
	}
	return nil
}

func (d *decoder) readScalar(pos, end, node int) (ast.Scalar, int, error) {
	if pos >= end {
		return ast.Scalar{}, pos, corrupt(pos, node, "value flag set but no tag byte")
	}
	tag := ast.Tag(d.buf[pos])
	width, ok := tag.Width()
	if !ok {
		return ast.Scalar{}, pos, corrupt(pos, node, "unknown value tag 0x%02x", uint8(tag))
	}
	pos++
	if pos+width > end {
		return ast.Scalar{}, pos, corrupt(pos, node, "%s value needs %d bytes, %d left", tag, width, end-pos)
	}

	b := d.buf[pos : pos+width]
	s := ast.Scalar{Present: true, Tag: tag}
	switch tag {
	case ast.TagVoid:
	case ast.TagBool:
		if b[0] != 0 {
			s.Int = 1
		}
	case ast.TagInt8:
		s.Int = int64(int8(b[0]))
	case ast.TagUint8:
		s.Uint = uint64(b[0])
	case ast.TagInt16:
		s.Int = int64(int16(binary.LittleEndian.Uint16(b)))
	case ast.TagUint16:
		s.Uint = uint64(binary.LittleEndian.Uint16(b))
	case ast.TagInt32:
		s.Int = int64(int32(binary.LittleEndian.Uint32(b)))
	case ast.TagUint32:
		s.Uint = uint64(binary.LittleEndian.Uint32(b))
	case ast.TagInt64:
		s.Int = int64(binary.LittleEndian.Uint64(b))
	case ast.TagUint64:
		s.Uint = binary.LittleEndian.Uint64(b)
	case ast.TagFloat32:
		s.Float = float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case ast.TagFloat64:
		s.Float = math.Float64frombits(binary.LittleEndian.Uint64(b))
	case ast.TagString:
		s.Str = d.lookupString(binary.LittleEndian.Uint16(b))
	}
	return s, pos + width, nil
}

// lookupString resolves a string table index. Indices past the end of the
// table resolve to "" instead of failing the decode.
func (d *decoder) lookupString(idx uint16) string {
	if int(idx) >= len(d.strings) {
		return ""
	}
	return d.strings[idx]
}
