package astfmt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/core/invariant"
)

// Encode writes root to w and returns the BLAKE2b-256 digest of the bytes
// written, the same digest Decode reports for them.
func Encode(w io.Writer, root *ast.Node) ([32]byte, error) {
	buf, err := Marshal(root)
	if err != nil {
		return [32]byte{}, err
	}
	if _, err := w.Write(buf); err != nil {
		return [32]byte{}, fmt.Errorf("write buffer: %w", err)
	}
	return blake2b.Sum256(buf), nil
}

// Marshal flattens root into the binary format. Nodes are numbered in
// pre-order, strings are deduplicated in first-use order, and slots are
// written back in the child order the decoder binds them from.
func Marshal(root *ast.Node) ([]byte, error) {
	invariant.NotNil(root, "root")

	e := &encoder{index: make(map[string]uint16)}
	e.flatten(root, false)

	if len(e.entries) > maxNodes {
		return nil, fmt.Errorf("tree has %d nodes, maximum is %d", len(e.entries), maxNodes)
	}
	for _, s := range e.strings {
		if len(s) > math.MaxUint16 {
			return nil, fmt.Errorf("string of %d bytes exceeds maximum %d", len(s), math.MaxUint16)
		}
	}

	var table bytes.Buffer
	if len(e.strings) > 0 {
		writeU32(&table, uint32(len(e.strings)))
		for _, s := range e.strings {
			writeU16(&table, uint16(len(s)))
			table.WriteString(s)
			table.WriteByte(0)
		}
	}

	var out bytes.Buffer
	var magic [4]byte
	binary.BigEndian.PutUint32(magic[:], Magic)
	out.Write(magic[:])
	writeU16(&out, Version)
	writeU16(&out, 0)
	writeU32(&out, uint32(len(e.entries)))
	writeU32(&out, uint32(table.Len()))
	_, err := out.Write(table.Bytes())
	invariant.ExpectNoError(err, "string table write")
	for out.Len()%4 != 0 {
		out.WriteByte(0)
	}

	for i, ent := range e.entries {
		if err := e.writeEntry(&out, ent); err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, ent.node.Kind, err)
		}
	}
	return out.Bytes(), nil
}

type entry struct {
	node     *ast.Node
	children []uint16
}

type encoder struct {
	entries []*entry
	strings []string
	index   map[string]uint16
}

// flatten appends n and its subtree in pre-order and returns n's index.
// hoisted is set for declarators inside a VarDecl, whose initializer is
// written as the declarator's next sibling instead of its child.
func (e *encoder) flatten(n *ast.Node, hoisted bool) uint16 {
	idx := uint16(len(e.entries))
	ent := &entry{node: n}
	e.entries = append(e.entries, ent)
	if n.Value.Present && n.Value.Tag == ast.TagString {
		e.intern(n.Value.Str)
	}

	switch {
	case n.Kind == ast.KindVarDecl:
		if n.Type != nil {
			ent.children = append(ent.children, e.flatten(n.Type, false))
		}
		for _, c := range n.Children {
			decl := c.Kind.IsDeclaratorKind()
			ent.children = append(ent.children, e.flatten(c, decl))
			if decl && c.Init != nil {
				ent.children = append(ent.children, e.flatten(c.Init, false))
			}
		}
	case n.Kind == ast.KindFor:
		for _, c := range []*ast.Node{n.Init, n.Cond, n.Update, n.Body} {
			if c == nil {
				c = ast.New(ast.KindEmpty)
			}
			ent.children = append(ent.children, e.flatten(c, false))
		}
		for _, c := range n.Children {
			ent.children = append(ent.children, e.flatten(c, false))
		}
	default:
		for _, c := range n.Slots() {
			if hoisted && c == n.Init {
				continue
			}
			ent.children = append(ent.children, e.flatten(c, false))
		}
	}
	return idx
}

func (e *encoder) intern(s string) uint16 {
	if i, ok := e.index[s]; ok {
		return i
	}
	i := uint16(len(e.strings))
	e.index[s] = i
	e.strings = append(e.strings, s)
	return i
}

func (e *encoder) writeEntry(out *bytes.Buffer, ent *entry) error {
	n := ent.node
	flags := n.Flags.Semantic()

	var data bytes.Buffer
	if n.Value.Present {
		flags |= ast.FlagHasValue
		if err := e.writeScalar(&data, n.Value); err != nil {
			return err
		}
	}
	if len(ent.children) > 0 {
		flags |= ast.FlagHasChildren
		for _, c := range ent.children {
			writeU16(&data, c)
		}
	}
	if data.Len() > math.MaxUint16 {
		return fmt.Errorf("data size %d exceeds maximum %d", data.Len(), math.MaxUint16)
	}

	out.WriteByte(byte(n.Kind))
	out.WriteByte(byte(flags))
	writeU16(out, uint16(data.Len()))
	out.Write(data.Bytes())
	return nil
}

func (e *encoder) writeScalar(w *bytes.Buffer, s ast.Scalar) error {
	w.WriteByte(byte(s.Tag))
	switch s.Tag {
	case ast.TagVoid:
	case ast.TagBool:
		if s.Int != 0 {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
	case ast.TagInt8:
		w.WriteByte(byte(int8(s.Int)))
	case ast.TagUint8:
		w.WriteByte(byte(s.Uint))
	case ast.TagInt16:
		writeU16(w, uint16(int16(s.Int)))
	case ast.TagUint16:
		writeU16(w, uint16(s.Uint))
	case ast.TagInt32:
		writeU32(w, uint32(int32(s.Int)))
	case ast.TagUint32:
		writeU32(w, uint32(s.Uint))
	case ast.TagInt64:
		writeU64(w, uint64(s.Int))
	case ast.TagUint64:
		writeU64(w, s.Uint)
	case ast.TagFloat32:
		writeU32(w, math.Float32bits(float32(s.Float)))
	case ast.TagFloat64:
		writeU64(w, math.Float64bits(s.Float))
	case ast.TagString:
		writeU16(w, e.index[s.Str])
	default:
		return fmt.Errorf("unknown value tag %s", s.Tag)
	}
	return nil
}

func writeU16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeU64(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}
