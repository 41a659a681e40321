package astfmt

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/sketchvm/core/ast"
)

// CanonicalNode is the layout-independent form of a node used for
// fingerprinting. Two trees with the same structure produce the same
// CanonicalNode regardless of node numbering or string table order.
type CanonicalNode struct {
	Kind     uint8                     `cbor:"k"`
	Flags    uint8                     `cbor:"f,omitempty"`
	Value    *CanonicalScalar          `cbor:"v,omitempty"`
	Slots    map[string]*CanonicalNode `cbor:"s,omitempty"`
	Params   []*CanonicalNode          `cbor:"p,omitempty"`
	Children []*CanonicalNode          `cbor:"c,omitempty"`
}

// CanonicalScalar is a node payload in canonical form.
type CanonicalScalar struct {
	Tag   uint8   `cbor:"t"`
	Int   int64   `cbor:"i,omitempty"`
	Uint  uint64  `cbor:"u,omitempty"`
	Float float64 `cbor:"d,omitempty"`
	Str   string  `cbor:"s,omitempty"`
}

// Canonicalize converts a tree to canonical form.
func Canonicalize(n *ast.Node) *CanonicalNode {
	if n == nil {
		return nil
	}
	c := &CanonicalNode{Kind: uint8(n.Kind), Flags: uint8(n.Flags.Semantic())}
	if n.Value.Present {
		c.Value = &CanonicalScalar{
			Tag:   uint8(n.Value.Tag),
			Int:   n.Value.Int,
			Uint:  n.Value.Uint,
			Float: n.Value.Float,
			Str:   n.Value.Str,
		}
	}

	slots := map[string]*ast.Node{
		"type": n.Type, "decl": n.Declarator, "body": n.Body,
		"cond": n.Cond, "then": n.Then, "else": n.Else,
		"init": n.Init, "update": n.Update,
		"left": n.Left, "right": n.Right, "operand": n.Operand,
	}
	for name, s := range slots {
		if s == nil {
			continue
		}
		if c.Slots == nil {
			c.Slots = make(map[string]*CanonicalNode)
		}
		c.Slots[name] = Canonicalize(s)
	}
	for _, p := range n.Params {
		c.Params = append(c.Params, Canonicalize(p))
	}
	for _, ch := range n.Children {
		c.Children = append(c.Children, Canonicalize(ch))
	}
	return c
}

// Canonical encodes the tree as canonical CBOR (sorted map keys, shortest
// integer and float forms).
func Canonical(root *ast.Node) ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	data, err := encMode.Marshal(Canonicalize(root))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal canonical tree: %w", err)
	}
	return data, nil
}

// Fingerprint is the BLAKE2b-256 of the canonical encoding. Unlike
// Program.Digest it only depends on the tree's structure.
func Fingerprint(root *ast.Node) ([32]byte, error) {
	data, err := Canonical(root)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(data), nil
}
