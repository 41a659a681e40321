// Package astfmt reads and writes the binary AST interchange format.
//
// Layout (multi-byte fields little-endian unless noted):
//
//	HEADER (16 bytes)
//	  magic           u32 big-endian, "ASTP"
//	  version         u16, major<<8 | minor
//	  flags           u16
//	  nodeCount       u32
//	  stringTableSize u32
//	STRING TABLE (stringTableSize bytes, absent when 0)
//	  count           u32
//	  entries         [len u16][bytes][0x00] * count
//	  padding to the next 4-byte boundary
//	NODE TABLE (nodeCount entries, node 0 is the root)
//	  kind u8 | flags u8 | dataSize u16 | [tag u8 + payload] | [child u16 ...]
//
// Child indices always point forward, so the node graph is a tree by
// construction. Limits follow from the wire types: 65,536 nodes, 65,535 bytes
// per string and 65,535 payload bytes per node.
package astfmt

import (
	"fmt"

	"golang.org/x/mod/semver"

	"github.com/opal-lang/sketchvm/core/ast"
)

const (
	// Magic is "ASTP" read as a big-endian u32.
	Magic uint32 = 0x41535450

	// Version is the newest format version this package reads and the one it
	// writes. Major in the high byte, minor in the low byte.
	Version uint16 = 0x0100

	// HeaderSize is the fixed size of the header record.
	HeaderSize = 16

	nodeEntrySize = 4
	maxNodes      = 1 << 16
)

// Header is the decoded fixed header.
type Header struct {
	Magic           uint32
	Version         uint16
	Flags           uint16
	NodeCount       uint32
	StringTableSize uint32
}

// Program is a decoded buffer.
type Program struct {
	Header  Header
	Strings []string
	Root    *ast.Node

	// Digest is the BLAKE2b-256 of the buffer the program was decoded from.
	Digest [32]byte
}

// VersionString renders a wire version as a semantic version ("v1.0.0").
func VersionString(v uint16) string {
	return fmt.Sprintf("v%d.%d.0", v>>8, v&0xff)
}

// Supported reports whether a buffer of version v can be decoded. Any version
// up to and including Version is accepted.
func Supported(v uint16) bool {
	return semver.Compare(VersionString(v), VersionString(Version)) <= 0
}

func align4(n int) int {
	return (n + 3) &^ 3
}
