package formatter

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/core/astfmt"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
)

// Colorize wraps text in ANSI color codes if color is enabled
func Colorize(text, color string, useColor bool) string {
	if !useColor {
		return text
	}
	return color + text + ColorReset
}

// FormatHeader prints the header fields, the string table and the digest.
func FormatHeader(w io.Writer, prog *astfmt.Program, useColor bool) {
	h := prog.Header
	_, _ = fmt.Fprintf(w, "%s ASTP %s flags=0x%04x nodes=%d strings=%d (%d bytes)\n",
		Colorize("header:", ColorCyan, useColor),
		astfmt.VersionString(h.Version), h.Flags, h.NodeCount, len(prog.Strings), h.StringTableSize)
	for i, s := range prog.Strings {
		_, _ = fmt.Fprintf(w, "  %s %q\n", Colorize(fmt.Sprintf("[%d]", i), ColorGray, useColor), s)
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", Colorize("digest:", ColorCyan, useColor), hex.EncodeToString(prog.Digest[:]))
}

// FormatTree renders the tree rooted at root, one node per line. Slot-bound
// children are prefixed with their slot name.
func FormatTree(w io.Writer, root *ast.Node, useColor bool) {
	if root == nil {
		_, _ = fmt.Fprintf(w, "(empty tree)\n")
		return
	}
	_, _ = fmt.Fprintf(w, "%s\n", renderNode(root, "", useColor))
	renderChildren(w, root, "", useColor)
}

func renderChildren(w io.Writer, n *ast.Node, indent string, useColor bool) {
	kids := labelled(n)
	for i, k := range kids {
		isLast := i == len(kids)-1
		prefix, next := "├─ ", "│  "
		if isLast {
			prefix, next = "└─ ", "   "
		}
		_, _ = fmt.Fprintf(w, "%s%s%s\n", indent, prefix, renderNode(k.node, k.slot, useColor))
		renderChildren(w, k.node, indent+next, useColor)
	}
}

type labelledNode struct {
	slot string
	node *ast.Node
}

func labelled(n *ast.Node) []labelledNode {
	var out []labelledNode
	add := func(slot string, c *ast.Node) {
		if c != nil {
			out = append(out, labelledNode{slot: slot, node: c})
		}
	}
	add("type", n.Type)
	add("decl", n.Declarator)
	for _, p := range n.Params {
		add("param", p)
	}
	add("init", n.Init)
	add("cond", n.Cond)
	add("update", n.Update)
	add("then", n.Then)
	add("else", n.Else)
	add("left", n.Left)
	add("right", n.Right)
	add("operand", n.Operand)
	add("body", n.Body)
	for _, c := range n.Children {
		add("", c)
	}
	return out
}

func renderNode(n *ast.Node, slot string, useColor bool) string {
	var b strings.Builder
	if slot != "" {
		b.WriteString(Colorize(slot+": ", ColorGray, useColor))
	}
	b.WriteString(Colorize(n.Kind.String(), ColorBlue, useColor))
	if n.Value.Present {
		b.WriteString(" ")
		b.WriteString(Colorize(n.Value.String(), ColorGreen, useColor))
	}
	if f := n.Flags.Semantic(); f != 0 {
		b.WriteString(Colorize(fmt.Sprintf(" [%s]", flagNames(f)), ColorYellow, useColor))
	}
	return b.String()
}

func flagNames(f ast.Flags) string {
	var names []string
	if f&ast.FlagDefaultCase != 0 {
		names = append(names, "default")
	}
	if f&ast.FlagPointer != 0 {
		names = append(names, "pointer")
	}
	if f&ast.FlagReference != 0 {
		names = append(names, "reference")
	}
	if rest := f &^ (ast.FlagDefaultCase | ast.FlagPointer | ast.FlagReference); rest != 0 {
		names = append(names, fmt.Sprintf("0x%02x", uint8(rest)))
	}
	return strings.Join(names, ",")
}
