package formatter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/core/astfmt"
)

func TestFormatTree_SingleNode(t *testing.T) {
	var buf bytes.Buffer
	FormatTree(&buf, ast.Program(), false)

	if diff := cmp.Diff("Program\n", buf.String()); diff != "" {
		t.Errorf("Output mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatTree_Nil(t *testing.T) {
	var buf bytes.Buffer
	FormatTree(&buf, nil, false)

	if diff := cmp.Diff("(empty tree)\n", buf.String()); diff != "" {
		t.Errorf("Output mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatTree_Slots(t *testing.T) {
	root := ast.Program(
		ast.Func("void", "setup", nil,
			ast.Expr(ast.Call("pinMode", ast.Num(13), ast.Const("OUTPUT"))),
		),
	)

	var buf bytes.Buffer
	FormatTree(&buf, root, false)

	expected := strings.Join([]string{
		"Program",
		"└─ FuncDef",
		"   ├─ type: Type \"void\"",
		"   ├─ decl: Declarator \"setup\"",
		"   └─ body: Compound",
		"      └─ ExpressionStmt",
		"         └─ operand: Call",
		"            ├─ left: Identifier \"pinMode\"",
		"            ├─ Number 13",
		"            └─ Constant \"OUTPUT\"",
		"",
	}, "\n")
	if diff := cmp.Diff(expected, buf.String()); diff != "" {
		t.Errorf("Output mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatTree_Flags(t *testing.T) {
	root := ast.Program(ast.Switch(ast.Ident("x"), ast.Default(ast.Break())))

	var buf bytes.Buffer
	FormatTree(&buf, root, false)

	if !strings.Contains(buf.String(), "Case [default]") {
		t.Errorf("expected default flag, got:\n%s", buf.String())
	}
}

func TestFormatTree_Color(t *testing.T) {
	var buf bytes.Buffer
	FormatTree(&buf, ast.Program(ast.Expr(ast.Num(1))), true)

	if !strings.Contains(buf.String(), ColorBlue+"Program"+ColorReset) {
		t.Errorf("expected colored kind, got %q", buf.String())
	}
}

func TestFormatHeader(t *testing.T) {
	data, err := astfmt.Marshal(ast.Program(ast.Expr(ast.Call("loop"))))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	prog, err := astfmt.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var buf bytes.Buffer
	FormatHeader(&buf, prog, false)
	out := buf.String()

	if !strings.Contains(out, "header: ASTP v1.0.0 flags=0x0000 nodes=4 strings=1") {
		t.Errorf("unexpected header line:\n%s", out)
	}
	if !strings.Contains(out, `[0] "loop"`) {
		t.Errorf("expected string table entry, got:\n%s", out)
	}
	if !strings.Contains(out, "digest: ") {
		t.Errorf("expected digest, got:\n%s", out)
	}
}
