package astfmt_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/core/astfmt"
)

// sampleTrees covers every slot layout the linker knows about.
func sampleTrees() map[string]*ast.Node {
	return map[string]*ast.Node{
		"empty program": ast.Program(),
		"blink": ast.Program(
			ast.Var("const int", "led", ast.Const("LED_BUILTIN")),
			ast.Func("void", "setup", nil,
				ast.Expr(ast.Call("pinMode", ast.Ident("led"), ast.Const("OUTPUT"))),
			),
			ast.Func("void", "loop", nil,
				ast.Expr(ast.Call("digitalWrite", ast.Ident("led"), ast.Const("HIGH"))),
				ast.Expr(ast.Call("delay", ast.Num(1000))),
			),
		),
		"declarations": ast.Program(
			ast.Var("int", "counter", nil),
			ast.VarArray("int", "pins", ast.Num(3), ast.ArrayInit(ast.Num(2), ast.Num(3), ast.Num(4))),
			ast.VarArray("char", "msg", nil, ast.StrLit("hi")),
			ast.VarPointer("int", "p", ast.Un("&", ast.Ident("counter"))),
			ast.Struct("Point", ast.Var("int", "x", nil), ast.Var("int", "y", nil)),
			ast.Typedef("unsigned long", "ulong"),
			ast.Proto("int", "add", ast.Param("int", "a"), ast.Param("int", "b")),
			ast.Func("int", "add", []*ast.Node{ast.Param("int", "a"), ast.ParamDefault("int", "b", ast.Num(1))},
				ast.Return(ast.Bin("+", ast.Ident("a"), ast.Ident("b"))),
			),
		),
		"control flow": ast.Program(ast.Func("void", "loop", nil,
			ast.If(ast.Bin("==", ast.Call("digitalRead", ast.Num(2)), ast.Const("HIGH")),
				ast.Block(ast.Expr(ast.Post("++", ast.Ident("n")))),
				ast.Block(ast.Set("n", ast.Num(0))),
			),
			ast.While(ast.Bin("<", ast.Ident("n"), ast.Num(10)), ast.Block(ast.Continue())),
			ast.DoWhile(ast.Block(ast.Break()), ast.Const("false")),
			ast.For(ast.Var("int", "i", ast.Num(0)), ast.Bin("<", ast.Ident("i"), ast.Num(3)),
				ast.Post("++", ast.Ident("i")), ast.Block()),
			ast.For(nil, nil, nil, ast.Block(ast.Break())),
			ast.RangeFor(ast.Var("int", "v", nil), ast.Ident("pins"), ast.Block()),
			ast.Switch(ast.Ident("n"),
				ast.Case(ast.Num(1), ast.Set("n", ast.Num(2))),
				ast.Case(ast.CharLit('a')),
				ast.Default(ast.Break()),
			),
		)),
		"expressions": ast.Program(ast.Expr(ast.Comma(
			ast.Assign("+=", ast.Index(ast.Ident("a"), ast.Num(0)), ast.Float(1.5)),
			ast.Ternary(ast.Un("!", ast.Ident("x")), ast.Num(-1), ast.Num(1)),
			ast.Cast("float", ast.Ident("x")),
			ast.Sizeof(ast.TypeOf("int")),
			ast.MethodCall("Serial", "println", ast.StrLit("done")),
			ast.Member(ast.Arrow(ast.Ident("p"), "next"), "value"),
		)), ast.Comment("trailing")),
	}
}

func TestRoundTripTree(t *testing.T) {
	for name, tree := range sampleTrees() {
		t.Run(name, func(t *testing.T) {
			data, err := astfmt.Marshal(tree)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			prog, err := astfmt.Decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tree, prog.Root); diff != "" {
				t.Errorf("tree mismatch (-want +got):\n%s", diff)
			}
			if int(prog.Header.NodeCount) < ast.Count(tree) {
				t.Errorf("node count %d below tree size %d", prog.Header.NodeCount, ast.Count(tree))
			}
		})
	}
}

// TestRoundTripBytes verifies that write → read → write produces identical bytes
func TestRoundTripBytes(t *testing.T) {
	for name, tree := range sampleTrees() {
		t.Run(name, func(t *testing.T) {
			first, err := astfmt.Marshal(tree)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			prog, err := astfmt.Decode(first)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			second, err := astfmt.Marshal(prog.Root)
			if err != nil {
				t.Fatalf("re-marshal: %v", err)
			}
			if !bytes.Equal(first, second) {
				t.Errorf("bytes differ after round trip:\nfirst:  %x\nsecond: %x", first, second)
			}
		})
	}
}

func TestMarshalLayout(t *testing.T) {
	data, err := astfmt.Marshal(ast.Program(ast.Expr(ast.Call("loop")), ast.Expr(ast.Call("loop"))))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	prog, err := astfmt.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if diff := cmp.Diff([]string{"loop"}, prog.Strings); diff != "" {
		t.Errorf("strings should be deduplicated (-want +got):\n%s", diff)
	}
	// count(4) + len(2) + "loop"(4) + nul(1)
	if prog.Header.StringTableSize != 11 {
		t.Errorf("string table size = %d, want 11", prog.Header.StringTableSize)
	}
	nodeTable := 16 + 12
	if data[nodeTable] != byte(ast.KindProgram) {
		t.Errorf("node table should start at the aligned offset %d", nodeTable)
	}
	if !bytes.Equal(data[:4], []byte("ASTP")) {
		t.Errorf("magic = %q", data[:4])
	}
}

func TestEncodeDigestMatchesDecode(t *testing.T) {
	tree := sampleTrees()["blink"]

	var buf bytes.Buffer
	digest, err := astfmt.Encode(&buf, tree)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	prog, err := astfmt.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if digest != prog.Digest {
		t.Errorf("digest mismatch: encode %x, decode %x", digest, prog.Digest)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	tree := sampleTrees()["control flow"]
	first, err := astfmt.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := astfmt.Marshal(tree)
		if err != nil {
			t.Fatalf("marshal %d: %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("marshal %d produced different bytes", i)
		}
	}
}

func BenchmarkDecode(b *testing.B) {
	data, err := astfmt.Marshal(sampleTrees()["control flow"])
	if err != nil {
		b.Fatalf("marshal: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := astfmt.Decode(data); err != nil {
			b.Fatal(err)
		}
	}
}
