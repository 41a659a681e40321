package astfmt_test

import (
	"bytes"
	"testing"

	"github.com/opal-lang/sketchvm/core/ast"
	"github.com/opal-lang/sketchvm/core/astfmt"
)

func TestFingerprintStableAcrossRoundTrip(t *testing.T) {
	for name, tree := range sampleTrees() {
		t.Run(name, func(t *testing.T) {
			want, err := astfmt.Fingerprint(tree)
			if err != nil {
				t.Fatalf("fingerprint: %v", err)
			}
			data, err := astfmt.Marshal(tree)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			prog, err := astfmt.Decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			got, err := astfmt.Fingerprint(prog.Root)
			if err != nil {
				t.Fatalf("fingerprint decoded: %v", err)
			}
			if got != want {
				t.Errorf("fingerprint changed across round trip: %x != %x", got, want)
			}
		})
	}
}

func TestFingerprintDistinguishesTrees(t *testing.T) {
	a := ast.Program(ast.Expr(ast.Call("delay", ast.Num(100))))
	b := ast.Program(ast.Expr(ast.Call("delay", ast.Num(200))))
	c := ast.Program(ast.Expr(ast.Call("delay", ast.Float(100))))

	fa, err := astfmt.Fingerprint(a)
	if err != nil {
		t.Fatalf("fingerprint a: %v", err)
	}
	fb, err := astfmt.Fingerprint(b)
	if err != nil {
		t.Fatalf("fingerprint b: %v", err)
	}
	fc, err := astfmt.Fingerprint(c)
	if err != nil {
		t.Fatalf("fingerprint c: %v", err)
	}
	if fa == fb {
		t.Error("different literals must produce different fingerprints")
	}
	if fa == fc {
		t.Error("int and float literals must produce different fingerprints")
	}
}

func TestFingerprintSeesSlots(t *testing.T) {
	// The same child bound to different slots is a different tree.
	cond := ast.If(ast.Ident("x"), ast.Block(), nil)
	swapped := &ast.Node{Kind: ast.KindIf, Cond: ast.Block(), Then: ast.Ident("x")}

	fa, err := astfmt.Fingerprint(ast.Program(cond))
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	fb, err := astfmt.Fingerprint(ast.Program(swapped))
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if fa == fb {
		t.Error("swapping slots must change the fingerprint")
	}
}

func TestCanonicalDeterministic(t *testing.T) {
	tree := sampleTrees()["declarations"]
	first, err := astfmt.Canonical(tree)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := astfmt.Canonical(tree)
		if err != nil {
			t.Fatalf("canonical %d: %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("canonical encoding %d differs", i)
		}
	}
}
