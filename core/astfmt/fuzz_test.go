package astfmt_test

import (
	"testing"

	"github.com/opal-lang/sketchvm/core/astfmt"
)

// FuzzDecode tests that the decoder never panics on arbitrary input and that
// whatever it accepts can be written back out and read again.
func FuzzDecode(f *testing.F) {
	for _, tree := range sampleTrees() {
		data, err := astfmt.Marshal(tree)
		if err != nil {
			f.Fatalf("marshal seed: %v", err)
		}
		f.Add(data)
		for i := 0; i < len(data); i += 7 {
			f.Add(data[:i])
		}
	}
	f.Add([]byte("ASTP"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		prog, err := astfmt.Decode(data)
		if err != nil {
			if prog != nil {
				t.Fatalf("error %v returned with a partial tree", err)
			}
			return
		}
		out, err := astfmt.Marshal(prog.Root)
		if err != nil {
			t.Fatalf("re-marshal accepted input: %v", err)
		}
		if _, err := astfmt.Decode(out); err != nil {
			t.Fatalf("re-decode: %v", err)
		}
	})
}
