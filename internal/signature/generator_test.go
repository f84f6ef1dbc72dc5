package signature

import (
	"math/rand"
	"strings"
	"testing"
)

// randomSignature produces arbitrary well-formed signatures so the parser
// can be exercised far beyond the hand-written table cases.
func randomSignature(r *rand.Rand, count int) string {
	var b strings.Builder
	for i := 0; i < count; i++ {
		writeRandomType(r, &b, 0)
	}
	return b.String()
}

func writeRandomType(r *rand.Rand, b *strings.Builder, depth int) {
	// Bias toward basic types as nesting grows so signatures stay within
	// the length and depth limits.
	roll := r.Intn(10)
	if depth >= 6 {
		roll = 0
	}

	switch {
	case roll < 5:
		b.WriteByte(basicCodes[r.Intn(len(basicCodes))])
	case roll < 6:
		b.WriteByte('v')
	case roll < 8:
		b.WriteByte('a')
		writeRandomType(r, b, depth+1)
	case roll < 9:
		b.WriteString("a{")
		b.WriteByte(basicCodes[r.Intn(len(basicCodes))])
		writeRandomType(r, b, depth+1)
		b.WriteByte('}')
	default:
		b.WriteByte('(')
		for i, n := 0, 1+r.Intn(3); i < n; i++ {
			writeRandomType(r, b, depth+1)
		}
		b.WriteByte(')')
	}
}

func TestParseRandomSignatures(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(0x5d1))
	for i := 0; i < 2000; i++ {
		sig := randomSignature(r, 1+r.Intn(4))
		if len(sig) > maxLength {
			continue
		}

		types, err := Parse(sig)
		if err != nil {
			t.Fatalf("generated signature %q failed to parse: %v", sig, err)
		}

		var rebuilt strings.Builder
		for _, typ := range types {
			rebuilt.WriteString(typ.String())
		}
		if rebuilt.String() != sig {
			t.Fatalf("round trip mismatch: %q became %q", sig, rebuilt.String())
		}
	}
}

func TestRandomSingleTypesAreSingle(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(0xd0b))
	for i := 0; i < 500; i++ {
		sig := randomSignature(r, 1)
		if len(sig) > maxLength {
			continue
		}
		if _, err := ParseSingle(sig); err != nil {
			t.Fatalf("generated single type %q rejected: %v", sig, err)
		}
	}
}
