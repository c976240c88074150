package fixedpoint

import (
	"math/big"
	"testing"
)

func TestToFloat(t *testing.T) {
	atoms := new(big.Int)
	atoms.SetString("1367351872047690", 10)

	got := ToFloat(atoms, 6)
	want := 1367351872.04769
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestToFloatNil(t *testing.T) {
	if got := ToFloat(nil, 18); got != 0 {
		t.Fatalf("nil atoms should convert to 0, got %v", got)
	}
}

func TestToAtomsTruncates(t *testing.T) {
	got := ToAtoms(1.2345678, 6)
	want := big.NewInt(1234567)
	if got.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestToAtomsLargeDecimals(t *testing.T) {
	got := ToAtoms(2.5, 18)
	want := new(big.Int)
	want.SetString("2500000000000000000", 10)
	if got.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, 23604.588213, 3000000} {
		back := ToFloat(ToAtoms(v, 6), 6)
		if diff := back - v; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("round trip drift for %v: got %v", v, back)
		}
	}
}
