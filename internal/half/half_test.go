package half

import (
	"math"
	"testing"
)

func TestRoundTripExactValues(t *testing.T) {
	cases := []float32{0, 1, -1, 2, 0.5, -0.5, 65504, -65504, 1.0 / 1024}
	for _, c := range cases {
		got := ToFloat32(FromFloat32(c))
		if got != c {
			t.Errorf("round trip of %v: got %v", c, got)
		}
	}
}

func TestInfAndNaN(t *testing.T) {
	if got := ToFloat32(FromFloat32(float32(math.Inf(1)))); !math.IsInf(float64(got), 1) {
		t.Errorf("expected +Inf, got %v", got)
	}
	if got := ToFloat32(FromFloat32(float32(math.Inf(-1)))); !math.IsInf(float64(got), -1) {
		t.Errorf("expected -Inf, got %v", got)
	}
	if got := ToFloat32(FromFloat32(float32(math.NaN()))); !math.IsNaN(float64(got)) {
		t.Errorf("expected NaN, got %v", got)
	}
}

func TestOverflowRoundsToInfinity(t *testing.T) {
	got := FromFloat32(1e6)
	if got&f16ExpMask != f16ExpMask {
		t.Errorf("expected overflow to infinity, got bits %#x", got)
	}
}

func TestSubnormalRoundsToNearestEven(t *testing.T) {
	// Smallest binary16 subnormal is 2^-24; halfway between 0 and it
	// should round to even (0), not flush unconditionally.
	smallest := float32(math.Ldexp(1, -24))
	got := FromFloat32(smallest)
	if got != 1 {
		t.Errorf("expected smallest subnormal bit pattern 1, got %#x", got)
	}
	half := float32(math.Ldexp(1, -25))
	if got := FromFloat32(half); got != 0 {
		t.Errorf("expected round-to-even of exact halfway case to 0, got %#x", got)
	}
}

func TestSignPreserved(t *testing.T) {
	got := FromFloat32(-2.5)
	if got&f16SignMask == 0 {
		t.Error("expected sign bit set for negative value")
	}
}
