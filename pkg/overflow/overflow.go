// Package overflow provides saturating, overflow-safe integer arithmetic
// for temporal-network edge weights.
//
// All weights in the network are 32-bit signed ints. Two sentinels stand
// in for the infinities: PosInf for "non-informative" (no constraint) and
// NegInf for a saturated, certain lower-bound violation. Ordinary sums
// that would exceed the representable range are clamped rather than
// wrapped, so a caller can never observe int32 wraparound silently
// flipping the sign of a constraint.
package overflow

import "math"

// PosInf represents a non-informative (absent) upper constraint.
const PosInf = math.MaxInt32

// NegInf represents a saturated, certain lower-bound violation.
const NegInf = math.MinInt32

// saturationBound is the clamp applied to a finite sum that would
// otherwise approach the sentinel values too closely to stay
// distinguishable from them.
const saturationBound = math.MaxInt32 / 2

// Sum returns a + b with overflow-safe, sentinel-aware saturation:
//
//   - PosInf if a or b is PosInf
//   - NegInf if a or b is NegInf (checked after the PosInf case, so
//     PosInf + NegInf is defined as PosInf: a non-informative edge
//     absorbs a certain-violation edge rather than propagating it,
//     matching the "non-informative" reading of +∞)
//   - otherwise a+b widened to 64 bits and clamped to
//     [-saturationBound, saturationBound]
func Sum(a, b int) int {
	if a == PosInf || b == PosInf {
		return PosInf
	}
	if a == NegInf || b == NegInf {
		return NegInf
	}
	wide := int64(a) + int64(b)
	if wide > saturationBound {
		return saturationBound
	}
	if wide < -saturationBound {
		return -saturationBound
	}
	return int(wide)
}

// IsPosInf reports whether v is the positive-infinity sentinel.
func IsPosInf(v int) bool { return v == PosInf }

// IsNegInf reports whether v is the negative-infinity sentinel.
func IsNegInf(v int) bool { return v == NegInf }

// Min returns the smaller of a and b.
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
