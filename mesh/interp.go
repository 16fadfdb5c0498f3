package mesh

import (
	"math"

	"github.com/soypat/planecut/grid"
)

// Lerp interpolates between a and b at parameter t in [0,1]. Integer results are
// rounded to the nearest value.
func Lerp[T grid.Scalar](a, b T, t float64) T {
	fa := float64(a)
	v := fa + t*(float64(b)-fa)
	if isInteger[T]() {
		v = math.Round(v)
	}
	return T(v)
}

func isInteger[T grid.Scalar]() bool {
	half := 0.5
	return T(half) == 0
}

// InterpolateTuples writes into each dst array the tuple at index dstID interpolated
// between the src tuples at a and b. dst and src must be parallel slices.
func InterpolateTuples(dst, src []grid.DataArray, dstID, a, b int, t float64) {
	for k := range dst {
		out := dst[k].Tuple(dstID)
		ta := src[k].Tuple(a)
		tb := src[k].Tuple(b)
		for c := range out {
			out[c] = ta[c] + t*(tb[c]-ta[c])
		}
	}
}

// CopyTuples copies the tuple at srcID of every src array into dstID of the parallel dst array.
func CopyTuples(dst, src []grid.DataArray, dstID, srcID int) {
	for k := range dst {
		copy(dst[k].Tuple(dstID), src[k].Tuple(srcID))
	}
}

// EdgeParameter returns the parameter t in [0,1] where the linear function taking
// value s0 at t=0 and s1 at t=1 crosses zero. Equal values return zero.
func EdgeParameter(s0, s1 float64) float64 {
	den := s1 - s0
	if den == 0 {
		return 0
	}
	return min(1, max(0, -s0/den))
}
