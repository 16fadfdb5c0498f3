package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/md3"
	"github.com/soypat/geometry/ms3"
)

// Plane is an infinite cutting plane through Center with unit Normal.
// Points with Evaluate(p) >= 0 are above the plane.
type Plane struct {
	Center md3.Vec
	Normal md3.Vec
}

// NewPlane returns a plane through center with normal scaled to unit length.
func NewPlane(center, normal md3.Vec) (Plane, error) {
	p := Plane{Center: center, Normal: normal}
	if err := p.Validate(); err != nil {
		return Plane{}, err
	}
	p.Normal = md3.Unit(normal)
	return p, nil
}

// Validate returns an error wrapping [ErrNoPlane] if the plane normal is zero or
// the plane is not finite.
func (p Plane) Validate() error {
	n := md3.Norm(p.Normal)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return fmt.Errorf("%w: invalid normal %v", ErrNoPlane, p.Normal)
	}
	c := p.Center
	if math.IsNaN(c.X+c.Y+c.Z) || math.IsInf(c.X+c.Y+c.Z, 0) {
		return fmt.Errorf("%w: invalid center %v", ErrNoPlane, p.Center)
	}
	return nil
}

// Evaluate returns the signed distance from the plane to pt, dot(Normal, pt-Center).
func (p Plane) Evaluate(pt md3.Vec) float64 {
	return md3.Dot(p.Normal, md3.Sub(pt, p.Center))
}

// EvaluateXYZ is Evaluate without the vector construction.
func (p Plane) EvaluateXYZ(x, y, z float64) float64 {
	return p.Normal.X*(x-p.Center.X) + p.Normal.Y*(y-p.Center.Y) + p.Normal.Z*(z-p.Center.Z)
}

// EvaluateSDF evaluates the plane at pos and stores the signed distances in dist,
// following the batched float32 signed distance function convention.
func (p Plane) EvaluateSDF(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errors.New("position and distance buffer length mismatch")
	}
	n := ms3.Vec{X: float32(p.Normal.X), Y: float32(p.Normal.Y), Z: float32(p.Normal.Z)}
	c := ms3.Vec{X: float32(p.Center.X), Y: float32(p.Center.Y), Z: float32(p.Center.Z)}
	for i, pt := range pos {
		dist[i] = ms3.Dot(n, ms3.Sub(pt, c))
	}
	return nil
}

// Bounds returns the bounding box of the plane's intersection with box bb, which
// is empty when the plane does not cut the box.
func (p Plane) Bounds(bb ms3.Box) (cut ms3.Box, ok bool) {
	corners := [8]ms3.Vec{
		bb.Min, {X: bb.Max.X, Y: bb.Min.Y, Z: bb.Min.Z},
		{X: bb.Min.X, Y: bb.Max.Y, Z: bb.Min.Z}, {X: bb.Max.X, Y: bb.Max.Y, Z: bb.Min.Z},
		{X: bb.Min.X, Y: bb.Min.Y, Z: bb.Max.Z}, {X: bb.Max.X, Y: bb.Min.Y, Z: bb.Max.Z},
		{X: bb.Min.X, Y: bb.Max.Y, Z: bb.Max.Z}, bb.Max,
	}
	var d [8]float32
	p.EvaluateSDF(corners[:], d[:], nil)
	inf := math32.Inf(1)
	cut = ms3.Box{Min: ms3.Vec{X: inf, Y: inf, Z: inf}, Max: ms3.Vec{X: -inf, Y: -inf, Z: -inf}}
	for e := 0; e < 12; e++ {
		a, b := boxEdges[e][0], boxEdges[e][1]
		if (d[a] >= 0) == (d[b] >= 0) {
			continue
		}
		t := d[a] / (d[a] - d[b])
		pt := ms3.Add(corners[a], ms3.Scale(t, ms3.Sub(corners[b], corners[a])))
		cut.Min = ms3.MinElem(cut.Min, pt)
		cut.Max = ms3.MaxElem(cut.Max, pt)
		ok = true
	}
	if !ok {
		return ms3.Box{}, false
	}
	return cut, true
}

var boxEdges = [12][2]uint8{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}
