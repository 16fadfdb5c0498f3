// Package mesh holds the polygonal output of the plane cutters.
package mesh

import (
	"errors"
	"math"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/planecut/grid"
)

// Precision selects the floating point width of output points.
type Precision uint8

const (
	// PrecisionDefault picks double precision for float64 scalars and single precision otherwise.
	PrecisionDefault Precision = iota
	PrecisionSingle
	PrecisionDouble
)

func (p Precision) String() string {
	switch p {
	case PrecisionDefault:
		return "default"
	case PrecisionSingle:
		return "single"
	case PrecisionDouble:
		return "double"
	}
	return "Precision(invalid)"
}

func (p Precision) MarshalText() ([]byte, error) {
	if p > PrecisionDouble {
		return nil, errors.New("invalid precision")
	}
	return []byte(p.String()), nil
}

func (p *Precision) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "default":
		*p = PrecisionDefault
	case "single", "float":
		*p = PrecisionSingle
	case "double":
		*p = PrecisionDouble
	default:
		return errors.New("unknown precision " + string(b))
	}
	return nil
}

// Resolve returns the concrete precision used for points when cutting a grid with scalars of type T.
func Resolve[T grid.Scalar](p Precision) Precision {
	if p != PrecisionDefault {
		return p
	}
	var z T
	if _, ok := any(z).(float64); ok {
		return PrecisionDouble
	}
	return PrecisionSingle
}

// NeedsLargeIds reports whether a mesh of the given size must store its ids in 64 bits.
func NeedsLargeIds(numPts, numTris int) bool {
	return numPts > math.MaxInt32 || 3*numTris > math.MaxInt32
}

// IdArray is an array of point or connectivity ids stored in 32 or 64 bits.
// Exactly one of I32 and I64 is used.
type IdArray struct {
	I32 []int32
	I64 []int64
}

// MakeIdArray returns an IdArray of length n.
func MakeIdArray(n int, large bool) IdArray {
	if large {
		return IdArray{I64: make([]int64, n)}
	}
	return IdArray{I32: make([]int32, n)}
}

func (ids IdArray) Is64() bool { return ids.I64 != nil }

func (ids IdArray) Len() int {
	if ids.I64 != nil {
		return len(ids.I64)
	}
	return len(ids.I32)
}

func (ids IdArray) At(i int) int64 {
	if ids.I64 != nil {
		return ids.I64[i]
	}
	return int64(ids.I32[i])
}

func (ids IdArray) Set(i int, v int64) {
	if ids.I64 != nil {
		ids.I64[i] = v
	} else {
		ids.I32[i] = int32(v)
	}
}

// CellArray stores polygons as offsets into a flat connectivity array.
// Cell i uses Connectivity[Offsets[i]:Offsets[i+1]].
type CellArray struct {
	Offsets      IdArray
	Connectivity IdArray
}

// NumCells returns the number of cells stored in the array.
func (ca *CellArray) NumCells() int { return max(0, ca.Offsets.Len()-1) }

// Layout describes which optional arrays a PolyData carries.
type Layout struct {
	Precision  Precision // Must be resolved, PrecisionDefault is treated as single.
	Normals    bool
	Scalars    bool
	ScalarName string
	// PointData and CellData are templates: only names and components are used.
	PointData []grid.DataArray
	CellData  []grid.DataArray
}

// PolyData is a triangle mesh with optional per-point normals, scalars and
// attribute arrays and per-triangle attribute arrays.
type PolyData[T grid.Scalar] struct {
	Points32   []ms3.Vec
	Points64   []md3.Vec
	Normals    []ms3.Vec
	Scalars    []T
	ScalarName string
	Polys      CellArray
	PointData  []grid.DataArray
	CellData   []grid.DataArray
	// LargeIds is set when ids are stored in 64 bits.
	LargeIds bool
}

// New allocates a mesh for exactly numPts points and numTris triangles.
func New[T grid.Scalar](numPts, numTris int, layout Layout) *PolyData[T] {
	pd := &PolyData[T]{
		ScalarName: layout.ScalarName,
		LargeIds:   NeedsLargeIds(numPts, numTris),
	}
	if layout.Precision == PrecisionDouble {
		pd.Points64 = make([]md3.Vec, numPts)
	} else {
		pd.Points32 = make([]ms3.Vec, numPts)
	}
	if layout.Normals {
		pd.Normals = make([]ms3.Vec, numPts)
	}
	if layout.Scalars {
		pd.Scalars = make([]T, numPts)
	}
	pd.PointData = allocLike(layout.PointData, numPts)
	pd.CellData = allocLike(layout.CellData, numTris)
	pd.Polys.Offsets = MakeIdArray(numTris+1, pd.LargeIds)
	pd.Polys.Connectivity = MakeIdArray(3*numTris, pd.LargeIds)
	return pd
}

func allocLike(templates []grid.DataArray, n int) []grid.DataArray {
	if len(templates) == 0 {
		return nil
	}
	arrays := make([]grid.DataArray, len(templates))
	for i, tmpl := range templates {
		nc := max(1, tmpl.NumComponents)
		arrays[i] = grid.DataArray{Name: tmpl.Name, NumComponents: nc, Data: make([]float64, n*nc)}
	}
	return arrays
}

// NumPoints returns the number of points in the mesh.
func (pd *PolyData[T]) NumPoints() int {
	if pd.Points64 != nil {
		return len(pd.Points64)
	}
	return len(pd.Points32)
}

// NumTriangles returns the number of triangles in the mesh.
func (pd *PolyData[T]) NumTriangles() int { return pd.Polys.NumCells() }

// Point returns the i'th point.
func (pd *PolyData[T]) Point(i int) md3.Vec {
	if pd.Points64 != nil {
		return pd.Points64[i]
	}
	p := pd.Points32[i]
	return md3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}

// SetPoint stores the i'th point, rounding to single precision if needed.
func (pd *PolyData[T]) SetPoint(i int, p md3.Vec) {
	if pd.Points64 != nil {
		pd.Points64[i] = p
	} else {
		pd.Points32[i] = ms3.Vec{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
	}
}

// Triangle returns the point ids of the i'th triangle.
func (pd *PolyData[T]) Triangle(i int) (tri [3]int64) {
	off := int(pd.Polys.Offsets.At(i))
	for k := range tri {
		tri[k] = pd.Polys.Connectivity.At(off + k)
	}
	return tri
}

// SetTriangle stores the point ids of the i'th triangle along with its offsets.
// Triangles may be set concurrently as long as their indices differ.
func (pd *PolyData[T]) SetTriangle(i int, a, b, c int64) {
	conn := pd.Polys.Connectivity
	off := 3 * i
	conn.Set(off, a)
	conn.Set(off+1, b)
	conn.Set(off+2, c)
	pd.Polys.Offsets.Set(i+1, int64(off+3))
}

// AppendTriangles appends the mesh's triangles in float32 precision to dst.
func (pd *PolyData[T]) AppendTriangles(dst []ms3.Triangle) []ms3.Triangle {
	vec := func(id int64) ms3.Vec {
		if pd.Points64 != nil {
			p := pd.Points64[id]
			return ms3.Vec{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
		}
		return pd.Points32[id]
	}
	for i := 0; i < pd.NumTriangles(); i++ {
		tri := pd.Triangle(i)
		dst = append(dst, ms3.Triangle{vec(tri[0]), vec(tri[1]), vec(tri[2])})
	}
	return dst
}

// Bounds returns the bounding box of the mesh points.
func (pd *PolyData[T]) Bounds() ms3.Box {
	n := pd.NumPoints()
	if n == 0 {
		return ms3.Box{}
	}
	first := pd.Point(0)
	v := ms3.Vec{X: float32(first.X), Y: float32(first.Y), Z: float32(first.Z)}
	bb := ms3.Box{Min: v, Max: v}
	for i := 1; i < n; i++ {
		p := pd.Point(i)
		v = ms3.Vec{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
		bb.Min = ms3.MinElem(bb.Min, v)
		bb.Max = ms3.MaxElem(bb.Max, v)
	}
	return bb
}
