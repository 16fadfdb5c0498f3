// Package grid defines the structured volumetric inputs consumed by the plane
// cutters: uniform image grids, rectilinear grids and curvilinear structured grids,
// their attribute arrays and the cutting [Plane].
//
// Point ids are always contiguous and x-fastest: id = i + j*D0 + k*D0*D1.
// Cell ids follow the same convention over the (D0-1)*(D1-1)*(D2-1) cells.
package grid

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/md3"
)

// Scalar is the set of numeric types the cutting kernels are instantiated over.
type Scalar interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

var (
	ErrNoPlane          = errors.New("no cutting plane")
	ErrDegenerateExtent = errors.New("degenerate grid extent")
	ErrNoScalars        = errors.New("no scalar array")
	ErrComponents       = errors.New("scalar array must have one component")
	ErrShortBuffer      = errors.New("array too short for grid")
)

// DataArray is a named attribute array of NumComponents-tuples. Values are stored
// as float64 so they can be interpolated regardless of their original type.
type DataArray struct {
	Name          string
	NumComponents int
	Data          []float64
}

// NumTuples returns the number of tuples in the array.
func (da *DataArray) NumTuples() int {
	nc := da.components()
	return len(da.Data) / nc
}

// Tuple returns the i'th tuple. The returned slice aliases the array's data.
func (da *DataArray) Tuple(i int) []float64 {
	nc := da.components()
	return da.Data[i*nc : i*nc+nc]
}

func (da *DataArray) components() int { return max(1, da.NumComponents) }

// Attributes are the data arrays carried by a grid. Scalars is the single component
// array that is interpolated onto the cut surface.
type Attributes[T Scalar] struct {
	Scalars    []T
	ScalarName string
	// NumComponents of the Scalars array. Zero is interpreted as one.
	NumComponents int
	PointData     []DataArray
	CellData      []DataArray
}

// Validate checks the attribute arrays hold enough tuples for numPts points and numCells cells.
// Scalars are addressed through the grid's strides so their length is checked by the grid.
func (a *Attributes[T]) Validate(numPts, numCells int) error {
	if a.Scalars == nil {
		return ErrNoScalars
	}
	if a.NumComponents > 1 {
		return fmt.Errorf("%w: scalars %q have %d components", ErrComponents, a.ScalarName, a.NumComponents)
	}
	for i := range a.PointData {
		if n := a.PointData[i].NumTuples(); n < numPts {
			return fmt.Errorf("%w: point data %q has %d tuples for %d points", ErrShortBuffer, a.PointData[i].Name, n, numPts)
		}
	}
	for i := range a.CellData {
		if n := a.CellData[i].NumTuples(); n < numCells {
			return fmt.Errorf("%w: cell data %q has %d tuples for %d cells", ErrShortBuffer, a.CellData[i].Name, n, numCells)
		}
	}
	return nil
}

// Structured is implemented by all grids with a regular i,j,k topology.
type Structured[T Scalar] interface {
	// Dimensions returns the number of points along each axis.
	Dimensions() [3]int
	// Point returns the position of the point with contiguous id.
	Point(id int) md3.Vec
	// Scalar returns the scalar value at the point with contiguous id.
	Scalar(id int) T
	// Attrs returns the grid's attribute arrays.
	Attrs() *Attributes[T]
	// CellVisible reports whether the cell with the given id takes part in the cut.
	CellVisible(cellID int) bool
	// Validate checks the grid is well formed and can be cut.
	Validate() error
}

// NumPoints returns the number of points of a grid with dimensions dims.
func NumPoints(dims [3]int) int { return dims[0] * dims[1] * dims[2] }

// NumCells returns the number of cells of a grid with dimensions dims.
// Flat dimensions contribute no cells.
func NumCells(dims [3]int) int {
	return max(0, dims[0]-1) * max(0, dims[1]-1) * max(0, dims[2]-1)
}

// Is3D reports whether dims describe a grid with 3D linear (hexahedral) cells.
func Is3D(dims [3]int) bool {
	return dims[0] > 1 && dims[1] > 1 && dims[2] > 1
}

// PointIJK converts a contiguous point id to its i,j,k index.
func PointIJK(dims [3]int, id int) (i, j, k int) {
	slab := dims[0] * dims[1]
	k = id / slab
	id -= k * slab
	j = id / dims[0]
	i = id - j*dims[0]
	return i, j, k
}

// PointID returns the contiguous point id of index i,j,k.
func PointID(dims [3]int, i, j, k int) int {
	return i + j*dims[0] + k*dims[0]*dims[1]
}

// CellID returns the contiguous cell id of the cell with origin point i,j,k.
func CellID(dims [3]int, i, j, k int) int {
	nx, ny := dims[0]-1, dims[1]-1
	return i + j*nx + k*nx*ny
}

// CellPoints returns the point ids of the 8 corners of the cell with origin i,j,k
// in voxel order (x fastest, then y, then z).
func CellPoints(dims [3]int, i, j, k int) (ids [8]int) {
	d0, d01 := dims[0], dims[0]*dims[1]
	p0 := i + j*d0 + k*d01
	ids[0] = p0
	ids[1] = p0 + 1
	ids[2] = p0 + d0
	ids[3] = p0 + d0 + 1
	ids[4] = p0 + d01
	ids[5] = p0 + d01 + 1
	ids[6] = p0 + d01 + d0
	ids[7] = p0 + d01 + d0 + 1
	return ids
}

func validateDims(dims [3]int) error {
	if dims[0] < 1 || dims[1] < 1 || dims[2] < 1 {
		return fmt.Errorf("%w: dimensions %v", ErrDegenerateExtent, dims)
	}
	return nil
}
