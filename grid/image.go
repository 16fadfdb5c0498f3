package grid

import (
	"fmt"
	"math"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/geometry/ms3"
)

// ImageData is a uniform grid of points at Origin + (i,j,k)*Spacing.
type ImageData[T Scalar] struct {
	Dims    [3]int
	Origin  [3]float64
	Spacing [3]float64
	// Inc are the strides into Scalars along x, y and z. The zero value selects
	// contiguous x-fastest storage.
	Inc [3]int
	Attributes[T]
}

// NewImageData returns an image grid with contiguous scalars. scalars may be nil
// in which case a zeroed array of the right size is allocated.
func NewImageData[T Scalar](dims [3]int, origin, spacing [3]float64, scalars []T) *ImageData[T] {
	if scalars == nil {
		scalars = make([]T, max(0, NumPoints(dims)))
	}
	return &ImageData[T]{
		Dims:       dims,
		Origin:     origin,
		Spacing:    spacing,
		Attributes: Attributes[T]{Scalars: scalars, ScalarName: "scalars"},
	}
}

// Strides returns the scalar strides along each axis.
func (img *ImageData[T]) Strides() [3]int {
	if img.Inc == ([3]int{}) {
		return [3]int{1, img.Dims[0], img.Dims[0] * img.Dims[1]}
	}
	return img.Inc
}

func (img *ImageData[T]) Dimensions() [3]int { return img.Dims }

func (img *ImageData[T]) Attrs() *Attributes[T] { return &img.Attributes }

func (img *ImageData[T]) CellVisible(int) bool { return true }

// Point returns the position of the point with contiguous id.
func (img *ImageData[T]) Point(id int) md3.Vec {
	i, j, k := PointIJK(img.Dims, id)
	return img.PointIJK(i, j, k)
}

// PointIJK returns the position of the point with index i,j,k.
func (img *ImageData[T]) PointIJK(i, j, k int) md3.Vec {
	return md3.Vec{
		X: img.Origin[0] + float64(i)*img.Spacing[0],
		Y: img.Origin[1] + float64(j)*img.Spacing[1],
		Z: img.Origin[2] + float64(k)*img.Spacing[2],
	}
}

// Scalar returns the scalar at the point with contiguous id.
func (img *ImageData[T]) Scalar(id int) T {
	i, j, k := PointIJK(img.Dims, id)
	inc := img.Strides()
	return img.Scalars[i*inc[0]+j*inc[1]+k*inc[2]]
}

// Validate checks the image describes a 3D volume with enough scalars for its strides.
func (img *ImageData[T]) Validate() error {
	if err := validateDims(img.Dims); err != nil {
		return err
	}
	if !Is3D(img.Dims) {
		return fmt.Errorf("%w: image dimensions %v are not a volume", ErrDegenerateExtent, img.Dims)
	}
	for ax, s := range img.Spacing {
		if s <= 0 || math.IsInf(s, 0) || math.IsNaN(s) {
			return fmt.Errorf("%w: spacing[%d]=%g", ErrDegenerateExtent, ax, s)
		}
	}
	if err := img.Attributes.Validate(NumPoints(img.Dims), NumCells(img.Dims)); err != nil {
		return err
	}
	inc := img.Strides()
	last := 0
	for ax := 0; ax < 3; ax++ {
		if inc[ax] <= 0 {
			return fmt.Errorf("%w: non-positive stride %v", ErrDegenerateExtent, inc)
		}
		last += (img.Dims[ax] - 1) * inc[ax]
	}
	if last >= len(img.Scalars) {
		return fmt.Errorf("%w: %d scalars for last index %d", ErrShortBuffer, len(img.Scalars), last)
	}
	return nil
}

// Bounds returns the float32 bounding box of the image.
func (img *ImageData[T]) Bounds() ms3.Box {
	return ms3.Box{Min: vec32(img.PointIJK(0, 0, 0)), Max: vec32(img.PointIJK(img.Dims[0]-1, img.Dims[1]-1, img.Dims[2]-1))}
}

// RectilinearGrid is an axis aligned grid with non-uniform point coordinates
// along each axis.
type RectilinearGrid[T Scalar] struct {
	X, Y, Z []float64
	Attributes[T]
}

func (rg *RectilinearGrid[T]) Dimensions() [3]int { return [3]int{len(rg.X), len(rg.Y), len(rg.Z)} }

func (rg *RectilinearGrid[T]) Attrs() *Attributes[T] { return &rg.Attributes }

func (rg *RectilinearGrid[T]) CellVisible(int) bool { return true }

func (rg *RectilinearGrid[T]) Point(id int) md3.Vec {
	i, j, k := PointIJK(rg.Dimensions(), id)
	return md3.Vec{X: rg.X[i], Y: rg.Y[j], Z: rg.Z[k]}
}

func (rg *RectilinearGrid[T]) Scalar(id int) T { return rg.Scalars[id] }

func (rg *RectilinearGrid[T]) Validate() error {
	dims := rg.Dimensions()
	if err := validateDims(dims); err != nil {
		return err
	}
	for ax, coords := range [3][]float64{rg.X, rg.Y, rg.Z} {
		for i := 1; i < len(coords); i++ {
			if !(coords[i] > coords[i-1]) {
				return fmt.Errorf("%w: axis %d coordinates not increasing at %d", ErrDegenerateExtent, ax, i)
			}
		}
	}
	if err := rg.Attributes.Validate(NumPoints(dims), NumCells(dims)); err != nil {
		return err
	}
	if len(rg.Scalars) < NumPoints(dims) {
		return fmt.Errorf("%w: %d scalars for %d points", ErrShortBuffer, len(rg.Scalars), NumPoints(dims))
	}
	return nil
}

// StructuredGrid is a curvilinear grid with explicit point positions and
// i,j,k topology.
type StructuredGrid[T Scalar] struct {
	Dims   [3]int
	Points []md3.Vec
	// Blank marks cells excluded from the cut. A nil slice means all cells are visible.
	Blank []bool
	Attributes[T]
}

func (sg *StructuredGrid[T]) Dimensions() [3]int { return sg.Dims }

func (sg *StructuredGrid[T]) Attrs() *Attributes[T] { return &sg.Attributes }

func (sg *StructuredGrid[T]) CellVisible(cellID int) bool {
	return sg.Blank == nil || !sg.Blank[cellID]
}

func (sg *StructuredGrid[T]) Point(id int) md3.Vec { return sg.Points[id] }

func (sg *StructuredGrid[T]) Scalar(id int) T { return sg.Scalars[id] }

func (sg *StructuredGrid[T]) Validate() error {
	if err := validateDims(sg.Dims); err != nil {
		return err
	}
	npts := NumPoints(sg.Dims)
	if len(sg.Points) < npts {
		return fmt.Errorf("%w: %d points for dimensions %v", ErrShortBuffer, len(sg.Points), sg.Dims)
	}
	if sg.Blank != nil && len(sg.Blank) < NumCells(sg.Dims) {
		return fmt.Errorf("%w: %d blanking entries for %d cells", ErrShortBuffer, len(sg.Blank), NumCells(sg.Dims))
	}
	if err := sg.Attributes.Validate(npts, NumCells(sg.Dims)); err != nil {
		return err
	}
	if len(sg.Scalars) < npts {
		return fmt.Errorf("%w: %d scalars for %d points", ErrShortBuffer, len(sg.Scalars), npts)
	}
	return nil
}

// Bounds returns the float32 bounding box of a grid's points.
func Bounds[T Scalar](g Structured[T]) ms3.Box {
	n := NumPoints(g.Dimensions())
	if n == 0 {
		return ms3.Box{}
	}
	bb := ms3.Box{Min: vec32(g.Point(0)), Max: vec32(g.Point(0))}
	for id := 1; id < n; id++ {
		p := vec32(g.Point(id))
		bb.Min = ms3.MinElem(bb.Min, p)
		bb.Max = ms3.MaxElem(bb.Max, p)
	}
	return bb
}

func vec32(v md3.Vec) ms3.Vec {
	return ms3.Vec{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}
