// Package flyingedges cuts uniform image grids with a plane using the four pass
// Flying Edges algorithm:
//
//  1. Classify every x-edge of every grid row against the plane and record where
//     each row is crossed.
//  2. Combine the four x-rows bounding every voxel row into voxel cases, trim the
//     voxel rows to the range that may contain the surface and count the y-edge
//     and z-edge intersections and triangles each row produces.
//  3. Prefix sum the per-row counts into output offsets and allocate the output.
//  4. Walk the trimmed voxel rows again writing points and triangles directly to
//     their precomputed output locations.
//
// Passes 1, 2 and 4 run in parallel over grid slices; pass 3 is sequential.
// Output is identical regardless of the number of workers.
package flyingedges

import (
	"time"

	"github.com/soypat/planecut/grid"
	"github.com/soypat/planecut/mctable"
	"github.com/soypat/planecut/mesh"
	"github.com/soypat/planecut/parallel"
)

// Options configures a cut.
type Options struct {
	Parallel parallel.Config
	// Abort may be nil. When raised the cut stops early and output is incomplete.
	Abort          *parallel.Abort
	ComputeNormals bool
	// InterpolateAttributes interpolates the scalars and point data onto the output
	// points and copies cell data onto the output triangles.
	InterpolateAttributes bool
	// Precision of output points. PrecisionDefault is resolved from the scalar type.
	Precision mesh.Precision

	// noTrim disables computational trimming in pass 2.
	noTrim bool
}

// Stats describes a completed cut.
type Stats struct {
	Workers      int
	NumPoints    int
	NumTriangles int
	Elapsed      [4]time.Duration // per pass
}

// Cut intersects img with plane and returns the resulting triangle mesh. img and
// plane must be valid, see [grid.ImageData.Validate] and [grid.Plane.Validate].
// Cut returns a non-nil error only if opts.Abort was raised, in which case the
// returned mesh is incomplete.
func Cut[T grid.Scalar](img *grid.ImageData[T], plane grid.Plane, opts Options) (*mesh.PolyData[T], Stats, error) {
	c := newCutter(img, plane, opts)
	var stats Stats
	watch := stopwatch()

	stats.Workers = c.pass1()
	stats.Elapsed[0] = watch()
	if err := opts.Abort.Err(); err != nil {
		return c.emptyMesh(), stats, err
	}

	watch = stopwatch()
	stats.Workers = max(stats.Workers, c.pass2())
	stats.Elapsed[1] = watch()
	if err := opts.Abort.Err(); err != nil {
		return c.emptyMesh(), stats, err
	}

	watch = stopwatch()
	stats.NumPoints, stats.NumTriangles = c.pass3()
	c.allocate(stats.NumPoints, stats.NumTriangles)
	stats.Elapsed[2] = watch()

	watch = stopwatch()
	stats.Workers = max(stats.Workers, c.pass4())
	stats.Elapsed[3] = watch()
	slogger().Debug("flying edges cut",
		"dims", img.Dims, "points", stats.NumPoints, "triangles", stats.NumTriangles,
		"workers", stats.Workers, "pass1", stats.Elapsed[0], "pass2", stats.Elapsed[1],
		"pass3", stats.Elapsed[2], "pass4", stats.Elapsed[3])
	return c.out, stats, opts.Abort.Err()
}

// strides addresses all per-cut arrays from row, slice and x indices.
type strides struct {
	d0, d1, d2 int
	nxcells    int
	inc        [3]int
}

// edge returns the index of the first x-edge case byte of a grid row.
func (s strides) edge(row, slice int) int { return (row + slice*s.d1) * s.nxcells }

// meta returns the index of a grid row's metadata.
func (s strides) meta(row, slice int) int { return row + slice*s.d1 }

// scalar returns the index of a point's scalar in the image scalar array.
func (s strides) scalar(i, row, slice int) int {
	return i*s.inc[0] + row*s.inc[1] + slice*s.inc[2]
}

// point returns the contiguous id of a grid point.
func (s strides) point(i, row, slice int) int { return i + row*s.d0 + slice*s.d0*s.d1 }

// cell returns the contiguous id of a voxel.
func (s strides) cell(i, row, slice int) int {
	return i + row*s.nxcells + slice*s.nxcells*(s.d1-1)
}

// rowMeta is the metadata of one grid row. After pass 2 XInts, YInts, ZInts and
// Tris are counts; pass 3 turns them into output offsets.
type rowMeta struct {
	XInts, YInts, ZInts, Tris int
	// TrimMin, TrimMax bound the x-edges crossed in this grid row (pass 1).
	TrimMin, TrimMax int
	// CellMin, CellMax bound the voxels of the voxel row starting at this grid row (pass 2).
	CellMin, CellMax int
}

type cutter[T grid.Scalar] struct {
	img   *grid.ImageData[T]
	plane grid.Plane
	tbl   *mctable.Table
	acc   strides
	opts  Options

	// Signed distance of point i,j,k is base + dx*i + dy*j + dz*k.
	base, dx, dy, dz float64

	xcases []uint8
	meta   []rowMeta
	out    *mesh.PolyData[T]
}

func newCutter[T grid.Scalar](img *grid.ImageData[T], plane grid.Plane, opts Options) *cutter[T] {
	dims := img.Dims
	n := plane.Normal
	c := &cutter[T]{
		img:   img,
		plane: plane,
		tbl:   mctable.Get(),
		opts:  opts,
		acc: strides{
			d0: dims[0], d1: dims[1], d2: dims[2],
			nxcells: dims[0] - 1,
			inc:     img.Strides(),
		},
		base: plane.EvaluateXYZ(img.Origin[0], img.Origin[1], img.Origin[2]),
		dx:   n.X * img.Spacing[0],
		dy:   n.Y * img.Spacing[1],
		dz:   n.Z * img.Spacing[2],
	}
	c.opts.Precision = mesh.Resolve[T](opts.Precision)
	c.xcases = make([]uint8, c.acc.nxcells*dims[1]*dims[2])
	c.meta = make([]rowMeta, dims[1]*dims[2])
	return c
}

// rowBase returns the signed distance of the first point of a grid row.
func (c *cutter[T]) rowBase(row, slice int) float64 {
	return c.base + c.dy*float64(row) + c.dz*float64(slice)
}

// dist returns the signed distance of point i,row,slice. All passes evaluate the
// plane through this method so classification and interpolation agree exactly.
func (c *cutter[T]) dist(i, row, slice int) float64 {
	return c.rowBase(row, slice) + c.dx*float64(i)
}

func (c *cutter[T]) layout() mesh.Layout {
	l := mesh.Layout{
		Precision: c.opts.Precision,
		Normals:   c.opts.ComputeNormals,
	}
	if c.opts.InterpolateAttributes {
		l.Scalars = true
		l.ScalarName = c.img.ScalarName
		l.PointData = c.img.PointData
		l.CellData = c.img.CellData
	}
	return l
}

func (c *cutter[T]) allocate(numPts, numTris int) {
	c.out = mesh.New[T](numPts, numTris, c.layout())
}

func (c *cutter[T]) emptyMesh() *mesh.PolyData[T] {
	return mesh.New[T](0, 0, c.layout())
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
