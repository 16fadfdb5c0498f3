package flyingedges

import (
	"math"

	"github.com/soypat/planecut/mctable"
	"github.com/soypat/planecut/parallel"
)

// pass1 classifies the x-edges of every grid row.
func (c *cutter[T]) pass1() (workers int) {
	return parallel.For(c.opts.Parallel, c.opts.Abort, c.acc.d2, func(_, slice int) {
		for row := 0; row < c.acc.d1; row++ {
			c.classifyRow(row, slice)
		}
	})
}

// classifyRow evaluates the plane at the row endpoints. A plane crosses a row at
// most once so the row is either uniform or has a single crossed x-edge.
func (c *cutter[T]) classifyRow(row, slice int) {
	nx := c.acc.nxcells
	edges := c.xcases[c.acc.edge(row, slice):][:nx]
	md := &c.meta[c.acc.meta(row, slice)]
	base := c.rowBase(row, slice)
	vL := base
	vR := base + c.dx*float64(nx)
	aboveL, aboveR := vL >= 0, vR >= 0
	if vL == 0 && vR == 0 {
		// The row lies in the plane.
		aboveL, aboveR = false, false
	}
	md.XInts = 0
	if aboveL == aboveR {
		fillEdges(edges, uniformCase(aboveL))
		md.TrimMin, md.TrimMax = nx, 0
		return
	}
	above := func(i int) bool { return base+c.dx*float64(i) >= 0 }
	minInt := int(math.Round(math.Abs(vL) / (math.Abs(vL) + math.Abs(vR)) * float64(nx)))
	minInt = min(nx-1, max(0, minInt))
	// Nudge the estimate so that the x-edge really straddles the plane.
	for minInt > 0 && above(minInt) != aboveL {
		minInt--
	}
	for minInt < nx-1 && above(minInt+1) == aboveL {
		minInt++
	}
	fillEdges(edges[:minInt], uniformCase(aboveL))
	if aboveL {
		edges[minInt] = mctable.LeftAbove
	} else {
		edges[minInt] = mctable.RightAbove
	}
	fillEdges(edges[minInt+1:], uniformCase(aboveR))
	md.XInts = 1
	md.TrimMin, md.TrimMax = minInt, minInt+1
}

func uniformCase(above bool) uint8 {
	if above {
		return mctable.BothAbove
	}
	return mctable.Below
}

func fillEdges(edges []uint8, ec uint8) {
	for i := range edges {
		edges[i] = ec
	}
}

// pass2 computes voxel cases, trims voxel rows and counts y-edge and z-edge
// intersections and triangles of every voxel row.
func (c *cutter[T]) pass2() (workers int) {
	return parallel.For(c.opts.Parallel, c.opts.Abort, c.acc.d2-1, func(_, slice int) {
		for row := 0; row < c.acc.d1-1; row++ {
			c.countRow(row, slice)
		}
	})
}

// voxelRow gathers the four grid rows bounding the voxel row starting at row, slice.
func (c *cutter[T]) voxelRow(row, slice int) (e [4][]uint8, md [4]*rowMeta) {
	acc := c.acc
	for k := 0; k < 4; k++ {
		r, s := row+k&1, slice+k>>1
		e[k] = c.xcases[acc.edge(r, s):][:acc.nxcells]
		md[k] = &c.meta[acc.meta(r, s)]
	}
	return e, md
}

func sameEdgeCase(e [4][]uint8, i int) bool {
	ec := e[0][i]
	return ec == e[1][i] && ec == e[2][i] && ec == e[3][i]
}

// computeTrim returns the range of voxels in the voxel row that may produce output.
func (c *cutter[T]) computeTrim(e [4][]uint8, md [4]*rowMeta) (xL, xR int) {
	nx := c.acc.nxcells
	if c.opts.noTrim {
		return 0, nx
	}
	if md[0].XInts|md[1].XInts|md[2].XInts|md[3].XInts == 0 {
		if sameEdgeCase(e, 0) {
			return 0, 0
		}
		// Rows are uniform but differ: the plane runs between them along x.
		return 0, nx
	}
	xL, xR = nx, 0
	for _, m := range md {
		xL = min(xL, m.TrimMin)
		xR = max(xR, m.TrimMax)
	}
	// Outside the trim range every row is uniform. Widen when rows disagree
	// since the plane then crosses the y-edges or z-edges there.
	if xL > 0 && !sameEdgeCase(e, xL-1) {
		xL = 0
	}
	if xR < nx && !sameEdgeCase(e, xR) {
		xR = nx
	}
	return xL, xR
}

// Location bits of a voxel in the volume. Min bits do not require extra work.
const (
	locXMin = 1 << 0
	locXMax = 1 << 1
	locYMin = 1 << 2
	locYMax = 1 << 3
	locZMin = 1 << 4
	locZMax = 1 << 5
)

// rowLocation returns the y and z location bits of a voxel row.
func (c *cutter[T]) rowLocation(row, slice int) (loc uint8) {
	if row == 0 {
		loc |= locYMin
	}
	if row >= c.acc.d1-2 {
		loc |= locYMax
	}
	if slice == 0 {
		loc |= locZMin
	}
	if slice >= c.acc.d2-2 {
		loc |= locZMax
	}
	return loc
}

// xLocation returns the x location bits of voxel i.
func (c *cutter[T]) xLocation(i int) (loc uint8) {
	if i == 0 {
		loc |= locXMin
	}
	if i >= c.acc.d0-2 {
		loc |= locXMax
	}
	return loc
}

func (c *cutter[T]) countRow(row, slice int) {
	e, md := c.voxelRow(row, slice)
	xL, xR := c.computeTrim(e, md)
	md0 := md[0]
	md0.CellMin, md0.CellMax = xL, xR
	if xL >= xR {
		return
	}
	tbl := c.tbl
	rowLoc := c.rowLocation(row, slice)
	for i := xL; i < xR; i++ {
		ec := mctable.CaseIndex(e[0][i], e[1][i], e[2][i], e[3][i])
		ntri := tbl.NumTriangles(ec)
		if ntri == 0 {
			continue
		}
		uses := &tbl.EdgeUses[ec]
		md0.Tris += ntri
		md0.YInts += int(uses[4])
		md0.ZInts += int(uses[8])
		if loc := rowLoc | c.xLocation(i); loc&(locXMax|locYMax|locZMax) != 0 {
			countBoundaryYZInts(loc, uses, md)
		}
	}
}

// countBoundaryYZInts counts the y-edges and z-edges on the +x, +y and +z faces
// of the volume. Grid rows on the +y and +z faces own no voxel row so their edges
// are counted by the adjacent voxel row.
func countBoundaryYZInts(loc uint8, uses *[mctable.NumEdges]uint8, md [4]*rowMeta) {
	xmax := loc&locXMax != 0
	ymax := loc&locYMax != 0
	zmax := loc&locZMax != 0
	if xmax {
		md[0].YInts += int(uses[5])
		md[0].ZInts += int(uses[9])
	}
	if ymax {
		md[1].ZInts += int(uses[10])
		if xmax {
			md[1].ZInts += int(uses[11])
		}
	}
	if zmax {
		md[2].YInts += int(uses[6])
		if xmax {
			md[2].YInts += int(uses[7])
		}
	}
}

// pass3 converts the per-row counts into output offsets. Within a grid row the
// x-edge points come first, then y-edge and z-edge points.
func (c *cutter[T]) pass3() (numPts, numTris int) {
	for slice := 0; slice < c.acc.d2; slice++ {
		for row := 0; row < c.acc.d1; row++ {
			md := &c.meta[c.acc.meta(row, slice)]
			nx, ny, nz, nt := md.XInts, md.YInts, md.ZInts, md.Tris
			md.XInts = numPts
			numPts += nx
			md.YInts = numPts
			numPts += ny
			md.ZInts = numPts
			numPts += nz
			md.Tris = numTris
			numTris += nt
		}
	}
	return numPts, numTris
}
