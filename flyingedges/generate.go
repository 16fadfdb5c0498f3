package flyingedges

import (
	"github.com/soypat/geometry/md3"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/planecut/mctable"
	"github.com/soypat/planecut/mesh"
	"github.com/soypat/planecut/parallel"
)

// boundaryEdges lists for each voxel location the edges, besides the origin edges
// 0, 4 and 8, whose points the voxel generates. Only voxels touching the +x, +y
// or +z faces of the volume own extra edges.
var boundaryEdges = func() (tbl [64][]uint8) {
	for loc := range tbl {
		xmax := loc&locXMax != 0
		ymax := loc&locYMax != 0
		zmax := loc&locZMax != 0
		var edges []uint8
		if xmax {
			edges = append(edges, 5, 9)
		}
		if ymax {
			edges = append(edges, 1, 10)
		}
		if zmax {
			edges = append(edges, 2, 6)
		}
		if xmax && ymax {
			edges = append(edges, 11)
		}
		if xmax && zmax {
			edges = append(edges, 7)
		}
		if ymax && zmax {
			edges = append(edges, 3)
		}
		tbl[loc] = edges
	}
	return tbl
}()

// pass4 generates output points and triangles.
func (c *cutter[T]) pass4() (workers int) {
	acc := c.acc
	return parallel.For(c.opts.Parallel, c.opts.Abort, acc.d2-1, func(_, slice int) {
		if c.meta[acc.meta(0, slice+1)].Tris == c.meta[acc.meta(0, slice)].Tris {
			return
		}
		for row := 0; row < acc.d1-1; row++ {
			c.generateRow(row, slice)
		}
	})
}

// initVoxelIds sets the ids of the points on the edges of the first voxel of a
// trimmed voxel row.
func initVoxelIds(eIds *[mctable.NumEdges]int, uses *[mctable.NumEdges]uint8, md [4]*rowMeta) {
	eIds[0] = md[0].XInts
	eIds[1] = md[1].XInts
	eIds[2] = md[2].XInts
	eIds[3] = md[3].XInts
	eIds[4] = md[0].YInts
	eIds[5] = eIds[4] + int(uses[4])
	eIds[6] = md[2].YInts
	eIds[7] = eIds[6] + int(uses[6])
	eIds[8] = md[0].ZInts
	eIds[9] = eIds[8] + int(uses[8])
	eIds[10] = md[1].ZInts
	eIds[11] = eIds[10] + int(uses[10])
}

// advanceVoxelIds moves the edge ids to the next voxel in the row given the edge
// uses of the current voxel.
func advanceVoxelIds(eIds *[mctable.NumEdges]int, uses *[mctable.NumEdges]uint8) {
	eIds[0] += int(uses[0])
	eIds[1] += int(uses[1])
	eIds[2] += int(uses[2])
	eIds[3] += int(uses[3])
	eIds[4] += int(uses[4])
	eIds[5] = eIds[4] + int(uses[5])
	eIds[6] += int(uses[6])
	eIds[7] = eIds[6] + int(uses[7])
	eIds[8] += int(uses[8])
	eIds[9] = eIds[8] + int(uses[9])
	eIds[10] += int(uses[10])
	eIds[11] = eIds[10] + int(uses[11])
}

func (c *cutter[T]) generateRow(row, slice int) {
	acc := c.acc
	e, md := c.voxelRow(row, slice)
	md0 := md[0]
	if c.meta[acc.meta(row+1, slice)].Tris == md0.Tris {
		return
	}
	xL, xR := md0.CellMin, md0.CellMax
	tbl := c.tbl
	out := c.out
	rowLoc := c.rowLocation(row, slice)
	caseAt := func(i int) uint8 { return mctable.CaseIndex(e[0][i], e[1][i], e[2][i], e[3][i]) }

	var eIds [mctable.NumEdges]int
	ec := caseAt(xL)
	initVoxelIds(&eIds, &tbl.EdgeUses[ec], md)
	triID := md0.Tris
	for i := xL; i < xR; i++ {
		if i > xL {
			ec = caseAt(i)
		}
		uses := &tbl.EdgeUses[ec]
		ntri := tbl.NumTriangles(ec)
		if ntri == 0 {
			continue // No edges used, ids do not advance.
		}
		cellID := acc.cell(i, row, slice)
		for k := 0; k < ntri; k++ {
			e0, e1, e2 := tbl.Triangle(ec, k)
			out.SetTriangle(triID, int64(eIds[e0]), int64(eIds[e1]), int64(eIds[e2]))
			if out.CellData != nil {
				mesh.CopyTuples(out.CellData, c.img.CellData, triID, cellID)
			}
			triID++
		}
		loc := rowLoc | c.xLocation(i)
		if tbl.IncludesAxes[ec] != 0 {
			for _, edge := range [3]uint8{0, 4, 8} {
				if uses[edge] != 0 {
					c.interpolateEdge(edge, i, row, slice, eIds[edge])
				}
			}
		}
		for _, edge := range boundaryEdges[loc] {
			if uses[edge] != 0 {
				c.interpolateEdge(edge, i, row, slice, eIds[edge])
			}
		}
		advanceVoxelIds(&eIds, uses)
	}
}

// interpolateEdge writes point ptID on voxel edge of the voxel with origin i,row,slice.
func (c *cutter[T]) interpolateEdge(edge uint8, i, row, slice, ptID int) {
	v := mctable.EdgeVertices[edge]
	o0 := mctable.VertexOffsets[v[0]]
	o1 := mctable.VertexOffsets[v[1]]
	i0, j0, k0 := i+o0[0], row+o0[1], slice+o0[2]
	i1, j1, k1 := i+o1[0], row+o1[1], slice+o1[2]
	t := mesh.EdgeParameter(c.dist(i0, j0, k0), c.dist(i1, j1, k1))

	img := c.img
	axis := mctable.EdgeAxis(int(edge))
	ijk := [3]float64{float64(i0), float64(j0), float64(k0)}
	ijk[axis] += t
	out := c.out
	out.SetPoint(ptID, md3.Vec{
		X: img.Origin[0] + ijk[0]*img.Spacing[0],
		Y: img.Origin[1] + ijk[1]*img.Spacing[1],
		Z: img.Origin[2] + ijk[2]*img.Spacing[2],
	})
	if out.Normals != nil {
		n := c.plane.Normal
		out.Normals[ptID] = ms3.Vec{X: float32(-n.X), Y: float32(-n.Y), Z: float32(-n.Z)}
	}
	if out.Scalars != nil {
		s0 := img.Scalars[c.acc.scalar(i0, j0, k0)]
		s1 := img.Scalars[c.acc.scalar(i1, j1, k1)]
		out.Scalars[ptID] = mesh.Lerp(s0, s1, t)
	}
	if out.PointData != nil {
		p0 := c.acc.point(i0, j0, k0)
		p1 := c.acc.point(i1, j1, k1)
		mesh.InterpolateTuples(out.PointData, img.PointData, ptID, p0, p1, t)
	}
}
