// Package mctable builds the edge-based voxel triangulation tables used by the
// plane cutters. A voxel case packs the above/below state of the 8 voxel vertices
// (vertex k is bit k) which is the same as packing the four 2-bit x-edge
// classifications bounding a voxel row cross-section:
//
//	case = e0 | e1<<2 | e2<<4 | e3<<6
//
// Voxel vertices use the (x fastest) voxel ordering:
//
//	v0=(0,0,0) v1=(1,0,0) v2=(0,1,0) v3=(1,1,0)
//	v4=(0,0,1) v5=(1,0,1) v6=(0,1,1) v7=(1,1,1)
//
// and the 12 voxel edges are numbered x-edges first, then y-edges, then z-edges.
package mctable

import "sync"

// X-edge classifications. Bit 0 is set when the left vertex of the edge is above
// (signed distance >= 0), bit 1 when the right vertex is above.
const (
	Below      uint8 = 0
	LeftAbove  uint8 = 1
	RightAbove uint8 = 2
	BothAbove  uint8 = 3
)

// NumEdges is the number of edges of a voxel.
const NumEdges = 12

// VertexOffsets are the (i,j,k) offsets of each voxel vertex from the voxel origin.
var VertexOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
}

// EdgeVertices maps each voxel edge to its two voxel vertices. The first vertex is
// always the one closer to the voxel origin.
var EdgeVertices = [NumEdges][2]uint8{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // x-edges
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // y-edges
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // z-edges
}

// EdgeAxis returns the axis (0=x, 1=y, 2=z) an edge is parallel to.
func EdgeAxis(edge int) int { return edge / 4 }

// Table holds the per-case triangulation. It is never mutated after construction
// and is safe for concurrent use.
type Table struct {
	// EdgeCases[c][0] is the number of triangles of case c. It is followed by
	// 3 edge ids per triangle.
	EdgeCases [256][]uint8
	// EdgeUses[c][e] is 1 if edge e is intersected in case c.
	EdgeUses [256][NumEdges]uint8
	// IncludesAxes[c] is set if any of the three edges touching the voxel origin
	// (edges 0, 4 and 8) are intersected.
	IncludesAxes [256]uint8
}

var get = sync.OnceValue(Build)

// Get returns the process-wide case table, building it on first use.
func Get() *Table { return get() }

// CaseIndex packs the x-edge classifications of the four x-edges bounding a voxel
// into a voxel case number.
func CaseIndex(e0, e1, e2, e3 uint8) uint8 {
	return e0 | e1<<2 | e2<<4 | e3<<6
}

// NumTriangles returns the number of triangles generated by voxel case c.
func (t *Table) NumTriangles(c uint8) int { return int(t.EdgeCases[c][0]) }

// Triangle returns the three voxel edges of the i'th triangle of case c.
func (t *Table) Triangle(c uint8, i int) (e0, e1, e2 uint8) {
	tri := t.EdgeCases[c][1+3*i:]
	return tri[0], tri[1], tri[2]
}

// Faces of the voxel as vertex loops ordered counter-clockwise when viewed from
// outside the voxel: -x, +x, -y, +y, -z, +z.
var faces = [6][4]uint8{
	{0, 4, 6, 2},
	{1, 3, 7, 5},
	{0, 1, 5, 4},
	{2, 6, 7, 3},
	{0, 2, 3, 1},
	{4, 5, 7, 6},
}

// edgeMap maps a vertex pair to its voxel edge id, 255 for pairs that do not form an edge.
var edgeMap = func() (m [8][8]uint8) {
	for i := range m {
		for j := range m[i] {
			m[i][j] = 255
		}
	}
	for e, v := range EdgeVertices {
		m[v[0]][v[1]] = uint8(e)
		m[v[1]][v[0]] = uint8(e)
	}
	return m
}()

// Build constructs a new case table. Most users should call [Get] instead.
func Build() *Table {
	t := new(Table)
	for c := 0; c < 256; c++ {
		loops := caseLoops(uint8(c))
		ntri := 0
		for _, loop := range loops {
			ntri += len(loop) - 2
		}
		ec := make([]uint8, 1, 1+3*ntri)
		ec[0] = uint8(ntri)
		for _, loop := range loops {
			// Fan triangulate. Loops are convex for a plane intersecting a voxel.
			for k := 1; k < len(loop)-1; k++ {
				ec = append(ec, loop[0], loop[k], loop[k+1])
			}
			for _, e := range loop {
				t.EdgeUses[c][e] = 1
			}
		}
		t.EdgeCases[c] = ec
		uses := &t.EdgeUses[c]
		t.IncludesAxes[c] = uses[0] | uses[4] | uses[8]
	}
	return t
}

// caseLoops returns the intersection polygons of voxel case c as loops of edge ids.
// Loops are oriented so that the right-hand normal points from the above region
// towards the below region.
func caseLoops(c uint8) [][]uint8 {
	above := func(v uint8) bool { return c&(1<<v) != 0 }
	var next [NumEdges]int8
	for i := range next {
		next[i] = -1
	}
	for _, f := range faces {
		var (
			xings [4]uint8
			enter [4]bool
			n     int
		)
		for k := 0; k < 4; k++ {
			a, b := f[k], f[(k+1)%4]
			if above(a) == above(b) {
				continue
			}
			xings[n] = edgeMap[a][b]
			enter[n] = above(b)
			n++
		}
		// A crossing entering the above region links to the following crossing.
		// On ambiguous faces this separates the above vertices.
		for k := 0; k < n; k++ {
			if enter[k] {
				next[xings[k]] = int8(xings[(k+1)%n])
			}
		}
	}
	var visited [NumEdges]bool
	var loops [][]uint8
	for e := 0; e < NumEdges; e++ {
		if next[e] < 0 || visited[e] {
			continue
		}
		var loop []uint8
		for cur := int8(e); !visited[cur]; cur = next[cur] {
			visited[cur] = true
			loop = append(loop, uint8(cur))
		}
		loops = append(loops, loop)
	}
	return loops
}
