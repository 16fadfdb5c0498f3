// Package sgrid cuts image, rectilinear and curvilinear structured grids with a
// plane. Unlike package flyingedges it does not rely on point positions following
// from grid indices: cells are evaluated in fixed size batches, the crossed edges
// each batch finds are gathered into a single array and, when merging is enabled,
// deduplicated with a static edge locator so that points shared between cells
// are generated once.
package sgrid

import (
	"time"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/planecut/grid"
	"github.com/soypat/planecut/mctable"
	"github.com/soypat/planecut/mesh"
	"github.com/soypat/planecut/parallel"
)

// DefaultBatchSize is the number of cells evaluated per unit of parallel work.
const DefaultBatchSize = 1000

// Options configures a cut.
type Options struct {
	Parallel parallel.Config
	// Abort may be nil. When raised the cut stops early and output is incomplete.
	Abort *parallel.Abort
	// MergePoints generates one point per crossed grid edge. When false every
	// cell generates its own points.
	MergePoints    bool
	ComputeNormals bool
	// InterpolateAttributes interpolates the scalars and point data onto the output
	// points and copies cell data onto the output triangles.
	InterpolateAttributes bool
	// Precision of output points. PrecisionDefault is resolved from the scalar type.
	Precision mesh.Precision
	// BatchSize is the number of cells per batch. Zero selects DefaultBatchSize.
	BatchSize int
}

// Stats describes a completed cut.
type Stats struct {
	Workers       int
	NumPoints     int
	NumTriangles  int
	NumBatches    int
	ActiveBatches int
	// NumEdgeRecords is the number of crossed cell edges found before merging.
	NumEdgeRecords int
	Elapsed        time.Duration
}

// batch is a contiguous range of cells evaluated by a single worker.
type batch struct {
	begin, end int
	// worker whose local buffer holds the batch edges starting at start.
	worker, start int
	numEdges      int
	numTris       int
	// Output offsets assigned by reduce.
	edgeOffset, triOffset int
}

type cutter[T grid.Scalar] struct {
	g     grid.Structured[T]
	attrs *grid.Attributes[T]
	dims  [3]int
	plane grid.Plane
	tbl   *mctable.Table
	opts  Options

	dist    []float64 // per point
	inPlane []bool    // per i-row, set when every point of the row has zero distance
	cases   []uint8   // per cell
	batches []batch
	local   [][]edgeRecord // per worker
	edges   []edgeRecord   // gathered in batch order
	loc     *edgeLocator
	out     *mesh.PolyData[T]
}

// Cut intersects g with plane and returns the resulting triangle mesh. g and plane
// must be valid. Grids without 3D cells produce an empty mesh. Cut returns a
// non-nil error only if opts.Abort was raised, in which case the returned mesh is
// incomplete.
func Cut[T grid.Scalar](g grid.Structured[T], plane grid.Plane, opts Options) (*mesh.PolyData[T], Stats, error) {
	start := time.Now()
	c := newCutter(g, plane, opts)
	var stats Stats
	if !grid.Is3D(c.dims) {
		slogger().Debug("grid has no 3D cells", "dims", c.dims)
		return c.allocate(0, 0), stats, nil
	}
	stats.Workers = c.evaluatePoints()
	stats.Workers = max(stats.Workers, c.classifyRows())
	stats.Workers = max(stats.Workers, c.evaluateCells())
	if err := opts.Abort.Err(); err != nil {
		return c.allocate(0, 0), stats, err
	}
	stats.NumBatches = len(c.batches)
	numPts, numTris := c.reduce()
	stats.NumEdgeRecords = len(c.edges)
	stats.NumPoints, stats.NumTriangles = numPts, numTris
	c.allocate(numPts, numTris)

	active := c.activeBatches()
	stats.ActiveBatches = len(active)
	stats.Workers = max(stats.Workers, c.extractCells(active))
	stats.Workers = max(stats.Workers, c.extractPoints())
	stats.Elapsed = time.Since(start)
	slogger().Debug("structured grid cut",
		"dims", c.dims, "merge", opts.MergePoints, "batches", stats.NumBatches, "active", stats.ActiveBatches,
		"records", stats.NumEdgeRecords, "points", numPts, "triangles", numTris,
		"workers", stats.Workers, "elapsed", stats.Elapsed)
	return c.out, stats, opts.Abort.Err()
}

func newCutter[T grid.Scalar](g grid.Structured[T], plane grid.Plane, opts Options) *cutter[T] {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	opts.Precision = mesh.Resolve[T](opts.Precision)
	return &cutter[T]{
		g:     g,
		attrs: g.Attrs(),
		dims:  g.Dimensions(),
		plane: plane,
		tbl:   mctable.Get(),
		opts:  opts,
	}
}

func (c *cutter[T]) allocate(numPts, numTris int) *mesh.PolyData[T] {
	l := mesh.Layout{
		Precision: c.opts.Precision,
		Normals:   c.opts.ComputeNormals,
	}
	if c.opts.InterpolateAttributes {
		l.Scalars = true
		l.ScalarName = c.attrs.ScalarName
		l.PointData = c.attrs.PointData
		l.CellData = c.attrs.CellData
	}
	c.out = mesh.New[T](numPts, numTris, l)
	return c.out
}

// evaluatePoints computes the signed distance of every grid point.
func (c *cutter[T]) evaluatePoints() (workers int) {
	npts := grid.NumPoints(c.dims)
	c.dist = make([]float64, npts)
	return parallel.ForRange(c.opts.Parallel, c.opts.Abort, npts, c.opts.BatchSize, func(_, begin, end int) {
		for id := begin; id < end; id++ {
			c.dist[id] = c.plane.Evaluate(c.g.Point(id))
		}
	})
}

// classifyRows flags the i-rows of points that lie in the plane. Points of such a
// row count as below the plane, matching the row classification of flyingedges so
// that a cut through a grid face does not depend on the algorithm chosen.
func (c *cutter[T]) classifyRows() (workers int) {
	nx := c.dims[0]
	nrows := c.dims[1] * c.dims[2]
	c.inPlane = make([]bool, nrows)
	return parallel.For(c.opts.Parallel, c.opts.Abort, nrows, func(_, row int) {
		for _, d := range c.dist[row*nx:][:nx] {
			if d != 0 {
				return
			}
		}
		c.inPlane[row] = true
	})
}

// above reports the side of the plane a grid point is classified on.
func (c *cutter[T]) above(id int) bool {
	return c.dist[id] >= 0 && !c.inPlane[id/c.dims[0]]
}

// cellPoints returns the corner point ids of a cell in voxel order.
func (c *cutter[T]) cellPoints(cellID int) [8]int {
	nx, ny := c.dims[0]-1, c.dims[1]-1
	i := cellID % nx
	j := cellID / nx % ny
	k := cellID / (nx * ny)
	return grid.CellPoints(c.dims, i, j, k)
}

// cellCase returns the voxel case of a cell. Invisible cells are treated as empty.
func (c *cutter[T]) cellCase(cellID int, ids *[8]int) (ec uint8) {
	if !c.g.CellVisible(cellID) {
		return 0
	}
	for v, id := range ids {
		if c.above(id) {
			ec |= 1 << v
		}
	}
	return ec
}

// evaluateCells computes every cell's case and records the crossed edges of each
// batch into the buffer of the worker that processed it.
func (c *cutter[T]) evaluateCells() (workers int) {
	ncells := grid.NumCells(c.dims)
	bs := c.opts.BatchSize
	nb := (ncells + bs - 1) / bs
	c.cases = make([]uint8, ncells)
	c.batches = make([]batch, nb)
	c.local = make([][]edgeRecord, c.opts.Parallel.NumWorkers(nb))
	tbl := c.tbl
	return parallel.For(c.opts.Parallel, c.opts.Abort, nb, func(worker, b int) {
		buf := c.local[worker]
		bt := &c.batches[b]
		bt.begin = b * bs
		bt.end = min(bt.begin+bs, ncells)
		bt.worker = worker
		bt.start = len(buf)
		for cell := bt.begin; cell < bt.end; cell++ {
			ids := c.cellPoints(cell)
			ec := c.cellCase(cell, &ids)
			c.cases[cell] = ec
			ntri := tbl.NumTriangles(ec)
			if ntri == 0 {
				continue
			}
			bt.numTris += ntri
			uses := &tbl.EdgeUses[ec]
			for e, used := range uses {
				if used == 0 {
					continue
				}
				v := mctable.EdgeVertices[e]
				p0, p1 := ids[v[0]], ids[v[1]]
				buf = append(buf, newEdgeRecord(int64(p0), int64(p1), c.dist[p0], c.dist[p1]))
			}
		}
		bt.numEdges = len(buf) - bt.start
		c.local[worker] = buf
	})
}

// reduce assigns output offsets to batches in batch order, gathers the worker
// buffers into a single array and, when merging, builds the edge locator.
func (c *cutter[T]) reduce() (numPts, numTris int) {
	numEdges := 0
	for i := range c.batches {
		bt := &c.batches[i]
		bt.edgeOffset = numEdges
		bt.triOffset = numTris
		numEdges += bt.numEdges
		numTris += bt.numTris
	}
	c.edges = make([]edgeRecord, numEdges)
	parallel.For(c.opts.Parallel, nil, len(c.batches), func(_, i int) {
		bt := &c.batches[i]
		src := c.local[bt.worker][bt.start : bt.start+bt.numEdges]
		copy(c.edges[bt.edgeOffset:], src)
	})
	c.local = nil
	if !c.opts.MergePoints {
		return numEdges, numTris
	}
	c.loc = buildLocator(c.edges)
	return c.loc.NumPoints(), numTris
}

// activeBatches returns the batches that produce triangles.
func (c *cutter[T]) activeBatches() []*batch {
	var active []*batch
	for i := range c.batches {
		if c.batches[i].numTris > 0 {
			active = append(active, &c.batches[i])
		}
	}
	return active
}

// extractCells writes the triangles of every active batch.
func (c *cutter[T]) extractCells(active []*batch) (workers int) {
	tbl := c.tbl
	out := c.out
	return parallel.For(c.opts.Parallel, c.opts.Abort, len(active), func(_, b int) {
		bt := active[b]
		triID := bt.triOffset
		ptID := bt.edgeOffset
		var eIds [mctable.NumEdges]int
		for cell := bt.begin; cell < bt.end; cell++ {
			ec := c.cases[cell]
			ntri := tbl.NumTriangles(ec)
			if ntri == 0 {
				continue
			}
			ids := c.cellPoints(cell)
			for e, used := range tbl.EdgeUses[ec] {
				if used == 0 {
					continue
				}
				if c.loc == nil {
					eIds[e] = ptID
					ptID++
					continue
				}
				v := mctable.EdgeVertices[e]
				p0, p1 := int64(ids[v[0]]), int64(ids[v[1]])
				eIds[e] = c.loc.Lookup(edgeKey{A: min(p0, p1), B: max(p0, p1)})
			}
			for k := 0; k < ntri; k++ {
				e0, e1, e2 := tbl.Triangle(ec, k)
				out.SetTriangle(triID, int64(eIds[e0]), int64(eIds[e1]), int64(eIds[e2]))
				if out.CellData != nil {
					mesh.CopyTuples(out.CellData, c.attrs.CellData, triID, cell)
				}
				triID++
			}
		}
	})
}

// pointRecords returns the edge records indexed by output point id.
func (c *cutter[T]) pointRecords() []edgeRecord {
	if c.loc != nil {
		return c.loc.edges
	}
	return c.edges
}

// extractPoints interpolates every output point along its edge.
func (c *cutter[T]) extractPoints() (workers int) {
	recs := c.pointRecords()
	out := c.out
	n := c.plane.Normal
	normal := ms3.Vec{X: float32(-n.X), Y: float32(-n.Y), Z: float32(-n.Z)}
	return parallel.ForRange(c.opts.Parallel, c.opts.Abort, len(recs), c.opts.BatchSize, func(_, begin, end int) {
		for id := begin; id < end; id++ {
			rec := recs[id]
			a, b := int(rec.A), int(rec.B)
			pa, pb := c.g.Point(a), c.g.Point(b)
			out.SetPoint(id, md3.Add(pa, md3.Scale(rec.T, md3.Sub(pb, pa))))
			if out.Normals != nil {
				out.Normals[id] = normal
			}
			if out.Scalars != nil {
				out.Scalars[id] = mesh.Lerp(c.g.Scalar(a), c.g.Scalar(b), rec.T)
			}
			if out.PointData != nil {
				mesh.InterpolateTuples(out.PointData, c.attrs.PointData, id, a, b, rec.T)
			}
		}
	})
}
