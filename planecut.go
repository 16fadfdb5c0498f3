// Package planecut cuts structured volumetric grids with a plane and returns the
// intersection as a triangle mesh.
//
// Uniform image grids are cut with the four pass Flying Edges algorithm in package
// flyingedges. Rectilinear and curvilinear grids, and image grids when point
// merging is requested, are cut by the generalized batch cutter in package sgrid.
// Both run in parallel and produce output that does not depend on the number of
// workers.
package planecut

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/planecut/flyingedges"
	"github.com/soypat/planecut/grid"
	"github.com/soypat/planecut/mesh"
	"github.com/soypat/planecut/parallel"
	"github.com/soypat/planecut/sgrid"
)

// ErrAborted is returned together with incomplete output when the context passed
// to Cut is cancelled during a cut. The context error is wrapped too.
var ErrAborted = errors.New("cut aborted")

// Config configures a Cutter. The zero value is a valid configuration that runs
// in parallel on all CPUs without merging points.
type Config struct {
	// MergePoints generates a single point per crossed grid edge. Image grids
	// always generate merged points, for other grids every cell generates its
	// own points unless set.
	MergePoints bool `json:"merge_points"`
	// InterpolateAttributes interpolates the input scalars and point data onto the
	// output points and copies cell data onto the output triangles.
	InterpolateAttributes bool `json:"interpolate_attributes"`
	ComputeNormals        bool `json:"compute_normals"`
	SequentialProcessing  bool `json:"sequential_processing"`
	// Workers caps the number of goroutines. Zero selects the number of CPUs.
	Workers               int            `json:"workers,omitempty"`
	OutputPointsPrecision mesh.Precision `json:"output_points_precision"`
	// BatchSize is the number of cells per unit of work of the generalized cutter.
	BatchSize int `json:"batch_size,omitempty"`
	// AbortCheckInterval is the number of work units between context queries.
	AbortCheckInterval int `json:"abort_check_interval,omitempty"`
}

// Validate reports whether the configuration can be used.
func (cfg Config) Validate() error {
	switch {
	case cfg.Workers < 0:
		return fmt.Errorf("negative worker count %d", cfg.Workers)
	case cfg.BatchSize < 0:
		return fmt.Errorf("negative batch size %d", cfg.BatchSize)
	case cfg.AbortCheckInterval < 0:
		return fmt.Errorf("negative abort check interval %d", cfg.AbortCheckInterval)
	case cfg.OutputPointsPrecision > mesh.PrecisionDouble:
		return fmt.Errorf("invalid output points precision %d", cfg.OutputPointsPrecision)
	}
	return nil
}

func (cfg Config) parallel() parallel.Config {
	return parallel.Config{
		Sequential:    cfg.SequentialProcessing,
		Workers:       cfg.Workers,
		AbortInterval: cfg.AbortCheckInterval,
	}
}

// Cutter runs cuts with a fixed configuration and records the post-conditions of
// the last completed cut. It is safe for concurrent use.
type Cutter struct {
	cfg Config

	mu       sync.Mutex
	threads  int
	largeIds bool
	variant  string
}

// NewCutter returns a Cutter ready to cut grids with cfg.
func NewCutter(cfg Config) (*Cutter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("planecut: %w", err)
	}
	return &Cutter{cfg: cfg}, nil
}

// Config returns the configuration of the cutter.
func (c *Cutter) Config() Config { return c.cfg }

// NumberOfThreadsUsed returns the number of workers used by the last cut.
func (c *Cutter) NumberOfThreadsUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threads
}

// LargeIds reports whether the output of the last cut required 64 bit ids.
func (c *Cutter) LargeIds() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.largeIds
}

// Variant names the algorithm that performed the last cut, either "flyingedges"
// or "sgrid". It is empty before the first cut.
func (c *Cutter) Variant() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.variant
}

func (c *Cutter) record(variant string, threads int, largeIds bool) {
	c.mu.Lock()
	c.variant = variant
	c.threads = threads
	c.largeIds = largeIds
	c.mu.Unlock()
}

// Cut intersects g with plane. Input errors are reported before any work is
// done and wrap the sentinel errors of package grid. If ctx is cancelled during
// the cut the incomplete mesh is returned with an error wrapping ErrAborted.
//
// *grid.ImageData inputs are cut with Flying Edges unless MergePoints is set
// in which case, like every other grid, they are cut by the generalized cutter.
func Cut[T grid.Scalar](ctx context.Context, c *Cutter, g grid.Structured[T], plane grid.Plane) (*mesh.PolyData[T], error) {
	if c == nil {
		return nil, errors.New("planecut: nil Cutter")
	} else if g == nil {
		return nil, fmt.Errorf("planecut: nil grid: %w", grid.ErrDegenerateExtent)
	}
	if err := plane.Validate(); err != nil {
		return nil, fmt.Errorf("planecut: invalid plane: %w", err)
	}
	plane.Normal = md3.Unit(plane.Normal)
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("planecut: invalid grid: %w", err)
	}
	cfg := c.cfg
	ab := parallel.NewAbort(ctx, cfg.AbortCheckInterval)

	var (
		out     *mesh.PolyData[T]
		threads int
		variant string
		err     error
	)
	if img, ok := g.(*grid.ImageData[T]); ok && !cfg.MergePoints {
		variant = "flyingedges"
		var stats flyingedges.Stats
		out, stats, err = flyingedges.Cut(img, plane, flyingedges.Options{
			Parallel:              cfg.parallel(),
			Abort:                 ab,
			ComputeNormals:        cfg.ComputeNormals,
			InterpolateAttributes: cfg.InterpolateAttributes,
			Precision:             cfg.OutputPointsPrecision,
		})
		threads = stats.Workers
	} else {
		variant = "sgrid"
		var stats sgrid.Stats
		out, stats, err = sgrid.Cut(g, plane, sgrid.Options{
			Parallel:              cfg.parallel(),
			Abort:                 ab,
			MergePoints:           cfg.MergePoints,
			ComputeNormals:        cfg.ComputeNormals,
			InterpolateAttributes: cfg.InterpolateAttributes,
			Precision:             cfg.OutputPointsPrecision,
			BatchSize:             cfg.BatchSize,
		})
		threads = stats.Workers
	}
	c.record(variant, threads, out.LargeIds)
	if err != nil {
		slogger().Warn("cut aborted", "variant", variant, "err", err)
		return out, fmt.Errorf("%w: %w", ErrAborted, err)
	}
	slogger().Info("cut", "variant", variant, "dims", g.Dimensions(),
		"points", out.NumPoints(), "triangles", out.NumTriangles(), "workers", threads, "largeIds", out.LargeIds)
	return out, nil
}

// CanFullyProcess reports whether every cell of g contributes to a cut. Grids
// that fail validation, have a flat dimension or contain blanked cells are only
// partially supported: unsupported cells produce no output.
func CanFullyProcess[T grid.Scalar](g grid.Structured[T]) bool {
	if g == nil || g.Validate() != nil {
		return false
	}
	dims := g.Dimensions()
	if !grid.Is3D(dims) {
		return false
	}
	ncells := grid.NumCells(dims)
	for cell := 0; cell < ncells; cell++ {
		if !g.CellVisible(cell) {
			return false
		}
	}
	return true
}
