// Package planecutaux contains helpers to get started cutting grids with
// planecut: writing cuts to STL and PNG, sampling solid models into grids and
// loading configuration files. Applications with specific needs will likely
// want to implement their own versions of these.
package planecutaux

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/planecut"
	"github.com/soypat/planecut/grid"
	"github.com/soypat/planecut/mesh"
)

type RenderConfig struct {
	STLOutput io.Writer
	// ImageOutput receives a PNG preview of the cut.
	ImageOutput io.Writer
	// ImageHeight of the preview in pixels. Zero selects 512.
	ImageHeight int
	// Caption draws the cut's size onto the preview.
	Caption bool
	Silent  bool
}

// Render cuts g with plane using c and writes the result to the outputs in cfg.
// The cut mesh is returned so callers may inspect it or write it elsewhere.
func Render[T grid.Scalar](ctx context.Context, c *planecut.Cutter, g grid.Structured[T], plane grid.Plane, cfg RenderConfig) (*mesh.PolyData[T], error) {
	if cfg.STLOutput == nil && cfg.ImageOutput == nil {
		return nil, errors.New("Render requires output parameter in config")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	watch := stopwatch()
	pd, err := planecut.Cut(ctx, c, g, plane)
	if err != nil {
		return nil, err
	}
	dims := g.Dimensions()
	npts := uint64(grid.NumPoints(dims))
	log("cut grid", dims, "into", pd.NumTriangles(), "triangles in", watch(), "using", c.NumberOfThreadsUsed(), "threads with", c.Variant())
	log("output has", pd.NumPoints(), "points,", percentUint64(uint64(pd.NumPoints()), npts), "percent of grid points")

	if cfg.STLOutput != nil {
		watch = stopwatch()
		tris := pd.AppendTriangles(make([]ms3.Triangle, 0, pd.NumTriangles()))
		_, err = mesh.WriteBinarySTL(cfg.STLOutput, tris)
		if err != nil {
			return pd, fmt.Errorf("writing STL file: %w", err)
		}
		log("wrote", outputName(cfg.STLOutput, "STL"), "in", watch())
	}

	if cfg.ImageOutput != nil {
		watch = stopwatch()
		height := cfg.ImageHeight
		if height == 0 {
			height = 512
		}
		pcfg := PreviewConfig{Height: height}
		if cfg.Caption {
			pcfg.Caption = fmt.Sprintf("%v grid, %d triangles", dims, pd.NumTriangles())
		}
		img, err := DrawPreview(pd, plane, pcfg)
		if err != nil {
			return pd, fmt.Errorf("drawing preview: %w", err)
		}
		err = png.Encode(cfg.ImageOutput, img)
		if err != nil {
			return pd, fmt.Errorf("encoding PNG: %w", err)
		}
		log("wrote", outputName(cfg.ImageOutput, "PNG preview"), "in", watch())
	}
	return pd, nil
}

// LoadConfig decodes a JSON encoded planecut.Config. Unknown fields are an error.
func LoadConfig(r io.Reader) (planecut.Config, error) {
	var cfg planecut.Config
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return planecut.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return planecut.Config{}, err
	}
	return cfg, nil
}

func outputName(w io.Writer, fallback string) string {
	if fp, ok := w.(*os.File); ok {
		return fp.Name()
	}
	return fallback
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
