package planecut

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/planecut/grid"
	"github.com/soypat/planecut/mesh"
)

func sphereImage(n int) *grid.ImageData[float32] {
	h := 2.0 / float64(n-1)
	img := grid.NewImageData[float32]([3]int{n, n, n}, [3]float64{-1, -1, -1}, [3]float64{h, h, h}, nil)
	for id := range img.Scalars {
		img.Scalars[id] = float32(md3.Norm(img.Point(id)) - 0.5)
	}
	return img
}

func mustCutter(t *testing.T, cfg Config) *Cutter {
	t.Helper()
	c, err := NewCutter(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCutDispatch(t *testing.T) {
	img := sphereImage(17)
	plane, err := grid.NewPlane(md3.Vec{X: 0.1, Y: -0.05, Z: 0.03}, md3.Vec{X: 1, Y: 2, Z: 3})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	fe := mustCutter(t, Config{InterpolateAttributes: true})
	sg := mustCutter(t, Config{InterpolateAttributes: true, MergePoints: true, BatchSize: 100})
	if fe.Variant() != "" {
		t.Fatal("variant set before first cut")
	}
	feOut, err := Cut[float32](ctx, fe, img, plane)
	if err != nil {
		t.Fatal(err)
	}
	sgOut, err := Cut[float32](ctx, sg, img, plane)
	if err != nil {
		t.Fatal(err)
	}
	if fe.Variant() != "flyingedges" || sg.Variant() != "sgrid" {
		t.Errorf("got variants %q and %q", fe.Variant(), sg.Variant())
	}
	if feOut.NumTriangles() == 0 {
		t.Fatal("no triangles")
	}
	if feOut.NumPoints() != sgOut.NumPoints() || feOut.NumTriangles() != sgOut.NumTriangles() {
		t.Errorf("flying edges %d points %d triangles, generalized %d points %d triangles",
			feOut.NumPoints(), feOut.NumTriangles(), sgOut.NumPoints(), sgOut.NumTriangles())
	}
	if feOut.Points32 == nil || feOut.Points64 != nil {
		t.Error("float32 scalars should produce single precision points by default")
	}
	if feOut.ScalarName != "scalars" || len(feOut.Scalars) != feOut.NumPoints() {
		t.Error("scalars not interpolated")
	}
	if fe.LargeIds() {
		t.Error("small mesh flagged as large")
	}
	if n := fe.NumberOfThreadsUsed(); n < 1 {
		t.Errorf("got %d threads", n)
	}
}

func TestCutNormalizesPlane(t *testing.T) {
	img := sphereImage(9)
	c := mustCutter(t, Config{ComputeNormals: true, SequentialProcessing: true})
	out, err := Cut[float32](context.Background(), c, img, grid.Plane{Normal: md3.Vec{Z: 4}})
	if err != nil {
		t.Fatal(err)
	}
	if out.NumPoints() == 0 {
		t.Fatal("no points")
	}
	for i, n := range out.Normals {
		if n.X != 0 || n.Y != 0 || n.Z != -1 {
			t.Fatalf("normal %d = %v, want (0,0,-1)", i, n)
		}
	}
	if c.NumberOfThreadsUsed() != 1 {
		t.Errorf("sequential cut used %d threads", c.NumberOfThreadsUsed())
	}
}

func TestCutPreconditions(t *testing.T) {
	ctx := context.Background()
	c := mustCutter(t, Config{})
	plane := grid.Plane{Normal: md3.Vec{X: 1}}
	noScalars := sphereImage(5)
	noScalars.Scalars = nil
	flat := grid.NewImageData[float32]([3]int{5, 5, 1}, [3]float64{}, [3]float64{1, 1, 1}, nil)
	vector := sphereImage(5)
	vector.NumComponents = 3
	short := &grid.StructuredGrid[float32]{Dims: [3]int{3, 3, 3}, Points: make([]md3.Vec, 10)}
	short.Scalars = make([]float32, 27)

	for _, test := range []struct {
		name  string
		g     grid.Structured[float32]
		plane grid.Plane
		want  error
	}{
		{name: "no plane", g: sphereImage(5), want: grid.ErrNoPlane},
		{name: "nil grid", g: nil, plane: plane, want: grid.ErrDegenerateExtent},
		{name: "no scalars", g: noScalars, plane: plane, want: grid.ErrNoScalars},
		{name: "flat image", g: flat, plane: plane, want: grid.ErrDegenerateExtent},
		{name: "components", g: vector, plane: plane, want: grid.ErrComponents},
		{name: "short points", g: short, plane: plane, want: grid.ErrShortBuffer},
	} {
		out, err := Cut(ctx, c, test.g, test.plane)
		if !errors.Is(err, test.want) {
			t.Errorf("%s: got error %v, want %v", test.name, err, test.want)
		}
		if out != nil {
			t.Errorf("%s: got output on failure", test.name)
		}
	}
	if c.Variant() != "" {
		t.Error("failed cuts should not record post-conditions")
	}
}

func TestCutAborted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	img := sphereImage(33)
	plane := grid.Plane{Normal: md3.Vec{Y: 1}}
	for _, cfg := range []Config{{}, {MergePoints: true}} {
		c := mustCutter(t, cfg)
		out, err := Cut[float32](ctx, c, img, plane)
		if !errors.Is(err, ErrAborted) || !errors.Is(err, context.Canceled) {
			t.Errorf("merge=%v: got error %v", cfg.MergePoints, err)
		}
		if out == nil {
			t.Errorf("merge=%v: aborted cut should return a mesh", cfg.MergePoints)
		}
	}
}

func TestConfig(t *testing.T) {
	const src = `{"merge_points":true,"workers":4,"output_points_precision":"double","batch_size":250}`
	var cfg Config
	if err := json.Unmarshal([]byte(src), &cfg); err != nil {
		t.Fatal(err)
	}
	want := Config{MergePoints: true, Workers: 4, OutputPointsPrecision: mesh.PrecisionDouble, BatchSize: 250}
	if cfg != want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
	for _, bad := range []Config{{Workers: -1}, {BatchSize: -3}, {AbortCheckInterval: -1}, {OutputPointsPrecision: 9}} {
		if _, err := NewCutter(bad); err == nil {
			t.Errorf("config %+v accepted", bad)
		}
	}
}

func TestCutGridFace(t *testing.T) {
	const n = 5
	img := grid.NewImageData[float32]([3]int{n, n, n}, [3]float64{}, [3]float64{1, 1, 1}, nil)
	coords := []float64{0, 1, 2, 3, 4}
	rg := &grid.RectilinearGrid[float32]{X: coords, Y: coords, Z: coords}
	rg.Scalars = make([]float32, n*n*n)
	ctx := context.Background()
	fe := mustCutter(t, Config{})
	merged := mustCutter(t, Config{MergePoints: true})
	for _, test := range []struct {
		z, nz     float64
		pts, tris int
	}{
		{z: 0, nz: 1, pts: 25, tris: 32},
		{z: 0, nz: -1},
		{z: 2, nz: 1, pts: 25, tris: 32},
		{z: 2, nz: -1, pts: 25, tris: 32},
		{z: 4, nz: 1},
		{z: 4, nz: -1, pts: 25, tris: 32},
	} {
		plane := grid.Plane{Center: md3.Vec{Z: test.z}, Normal: md3.Vec{Z: test.nz}}
		feOut, err := Cut[float32](ctx, fe, img, plane)
		if err != nil {
			t.Fatal(err)
		}
		sgOut, err := Cut[float32](ctx, merged, img, plane)
		if err != nil {
			t.Fatal(err)
		}
		rgOut, err := Cut[float32](ctx, fe, rg, plane)
		if err != nil {
			t.Fatal(err)
		}
		if feOut.NumPoints() != test.pts || feOut.NumTriangles() != test.tris {
			t.Errorf("z=%g nz=%g: flying edges got %d points %d triangles, want %d and %d",
				test.z, test.nz, feOut.NumPoints(), feOut.NumTriangles(), test.pts, test.tris)
		}
		if sgOut.NumPoints() != test.pts || sgOut.NumTriangles() != test.tris {
			t.Errorf("z=%g nz=%g: merged got %d points %d triangles, want %d and %d",
				test.z, test.nz, sgOut.NumPoints(), sgOut.NumTriangles(), test.pts, test.tris)
		}
		if rgOut.NumTriangles() != test.tris {
			t.Errorf("z=%g nz=%g: rectilinear got %d triangles, want %d", test.z, test.nz, rgOut.NumTriangles(), test.tris)
		}
	}
}

func TestCanFullyProcess(t *testing.T) {
	img := sphereImage(4)
	if !CanFullyProcess[float32](img) {
		t.Error("image should be fully supported")
	}
	flat := grid.NewImageData[float32]([3]int{4, 4, 1}, [3]float64{}, [3]float64{1, 1, 1}, nil)
	if CanFullyProcess[float32](flat) {
		t.Error("flat image reported as supported")
	}
	sg := &grid.StructuredGrid[float32]{Dims: img.Dims, Points: make([]md3.Vec, 64)}
	sg.Scalars = make([]float32, 64)
	for id := range sg.Points {
		sg.Points[id] = img.Point(id)
	}
	if !CanFullyProcess[float32](sg) {
		t.Error("unblanked grid should be fully supported")
	}
	sg.Blank = make([]bool, 27)
	sg.Blank[13] = true
	if CanFullyProcess[float32](sg) {
		t.Error("blanked grid reported as supported")
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)
	c := mustCutter(t, Config{})
	_, err := Cut[float32](context.Background(), c, sphereImage(9), grid.Plane{Normal: md3.Vec{X: 1}})
	if err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{"flying edges cut", "variant=flyingedges", "triangles="} {
		if !strings.Contains(got, want) {
			t.Errorf("log output missing %q:\n%s", want, got)
		}
	}
}
