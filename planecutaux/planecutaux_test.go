package planecutaux

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	"github.com/soypat/geometry/md3"
	"github.com/soypat/planecut"
	"github.com/soypat/planecut/grid"
	"github.com/soypat/planecut/mesh"
)

func sphereGrid(t *testing.T, n int) *grid.ImageData[float64] {
	t.Helper()
	s, err := sdf.Sphere3D(1)
	if err != nil {
		t.Fatal(err)
	}
	img, err := SampleSDF3(s, [3]int{n, n, n}, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestSampleSDF3(t *testing.T) {
	const n = 11
	img := sphereGrid(t, n)
	if err := img.Validate(); err != nil {
		t.Fatal(err)
	}
	if img.ScalarName != "sdf" {
		t.Errorf("got scalar name %q", img.ScalarName)
	}
	for ax := 0; ax < 3; ax++ {
		if math.Abs(img.Origin[ax]+1.25) > 1e-12 || math.Abs(img.Spacing[ax]-0.25) > 1e-12 {
			t.Fatalf("axis %d: origin %g spacing %g", ax, img.Origin[ax], img.Spacing[ax])
		}
	}
	center := grid.PointID(img.Dims, n/2, n/2, n/2)
	if d := img.Scalars[center]; math.Abs(d+1) > 1e-9 {
		t.Errorf("distance at sphere center = %g, want -1", d)
	}
	corner := img.Scalars[0]
	if want := md3.Norm(img.Point(0)) - 1; math.Abs(corner-want) > 1e-9 {
		t.Errorf("distance at corner = %g, want %g", corner, want)
	}
	if _, err := SampleSDF3(nil, [3]int{n, n, n}, 0); err == nil {
		t.Error("nil SDF accepted")
	}
}

func TestRender(t *testing.T) {
	img := sphereGrid(t, 21)
	c, err := planecut.NewCutter(planecut.Config{InterpolateAttributes: true})
	if err != nil {
		t.Fatal(err)
	}
	plane, _ := grid.NewPlane(md3.Vec{X: 0.01, Y: 0.02, Z: 0.03}, md3.Vec{X: 0.2, Y: 0.3, Z: 1})
	var stl, pic bytes.Buffer
	pd, err := Render(context.Background(), c, img, plane, RenderConfig{
		STLOutput:   &stl,
		ImageOutput: &pic,
		ImageHeight: 128,
		Caption:     true,
		Silent:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if pd.NumTriangles() == 0 {
		t.Fatal("no triangles")
	}
	if want := 84 + 50*pd.NumTriangles(); stl.Len() != want {
		t.Errorf("STL has %d bytes, want %d", stl.Len(), want)
	}
	decoded, err := png.Decode(&pic)
	if err != nil {
		t.Fatal(err)
	}
	b := decoded.Bounds()
	if b.Dy() != 128 || b.Dx() < 100 || b.Dx() > 156 {
		t.Errorf("unexpected preview size %v for a square cut", b)
	}
	// The cut covers the whole grid cross section so the image center is filled.
	r, g, bl, _ := decoded.At(b.Dx()/2, b.Dy()/2).RGBA()
	if r == 0xffff && g == 0xffff && bl == 0xffff {
		t.Error("preview center not drawn")
	}

	_, err = Render(context.Background(), c, img, plane, RenderConfig{})
	if err == nil {
		t.Error("Render without outputs should fail")
	}
}

func TestDrawPreviewEmpty(t *testing.T) {
	pd := mesh.New[float64](0, 0, mesh.Layout{})
	_, err := DrawPreview(pd, grid.Plane{Normal: md3.Vec{Z: 1}}, PreviewConfig{Height: 10})
	if err == nil {
		t.Error("empty mesh previewed")
	}
}

func TestPlaneBasis(t *testing.T) {
	for _, n := range []md3.Vec{{X: 1}, {Y: -2}, {Z: 3}, {X: 1, Y: 1, Z: 1}, {X: -0.3, Y: 0.9, Z: 0.1}} {
		u, v := planeBasis(n)
		nu := md3.Unit(n)
		if math.Abs(md3.Dot(u, nu)) > 1e-12 || math.Abs(md3.Dot(v, nu)) > 1e-12 || math.Abs(md3.Dot(u, v)) > 1e-12 {
			t.Errorf("normal %v: basis %v %v not orthogonal", n, u, v)
		}
		if got := md3.Cross(u, v); md3.Norm(md3.Sub(got, nu)) > 1e-12 {
			t.Errorf("normal %v: u×v = %v, not right handed", n, got)
		}
	}
}

func TestColorConversionGradient(t *testing.T) {
	conv := ColorConversionGradient(blue, red)
	near := func(a, b color.Color) bool {
		r0, g0, b0, _ := a.RGBA()
		r1, g1, b1, _ := b.RGBA()
		const tol = 2 << 8
		return absDiff(r0, r1) <= tol && absDiff(g0, g1) <= tol && absDiff(b0, b1) <= tol
	}
	if got := conv(-1); !near(got, blue) {
		t.Errorf("got %v below range, want %v", got, blue)
	}
	if got := conv(2); !near(got, red) {
		t.Errorf("got %v above range, want %v", got, red)
	}
	if got := conv(float32(math.NaN())); got != color.Color(color.Black) {
		t.Errorf("got %v for NaN", got)
	}
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`{"merge_points": true, "compute_normals": true, "output_points_precision": "single"}`))
	if err != nil {
		t.Fatal(err)
	}
	want := planecut.Config{MergePoints: true, ComputeNormals: true, OutputPointsPrecision: mesh.PrecisionSingle}
	if cfg != want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
	for _, bad := range []string{
		`{"merge_point": true}`,
		`{"workers": -2}`,
		`{"output_points_precision": "quad"}`,
		`not json`,
	} {
		if _, err := LoadConfig(strings.NewReader(bad)); err == nil {
			t.Errorf("config %s accepted", bad)
		}
	}
}
