package mesh

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/soypat/geometry/md3"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/planecut/grid"
)

func TestResolvePrecision(t *testing.T) {
	if Resolve[float64](PrecisionDefault) != PrecisionDouble {
		t.Error("float64 scalars should default to double")
	}
	if Resolve[float32](PrecisionDefault) != PrecisionSingle {
		t.Error("float32 scalars should default to single")
	}
	if Resolve[uint8](PrecisionDefault) != PrecisionSingle {
		t.Error("uint8 scalars should default to single")
	}
	if Resolve[float32](PrecisionDouble) != PrecisionDouble {
		t.Error("explicit precision must not be overridden")
	}
}

func TestPrecisionJSON(t *testing.T) {
	var v struct{ P Precision }
	if err := json.Unmarshal([]byte(`{"P":"double"}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.P != PrecisionDouble {
		t.Errorf("got %v", v.P)
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"P":"double"}` {
		t.Errorf("got %s", b)
	}
	if err := json.Unmarshal([]byte(`{"P":"quad"}`), &v); err == nil {
		t.Error("expected error for unknown precision")
	}
}

func TestLargeIds(t *testing.T) {
	if NeedsLargeIds(100, 100) {
		t.Error("small mesh should use 32 bit ids")
	}
	if !NeedsLargeIds(math.MaxInt32+1, 0) {
		t.Error("point count above int32 range must use 64 bit ids")
	}
	if !NeedsLargeIds(10, math.MaxInt32/3+1) {
		t.Error("connectivity above int32 range must use 64 bit ids")
	}
	ids := MakeIdArray(3, true)
	ids.Set(2, math.MaxInt32+10)
	if !ids.Is64() || ids.At(2) != math.MaxInt32+10 || ids.Len() != 3 {
		t.Error("bad 64 bit id array")
	}
	ids = MakeIdArray(2, false)
	ids.Set(1, 42)
	if ids.Is64() || ids.At(1) != 42 || ids.Len() != 2 {
		t.Error("bad 32 bit id array")
	}
}

func TestPolyData(t *testing.T) {
	layout := Layout{
		Precision:  PrecisionDouble,
		Normals:    true,
		Scalars:    true,
		ScalarName: "density",
		PointData:  []grid.DataArray{{Name: "vel", NumComponents: 3}},
		CellData:   []grid.DataArray{{Name: "id"}},
	}
	pd := New[float64](4, 2, layout)
	if pd.NumPoints() != 4 || pd.NumTriangles() != 2 || pd.LargeIds {
		t.Fatalf("bad sizes: %d points %d triangles", pd.NumPoints(), pd.NumTriangles())
	}
	if len(pd.Normals) != 4 || len(pd.Scalars) != 4 || pd.ScalarName != "density" {
		t.Error("optional point arrays not allocated")
	}
	if len(pd.PointData[0].Data) != 12 || len(pd.CellData[0].Data) != 2 {
		t.Error("attribute arrays not allocated")
	}
	pts := []md3.Vec{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1, Z: 0.5}}
	for i, p := range pts {
		pd.SetPoint(i, p)
	}
	pd.SetTriangle(1, 1, 3, 2)
	pd.SetTriangle(0, 0, 1, 2)
	if pd.Triangle(1) != [3]int64{1, 3, 2} {
		t.Errorf("got triangle %v", pd.Triangle(1))
	}
	if pd.Point(3) != pts[3] {
		t.Errorf("got point %v", pd.Point(3))
	}
	tris := pd.AppendTriangles(nil)
	if len(tris) != 2 || tris[1][1] != (ms3.Vec{X: 1, Y: 1, Z: 0.5}) {
		t.Errorf("bad triangles %v", tris)
	}
	bb := pd.Bounds()
	if bb.Min != (ms3.Vec{}) || bb.Max != (ms3.Vec{X: 1, Y: 1, Z: 0.5}) {
		t.Errorf("bad bounds %+v", bb)
	}
	single := New[float64](1, 0, Layout{Precision: PrecisionSingle})
	single.SetPoint(0, md3.Vec{X: 0.1})
	if single.Points32 == nil || single.Point(0).X != float64(float32(0.1)) {
		t.Error("single precision points not rounded")
	}
	if single.NumTriangles() != 0 {
		t.Error("expected empty mesh")
	}
}

func TestWriteBinarySTL(t *testing.T) {
	tris := []ms3.Triangle{
		{{}, {X: 1}, {Y: 1}},
		{{}, {Y: 3}, {X: 3}},
		{{}, {X: 1}, {X: 2}},
	}
	var buf bytes.Buffer
	n, err := WriteBinarySTL(&buf, tris)
	if err != nil {
		t.Fatal(err)
	}
	if n != 84+50*len(tris) || buf.Len() != n {
		t.Fatalf("wrote %d bytes, buffer has %d", n, buf.Len())
	}
	b := buf.Bytes()
	if count := binary.LittleEndian.Uint32(b[80:]); count != 3 {
		t.Errorf("got triangle count %d", count)
	}
	nz := func(tri int) float32 {
		off := 84 + 50*tri + 8
		return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
	}
	if nz(0) != 1 || nz(1) != -1 {
		t.Errorf("bad normals %g %g", nz(0), nz(1))
	}
	for off := 84 + 100; off < 84+100+12; off += 4 {
		if c := math.Float32frombits(binary.LittleEndian.Uint32(b[off:])); c != 0 {
			t.Errorf("degenerate triangle normal component %g, want 0", c)
		}
	}
	v2y := math.Float32frombits(binary.LittleEndian.Uint32(b[84+12+12+12+4:]))
	if v2y != 1 {
		t.Errorf("bad vertex y=%g", v2y)
	}
}

func TestLerp(t *testing.T) {
	if got := Lerp[float32](1, 3, 0.25); got != 1.5 {
		t.Errorf("got %g want 1.5", got)
	}
	if got := Lerp[uint8](10, 20, 0.26); got != 13 {
		t.Errorf("got %d want 13", got)
	}
	if got := Lerp[int16](-10, 10, 0.5); got != 0 {
		t.Errorf("got %d want 0", got)
	}
	if got := Lerp[uint16](200, 100, 1); got != 100 {
		t.Errorf("got %d want 100", got)
	}
}

func TestEdgeParameter(t *testing.T) {
	tests := []struct{ s0, s1, want float64 }{
		{-1, 1, 0.5},
		{-1, 3, 0.25},
		{0, 2, 0},
		{-2, 0, 1},
		{0, 0, 0},
		{1, 2, 0}, // clamped
		{-3, -1, 1},
	}
	for _, test := range tests {
		if got := EdgeParameter(test.s0, test.s1); got != test.want {
			t.Errorf("EdgeParameter(%g,%g)=%g want %g", test.s0, test.s1, got, test.want)
		}
	}
}

func TestInterpolateTuples(t *testing.T) {
	src := []grid.DataArray{{Name: "v", NumComponents: 2, Data: []float64{0, 10, 4, 20}}}
	dst := []grid.DataArray{{Name: "v", NumComponents: 2, Data: make([]float64, 4)}}
	InterpolateTuples(dst, src, 1, 0, 1, 0.25)
	if dst[0].Data[2] != 1 || dst[0].Data[3] != 12.5 {
		t.Errorf("bad interpolation %v", dst[0].Data)
	}
	CopyTuples(dst, src, 0, 1)
	if dst[0].Data[0] != 4 || dst[0].Data[1] != 20 {
		t.Errorf("bad copy %v", dst[0].Data)
	}
}
