package planecutaux

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/freetype/truetype"
	"github.com/soypat/geometry/md3"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/planecut/grid"
	"github.com/soypat/planecut/mesh"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// PreviewConfig configures DrawPreview.
type PreviewConfig struct {
	// Height of the image in pixels. The width follows the aspect ratio of the cut.
	Height int
	// ColorConversion maps a triangle's scalar, normalized to [0,1] over the mesh
	// scalar range, to its fill color. If nil a blue to red gradient is used.
	ColorConversion func(t float32) color.Color
	// Levels is the number of distinct fill colors. Zero selects 16.
	Levels int
	// Caption is drawn in the bottom left corner when not empty.
	Caption string
}

// DrawPreview rasterizes the triangles of pd as seen looking at the cutting plane
// against its normal. Triangles are colored by their mean scalar when pd carries
// scalars.
func DrawPreview[T grid.Scalar](pd *mesh.PolyData[T], plane grid.Plane, cfg PreviewConfig) (*image.RGBA, error) {
	ntri := pd.NumTriangles()
	if ntri == 0 {
		return nil, errors.New("empty cut, nothing to preview")
	}
	if cfg.Height <= 0 {
		return nil, errors.New("preview height must be positive")
	}
	if cfg.ColorConversion == nil {
		cfg.ColorConversion = ColorConversionGradient(blue, red)
	}
	if cfg.Levels <= 0 {
		cfg.Levels = 16
	}

	// Project points onto the plane.
	u, v := planeBasis(plane.Normal)
	npts := pd.NumPoints()
	proj := make([]ms2.Vec, npts)
	bb := ms2.Box{Min: ms2.Vec{X: math.MaxFloat32, Y: math.MaxFloat32}, Max: ms2.Vec{X: -math.MaxFloat32, Y: -math.MaxFloat32}}
	for i := range proj {
		d := md3.Sub(pd.Point(i), plane.Center)
		p := ms2.Vec{X: float32(md3.Dot(d, u)), Y: float32(md3.Dot(d, v))}
		proj[i] = p
		bb.Min = ms2.MinElem(bb.Min, p)
		bb.Max = ms2.MaxElem(bb.Max, p)
	}
	sz := bb.Size()
	extent := max(sz.X, sz.Y)
	if extent <= 0 {
		return nil, errors.New("cut has no area")
	}
	margin := float32(cfg.Height) / 20
	scale := (float32(cfg.Height) - 2*margin) / max(sz.Y, extent/16)
	width := int(sz.X*scale + 2*margin)
	height := cfg.Height
	img := image.NewRGBA(image.Rect(0, 0, max(1, width), height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	toPixel := func(p ms2.Vec) (x, y float32) {
		return (p.X-bb.Min.X)*scale + margin, float32(height) - ((p.Y-bb.Min.Y)*scale + margin)
	}

	// Group triangles by color level so that every level is rasterized once.
	levels := make([][]int, cfg.Levels)
	lo, hi := scalarRange(pd.Scalars)
	for i := 0; i < ntri; i++ {
		lvl := 0
		if pd.Scalars != nil && hi > lo {
			tri := pd.Triangle(i)
			mean := (float64(pd.Scalars[tri[0]]) + float64(pd.Scalars[tri[1]]) + float64(pd.Scalars[tri[2]])) / 3
			lvl = int(float64(cfg.Levels) * (mean - lo) / (hi - lo))
			lvl = min(max(lvl, 0), cfg.Levels-1)
		}
		levels[lvl] = append(levels[lvl], i)
	}
	r := vector.NewRasterizer(img.Bounds().Dx(), height)
	for lvl, tris := range levels {
		if len(tris) == 0 {
			continue
		}
		r.Reset(img.Bounds().Dx(), height)
		for _, i := range tris {
			tri := pd.Triangle(i)
			r.MoveTo(toPixel(proj[tri[0]]))
			r.LineTo(toPixel(proj[tri[1]]))
			r.LineTo(toPixel(proj[tri[2]]))
			r.ClosePath()
		}
		t := (float32(lvl) + 0.5) / float32(cfg.Levels)
		r.Draw(img, img.Bounds(), image.NewUniform(cfg.ColorConversion(t)), image.Point{})
	}

	if cfg.Caption != "" {
		if err := drawCaption(img, cfg.Caption); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func drawCaption(dst draw.Image, caption string) error {
	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return err
	}
	bounds := dst.Bounds()
	size := max(8, float64(bounds.Dy())/32)
	face := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	defer face.Close()
	d := font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(bounds.Min.X+int(size/2), bounds.Max.Y-int(size/2)),
	}
	d.DrawString(caption)
	return nil
}

// planeBasis returns two unit vectors spanning the plane with normal n such that
// u, v, n is right handed.
func planeBasis(n md3.Vec) (u, v md3.Vec) {
	n = md3.Unit(n)
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	var a md3.Vec
	switch {
	case ax <= ay && ax <= az:
		a = md3.Vec{X: 1}
	case ay <= az:
		a = md3.Vec{Y: 1}
	default:
		a = md3.Vec{Z: 1}
	}
	v = md3.Unit(md3.Cross(n, a))
	u = md3.Cross(v, n)
	return u, v
}

func scalarRange[T grid.Scalar](s []T) (lo, hi float64) {
	if len(s) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range s {
		lo = math.Min(lo, float64(v))
		hi = math.Max(hi, float64(v))
	}
	return lo, hi
}
