package planecutaux

import (
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/soypat/planecut/grid"
	"github.com/soypat/planecut/parallel"
)

// SampleSDF3 evaluates s on a uniform image grid with dims points covering the
// bounding box of s enlarged by margin on every side. The returned scalars are
// signed distances, negative inside the solid. The scalar array is named "sdf".
func SampleSDF3(s sdf.SDF3, dims [3]int, margin float64) (*grid.ImageData[float64], error) {
	if s == nil {
		return nil, errors.New("nil SDF")
	} else if !grid.Is3D(dims) {
		return nil, fmt.Errorf("%w: sampling dimensions %v", grid.ErrDegenerateExtent, dims)
	} else if margin < 0 {
		return nil, errors.New("negative margin")
	}
	bb := s.BoundingBox()
	lo := v3.Vec{X: bb.Min.X - margin, Y: bb.Min.Y - margin, Z: bb.Min.Z - margin}
	hi := v3.Vec{X: bb.Max.X + margin, Y: bb.Max.Y + margin, Z: bb.Max.Z + margin}
	size := [3]float64{hi.X - lo.X, hi.Y - lo.Y, hi.Z - lo.Z}
	var spacing [3]float64
	for ax := range spacing {
		spacing[ax] = size[ax] / float64(dims[ax]-1)
		if spacing[ax] <= 0 {
			return nil, fmt.Errorf("%w: SDF bounding box has no extent along axis %d", grid.ErrDegenerateExtent, ax)
		}
	}
	img := grid.NewImageData[float64](dims, [3]float64{lo.X, lo.Y, lo.Z}, spacing, nil)
	img.ScalarName = "sdf"
	parallel.ForRange(parallel.Config{}, nil, len(img.Scalars), 4096, func(_, begin, end int) {
		for id := begin; id < end; id++ {
			p := img.Point(id)
			img.Scalars[id] = s.Evaluate(v3.Vec{X: p.X, Y: p.Y, Z: p.Z})
		}
	})
	return img, nil
}
