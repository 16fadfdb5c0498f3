package mesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/soypat/geometry/ms3"
)

const stlHeaderSize = 80

type stlHeader struct {
	_     [stlHeaderSize]uint8
	Count uint32
}

type stlTriangle struct {
	// Normal plus three vertex triplets.
	N, V1, V2, V3 [3]float32
	_             uint16 // attribute byte count
}

// WriteBinarySTL writes triangles to w in binary STL format and returns the number
// of bytes written.
func WriteBinarySTL(w io.Writer, tris []ms3.Triangle) (int, error) {
	if uint64(len(tris)) > math.MaxUint32 {
		return 0, fmt.Errorf("too many triangles for STL: %d", len(tris))
	}
	bw := bufio.NewWriter(w)
	header := stlHeader{Count: uint32(len(tris))}
	if err := binary.Write(bw, binary.LittleEndian, &header); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}
	n := binary.Size(header)
	for i := range tris {
		t := &tris[i]
		st := stlTriangle{
			N:  v3(triNormal(t)),
			V1: v3(t[0]),
			V2: v3(t[1]),
			V3: v3(t[2]),
		}
		if err := binary.Write(bw, binary.LittleEndian, &st); err != nil {
			return n, fmt.Errorf("writing triangle %d: %w", i, err)
		}
		n += binary.Size(st)
	}
	return n, bw.Flush()
}

func v3(v ms3.Vec) [3]float32 { return [3]float32{v.X, v.Y, v.Z} }

// triNormal returns the unit normal of t by the right hand rule, or the zero
// vector for degenerate triangles.
func triNormal(t *ms3.Triangle) ms3.Vec {
	n := t.Normal()
	if ms3.Norm2(n) == 0 {
		return ms3.Vec{}
	}
	return ms3.Unit(n)
}
