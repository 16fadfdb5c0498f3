package sgrid

import (
	"cmp"
	"slices"

	"github.com/soypat/planecut/mesh"
)

// edgeKey identifies an undirected grid edge by its point ids with A < B.
type edgeKey struct {
	A, B int64
}

func cmpKey(a, b edgeKey) int {
	if c := cmp.Compare(a.A, b.A); c != 0 {
		return c
	}
	return cmp.Compare(a.B, b.B)
}

// edgeRecord is a crossed grid edge and the parameter T, measured from point A
// towards point B, where the plane crosses it.
type edgeRecord struct {
	edgeKey
	T float64
}

// newEdgeRecord canonicalizes an edge so that A < B.
func newEdgeRecord(a, b int64, da, db float64) edgeRecord {
	if a > b {
		a, b = b, a
		da, db = db, da
	}
	return edgeRecord{edgeKey: edgeKey{A: a, B: b}, T: mesh.EdgeParameter(da, db)}
}

// edgeLocator maps each unique edge to a point id. Ids follow ascending key order
// so the mapping does not depend on the order edges were discovered in. It is
// read only after construction and safe for concurrent use.
type edgeLocator struct {
	edges []edgeRecord // unique, sorted by key
}

// buildLocator sorts and deduplicates records in place and returns a locator
// using the same storage.
func buildLocator(records []edgeRecord) *edgeLocator {
	slices.SortFunc(records, func(a, b edgeRecord) int { return cmpKey(a.edgeKey, b.edgeKey) })
	uniq := slices.CompactFunc(records, func(a, b edgeRecord) bool { return a.edgeKey == b.edgeKey })
	return &edgeLocator{edges: slices.Clip(uniq)}
}

// NumPoints returns the number of unique edges.
func (loc *edgeLocator) NumPoints() int { return len(loc.edges) }

// Lookup returns the point id of an edge or -1 if the edge was never inserted.
func (loc *edgeLocator) Lookup(key edgeKey) int {
	i, found := slices.BinarySearchFunc(loc.edges, key, func(rec edgeRecord, k edgeKey) int {
		return cmpKey(rec.edgeKey, k)
	})
	if !found {
		return -1
	}
	return i
}
