package knowledge

import (
	"sort"

	"github.com/synthql/synthql/internal/embedding"
)

// Hit is one ranked result from an index search
type Hit struct {
	ElementID string
	Score     float64
}

// vectorIndex is a flat inner-product index over unit-normalized vectors with
// a bidirectional handle/element-id mapping. Every live element id owns
// exactly one handle; replacing an id retires its old handle before the new
// one is issued. The store serializes access, so the index itself is not
// locked.
type vectorIndex struct {
	dims       int
	nextHandle int64
	handles    map[string]int64   // element id -> handle
	ids        map[int64]string   // handle -> element id
	vectors    map[int64][]float32
}

func newVectorIndex(dims int) *vectorIndex {
	return &vectorIndex{
		dims:    dims,
		handles: make(map[string]int64),
		ids:     make(map[int64]string),
		vectors: make(map[int64][]float32),
	}
}

// add inserts the vector under the element id, replacing any existing entry
// for that id. Returns the handle issued.
func (ix *vectorIndex) add(elementID string, vec []float32) int64 {
	if old, ok := ix.handles[elementID]; ok {
		delete(ix.ids, old)
		delete(ix.vectors, old)
		delete(ix.handles, elementID)
	}

	handle := ix.nextHandle
	ix.nextHandle++

	ix.handles[elementID] = handle
	ix.ids[handle] = elementID
	ix.vectors[handle] = vec

	return handle
}

// restore re-registers a persisted entry under its original handle
func (ix *vectorIndex) restore(elementID string, handle int64, vec []float32) {
	ix.handles[elementID] = handle
	ix.ids[handle] = elementID
	ix.vectors[handle] = vec

	if handle >= ix.nextHandle {
		ix.nextHandle = handle + 1
	}
}

// remove drops the entry for the element id; reports whether it existed
func (ix *vectorIndex) remove(elementID string) bool {
	handle, ok := ix.handles[elementID]
	if !ok {
		return false
	}

	delete(ix.handles, elementID)
	delete(ix.ids, handle)
	delete(ix.vectors, handle)

	return true
}

// size returns the number of live entries
func (ix *vectorIndex) size() int {
	return len(ix.handles)
}

// search scans all vectors by inner product and returns the top k hits sorted
// by score descending, ties broken by element id ascending so ranking is
// deterministic.
func (ix *vectorIndex) search(query []float32, k int) []Hit {
	if k <= 0 || len(ix.vectors) == 0 {
		return nil
	}

	hits := make([]Hit, 0, len(ix.vectors))

	for handle, vec := range ix.vectors {
		hits = append(hits, Hit{
			ElementID: ix.ids[handle],
			Score:     embedding.Dot(query, vec),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}

		return hits[i].ElementID < hits[j].ElementID
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	return hits
}
