package audit

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedding"
)

const (
	// maxNeighbors (M) is the maximum number of neighbors per node.
	maxNeighbors = 16
	// efSearch is the search candidate pool size.
	efSearch = 64
)

// Index wraps an HNSW graph over identity embeddings.
// The graph stores float32 copies; callers recompute exact distances from Identity.
type Index struct {
	graph      *hnsw.Graph[int64]
	identities map[int64]*database.Identity
	mu         sync.RWMutex
}

// NewIndex creates a new empty index.
func NewIndex() *Index {
	return &Index{
		identities: make(map[int64]*database.Identity),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.EfSearch = efSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents with the given identities.
func (x *Index) Build(identities []database.Identity) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.identities = make(map[int64]*database.Identity, len(identities))
	if len(identities) == 0 {
		x.graph = nil
		return
	}

	g := newGraph()
	for i := range identities {
		identity := &identities[i]
		g.Add(hnsw.MakeNode(identity.ID, identity.Embedding.Float32()))
		x.identities[identity.ID] = identity
	}
	x.graph = g
}

// Search returns up to k identities nearest to probe with exact float64 distances,
// closest first.
func (x *Index) Search(probe embedding.Vector, k int) ([]database.NearestIdentity, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil {
		return nil, errors.New("index not initialized")
	}

	neighbors := x.graph.Search(probe.Float32(), k)
	results := make([]database.NearestIdentity, 0, len(neighbors))
	for _, n := range neighbors {
		identity, ok := x.identities[n.Key]
		if !ok {
			continue
		}
		results = append(results, database.NearestIdentity{
			Identity: *identity,
			Distance: embedding.Distance(probe, identity.Embedding),
		})
	}
	sortNearest(results)
	return results, nil
}

// Scan returns every indexed identity with its exact distance to probe, closest first.
func (x *Index) Scan(probe embedding.Vector) []database.NearestIdentity {
	x.mu.RLock()
	defer x.mu.RUnlock()

	results := make([]database.NearestIdentity, 0, len(x.identities))
	for _, identity := range x.identities {
		results = append(results, database.NearestIdentity{
			Identity: *identity,
			Distance: embedding.Distance(probe, identity.Embedding),
		})
	}
	sortNearest(results)
	return results
}

// Count returns the number of indexed identities.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.identities)
}
