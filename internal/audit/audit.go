// Package audit finds enrolled identities whose embeddings are close enough that
// first-hit matching may attribute attendance to the wrong person.
package audit

import (
	"context"
	"fmt"
	"sort"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedding"
)

// DefaultNeighbors is how many nearest identities are inspected per identity.
const DefaultNeighbors = 8

// Pair is two identities within matching tolerance of each other.
type Pair struct {
	First    database.Identity
	Second   database.Identity
	Distance float64
}

// Auditor inspects the enrolled population for ambiguous embeddings.
type Auditor struct {
	store     database.IdentityReader
	tolerance float64
	neighbors int
}

// New creates an Auditor using the matching tolerance of the extractor model.
func New(store database.IdentityReader, tolerance float64) *Auditor {
	return &Auditor{store: store, tolerance: tolerance, neighbors: DefaultNeighbors}
}

// Tolerance returns the distance threshold the auditor reports against.
func (a *Auditor) Tolerance() float64 {
	return a.tolerance
}

// AmbiguousPairs returns every identity pair within tolerance, closest first.
// Each pair is reported once with the lower ID first.
func (a *Auditor) AmbiguousPairs(ctx context.Context) ([]Pair, error) {
	identities, err := a.store.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	if len(identities) < 2 {
		return nil, nil
	}

	idx := NewIndex()
	idx.Build(identities)

	type key struct{ a, b int64 }
	seen := make(map[key]struct{})
	var pairs []Pair

	for _, identity := range identities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		neighbors, err := a.neighborsWithin(idx, identity.Embedding)
		if err != nil {
			return nil, err
		}
		for _, n := range neighbors {
			if n.Identity.ID == identity.ID || n.Distance > a.tolerance {
				continue
			}
			first, second := identity, n.Identity
			if second.ID < first.ID {
				first, second = second, first
			}
			k := key{first.ID, second.ID}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			pairs = append(pairs, Pair{First: first, Second: second, Distance: n.Distance})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Distance != pairs[j].Distance {
			return pairs[i].Distance < pairs[j].Distance
		}
		if pairs[i].First.ID != pairs[j].First.ID {
			return pairs[i].First.ID < pairs[j].First.ID
		}
		return pairs[i].Second.ID < pairs[j].Second.ID
	})
	return pairs, nil
}

// neighborsWithin searches probe's neighborhood, doubling k while every returned
// identity is still within tolerance. Once k covers the whole index it falls back
// to an exact scan so dense clusters are reported completely.
func (a *Auditor) neighborsWithin(idx *Index, probe embedding.Vector) ([]database.NearestIdentity, error) {
	total := idx.Count()
	for k := a.neighbors + 1; k < total; k *= 2 {
		neighbors, err := idx.Search(probe, k)
		if err != nil {
			return nil, err
		}
		if len(neighbors) > 0 && neighbors[len(neighbors)-1].Distance > a.tolerance {
			return neighbors, nil
		}
	}
	return idx.Scan(probe), nil
}

// Candidates returns every identity within tolerance of probe, closest first.
// Backends that rank in the database are used directly; otherwise an in-memory
// index is built from the identity list.
func (a *Auditor) Candidates(ctx context.Context, probe embedding.Vector) ([]database.NearestIdentity, error) {
	var (
		nearest []database.NearestIdentity
		err     error
	)
	if finder, ok := a.store.(database.NearestFinder); ok {
		nearest, err = a.nearestFromStore(ctx, finder, probe)
	} else {
		var identities []database.Identity
		identities, err = a.store.ListIdentities(ctx)
		if err != nil {
			return nil, fmt.Errorf("list identities: %w", err)
		}
		if len(identities) == 0 {
			return nil, nil
		}
		idx := NewIndex()
		idx.Build(identities)
		nearest, err = a.neighborsWithin(idx, probe)
	}
	if err != nil {
		return nil, fmt.Errorf("nearest identities: %w", err)
	}

	sortNearest(nearest)
	within := nearest[:0]
	for _, n := range nearest {
		if n.Distance <= a.tolerance {
			within = append(within, n)
		}
	}
	return within, nil
}

// nearestFromStore asks the backend for the k nearest identities, doubling k until
// the result runs out or reaches past tolerance.
func (a *Auditor) nearestFromStore(ctx context.Context, finder database.NearestFinder, probe embedding.Vector) ([]database.NearestIdentity, error) {
	for k := a.neighbors; ; k *= 2 {
		nearest, err := finder.NearestIdentities(ctx, probe, k)
		if err != nil {
			return nil, err
		}
		if len(nearest) < k || nearest[len(nearest)-1].Distance > a.tolerance {
			return nearest, nil
		}
	}
}

func sortNearest(results []database.NearestIdentity) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Identity.ID < results[j].Identity.ID
	})
}
