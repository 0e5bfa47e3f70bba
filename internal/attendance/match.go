package attendance

import (
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedding"
)

// FirstMatch scans identities in the given order and returns the first one within
// tolerance of probe. It does not look for a closer identity further down the list.
func FirstMatch(probe embedding.Vector, identities []database.Identity, tolerance float64) (database.Identity, float64, bool) {
	for _, identity := range identities {
		d := embedding.Distance(probe, identity.Embedding)
		if d <= tolerance {
			return identity, d, true
		}
	}
	return database.Identity{}, 0, false
}
