package identity

import (
	"sort"
	"strings"

	"github.com/facette/natsort"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// Filter returns identities whose name or employee code contains query,
// ignoring case and diacritics. An empty query returns all identities.
func Filter(identities []database.Identity, query string) []database.Identity {
	q := NormalizeName(query)
	if q == "" {
		return identities
	}
	code := strings.ToLower(strings.TrimSpace(query))

	var out []database.Identity
	for _, identity := range identities {
		if strings.Contains(NormalizeName(identity.Name), q) ||
			strings.Contains(strings.ToLower(identity.EmployeeCode), code) {
			out = append(out, identity)
		}
	}
	return out
}

// SortByEmployeeCode orders identities naturally by employee code, so E2 precedes E10.
func SortByEmployeeCode(identities []database.Identity) {
	sort.SliceStable(identities, func(i, j int) bool {
		return natsort.Compare(identities[i].EmployeeCode, identities[j].EmployeeCode)
	})
}
