package identity

import (
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Honza", "Honza"},
		{"Jiří", "Jiri"},
		{"José Núñez", "Jose Nunez"},
		{"Žluťoučký kůň", "Zlutoucky kun"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := RemoveDiacritics(tt.input)
			if result != tt.expected {
				t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Jan Novák", "jan novak"},
		{"jan-novak", "jan novak"},
		{"  JOHN   DOE ", "john doe"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeName(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	identities := []database.Identity{
		{ID: 1, Name: "Jiří Novák", EmployeeCode: "E100"},
		{ID: 2, Name: "Alice Smith", EmployeeCode: "E200"},
		{ID: 3, Name: "Nováková Eva", EmployeeCode: "HR-7"},
	}

	tests := []struct {
		query string
		want  []int64
	}{
		{"", []int64{1, 2, 3}},
		{"novak", []int64{1, 3}},
		{"JIRI", []int64{1}},
		{"hr-7", []int64{3}},
		{"e200", []int64{2}},
		{"nobody", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Filter(identities, tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter(%q) returned %d identities, want %d", tt.query, len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("Filter(%q)[%d] = %d, want %d", tt.query, i, got[i].ID, id)
				}
			}
		})
	}
}

func TestSortByEmployeeCode(t *testing.T) {
	identities := []database.Identity{
		{EmployeeCode: "E10"},
		{EmployeeCode: "E2"},
		{EmployeeCode: "E1"},
	}
	SortByEmployeeCode(identities)

	want := []string{"E1", "E2", "E10"}
	for i, code := range want {
		if identities[i].EmployeeCode != code {
			t.Errorf("position %d: got %s, want %s", i, identities[i].EmployeeCode, code)
		}
	}
}
