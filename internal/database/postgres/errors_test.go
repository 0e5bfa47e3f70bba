package postgres

import (
	"errors"
	"testing"

	"github.com/lib/pq"

	"github.com/kozaktomas/face-attendance/internal/database"
)

func TestTranslateAttendanceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", &pq.Error{Code: codeUniqueViolation, Constraint: "attendance_identity_date_key"}, database.ErrAlreadyMarked},
		{"foreign key violation", &pq.Error{Code: codeForeignKeyViolation}, database.ErrIdentityNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translateAttendanceError(tt.err, "insert attendance"); !errors.Is(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	other := errors.New("connection reset")
	got := translateAttendanceError(other, "commit attendance")
	if !errors.Is(got, other) {
		t.Errorf("expected wrapped error, got %v", got)
	}
	if errors.Is(got, database.ErrAlreadyMarked) || errors.Is(got, database.ErrIdentityNotFound) {
		t.Errorf("unexpected domain error for %v", got)
	}
}
