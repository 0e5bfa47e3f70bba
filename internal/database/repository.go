package database

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-attendance/internal/embedding"
)

var (
	// ErrDuplicateEmployeeCode is returned when an identity with the same employee code exists.
	ErrDuplicateEmployeeCode = errors.New("employee code already exists")
	// ErrAlreadyMarked is returned when attendance exists for the identity and date.
	ErrAlreadyMarked = errors.New("attendance already marked")
	// ErrIdentityNotFound is returned when an identity ID does not exist.
	ErrIdentityNotFound = errors.New("identity not found")
)

// IdentityReader provides read-only access to registered identities.
type IdentityReader interface {
	// ListIdentities returns every identity in ascending ID (insertion) order.
	ListIdentities(ctx context.Context) ([]Identity, error)
	// GetIdentity returns a single identity or ErrIdentityNotFound.
	GetIdentity(ctx context.Context, id int64) (*Identity, error)
	// CountIdentities returns the number of registered identities.
	CountIdentities(ctx context.Context) (int, error)
}

// IdentityWriter registers identities.
type IdentityWriter interface {
	IdentityReader

	// CreateIdentity inserts a new identity inside a transaction and returns it with its ID.
	// Returns ErrDuplicateEmployeeCode when the code is taken, including when a concurrent
	// insert wins the race and the unique constraint fires.
	CreateIdentity(ctx context.Context, identity Identity) (*Identity, error)
}

// AttendanceReader lists attendance records.
type AttendanceReader interface {
	// ListAttendance returns records matching the filter, newest date first.
	ListAttendance(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, error)
	// CountAttendance returns the number of records on a date.
	CountAttendance(ctx context.Context, date string) (int, error)
}

// AttendanceWriter records attendance.
type AttendanceWriter interface {
	AttendanceReader

	// MarkAttendance inserts a record for the identity on record.Date inside a transaction.
	// Returns ErrAlreadyMarked when a record exists for (identity, date), whether found by
	// the pre-check or by the unique constraint, and ErrIdentityNotFound when the identity
	// does not exist.
	MarkAttendance(ctx context.Context, record AttendanceRecord) (*AttendanceRecord, error)
}

// Store is the full persistence surface used by the attendance workflow.
type Store interface {
	IdentityWriter
	AttendanceWriter

	// Migrate creates or upgrades the schema.
	Migrate(ctx context.Context) error
	// Close releases the underlying connections.
	Close() error
}

// NearestFinder is implemented by backends that can rank identities by distance in the database.
type NearestFinder interface {
	NearestIdentities(ctx context.Context, probe embedding.Vector, limit int) ([]NearestIdentity, error)
}
