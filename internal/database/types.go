package database

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/embedding"
)

// DateLayout is the calendar date format used in storage and the API.
const DateLayout = "2006-01-02"

// TimeLayout is the time-of-day format used in storage and the API.
const TimeLayout = "15:04:05"

// Status is the state of an attendance record.
type Status string

// StatusPresent is the only status recorded by face matching.
const StatusPresent Status = "Present"

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent:
		return true
	}
	return false
}

// Identity is a registered person with their face embedding.
type Identity struct {
	ID           int64
	Name         string
	EmployeeCode string
	Embedding    embedding.Vector
	CreatedAt    time.Time
}

// AttendanceRecord is one confirmed presence of an identity on a calendar date.
type AttendanceRecord struct {
	ID         int64
	IdentityID int64
	Date       string // DateLayout, server-local calendar date
	Time       string // TimeLayout, server-local time of day
	Status     Status

	// Populated by listing queries that join identities.
	Name         string
	EmployeeCode string
}

// AttendanceFilter narrows attendance listings. Zero values mean no filter.
type AttendanceFilter struct {
	Date       string
	IdentityID int64
	Limit      int
}

// NearestIdentity is an identity with its distance to a probe embedding.
type NearestIdentity struct {
	Identity Identity
	Distance float64
}

// DateOf returns the server-local calendar date of t.
func DateOf(t time.Time) string {
	return t.Local().Format(DateLayout)
}

// TimeOf returns the server-local time of day of t.
func TimeOf(t time.Time) string {
	return t.Local().Format(TimeLayout)
}
