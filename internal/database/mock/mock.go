// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedding"
)

// MockStore is an in-memory implementation of database.Store.
// Uniqueness rules match the SQL backends.
type MockStore struct {
	mu         sync.RWMutex
	identities []database.Identity
	attendance []database.AttendanceRecord
	nextID     int64
	nextAttID  int64

	// Error injection
	ListIdentitiesError  error
	GetIdentityError     error
	CountIdentitiesError error
	CreateIdentityError  error
	MarkAttendanceError  error
	ListAttendanceError  error
	CountAttendanceError error
	MigrateError         error

	// Call tracking
	CreateIdentityCalls int
	MarkAttendanceCalls int
	Migrated            bool
	Closed              bool
}

// NewMockStore creates a new empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// AddIdentity inserts an identity directly, assigning the next ID.
func (m *MockStore) AddIdentity(name, code string, vec embedding.Vector) database.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addIdentityLocked(database.Identity{Name: name, EmployeeCode: code, Embedding: vec})
}

func (m *MockStore) addIdentityLocked(identity database.Identity) database.Identity {
	m.nextID++
	identity.ID = m.nextID
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}
	m.identities = append(m.identities, identity)
	return identity
}

// AddAttendance inserts a record directly without uniqueness checks.
func (m *MockStore) AddAttendance(record database.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextAttID++
	record.ID = m.nextAttID
	if record.Status == "" {
		record.Status = database.StatusPresent
	}
	m.attendance = append(m.attendance, record)
}

// Attendance returns a copy of all stored attendance records.
func (m *MockStore) Attendance() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.AttendanceRecord, len(m.attendance))
	copy(out, m.attendance)
	return out
}

// ListIdentities returns identities in ascending ID order.
func (m *MockStore) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	if m.ListIdentitiesError != nil {
		return nil, m.ListIdentitiesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Identity, len(m.identities))
	copy(out, m.identities)
	return out, nil
}

// GetIdentity returns an identity by ID.
func (m *MockStore) GetIdentity(ctx context.Context, id int64) (*database.Identity, error) {
	if m.GetIdentityError != nil {
		return nil, m.GetIdentityError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, identity := range m.identities {
		if identity.ID == id {
			return &identity, nil
		}
	}
	return nil, database.ErrIdentityNotFound
}

// CountIdentities returns the number of identities.
func (m *MockStore) CountIdentities(ctx context.Context) (int, error) {
	if m.CountIdentitiesError != nil {
		return 0, m.CountIdentitiesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// CreateIdentity stores an identity, enforcing employee code uniqueness.
func (m *MockStore) CreateIdentity(ctx context.Context, identity database.Identity) (*database.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateIdentityCalls++
	if m.CreateIdentityError != nil {
		return nil, m.CreateIdentityError
	}
	for _, existing := range m.identities {
		if existing.EmployeeCode == identity.EmployeeCode {
			return nil, database.ErrDuplicateEmployeeCode
		}
	}
	created := m.addIdentityLocked(identity)
	return &created, nil
}

// MarkAttendance stores a record, enforcing one record per identity and date.
func (m *MockStore) MarkAttendance(ctx context.Context, record database.AttendanceRecord) (*database.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkAttendanceCalls++
	if m.MarkAttendanceError != nil {
		return nil, m.MarkAttendanceError
	}

	known := false
	for _, identity := range m.identities {
		if identity.ID == record.IdentityID {
			known = true
			break
		}
	}
	if !known {
		return nil, database.ErrIdentityNotFound
	}
	for _, existing := range m.attendance {
		if existing.IdentityID == record.IdentityID && existing.Date == record.Date {
			return nil, database.ErrAlreadyMarked
		}
	}

	if record.Status == "" {
		record.Status = database.StatusPresent
	}
	m.nextAttID++
	record.ID = m.nextAttID
	m.attendance = append(m.attendance, record)
	return &record, nil
}

// ListAttendance returns matching records joined with identity names, newest first.
func (m *MockStore) ListAttendance(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	if m.ListAttendanceError != nil {
		return nil, m.ListAttendanceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make(map[int64]database.Identity, len(m.identities))
	for _, identity := range m.identities {
		names[identity.ID] = identity
	}

	var out []database.AttendanceRecord
	for _, rec := range m.attendance {
		if filter.Date != "" && rec.Date != filter.Date {
			continue
		}
		if filter.IdentityID != 0 && rec.IdentityID != filter.IdentityID {
			continue
		}
		rec.Name = names[rec.IdentityID].Name
		rec.EmployeeCode = names[rec.IdentityID].EmployeeCode
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		if out[i].Time != out[j].Time {
			return out[i].Time > out[j].Time
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// CountAttendance returns the number of records on a date.
func (m *MockStore) CountAttendance(ctx context.Context, date string) (int, error) {
	if m.CountAttendanceError != nil {
		return 0, m.CountAttendanceError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, rec := range m.attendance {
		if rec.Date == date {
			count++
		}
	}
	return count, nil
}

// NearestIdentities ranks identities by exact distance to the probe.
func (m *MockStore) NearestIdentities(ctx context.Context, probe embedding.Vector, limit int) ([]database.NearestIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]database.NearestIdentity, 0, len(m.identities))
	for _, identity := range m.identities {
		results = append(results, database.NearestIdentity{
			Identity: identity,
			Distance: embedding.Distance(probe, identity.Embedding),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Migrate records the call.
func (m *MockStore) Migrate(ctx context.Context) error {
	if m.MigrateError != nil {
		return m.MigrateError
	}
	m.Migrated = true
	return nil
}

// Close records the call.
func (m *MockStore) Close() error {
	m.Closed = true
	return nil
}

var (
	_ database.Store         = (*MockStore)(nil)
	_ database.NearestFinder = (*MockStore)(nil)
)
