package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// attendanceRow is the sqlx scan target for attendance listings.
type attendanceRow struct {
	ID           int64  `db:"id"`
	IdentityID   int64  `db:"identity_id"`
	Date         string `db:"attendance_date"`
	Time         string `db:"attendance_time"`
	Status       string `db:"status"`
	Name         string `db:"name"`
	EmployeeCode string `db:"employee_code"`
}

func (r attendanceRow) record() database.AttendanceRecord {
	return database.AttendanceRecord{
		ID:           r.ID,
		IdentityID:   r.IdentityID,
		Date:         r.Date,
		Time:         r.Time,
		Status:       database.Status(r.Status),
		Name:         r.Name,
		EmployeeCode: r.EmployeeCode,
	}
}

// MarkAttendance records attendance for an identity on record.Date.
func (r *AttendanceRepository) MarkAttendance(
	ctx context.Context, record database.AttendanceRecord,
) (*database.AttendanceRecord, error) {
	if record.Status == "" {
		record.Status = database.StatusPresent
	}
	if !record.Status.Valid() {
		return nil, fmt.Errorf("unknown attendance status %q", record.Status)
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM attendance WHERE identity_id = $1 AND attendance_date = $2)",
		record.IdentityID, record.Date,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check attendance: %w", err)
	}
	if exists {
		return nil, database.ErrAlreadyMarked
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO attendance (identity_id, attendance_date, attendance_time, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, record.IdentityID, record.Date, record.Time, string(record.Status)).Scan(&record.ID)
	if err != nil {
		return nil, translateAttendanceError(err, "insert attendance")
	}

	if err := tx.Commit(); err != nil {
		return nil, translateAttendanceError(err, "commit attendance")
	}
	return &record, nil
}

func translateAttendanceError(err error, op string) error {
	if _, ok := constraintViolation(err, codeUniqueViolation); ok {
		return database.ErrAlreadyMarked
	}
	if _, ok := constraintViolation(err, codeForeignKeyViolation); ok {
		return database.ErrIdentityNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ListAttendance returns attendance records joined with identity names.
func (r *AttendanceRepository) ListAttendance(
	ctx context.Context, filter database.AttendanceFilter,
) ([]database.AttendanceRecord, error) {
	q := sq.Select(
		"a.id",
		"a.identity_id",
		"to_char(a.attendance_date, 'YYYY-MM-DD') AS attendance_date",
		"to_char(a.attendance_time, 'HH24:MI:SS') AS attendance_time",
		"a.status",
		"i.name",
		"i.employee_code",
	).
		From("attendance a").
		Join("identities i ON i.id = a.identity_id").
		OrderBy("a.attendance_date DESC", "a.attendance_time DESC", "a.id DESC").
		PlaceholderFormat(sq.Dollar)

	if filter.Date != "" {
		q = q.Where(sq.Eq{"a.attendance_date": filter.Date})
	}
	if filter.IdentityID != 0 {
		q = q.Where(sq.Eq{"a.identity_id": filter.IdentityID})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build attendance query: %w", err)
	}

	var rows []attendanceRow
	if err := r.pool.Select(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	records := make([]database.AttendanceRecord, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

// CountAttendance returns the number of attendance records on a date.
func (r *AttendanceRepository) CountAttendance(ctx context.Context, date string) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM attendance WHERE attendance_date = $1", date,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return count, nil
}
