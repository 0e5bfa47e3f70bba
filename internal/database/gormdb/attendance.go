package gormdb

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MarkAttendance records attendance for an identity on record.Date.
func (s *Store) MarkAttendance(ctx context.Context, record database.AttendanceRecord) (*database.AttendanceRecord, error) {
	if record.Status == "" {
		record.Status = database.StatusPresent
	}
	if !record.Status.Valid() {
		return nil, fmt.Errorf("unknown attendance status %q", record.Status)
	}
	date, err := parseDate(record.Date)
	if err != nil {
		return nil, err
	}
	tod, err := parseTime(record.Time)
	if err != nil {
		return nil, err
	}

	m := attendanceModel{
		IdentityID:     record.IdentityID,
		AttendanceDate: date,
		AttendanceTime: tod,
		Status:         string(record.Status),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&identityModel{}).Where("id = ?", record.IdentityID).Count(&count).Error; err != nil {
			return fmt.Errorf("check identity: %w", err)
		}
		if count == 0 {
			return database.ErrIdentityNotFound
		}

		if err := tx.Model(&attendanceModel{}).
			Where("identity_id = ? AND attendance_date = ?", record.IdentityID, date).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check attendance: %w", err)
		}
		if count > 0 {
			return database.ErrAlreadyMarked
		}
		return tx.Omit("Identity").Create(&m).Error
	})
	switch {
	case errors.Is(err, database.ErrIdentityNotFound), errors.Is(err, gorm.ErrForeignKeyViolated):
		return nil, database.ErrIdentityNotFound
	case errors.Is(err, database.ErrAlreadyMarked), isDuplicate(err):
		return nil, database.ErrAlreadyMarked
	case err != nil:
		return nil, fmt.Errorf("insert attendance: %w", err)
	}

	record.ID = m.ID
	return &record, nil
}

// ListAttendance returns attendance records joined with identity names, newest first.
func (s *Store) ListAttendance(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	q := s.db.WithContext(ctx).
		Table("attendance AS a").
		Select("a.id, a.identity_id, a.attendance_date, a.attendance_time, a.status, i.name, i.employee_code").
		Joins("JOIN identities i ON i.id = a.identity_id").
		Order("a.attendance_date DESC, a.attendance_time DESC, a.id DESC")

	if filter.Date != "" {
		date, err := parseDate(filter.Date)
		if err != nil {
			return nil, err
		}
		q = q.Where("a.attendance_date = ?", date)
	}
	if filter.IdentityID != 0 {
		q = q.Where("a.identity_id = ?", filter.IdentityID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []attendanceRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	records := make([]database.AttendanceRecord, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

// CountAttendance returns the number of attendance records on a date.
func (s *Store) CountAttendance(ctx context.Context, date string) (int, error) {
	d, err := parseDate(date)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&attendanceModel{}).Where("attendance_date = ?", d).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return int(count), nil
}
