package gormdb

import (
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedding"
)

type identityModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	Name          string    `gorm:"size:100;not null"`
	EmployeeCode  string    `gorm:"size:50;not null;uniqueIndex:identities_employee_code_key"`
	FaceEmbedding []byte    `gorm:"not null;check:identities_embedding_size,length(face_embedding) = 1024"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (identityModel) TableName() string {
	return "identities"
}

func (m identityModel) identity() (database.Identity, error) {
	vec, err := embedding.Decode(m.FaceEmbedding)
	if err != nil {
		return database.Identity{}, fmt.Errorf("identity %d: %w", m.ID, err)
	}
	return database.Identity{
		ID:           m.ID,
		Name:         m.Name,
		EmployeeCode: m.EmployeeCode,
		Embedding:    vec,
		CreatedAt:    m.CreatedAt,
	}, nil
}

type attendanceModel struct {
	ID             int64          `gorm:"primaryKey;autoIncrement"`
	IdentityID     int64          `gorm:"not null;uniqueIndex:attendance_identity_date_key,priority:1"`
	Identity       identityModel  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	AttendanceDate datatypes.Date `gorm:"not null;uniqueIndex:attendance_identity_date_key,priority:2;index:idx_attendance_date"`
	AttendanceTime datatypes.Time `gorm:"not null"`
	Status         string         `gorm:"size:10;not null;default:Present"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
}

func (attendanceModel) TableName() string {
	return "attendance"
}

// attendanceRow is the scan target for listings joined with identities.
type attendanceRow struct {
	ID             int64
	IdentityID     int64
	AttendanceDate datatypes.Date
	AttendanceTime datatypes.Time
	Status         string
	Name           string
	EmployeeCode   string
}

func (r attendanceRow) record() database.AttendanceRecord {
	return database.AttendanceRecord{
		ID:           r.ID,
		IdentityID:   r.IdentityID,
		Date:         time.Time(r.AttendanceDate).Format(database.DateLayout),
		Time:         r.AttendanceTime.String(),
		Status:       database.Status(r.Status),
		Name:         r.Name,
		EmployeeCode: r.EmployeeCode,
	}
}

// parseDate converts a DateLayout string into a column value.
func parseDate(s string) (datatypes.Date, error) {
	t, err := time.Parse(database.DateLayout, s)
	if err != nil {
		return datatypes.Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return datatypes.Date(t), nil
}

// parseTime converts a TimeLayout string into a column value.
func parseTime(s string) (datatypes.Time, error) {
	t, err := time.Parse(database.TimeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return datatypes.NewTime(t.Hour(), t.Minute(), t.Second(), 0), nil
}
