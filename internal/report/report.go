// Package report summarizes daily attendance and publishes it on a schedule.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/events"
)

// Store is the read access the reporter needs.
type Store interface {
	database.IdentityReader
	database.AttendanceReader
}

// Summary is the attendance total for one date.
type Summary struct {
	Date       string `json:"date"`
	Present    int    `json:"present"`
	Registered int    `json:"registered"`
	Absent     int    `json:"absent"`
}

// Reporter builds and publishes daily summaries.
type Reporter struct {
	store     Store
	publisher events.Publisher
	now       func() time.Time
}

// NewReporter creates a Reporter.
func NewReporter(store Store, publisher events.Publisher) *Reporter {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Reporter{store: store, publisher: publisher, now: time.Now}
}

// Daily returns the summary for date (database.DateLayout).
func (r *Reporter) Daily(ctx context.Context, date string) (Summary, error) {
	present, err := r.store.CountAttendance(ctx, date)
	if err != nil {
		return Summary{}, fmt.Errorf("count attendance: %w", err)
	}
	registered, err := r.store.CountIdentities(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count identities: %w", err)
	}
	return Summary{
		Date:       date,
		Present:    present,
		Registered: registered,
		Absent:     max(registered-present, 0),
	}, nil
}

// PublishToday publishes a report.daily event for the current server-local date.
func (r *Reporter) PublishToday(ctx context.Context) (Summary, error) {
	summary, err := r.Daily(ctx, database.DateOf(r.now()))
	if err != nil {
		return Summary{}, err
	}
	event := events.New(events.TypeReportDaily, map[string]any{
		"date":       summary.Date,
		"present":    summary.Present,
		"registered": summary.Registered,
		"absent":     summary.Absent,
	})
	if err := r.publisher.Publish(ctx, event); err != nil {
		return summary, fmt.Errorf("publish report: %w", err)
	}
	return summary, nil
}

// Scheduler runs PublishToday on a cron schedule.
type Scheduler struct {
	s *gocron.Scheduler
}

// Schedule starts publishing reports according to the cron expression.
func Schedule(expr string, reporter *Reporter) (*Scheduler, error) {
	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()

	_, err := s.Cron(expr).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		summary, err := reporter.PublishToday(ctx)
		if err != nil {
			logrus.WithError(err).Error("daily report failed")
			return
		}
		logrus.WithFields(logrus.Fields{
			"date":       summary.Date,
			"present":    summary.Present,
			"registered": summary.Registered,
		}).Info("daily report published")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", expr, err)
	}

	s.StartAsync()
	return &Scheduler{s: s}, nil
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.s.Stop()
}
