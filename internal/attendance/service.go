// Package attendance implements enrollment and face-matched attendance marking.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kozaktomas/face-attendance/internal/archive"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/imageprep"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// Outcome is the result of a successful Mark call.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeAlreadyMarked Outcome = "already_marked"
)

// MarkResult describes a recognized attendance submission.
type MarkResult struct {
	Outcome  Outcome
	Identity database.Identity
	Distance float64
	// Record is nil when attendance was already marked.
	Record *database.AttendanceRecord
}

// Service runs the enrollment and attendance workflows against a store.
type Service struct {
	store        database.Store
	extractor    extractor.Extractor
	tolerance    float64
	maxImageSize int
	publisher    events.Publisher
	archiver     archive.Archiver
	validate     *validator.Validate
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where enrollment and attendance events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithArchiver stores normalized enrollment images.
func WithArchiver(a archive.Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithClock overrides the time source used for attendance dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMaxImageSize bounds the longest image side before extraction.
func WithMaxImageSize(px int) Option {
	return func(s *Service) { s.maxImageSize = px }
}

// NewService creates a Service. tolerance must come from the extractor model's calibration.
func NewService(store database.Store, ext extractor.Extractor, tolerance float64, opts ...Option) *Service {
	s := &Service{
		store:        store,
		extractor:    ext,
		tolerance:    tolerance,
		maxImageSize: 1600,
		publisher:    events.Nop{},
		archiver:     archive.Nop{},
		validate:     newValidator(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tolerance returns the match threshold.
func (s *Service) Tolerance() float64 {
	return s.tolerance
}

// Enroll registers a new identity from a face photo.
func (s *Service) Enroll(ctx context.Context, req EnrollRequest) (*database.Identity, error) {
	req.normalize()
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	log := logging.FromContext(ctx).WithField("employee_code", req.EmployeeCode)

	probe, prepared, err := s.probe(ctx, req.Image)
	if err != nil {
		return nil, err
	}

	identity, err := s.store.CreateIdentity(ctx, database.Identity{
		Name:         req.Name,
		EmployeeCode: req.EmployeeCode,
		Embedding:    probe,
	})
	if errors.Is(err, database.ErrDuplicateEmployeeCode) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, req.EmployeeCode)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	log.WithField("identity_id", identity.ID).Info("identity enrolled")

	key, err := s.archiver.Store(ctx, identity.EmployeeCode, prepared)
	if err != nil {
		log.WithError(err).Warn("failed to archive enrollment image")
	}

	s.publish(ctx, events.New(events.TypeIdentityEnrolled, map[string]any{
		"identity_id":   identity.ID,
		"name":          identity.Name,
		"employee_code": identity.EmployeeCode,
		"archive_key":   key,
	}))

	return identity, nil
}

// Mark recognizes the face in image and records attendance for today.
// A second submission on the same day returns OutcomeAlreadyMarked and no error.
func (s *Service) Mark(ctx context.Context, image []byte) (*MarkResult, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image is required", ErrValidation)
	}

	log := logging.FromContext(ctx)

	probe, _, err := s.probe(ctx, image)
	if err != nil {
		return nil, err
	}

	identities, err := s.store.ListIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
	}

	identity, distance, ok := FirstMatch(probe, identities, s.tolerance)
	if !ok {
		log.WithField("identities", len(identities)).Info("no identity within tolerance")
		return nil, ErrUnknownUser
	}
	log = log.WithFields(logging.Fields{
		"identity_id": identity.ID,
		"distance":    distance,
	})

	now := s.now()
	record, err := s.store.MarkAttendance(ctx, database.AttendanceRecord{
		IdentityID: identity.ID,
		Date:       database.DateOf(now),
		Time:       database.TimeOf(now),
		Status:     database.StatusPresent,
	})
	switch {
	case errors.Is(err, database.ErrAlreadyMarked):
		log.Debug("attendance already marked")
		return &MarkResult{Outcome: OutcomeAlreadyMarked, Identity: identity, Distance: distance}, nil
	case errors.Is(err, database.ErrIdentityNotFound):
		return nil, ErrUnknownUser
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrDatabase, err)
	}
	log.WithField("date", record.Date).Info("attendance marked")

	s.publish(ctx, events.New(events.TypeAttendanceMarked, map[string]any{
		"identity_id":   identity.ID,
		"name":          identity.Name,
		"employee_code": identity.EmployeeCode,
		"date":          record.Date,
		"time":          record.Time,
		"status":        string(record.Status),
	}))

	return &MarkResult{Outcome: OutcomeSuccess, Identity: identity, Distance: distance, Record: record}, nil
}

// Embed returns the embedding of the first face in image without touching the store.
func (s *Service) Embed(ctx context.Context, image []byte) (embedding.Vector, error) {
	if len(image) == 0 {
		return embedding.Vector{}, fmt.Errorf("%w: image is required", ErrValidation)
	}
	probe, _, err := s.probe(ctx, image)
	return probe, err
}

// probe normalizes the image and returns the embedding of its first face together
// with the normalized JPEG.
func (s *Service) probe(ctx context.Context, image []byte) (embedding.Vector, []byte, error) {
	prepared, err := imageprep.Normalize(image, s.maxImageSize)
	if err != nil {
		return embedding.Vector{}, nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	result, err := s.extractor.Extract(ctx, prepared)
	if err != nil {
		return embedding.Vector{}, nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	face, ok := result.First()
	if !ok {
		return embedding.Vector{}, nil, ErrNoFaceDetected
	}
	if n := len(result.Faces); n > 1 {
		logging.FromContext(ctx).WithField("faces", n).Debug("multiple faces detected, using the first")
	}
	return face.Embedding, prepared, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("event", event.Type).Warn("failed to publish event")
	}
}
