// Package events publishes enrollment and attendance notifications.
package events

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/oklog/ulid/v2"
)

// json encodes events for the websocket hub and Redis.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Type names an event.
type Type string

const (
	TypeIdentityEnrolled Type = "identity.enrolled"
	TypeAttendanceMarked Type = "attendance.marked"
	TypeReportDaily      Type = "report.daily"
)

// Event is a message delivered to websocket clients and Redis subscribers.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// New creates an event stamped with the current time.
func New(t Type, data map[string]any) Event {
	now := time.Now()
	return Event{
		ID:        NewID(now),
		Type:      t,
		Timestamp: now.Unix(),
		Data:      data,
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a ULID for t. IDs generated within the same millisecond sort in call order.
func NewID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

// Publish delivers the event to all publishers, even when some fail.
func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
