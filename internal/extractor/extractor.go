// Package extractor turns an image into face embeddings.
package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/embedding"
)

// Extractor detects faces in an image and returns one embedding per face.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (Result, error)
}

// Face is a single detected face.
type Face struct {
	Embedding embedding.Vector
	BBox      [4]float64 // x1, y1, x2, y2 in pixels
	Score     float64
}

// Result lists detected faces in the order the model returned them.
type Result struct {
	Faces []Face
	Model string
}

// First returns the first detected face.
func (r Result) First() (Face, bool) {
	if len(r.Faces) == 0 {
		return Face{}, false
	}
	return r.Faces[0], true
}

// Kind classifies extraction failures.
type Kind int

const (
	// KindUnavailable means the extractor could not run (network, timeout, bad response).
	KindUnavailable Kind = iota
	// KindUnreadable means the image was rejected as undecodable.
	KindUnreadable
)

func (k Kind) String() string {
	switch k {
	case KindUnreadable:
		return "unreadable"
	default:
		return "unavailable"
	}
}

// Error is returned for every extraction failure. Zero faces is not an error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extractor %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnreadable reports whether err is an extraction error caused by the image itself.
func IsUnreadable(err error) bool {
	var extErr *Error
	return errors.As(err, &extErr) && extErr.Kind == KindUnreadable
}

// New builds the configured extractor. An in-process dlib extractor is used when a
// models directory is set; otherwise the HTTP sidecar. Throttling wraps either.
func New(cfg config.ExtractorConfig, cal config.Calibration) (Extractor, error) {
	if cal.Dim != embedding.Dim {
		return nil, fmt.Errorf("extractor model %q produces %d-d embeddings, storage expects %d",
			cfg.Model, cal.Dim, embedding.Dim)
	}

	var ext Extractor
	if cfg.ModelsDir != "" {
		d, err := NewDlib(cfg.ModelsDir)
		if err != nil {
			return nil, err
		}
		ext = d
	} else {
		ext = NewHTTPClient(cfg.URL, cfg.Model, cfg.Timeout)
	}

	return NewLimited(ext, cfg.Rate, cfg.Burst), nil
}
