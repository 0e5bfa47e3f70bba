//go:build dlib

package extractor

import (
	"context"
	"fmt"
	"sync"

	face "github.com/Kagami/go-face"

	"github.com/kozaktomas/face-attendance/internal/embedding"
)

// Dlib runs the dlib ResNet face model in-process. Input must be JPEG.
type Dlib struct {
	rec *face.Recognizer
	mu  sync.Mutex
}

// NewDlib loads the shape predictor, detector and recognition models from modelsDir.
func NewDlib(modelsDir string) (*Dlib, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("loading dlib models from %s: %w", modelsDir, err)
	}
	return &Dlib{rec: rec}, nil
}

// Extract detects faces and computes their descriptors.
func (d *Dlib) Extract(ctx context.Context, image []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, &Error{Kind: KindUnavailable, Op: "recognize", Err: err}
	}

	// The recognizer is not safe for concurrent use.
	d.mu.Lock()
	faces, err := d.rec.Recognize(image)
	d.mu.Unlock()
	if err != nil {
		if _, ok := err.(face.ImageLoadError); ok {
			return Result{}, &Error{Kind: KindUnreadable, Op: "recognize", Err: err}
		}
		return Result{}, &Error{Kind: KindUnavailable, Op: "recognize", Err: err}
	}

	result := Result{Model: "dlib_face_recognition_resnet_model_v1", Faces: make([]Face, 0, len(faces))}
	for _, f := range faces {
		vec, err := embedding.FromFloat32(f.Descriptor[:])
		if err != nil {
			return Result{}, &Error{Kind: KindUnavailable, Op: "recognize", Err: err}
		}
		r := f.Rectangle
		result.Faces = append(result.Faces, Face{
			Embedding: vec,
			BBox:      [4]float64{float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)},
			Score:     1,
		})
	}
	return result, nil
}

// Close frees the dlib models.
func (d *Dlib) Close() {
	d.rec.Close()
}
