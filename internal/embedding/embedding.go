// Package embedding holds the fixed-width face embedding vector and its row encoding.
package embedding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Dim is the number of dimensions produced by the dlib face recognition model.
const Dim = 128

// EncodedSize is the byte length of an encoded vector (8 bytes per dimension).
const EncodedSize = Dim * 8

// ErrInvalidLength is returned when a buffer or slice does not hold exactly Dim values.
var ErrInvalidLength = errors.New("invalid embedding length")

// Vector is a single face embedding.
type Vector [Dim]float64

// FromSlice copies a slice into a Vector. The slice must hold exactly Dim values.
func FromSlice(values []float64) (Vector, error) {
	var v Vector
	if len(values) != Dim {
		return v, fmt.Errorf("%w: got %d values, want %d", ErrInvalidLength, len(values), Dim)
	}
	copy(v[:], values)
	return v, nil
}

// FromFloat32 widens a float32 descriptor (as returned by dlib bindings) into a Vector.
func FromFloat32(values []float32) (Vector, error) {
	var v Vector
	if len(values) != Dim {
		return v, fmt.Errorf("%w: got %d values, want %d", ErrInvalidLength, len(values), Dim)
	}
	for i, f := range values {
		v[i] = float64(f)
	}
	return v, nil
}

// Float32 narrows the vector for libraries that only index float32 data.
func (v Vector) Float32() []float32 {
	out := make([]float32, Dim)
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

// Encode serializes the vector as 128 little-endian IEEE-754 float64 values.
// This is the layout numpy's tobytes() produces on x86 and arm64, so rows written
// by earlier deployments decode unchanged.
func (v Vector) Encode() []byte {
	buf := make([]byte, EncodedSize)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

// Decode parses a buffer produced by Encode.
func Decode(buf []byte) (Vector, error) {
	var v Vector
	if len(buf) != EncodedSize {
		return v, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidLength, len(buf), EncodedSize)
	}
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return v, nil
}

// Distance returns the Euclidean distance between two vectors.
func Distance(a, b Vector) float64 {
	return floats.Distance(a[:], b[:], 2)
}
