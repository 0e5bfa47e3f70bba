//go:build !dlib

package extractor

import (
	"context"
	"errors"
)

// Dlib is unavailable in builds without the dlib tag.
type Dlib struct{}

// NewDlib fails unless the binary was built with -tags dlib.
func NewDlib(string) (*Dlib, error) {
	return nil, errors.New("in-process extraction requires a build with -tags dlib; set EXTRACTOR_URL instead")
}

// Extract always fails.
func (d *Dlib) Extract(context.Context, []byte) (Result, error) {
	return Result{}, &Error{Kind: KindUnavailable, Op: "recognize", Err: errors.New("dlib support not compiled in")}
}

// Close is a no-op.
func (d *Dlib) Close() {}
