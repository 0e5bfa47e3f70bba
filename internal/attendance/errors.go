package attendance

import "errors"

// Errors returned by Service. Callers compare with errors.Is; the wrapped cause
// is for logs only.
var (
	ErrValidation        = errors.New("validation failed")
	ErrExtraction        = errors.New("image processing failed")
	ErrNoFaceDetected    = errors.New("no face detected")
	ErrDuplicateIdentity = errors.New("employee ID already exists")
	ErrUnknownUser       = errors.New("unknown user")
	ErrDatabase          = errors.New("database error")
)
