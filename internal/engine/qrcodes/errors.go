package qrcodes

import (
	"errors"
	"fmt"
)

var (
	ErrMissingLink      = errors.New("link is required")
	ErrInvalidFilename  = errors.New("filename is empty or contains no allowed characters")
	ErrNotFound         = errors.New("qr code not found")
	ErrGenerationFailed = errors.New("qr code generation failed")
)

// GenerationError wraps the encoder or filesystem failure behind a failed
// generation. It matches ErrGenerationFailed with errors.Is.
type GenerationError struct {
	Filename string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating %s: %v", e.Filename, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}
