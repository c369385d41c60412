package engine

import (
	"errors"
	"fmt"

	"github.com/mfenderov/outliner/internal/memo"
)

// ErrUnusableContent is wrapped by GenerationError when the generator answered
// but its text holds no markdown block.
var ErrUnusableContent = errors.New("generator returned no usable content")

// MalformedOutlineError reports an outline whose front matter cannot be read.
// No generation is attempted.
type MalformedOutlineError struct {
	Err error
}

func (e *MalformedOutlineError) Error() string {
	return fmt.Sprintf("malformed outline: %v", e.Err)
}

func (e *MalformedOutlineError) Unwrap() error {
	return e.Err
}

// GenerationError aborts a run at one section.
type GenerationError struct {
	Section     int // zero-based section ordinal
	Fingerprint string
	Err         error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate section %d (%s): %v", e.Section, memo.ShortFingerprint(e.Fingerprint), e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Unusable reports whether the generator answered with nothing the engine could place.
func (e *GenerationError) Unusable() bool {
	return errors.Is(e.Err, ErrUnusableContent)
}
