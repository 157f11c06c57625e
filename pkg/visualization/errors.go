package visualization

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownVariant is returned by Start for a variant without a shader
	// directory under the root path.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrAlreadyActive is returned by Start while a run is still active or
	// tearing down.
	ErrAlreadyActive = errors.New("visualization already active")

	// ErrNoRootPath is returned by Start before SetRootPath was called.
	ErrNoRootPath = errors.New("root path not set")

	// ErrInvalidSettings is returned by Start for a non-positive rate or
	// measurement window, or a negative particle count.
	ErrInvalidSettings = errors.New("invalid run settings")
)

// FrameLengthError is returned by SetParametersSlice when the spectrum does
// not hold exactly Bars values.
type FrameLengthError struct {
	Got int
}

func (e *FrameLengthError) Error() string {
	return fmt.Sprintf("spectrum frame has %d values, want %d", e.Got, Bars)
}
