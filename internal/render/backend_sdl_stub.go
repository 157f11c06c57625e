//go:build !sdl

package render

// NewSDL reports that the SDL backend is not compiled in.
func NewSDL(SDLOptions) (Backend, error) {
	return nil, ErrBackendUnavailable
}

// SDLFactory returns a Factory that always fails with ErrBackendUnavailable.
func SDLFactory(opts SDLOptions) Factory {
	return func() (Backend, error) {
		return NewSDL(opts)
	}
}

// SupportsSDL reports whether the SDL backend is compiled in.
func SupportsSDL() bool { return false }
