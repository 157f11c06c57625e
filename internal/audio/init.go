package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	sessionMu    sync.Mutex
	sessionUsers int
)

// Acquire initializes PortAudio on first use and returns the matching
// release. Every successful Acquire must be balanced by one release.
func Acquire() (release func(), err error) {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if sessionUsers == 0 {
		if err := portaudio.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize portaudio: %w", err)
		}
	}
	sessionUsers++

	var once sync.Once
	return func() {
		once.Do(releaseSession)
	}, nil
}

func releaseSession() {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	sessionUsers--
	if sessionUsers == 0 {
		_ = portaudio.Terminate()
	}
}
