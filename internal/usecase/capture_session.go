package usecase

import (
	"sync"
	"time"

	"keycap/internal/domain"
	"keycap/internal/keys"
	"keycap/internal/ports"
)

type captureSession struct {
	id        string
	state     domain.CaptureState
	chord     *keys.Chord
	startedAt time.Time

	// previous is the stored binding shown before capture started.
	previous string

	lease ports.InputLease
	timer ports.Timer

	releaseOnce sync.Once
}

// release drops the input lease and the pending timeout. Safe to call more
// than once.
func (s *captureSession) release() {
	s.releaseOnce.Do(func() {
		if s.timer != nil {
			s.timer.Stop()
		}
		if s.lease != nil {
			s.lease.Release()
		}
	})
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}
