package ports

import (
	"context"
	"time"

	"keycap/internal/domain"
)

// BindingStore persists the canonical chord string of each slot.
type BindingStore interface {
	Get(ctx context.Context, slot domain.Slot) (string, error)
	Set(ctx context.Context, slot domain.Slot, binding string) error
	// Reset restores the slot default and returns it.
	Reset(ctx context.Context, slot domain.Slot) (string, error)
}

// InputHandler receives raw input while a lease is held. It reports whether
// the event was consumed, in which case the source must prevent its default
// action and stop its propagation.
type InputHandler func(event domain.InputEvent) (suppressed bool)

// InputLease is one atomic subscription to key-down, key-up, pointer-down and
// pointer-up. Release is idempotent and must not wait for in-flight handlers.
type InputLease interface {
	Release()
}

// InputSource delivers raw keyboard and pointer input. Handlers are invoked
// from the source's own goroutines, never from within Capture.
type InputSource interface {
	Capture(handler InputHandler) (InputLease, error)
}

// Timer is a cancellable deferred callback.
type Timer interface {
	Stop() bool
}

// Clock schedules the capture timeout.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// EventSink emits capture state and binding changes to the UI.
type EventSink interface {
	CaptureStateChanged(slot domain.Slot, state domain.CaptureState, reason domain.CaptureReason)
	ChordPreview(slot domain.Slot, preview string)
	BindingChanged(slot domain.Slot, binding string)
	CaptureError(slot domain.Slot, code domain.ErrorCode, detail string)
}
