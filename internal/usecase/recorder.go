package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"keycap/internal/domain"
	"keycap/internal/ports"
)

var ErrUnknownSlot = errors.New("unknown binding slot")

// Recorder holds one CaptureController per slot and keeps at most one of
// them listening.
type Recorder struct {
	slots       []domain.Slot
	controllers map[domain.Slot]*CaptureController

	// toggleMu serializes toggles. A toggle holds its own controller lock
	// while taking the others, and only toggles nest controller locks.
	toggleMu sync.Mutex
}

func NewRecorder(
	slots []domain.Slot,
	input ports.InputSource,
	store ports.BindingStore,
	events ports.EventSink,
	cfg Config,
) *Recorder {
	r := &Recorder{
		slots:       append([]domain.Slot(nil), slots...),
		controllers: make(map[domain.Slot]*CaptureController, len(slots)),
	}
	for _, slot := range slots {
		r.controllers[slot] = NewCaptureController(slot, input, store, events, cfg)
	}
	return r
}

// Toggle starts or cancels the capture of slot. Other slots are cancelled
// before a new capture starts.
func (r *Recorder) Toggle(ctx context.Context, slot domain.Slot) (domain.Status, error) {
	controller, err := r.controller(slot)
	if err != nil {
		return domain.Status{}, err
	}

	r.toggleMu.Lock()
	defer r.toggleMu.Unlock()
	return controller.toggle(ctx, func() { r.cancelOthers(slot) })
}

// Cancel discards the active capture of slot.
func (r *Recorder) Cancel(slot domain.Slot) error {
	controller, err := r.controller(slot)
	if err != nil {
		return err
	}
	return controller.Cancel()
}

// Commit finishes the active capture of slot.
func (r *Recorder) Commit(ctx context.Context, slot domain.Slot) (domain.CommitResult, error) {
	controller, err := r.controller(slot)
	if err != nil {
		return domain.CommitResult{}, err
	}
	return controller.Commit(ctx)
}

// Reset restores the default binding of slot.
func (r *Recorder) Reset(ctx context.Context, slot domain.Slot) (string, error) {
	controller, err := r.controller(slot)
	if err != nil {
		return "", err
	}
	return controller.Reset(ctx)
}

// Binding returns the stored binding of slot.
func (r *Recorder) Binding(ctx context.Context, slot domain.Slot) (string, error) {
	controller, err := r.controller(slot)
	if err != nil {
		return "", err
	}
	return controller.Binding(ctx)
}

// SetBinding stores binding for slot and returns its canonical form.
func (r *Recorder) SetBinding(ctx context.Context, slot domain.Slot, binding string) (string, error) {
	controller, err := r.controller(slot)
	if err != nil {
		return "", err
	}
	return controller.SetBinding(ctx, binding)
}

// Status returns the capture status of slot.
func (r *Recorder) Status(slot domain.Slot) (domain.Status, error) {
	controller, err := r.controller(slot)
	if err != nil {
		return domain.Status{}, err
	}
	return controller.Status(), nil
}

// Statuses returns the status of every slot in registration order.
func (r *Recorder) Statuses() []domain.Status {
	out := make([]domain.Status, 0, len(r.slots))
	for _, slot := range r.slots {
		out = append(out, r.controllers[slot].Status())
	}
	return out
}

// Close cancels every active capture.
func (r *Recorder) Close() {
	for _, slot := range r.slots {
		r.controllers[slot].Close()
	}
}

func (r *Recorder) controller(slot domain.Slot) (*CaptureController, error) {
	controller, ok := r.controllers[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSlot, slot)
	}
	return controller, nil
}

func (r *Recorder) cancelOthers(slot domain.Slot) {
	for _, other := range r.slots {
		if other == slot {
			continue
		}
		if err := r.controllers[other].CancelWithReason(domain.CaptureReasonSlotSwitched); err == nil {
			slog.Debug("[capture] cancelled capture on other slot", "slot", other, "next", slot)
		}
	}
}
