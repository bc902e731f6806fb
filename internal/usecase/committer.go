package usecase

import (
	"context"
	"fmt"

	"keycap/internal/domain"
	"keycap/internal/keys"
	"keycap/internal/ports"
)

type chordCommitter struct {
	store  ports.BindingStore
	events ports.EventSink
}

func newChordCommitter(store ports.BindingStore, events ports.EventSink) chordCommitter {
	return chordCommitter{store: store, events: events}
}

// Commit persists a serialized chord in canonical form. The returned binding
// and the change event carry the same canonical value the store keeps. An
// empty chord is a no-op, never an error.
func (f chordCommitter) Commit(
	ctx context.Context,
	slot domain.Slot,
	binding string,
	trigger domain.CommitTrigger,
) (domain.CommitResult, domain.CaptureReason, error) {
	canonical, err := keys.Canonical(binding)
	if err != nil {
		return domain.CommitResult{Slot: slot, Trigger: trigger}, domain.CaptureReasonEmptyChord, nil
	}
	binding = canonical
	result := domain.CommitResult{Slot: slot, Binding: binding, Trigger: trigger}

	if err := f.store.Set(ctx, slot, binding); err != nil {
		f.events.CaptureError(slot, domain.ErrorCodePersist, err.Error())
		return result, domain.CaptureReasonCommitFailed, fmt.Errorf("failed to save %s binding: %w", slot, err)
	}

	result.Persisted = true
	f.events.BindingChanged(slot, binding)

	reason := domain.CaptureReasonCommitted
	if trigger == domain.CommitTriggerTimeout {
		reason = domain.CaptureReasonTimedOut
	}
	return result, reason, nil
}
