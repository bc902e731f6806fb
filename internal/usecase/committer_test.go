package usecase

import (
	"context"
	"errors"
	"testing"

	"keycap/internal/domain"
)

func TestChordCommitterSkipsEmptyChord(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	events := &fakeEventSink{}
	committer := newChordCommitter(store, events)

	result, reason, err := committer.Commit(context.Background(), domain.SlotPushToTalk, "", domain.CommitTriggerRelease)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reason != domain.CaptureReasonEmptyChord || result.Persisted {
		t.Fatalf("unexpected result %+v reason %q", result, reason)
	}
	if store.sets() != 0 || len(events.snapshotBindings()) != 0 {
		t.Fatalf("empty chord must not reach the store")
	}
}

func TestChordCommitterReasonFollowsTrigger(t *testing.T) {
	t.Parallel()

	cases := []struct {
		trigger domain.CommitTrigger
		want    domain.CaptureReason
	}{
		{trigger: domain.CommitTriggerRelease, want: domain.CaptureReasonCommitted},
		{trigger: domain.CommitTriggerExplicit, want: domain.CaptureReasonCommitted},
		{trigger: domain.CommitTriggerTimeout, want: domain.CaptureReasonTimedOut},
	}
	for _, tc := range cases {
		store := newFakeStore()
		events := &fakeEventSink{}
		committer := newChordCommitter(store, events)

		result, reason, err := committer.Commit(context.Background(), domain.SlotPasteLastTranscript, "ctrl+v", tc.trigger)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.trigger, err)
		}
		if reason != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.trigger, tc.want, reason)
		}
		if !result.Persisted || result.Trigger != tc.trigger || result.Slot != domain.SlotPasteLastTranscript {
			t.Fatalf("%s: unexpected result %+v", tc.trigger, result)
		}
		if got, _ := store.value(domain.SlotPasteLastTranscript); got != "ctrl+v" {
			t.Fatalf("%s: unexpected stored value %q", tc.trigger, got)
		}
	}
}

func TestChordCommitterReportsStoreFailure(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("database is locked")
	store := newFakeStore()
	store.setErr = storeErr
	events := &fakeEventSink{}
	committer := newChordCommitter(store, events)

	result, reason, err := committer.Commit(context.Background(), domain.SlotPushToTalk, "alt+x", domain.CommitTriggerRelease)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if reason != domain.CaptureReasonCommitFailed || result.Persisted {
		t.Fatalf("unexpected result %+v reason %q", result, reason)
	}
	errs := events.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodePersist || errs[0].detail != storeErr.Error() {
		t.Fatalf("unexpected error events: %+v", errs)
	}
	if len(events.snapshotBindings()) != 0 {
		t.Fatalf("failed commit must not announce a binding change")
	}
}

func TestChordCommitterReportsCanonicalBinding(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	events := &fakeEventSink{}
	committer := newChordCommitter(store, events)

	result, _, err := committer.Commit(context.Background(), domain.SlotPushToTalk, "meta+control", domain.CommitTriggerRelease)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Binding != "win+ctrl" {
		t.Fatalf("expected canonical result binding, got %q", result.Binding)
	}
	if got, _ := store.value(domain.SlotPushToTalk); got != "win+ctrl" {
		t.Fatalf("unexpected stored value %q", got)
	}
	if got := events.snapshotBindings(); len(got) != 1 || got[0] != "win+ctrl" {
		t.Fatalf("unexpected binding events: %v", got)
	}
}
