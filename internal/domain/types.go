package domain

// Slot names a configurable shortcut binding.
type Slot string

const (
	SlotPushToTalk          Slot = "push-to-talk"
	SlotPasteLastTranscript Slot = "paste-last-transcript"
)

// Slots lists every known binding slot in display order.
func Slots() []Slot {
	return []Slot{SlotPushToTalk, SlotPasteLastTranscript}
}

// CaptureState models the shortcut capture lifecycle.
type CaptureState string

const (
	CaptureStateIdle       CaptureState = "idle"
	CaptureStateListening  CaptureState = "listening"
	CaptureStateCommitting CaptureState = "committing"
)

// CaptureReason provides a structured reason for state transitions.
type CaptureReason string

const (
	CaptureReasonReady          CaptureReason = "ready"
	CaptureReasonStarted        CaptureReason = "capture_started"
	CaptureReasonRestarted      CaptureReason = "capture_restarted"
	CaptureReasonCommitting     CaptureReason = "committing"
	CaptureReasonCommitted      CaptureReason = "chord_committed"
	CaptureReasonTimedOut       CaptureReason = "capture_timed_out"
	CaptureReasonEmptyChord     CaptureReason = "chord_empty"
	CaptureReasonCancelled      CaptureReason = "capture_cancelled"
	CaptureReasonCommitFailed   CaptureReason = "commit_failed"
	CaptureReasonBindingReset   CaptureReason = "binding_reset"
	CaptureReasonSlotSwitched   CaptureReason = "slot_switched"
	CaptureReasonControllerDown CaptureReason = "controller_closed"
)

// ErrorCode identifies backend errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup        ErrorCode = "startup"
	ErrorCodePersist        ErrorCode = "persist"
	ErrorCodeInput          ErrorCode = "input"
	ErrorCodeInvalidBinding ErrorCode = "invalid_binding"
)

// InputKind identifies one of the four raw input streams.
type InputKind string

const (
	InputKeyDown     InputKind = "key_down"
	InputKeyUp       InputKind = "key_up"
	InputPointerDown InputKind = "pointer_down"
	InputPointerUp   InputKind = "pointer_up"
)

// InputEvent is one raw press or release delivered by an input source.
// Key carries the raw key identifier for keyboard events, Button the
// standard five-button index for pointer events.
type InputEvent struct {
	Kind   InputKind `json:"kind"`
	Key    string    `json:"key,omitempty"`
	Button int       `json:"button"`
}

// CommitTrigger records what ended a committed capture.
type CommitTrigger string

const (
	CommitTriggerRelease  CommitTrigger = "release"
	CommitTriggerTimeout  CommitTrigger = "timeout"
	CommitTriggerExplicit CommitTrigger = "explicit"
)

// CommitResult is returned once a capture session has been committed.
type CommitResult struct {
	Slot      Slot          `json:"slot"`
	Binding   string        `json:"binding"`
	Persisted bool          `json:"persisted"`
	Trigger   CommitTrigger `json:"trigger"`
}

// Status summarizes the current capture status of one slot.
type Status struct {
	Slot    Slot         `json:"slot"`
	State   CaptureState `json:"state"`
	Active  bool         `json:"active"`
	Binding string       `json:"binding"`
	Preview string       `json:"preview,omitempty"`
	Message string       `json:"message,omitempty"`
}
