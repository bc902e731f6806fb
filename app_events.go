package main

import (
	"keycap/internal/domain"
	"keycap/internal/keys"
)

const (
	eventState   = "keycap:state"
	eventPreview = "keycap:preview"
	eventBinding = "keycap:binding"
	eventError   = "keycap:error"
	eventGrab    = "keycap:grab"
	eventInput   = "keycap:input"
)

// CaptureStateChanged emits capture lifecycle updates to the frontend.
func (a *App) CaptureStateChanged(slot domain.Slot, state domain.CaptureState, reason domain.CaptureReason) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, eventState, map[string]string{
		"slot":    string(slot),
		"state":   string(state),
		"reason":  string(reason),
		"message": reasonMessage(reason),
	})
}

// ChordPreview emits the chord held so far.
func (a *App) ChordPreview(slot domain.Slot, preview string) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, eventPreview, map[string]any{
		"slot":    string(slot),
		"preview": preview,
		"tokens":  keys.SplitBinding(preview),
	})
}

// BindingChanged emits a saved binding.
func (a *App) BindingChanged(slot domain.Slot, binding string) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, eventBinding, map[string]any{
		"slot":    string(slot),
		"binding": binding,
		"tokens":  keys.SplitBinding(binding),
	})
}

// CaptureError emits backend errors to the UI.
func (a *App) CaptureError(slot domain.Slot, code domain.ErrorCode, detail string) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, eventError, map[string]string{
		"slot":    string(slot),
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func reasonMessage(reason domain.CaptureReason) string {
	switch reason {
	case domain.CaptureReasonReady:
		return "Click to record a shortcut"
	case domain.CaptureReasonStarted:
		return "Press the keys you want to use"
	case domain.CaptureReasonRestarted:
		return "Recording restarted; previous keys discarded"
	case domain.CaptureReasonCommitting:
		return "Saving shortcut..."
	case domain.CaptureReasonCommitted:
		return "Shortcut saved"
	case domain.CaptureReasonTimedOut:
		return "Recording timed out; shortcut saved"
	case domain.CaptureReasonEmptyChord:
		return "No keys pressed"
	case domain.CaptureReasonCancelled:
		return "Recording cancelled"
	case domain.CaptureReasonCommitFailed:
		return "Shortcut could not be saved"
	case domain.CaptureReasonBindingReset:
		return "Shortcut reset to default"
	case domain.CaptureReasonSlotSwitched:
		return "Recording moved to another shortcut"
	case domain.CaptureReasonControllerDown:
		return "Recording stopped"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePersist:
		return "Failed to save shortcut"
	case domain.ErrorCodeInput:
		return "Keyboard capture unavailable"
	case domain.ErrorCodeInvalidBinding:
		return "Invalid shortcut"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
