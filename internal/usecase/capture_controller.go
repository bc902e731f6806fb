package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"keycap/internal/domain"
	"keycap/internal/keys"
	"keycap/internal/ports"
)

var (
	ErrNoActiveSession  = errors.New("no active capture session")
	ErrControllerClosed = errors.New("capture controller is closed")
)

// DefaultCaptureTimeout bounds a capture session that never sees a
// terminating event.
const DefaultCaptureTimeout = 5 * time.Second

// Config controls capture behavior.
type Config struct {
	Timeout    time.Duration
	Clock      ports.Clock
	Normalizer keys.Normalizer
}

// CaptureController records a chord for one binding slot. All transitions run
// under one mutex, so input callbacks, timer callbacks and UI calls are
// serialized.
type CaptureController struct {
	slot       domain.Slot
	input      ports.InputSource
	store      ports.BindingStore
	events     ports.EventSink
	committer  chordCommitter
	normalizer keys.Normalizer
	clock      ports.Clock
	timeout    time.Duration

	mu      sync.Mutex
	ctx     context.Context
	current *captureSession
	binding string
	closed  bool
}

func NewCaptureController(
	slot domain.Slot,
	input ports.InputSource,
	store ports.BindingStore,
	events ports.EventSink,
	cfg Config,
) *CaptureController {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCaptureTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	return &CaptureController{
		slot:       slot,
		input:      input,
		store:      store,
		events:     events,
		committer:  newChordCommitter(store, events),
		normalizer: cfg.Normalizer,
		clock:      cfg.Clock,
		timeout:    cfg.Timeout,
		ctx:        context.Background(),
	}
}

// Slot returns the binding slot this controller records.
func (c *CaptureController) Slot() domain.Slot {
	return c.slot
}

// Toggle starts a capture when idle and cancels it when listening.
func (c *CaptureController) Toggle(ctx context.Context) (domain.Status, error) {
	return c.toggle(ctx, nil)
}

// toggle runs beforeStart under the controller lock when the toggle decides
// to start, so the decision and its side effects see the same state.
func (c *CaptureController) toggle(ctx context.Context, beforeStart func()) (domain.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.cancelLocked(c.current, domain.CaptureReasonCancelled)
		return c.statusLocked(), nil
	}
	if beforeStart != nil && !c.closed {
		beforeStart()
	}
	err := c.startLocked(ctx)
	return c.statusLocked(), err
}

// Start begins a new capture session, terminating an active one first.
func (c *CaptureController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(ctx)
}

// Cancel discards the active session without persisting it.
func (c *CaptureController) Cancel() error {
	return c.CancelWithReason(domain.CaptureReasonCancelled)
}

// CancelWithReason discards the active session and reports reason.
func (c *CaptureController) CancelWithReason(reason domain.CaptureReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNoActiveSession
	}
	c.cancelLocked(c.current, reason)
	return nil
}

// Commit finishes the active session and persists its chord.
func (c *CaptureController) Commit(ctx context.Context) (domain.CommitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return domain.CommitResult{}, ErrNoActiveSession
	}
	return c.commitLocked(ctx, c.current, domain.CommitTriggerExplicit)
}

// Reset cancels an active session and restores the slot default.
func (c *CaptureController) Reset(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.cancelLocked(c.current, domain.CaptureReasonCancelled)
	}

	binding, err := c.store.Reset(ctx, c.slot)
	if err != nil {
		c.events.CaptureError(c.slot, domain.ErrorCodePersist, err.Error())
		return "", fmt.Errorf("failed to reset %s binding: %w", c.slot, err)
	}

	c.binding = binding
	c.events.BindingChanged(c.slot, binding)
	c.events.CaptureStateChanged(c.slot, domain.CaptureStateIdle, domain.CaptureReasonBindingReset)
	slog.Info("[capture] binding reset to default", "slot", c.slot, "binding", binding)
	return binding, nil
}

// Binding returns the stored binding and refreshes the idle display value.
func (c *CaptureController) Binding(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	binding, err := c.store.Get(ctx, c.slot)
	if err != nil {
		return "", err
	}
	c.binding = binding
	return binding, nil
}

// SetBinding stores a binding typed or imported outside of a capture session
// and returns its canonical form.
func (c *CaptureController) SetBinding(ctx context.Context, binding string) (string, error) {
	canonical, err := keys.Canonical(binding)
	if err != nil {
		return "", fmt.Errorf("invalid %s binding %q: %w", c.slot, binding, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.cancelLocked(c.current, domain.CaptureReasonCancelled)
	}
	if err := c.store.Set(ctx, c.slot, canonical); err != nil {
		c.events.CaptureError(c.slot, domain.ErrorCodePersist, err.Error())
		return "", fmt.Errorf("failed to save %s binding: %w", c.slot, err)
	}
	c.binding = canonical
	c.events.BindingChanged(c.slot, canonical)
	return canonical, nil
}

// Status returns the current capture status.
func (c *CaptureController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Close cancels an active session. Later starts fail with ErrControllerClosed.
func (c *CaptureController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.cancelLocked(c.current, domain.CaptureReasonControllerDown)
	}
	c.closed = true
}

func (c *CaptureController) startLocked(ctx context.Context) error {
	if c.closed {
		return ErrControllerClosed
	}

	reason := domain.CaptureReasonStarted
	previous := c.current
	if previous != nil {
		// The previous lease is released before the new one is acquired.
		c.discardLocked(previous)
		reason = domain.CaptureReasonRestarted
	}

	if stored, err := c.store.Get(ctx, c.slot); err != nil {
		slog.Warn("[capture] failed to read stored binding", "slot", c.slot, "error", err)
	} else {
		c.binding = stored
	}

	session := &captureSession{
		id:        uuid.NewString(),
		state:     domain.CaptureStateListening,
		chord:     keys.NewChord(),
		startedAt: c.clock.Now(),
		previous:  c.binding,
	}
	id := session.id

	lease, err := c.input.Capture(func(event domain.InputEvent) bool {
		return c.handleInput(id, event)
	})
	if err != nil {
		c.events.CaptureError(c.slot, domain.ErrorCodeInput, err.Error())
		if previous != nil {
			// The discarded session is gone; report idle instead of listening.
			c.events.CaptureStateChanged(c.slot, domain.CaptureStateIdle, domain.CaptureReasonCancelled)
		}
		return fmt.Errorf("failed to capture input: %w", err)
	}
	session.lease = lease
	session.timer = c.clock.AfterFunc(c.timeout, func() {
		c.handleTimeout(id)
	})

	c.ctx = context.WithoutCancel(ctx)
	c.current = session
	c.events.CaptureStateChanged(c.slot, domain.CaptureStateListening, reason)
	slog.Debug("[capture] listening", "slot", c.slot, "session", id, "timeout", c.timeout)
	return nil
}

func (c *CaptureController) handleInput(id string, event domain.InputEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.current
	if session == nil || session.id != id || session.state != domain.CaptureStateListening {
		return false
	}

	switch event.Kind {
	case domain.InputKeyDown:
		c.addLocked(session, c.normalizer.Key(event.Key))
	case domain.InputPointerDown:
		if event.Button == keys.ButtonPrimary {
			c.cancelLocked(session, domain.CaptureReasonCancelled)
			return true
		}
		if token, ok := c.normalizer.Button(event.Button); ok {
			c.addLocked(session, token)
		}
	case domain.InputKeyUp, domain.InputPointerUp:
		if _, err := c.commitLocked(c.ctx, session, domain.CommitTriggerRelease); err != nil {
			slog.Warn("[capture] commit failed", "slot", c.slot, "error", err)
		}
	default:
		return false
	}
	return true
}

func (c *CaptureController) handleTimeout(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.current
	if session == nil || session.id != id || session.state != domain.CaptureStateListening {
		return
	}
	if _, err := c.commitLocked(c.ctx, session, domain.CommitTriggerTimeout); err != nil {
		slog.Warn("[capture] timeout commit failed", "slot", c.slot, "error", err)
	}
}

func (c *CaptureController) addLocked(session *captureSession, token string) {
	if !session.chord.Add(token) {
		return
	}
	c.events.ChordPreview(c.slot, session.chord.String())
}

func (c *CaptureController) commitLocked(
	ctx context.Context,
	session *captureSession,
	trigger domain.CommitTrigger,
) (domain.CommitResult, error) {
	session.state = domain.CaptureStateCommitting
	c.events.CaptureStateChanged(c.slot, domain.CaptureStateCommitting, domain.CaptureReasonCommitting)

	binding := session.chord.String()
	c.discardLocked(session)

	result, reason, err := c.committer.Commit(ctx, c.slot, binding, trigger)
	if result.Persisted {
		c.binding = result.Binding
	}
	c.events.CaptureStateChanged(c.slot, domain.CaptureStateIdle, reason)
	slog.Debug("[capture] committed",
		"slot", c.slot,
		"session", session.id,
		"binding", result.Binding,
		"trigger", trigger,
		"reason", reason,
		"held", c.clock.Now().Sub(session.startedAt),
	)
	return result, err
}

func (c *CaptureController) cancelLocked(session *captureSession, reason domain.CaptureReason) {
	c.discardLocked(session)
	c.binding = session.previous
	c.events.CaptureStateChanged(c.slot, domain.CaptureStateIdle, reason)
	slog.Debug("[capture] cancelled", "slot", c.slot, "session", session.id, "reason", reason)
}

func (c *CaptureController) discardLocked(session *captureSession) {
	session.release()
	session.chord.Clear()
	if c.current == session {
		c.current = nil
	}
}

func (c *CaptureController) statusLocked() domain.Status {
	status := domain.Status{
		Slot:    c.slot,
		State:   domain.CaptureStateIdle,
		Binding: c.binding,
	}
	if c.current != nil {
		status.State = c.current.state
		status.Active = true
		status.Preview = c.current.chord.String()
	}
	return status
}
