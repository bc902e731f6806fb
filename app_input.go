package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"keycap/internal/domain"
	"keycap/internal/ports"
)

// maxPendingFrames bounds the reorder buffer of a lease. A page that skips a
// sequence number would otherwise grow it until the session times out.
const maxPendingFrames = 256

// frontendInput receives raw input forwarded by the webview. While a lease is
// held the page listens in the capture phase and suppresses every event.
//
// Runtime listeners run on their own goroutine per event, so arrival order at
// dispatch is not the order the page saw. Each grab carries a lease id and the
// page numbers its frames from 1 within that lease; the lease delivers them
// strictly in that order.
type frontendInput struct {
	ctx  context.Context
	on   onFunc
	emit emitFunc

	leases atomic.Int64
}

func newFrontendInput(ctx context.Context, on onFunc, emit emitFunc) *frontendInput {
	return &frontendInput{ctx: ctx, on: on, emit: emit}
}

func (f *frontendInput) Capture(handler ports.InputHandler) (ports.InputLease, error) {
	if f.ctx == nil || f.on == nil || f.emit == nil {
		return nil, errors.New("frontend runtime is not available")
	}

	lease := &frontendLease{
		id:      f.leases.Add(1),
		input:   f,
		handler: handler,
		next:    1,
		pending: map[int64]domain.InputEvent{},
	}
	lease.cancel = f.on(f.ctx, eventInput, lease.dispatch)
	f.emit(f.ctx, eventGrab, map[string]any{"active": true, "lease": lease.id})
	return lease, nil
}

type frontendLease struct {
	id      int64
	input   *frontendInput
	handler ports.InputHandler
	cancel  func()

	released    atomic.Bool
	releaseOnce sync.Once

	// deliverMu is held while the handler runs. Release never takes it, so a
	// handler may end its own session.
	deliverMu sync.Mutex
	next      int64
	pending   map[int64]domain.InputEvent
}

func (l *frontendLease) Release() {
	l.releaseOnce.Do(func() {
		l.released.Store(true)
		if l.cancel != nil {
			l.cancel()
		}
		l.input.emit(l.input.ctx, eventGrab, map[string]any{"active": false, "lease": l.id})
	})
}

func (l *frontendLease) dispatch(data ...interface{}) {
	if l.released.Load() || len(data) == 0 {
		return
	}
	frame, err := decodeInputFrame(data[0])
	if err != nil {
		slog.Debug("[app] dropping malformed input event", "error", err)
		return
	}
	if frame.Lease != l.id {
		slog.Debug("[app] dropping input event from another grab", "lease", frame.Lease, "current", l.id)
		return
	}

	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()

	if frame.Seq < l.next {
		slog.Debug("[app] dropping duplicate input event", "seq", frame.Seq)
		return
	}
	if len(l.pending) >= maxPendingFrames {
		slog.Warn("[app] input reorder buffer full; dropping event", "seq", frame.Seq, "waiting_for", l.next)
		return
	}
	l.pending[frame.Seq] = frame.Event

	for !l.released.Load() {
		event, ok := l.pending[l.next]
		if !ok {
			return
		}
		delete(l.pending, l.next)
		l.next++
		l.handler(event)
	}
}

type inputFrame struct {
	Lease int64
	Seq   int64
	Event domain.InputEvent
}

type inputPayload struct {
	Lease  int64            `json:"lease"`
	Seq    int64            `json:"seq"`
	Kind   domain.InputKind `json:"kind"`
	Key    string           `json:"key"`
	Button int              `json:"button"`
}

func decodeInputFrame(payload interface{}) (inputFrame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return inputFrame{}, err
	}
	var in inputPayload
	if err := json.Unmarshal(raw, &in); err != nil {
		return inputFrame{}, err
	}
	if in.Seq < 1 {
		return inputFrame{}, errors.New("input event without sequence number")
	}
	switch in.Kind {
	case domain.InputKeyDown, domain.InputKeyUp:
		if in.Key == "" {
			return inputFrame{}, errors.New("key event without key")
		}
	case domain.InputPointerDown, domain.InputPointerUp:
	default:
		return inputFrame{}, errors.New("unknown input kind")
	}
	return inputFrame{
		Lease: in.Lease,
		Seq:   in.Seq,
		Event: domain.InputEvent{Kind: in.Kind, Key: in.Key, Button: in.Button},
	}, nil
}
