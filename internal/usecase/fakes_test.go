package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"keycap/internal/domain"
	"keycap/internal/ports"
)

type fakeInputSource struct {
	mu      sync.Mutex
	err     error
	leases  []*fakeLease
	journal []string
}

type fakeLease struct {
	source   *fakeInputSource
	index    int
	handler  ports.InputHandler
	released bool
}

func (f *fakeInputSource) Capture(handler ports.InputHandler) (ports.InputLease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	lease := &fakeLease{source: f, index: len(f.leases) + 1, handler: handler}
	f.leases = append(f.leases, lease)
	f.journal = append(f.journal, fmt.Sprintf("capture:%d", lease.index))
	return lease, nil
}

func (l *fakeLease) Release() {
	l.source.mu.Lock()
	defer l.source.mu.Unlock()
	if l.released {
		return
	}
	l.released = true
	l.source.journal = append(l.source.journal, fmt.Sprintf("release:%d", l.index))
}

// deliver sends event to every unreleased lease and returns how many
// handlers suppressed it.
func (f *fakeInputSource) deliver(event domain.InputEvent) int {
	f.mu.Lock()
	var handlers []ports.InputHandler
	for _, lease := range f.leases {
		if !lease.released {
			handlers = append(handlers, lease.handler)
		}
	}
	f.mu.Unlock()

	suppressed := 0
	for _, handler := range handlers {
		if handler(event) {
			suppressed++
		}
	}
	return suppressed
}

func (f *fakeInputSource) keyDown(keys ...string) {
	for _, key := range keys {
		f.deliver(domain.InputEvent{Kind: domain.InputKeyDown, Key: key})
	}
}

func (f *fakeInputSource) keyUp(key string) int {
	return f.deliver(domain.InputEvent{Kind: domain.InputKeyUp, Key: key})
}

func (f *fakeInputSource) lease(index int) *fakeLease {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leases[index-1]
}

func (f *fakeInputSource) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, lease := range f.leases {
		if !lease.released {
			count++
		}
	}
	return count
}

func (f *fakeInputSource) snapshotJournal() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.journal))
	copy(out, f.journal)
	return out
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	due     time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) ports.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{clock: c, due: c.now.Add(d), f: f}
	c.timers = append(c.timers, timer)
	return timer
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

// Advance moves the clock forward and runs every due timer.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []func()
	for _, timer := range c.timers {
		if timer.stopped || timer.fired || timer.due.After(c.now) {
			continue
		}
		timer.fired = true
		due = append(due, timer.f)
	}
	c.mu.Unlock()

	for _, f := range due {
		f()
	}
}

// fireAll runs every timer callback, stopped or not, to simulate a stale
// callback racing with Stop.
func (c *fakeClock) fireAll() {
	c.mu.Lock()
	callbacks := make([]func(), 0, len(c.timers))
	for _, timer := range c.timers {
		callbacks = append(callbacks, timer.f)
	}
	c.mu.Unlock()

	for _, f := range callbacks {
		f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired {
			count++
		}
	}
	return count
}

type fakeStore struct {
	mu       sync.Mutex
	values   map[domain.Slot]string
	defaults map[domain.Slot]string
	setCalls int
	getErr   error
	setErr   error
	resetErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values: map[domain.Slot]string{},
		defaults: map[domain.Slot]string{
			domain.SlotPushToTalk:          "win+ctrl",
			domain.SlotPasteLastTranscript: "ctrl+shift+v",
		},
	}
}

func (f *fakeStore) Get(_ context.Context, slot domain.Slot) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	if value, ok := f.values[slot]; ok {
		return value, nil
	}
	value, ok := f.defaults[slot]
	if !ok {
		return "", errors.New("unknown slot")
	}
	return value, nil
}

func (f *fakeStore) Set(_ context.Context, slot domain.Slot, binding string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.values[slot] = binding
	return nil
}

func (f *fakeStore) Reset(_ context.Context, slot domain.Slot) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return "", f.resetErr
	}
	delete(f.values, slot)
	return f.defaults[slot], nil
}

func (f *fakeStore) value(slot domain.Slot) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[slot]
	return value, ok
}

func (f *fakeStore) sets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCalls
}

type fakeEventSink struct {
	mu sync.Mutex

	states   []stateEvent
	previews []string
	bindings []string
	errors   []errEvent
}

type stateEvent struct {
	slot   domain.Slot
	state  domain.CaptureState
	reason domain.CaptureReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) CaptureStateChanged(slot domain.Slot, state domain.CaptureState, reason domain.CaptureReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{slot: slot, state: state, reason: reason})
}

func (f *fakeEventSink) ChordPreview(_ domain.Slot, preview string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews = append(f.previews, preview)
}

func (f *fakeEventSink) BindingChanged(_ domain.Slot, binding string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings = append(f.bindings, binding)
}

func (f *fakeEventSink) CaptureError(_ domain.Slot, code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotPreviews() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.previews))
	copy(out, f.previews)
	return out
}

func (f *fakeEventSink) snapshotBindings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.bindings))
	copy(out, f.bindings)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) lastState() stateEvent {
	states := f.snapshotStates()
	if len(states) == 0 {
		return stateEvent{}
	}
	return states[len(states)-1]
}
