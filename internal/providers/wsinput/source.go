// Package wsinput receives raw keyboard and pointer input from a local hook
// process over a websocket.
package wsinput

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"keycap/internal/domain"
	"keycap/internal/ports"
)

const (
	defaultDialTimeout  = 3 * time.Second
	defaultWriteTimeout = time.Second
)

// Config controls the hook connection.
type Config struct {
	URL          string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// Source implements ports.InputSource. Each Capture opens its own connection.
type Source struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewSource(cfg Config) *Source {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	return &Source{cfg: cfg, dialer: websocket.DefaultDialer}
}

func (s *Source) Capture(handler ports.InputHandler) (ports.InputLease, error) {
	if handler == nil {
		return nil, errors.New("input handler is required")
	}
	wsURL, err := normalizeURL(s.cfg.URL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DialTimeout)
	defer cancel()
	conn, _, err := s.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to input hook: %w", err)
	}

	l := &lease{
		conn:         conn,
		handler:      handler,
		writeTimeout: s.cfg.WriteTimeout,
	}
	if err := l.write(controlFrame{Type: "grab"}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to grab input: %w", err)
	}

	go l.readLoop()
	return l, nil
}

type lease struct {
	conn         *websocket.Conn
	handler      ports.InputHandler
	writeTimeout time.Duration

	writeMu     sync.Mutex
	released    atomic.Bool
	releaseOnce sync.Once
}

// Release ungrabs and closes the connection. It does not wait for the read
// loop, which may be running the handler that triggered the release.
func (l *lease) Release() {
	l.releaseOnce.Do(func() {
		l.released.Store(true)
		if err := l.write(controlFrame{Type: "release"}); err != nil {
			slog.Debug("[wsinput] release frame not delivered", "error", err)
		}
		_ = l.conn.Close()
	})
}

func (l *lease) readLoop() {
	var seq int64
	for {
		_, payload, err := l.conn.ReadMessage()
		if err != nil {
			if !l.released.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("[wsinput] input hook connection lost", "error", err)
			}
			return
		}
		if l.released.Load() {
			return
		}

		var frame inputFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			slog.Debug("[wsinput] skipping malformed frame", "error", err)
			continue
		}
		event, ok := frame.event()
		if !ok {
			continue
		}

		seq++
		if frame.Seq > 0 {
			seq = frame.Seq
		}
		suppressed := l.handler(event)
		if l.released.Load() {
			// The handler may have ended the capture; the hook already got
			// the release frame.
			return
		}
		if err := l.write(ackFrame{Type: "ack", Seq: seq, Suppressed: suppressed}); err != nil {
			slog.Debug("[wsinput] ack not delivered", "seq", seq, "error", err)
		}
	}
}

func (l *lease) write(frame any) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := l.conn.SetWriteDeadline(time.Now().Add(l.writeTimeout)); err != nil {
		return err
	}
	return l.conn.WriteMessage(websocket.TextMessage, payload)
}

type controlFrame struct {
	Type string `json:"type"`
}

type ackFrame struct {
	Type       string `json:"type"`
	Seq        int64  `json:"seq"`
	Suppressed bool   `json:"suppressed"`
}

type inputFrame struct {
	Seq    int64  `json:"seq,omitempty"`
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Button int    `json:"button"`
}

func (f inputFrame) event() (domain.InputEvent, bool) {
	kind := domain.InputKind(strings.ToLower(strings.TrimSpace(f.Kind)))
	switch kind {
	case domain.InputKeyDown, domain.InputKeyUp:
		if f.Key == "" {
			return domain.InputEvent{}, false
		}
	case domain.InputPointerDown, domain.InputPointerUp:
	default:
		return domain.InputEvent{}, false
	}
	return domain.InputEvent{Kind: kind, Key: f.Key, Button: f.Button}, true
}

func normalizeURL(raw string) (string, error) {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "", errors.New("input hook URL is not configured")
	}
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid input hook URL: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", fmt.Errorf("invalid input hook URL scheme %q", parsed.Scheme)
	}
	return parsed.String(), nil
}
