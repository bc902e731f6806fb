package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"keycap/internal/bootstrap"
	"keycap/internal/domain"
	"keycap/internal/keys"
	"keycap/internal/usecase"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	recorder *usecase.Recorder
	services bootstrap.Services
	bootErr  error

	emit emitFunc
	on   onFunc
}

type emitFunc func(ctx context.Context, name string, data ...interface{})

type onFunc func(ctx context.Context, name string, callback func(data ...interface{})) func()

func NewApp() *App {
	return &App{emit: runtime.EventsEmit, on: runtime.EventsOn}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, newFrontendInput(ctx, a.on, a.emit))
	if err != nil {
		a.bootErr = err
		a.CaptureError("", domain.ErrorCodeStartup, err.Error())
		slog.Error("[app] startup failed", "error", err)
		return
	}

	a.services = services
	a.recorder = services.Recorder
	for _, slot := range domain.Slots() {
		if binding, err := a.recorder.Binding(ctx, slot); err == nil {
			a.BindingChanged(slot, binding)
		}
		a.CaptureStateChanged(slot, domain.CaptureStateIdle, domain.CaptureReasonReady)
	}
	slog.Info("[app] ready", "input", services.Input, "remaps", services.Remaps, "database", services.Config.Store.Path)
}

func (a *App) shutdown(_ context.Context) {
	if err := a.services.Close(); err != nil {
		slog.Warn("[app] failed to close services", "error", err)
	}
}

// ToggleCapture starts recording a chord for slot, or cancels it when
// already recording.
func (a *App) ToggleCapture(slot string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	return a.recorder.Toggle(a.ctx, domain.Slot(slot))
}

// CancelCapture discards an in-progress capture.
func (a *App) CancelCapture(slot string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.recorder.Cancel(domain.Slot(slot)); err != nil {
		if errors.Is(err, usecase.ErrNoActiveSession) {
			return nil
		}
		return err
	}
	return nil
}

// CommitCapture saves the chord held so far.
func (a *App) CommitCapture(slot string) (domain.CommitResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.CommitResult{}, err
	}
	return a.recorder.Commit(a.ctx, domain.Slot(slot))
}

// ResetBinding restores the default binding of slot.
func (a *App) ResetBinding(slot string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.recorder.Reset(a.ctx, domain.Slot(slot))
}

// GetBinding returns the saved binding of slot.
func (a *App) GetBinding(slot string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.recorder.Binding(a.ctx, domain.Slot(slot))
}

// SetBinding saves a typed binding and returns its canonical form.
func (a *App) SetBinding(slot string, binding string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	canonical, err := a.recorder.SetBinding(a.ctx, domain.Slot(slot), binding)
	if errors.Is(err, keys.ErrEmptyChord) {
		a.CaptureError(domain.Slot(slot), domain.ErrorCodeInvalidBinding, err.Error())
	}
	return canonical, err
}

// GetStatus returns the capture status of slot.
func (a *App) GetStatus(slot string) domain.Status {
	if a.recorder == nil {
		return a.unavailableStatus(domain.Slot(slot))
	}
	status, err := a.recorder.Status(domain.Slot(slot))
	if err != nil {
		return domain.Status{Slot: domain.Slot(slot), State: domain.CaptureStateIdle, Message: err.Error()}
	}
	status.Message = reasonMessage(domain.CaptureReasonReady)
	if status.Active {
		status.Message = reasonMessage(domain.CaptureReasonStarted)
	}
	return status
}

// GetStatuses returns the status of every slot.
func (a *App) GetStatuses() []domain.Status {
	if a.recorder == nil {
		out := make([]domain.Status, 0, len(domain.Slots()))
		for _, slot := range domain.Slots() {
			out = append(out, a.unavailableStatus(slot))
		}
		return out
	}
	return a.recorder.Statuses()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	cfg := a.services.Config
	return map[string]string{
		"input":          a.services.Input,
		"inputHook":      cfg.Input.WebsocketURL,
		"database":       cfg.Store.Path,
		"settingsFile":   cfg.SettingsPath,
		"remapFile":      cfg.Keymap.Path,
		"remapRules":     strconv.Itoa(a.services.Remaps),
		"captureTimeout": cfg.Capture.Timeout.String(),
		"logLevel":       cfg.LogLevel,
	}
}

func (a *App) unavailableStatus(slot domain.Slot) domain.Status {
	status := domain.Status{Slot: slot, State: domain.CaptureStateIdle}
	if a.bootErr != nil {
		status.Message = a.bootErr.Error()
	}
	return status
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.recorder == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}
