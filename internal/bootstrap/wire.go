package bootstrap

import (
	"errors"
	"fmt"

	"keycap/internal/config"
	"keycap/internal/domain"
	"keycap/internal/keymap"
	"keycap/internal/keys"
	"keycap/internal/ports"
	"keycap/internal/providers/wsinput"
	"keycap/internal/store"
	"keycap/internal/usecase"
)

const (
	InputFrontend  = "frontend"
	InputWebsocket = "websocket"
)

// Services is the assembled runtime graph.
type Services struct {
	Recorder *usecase.Recorder
	Config   config.Config
	Input    string
	Remaps   int

	store *store.Store
}

// Close stops every capture and closes the binding store.
func (s Services) Close() error {
	if s.Recorder != nil {
		s.Recorder.Close()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Build wires all backend dependencies. frontendInput is used unless an
// input hook URL is configured.
func Build(eventSink ports.EventSink, frontendInput ports.InputSource) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	remapper, err := keymap.Load(cfg.Keymap.Path)
	if err != nil {
		return Services{}, err
	}

	input, inputName := frontendInput, InputFrontend
	if cfg.Input.WebsocketURL != "" {
		input = wsinput.NewSource(wsinput.Config{URL: cfg.Input.WebsocketURL})
		inputName = InputWebsocket
	}
	if input == nil {
		return Services{}, errors.New("no input source available")
	}

	bindings, err := store.Open(cfg.Store.Path, cfg.Capture.Defaults)
	if err != nil {
		return Services{}, fmt.Errorf("failed to open binding store: %w", err)
	}

	recorder := usecase.NewRecorder(
		domain.Slots(),
		input,
		bindings,
		eventSink,
		usecase.Config{
			Timeout:    cfg.Capture.Timeout,
			Normalizer: keys.NewNormalizer(remapper),
		},
	)

	return Services{
		Recorder: recorder,
		Config:   cfg,
		Input:    inputName,
		Remaps:   remapper.Len(),
		store:    bindings,
	}, nil
}
