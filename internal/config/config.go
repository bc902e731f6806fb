package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"keycap/internal/domain"
)

const (
	defaultCaptureTimeoutMS = 5000
	maxSettingsFileBytes    = 1 << 20
)

// Config stores runtime configuration.
type Config struct {
	SettingsPath string
	LogLevel     string
	Store        StoreConfig
	Capture      CaptureConfig
	Keymap       KeymapConfig
	Input        InputConfig
}

type StoreConfig struct {
	Path string
}

type CaptureConfig struct {
	Timeout  time.Duration
	Defaults map[domain.Slot]string
}

type KeymapConfig struct {
	Path string
}

type InputConfig struct {
	// WebsocketURL selects the external input hook. Empty means the
	// frontend window delivers input.
	WebsocketURL string
}

// settingsFile mirrors settings.yaml.
type settingsFile struct {
	DatabasePath     string            `yaml:"database_path"`
	CaptureTimeoutMS int               `yaml:"capture_timeout_ms"`
	RemapFile        string            `yaml:"remap_file"`
	InputWSURL       string            `yaml:"input_ws_url"`
	Defaults         map[string]string `yaml:"defaults"`
}

// DefaultBindings returns the built-in binding of every slot.
func DefaultBindings() map[domain.Slot]string {
	return map[domain.Slot]string{
		domain.SlotPushToTalk:          "win+ctrl",
		domain.SlotPasteLastTranscript: "ctrl+shift+v",
	}
}

// Load resolves configuration from environment variables, the optional
// settings file and built-in defaults, in that order of precedence.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	configDir := firstNonEmpty(os.Getenv("XDG_CONFIG_HOME"), filepath.Join(home, ".config"))
	dataDir := firstNonEmpty(os.Getenv("XDG_DATA_HOME"), filepath.Join(home, ".local", "share"))

	settingsPath := envOrDefault("KEYCAP_SETTINGS_FILE", filepath.Join(configDir, "keycap", "settings.yaml"))
	file, err := readSettings(settingsPath)
	if err != nil {
		return Config{}, err
	}

	defaultRemap := filepath.Join(configDir, "keycap", "keymap.rules")
	cfg := Config{
		SettingsPath: settingsPath,
		LogLevel:     strings.ToLower(envOrDefault("KEYCAP_LOG_LEVEL", "info")),
		Store: StoreConfig{
			Path: firstNonEmpty(
				os.Getenv("KEYCAP_DB_PATH"),
				file.DatabasePath,
				filepath.Join(dataDir, "keycap", "keycap.db"),
			),
		},
		Capture: CaptureConfig{
			Timeout:  time.Duration(envOrDefaultInt("KEYCAP_CAPTURE_TIMEOUT_MS", file.CaptureTimeoutMS)) * time.Millisecond,
			Defaults: DefaultBindings(),
		},
		Keymap: KeymapConfig{
			Path: firstNonEmpty(
				os.Getenv("KEYCAP_REMAP_FILE"),
				file.RemapFile,
				firstExisting(defaultRemap),
			),
		},
		Input: InputConfig{
			WebsocketURL: firstNonEmpty(os.Getenv("KEYCAP_INPUT_WS_URL"), file.InputWSURL),
		},
	}

	for name, binding := range file.Defaults {
		slot := domain.Slot(strings.TrimSpace(name))
		if _, ok := cfg.Capture.Defaults[slot]; !ok {
			slog.Warn("[config] ignoring default for unknown slot", "slot", name, "path", settingsPath)
			continue
		}
		if binding = strings.TrimSpace(binding); binding != "" {
			cfg.Capture.Defaults[slot] = binding
		}
	}
	for _, slot := range domain.Slots() {
		cfg.Capture.Defaults[slot] = envOrDefault(slotEnvKey(slot), cfg.Capture.Defaults[slot])
	}

	if cfg.Capture.Timeout <= 0 {
		cfg.Capture.Timeout = defaultCaptureTimeoutMS * time.Millisecond
	}

	return cfg, nil
}

// slotEnvKey maps "push-to-talk" to KEYCAP_DEFAULT_PUSH_TO_TALK.
func slotEnvKey(slot domain.Slot) string {
	return "KEYCAP_DEFAULT_" + strings.ToUpper(strings.ReplaceAll(string(slot), "-", "_"))
}

func readSettings(path string) (settingsFile, error) {
	var file settingsFile
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return file, nil
		}
		return file, err
	}
	if info.Size() > maxSettingsFileBytes {
		return file, fmt.Errorf("settings file %s is too large", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return file, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return file, nil
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return settingsFile{}, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return file, nil
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
