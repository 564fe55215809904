// Package config loads winkmouse settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the full winkmouse configuration. Pointer fields distinguish an
// explicit false or zero from an unset key.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Blink    BlinkConfig    `yaml:"blink"`
	Detector DetectorConfig `yaml:"detector"`
	Input    InputConfig    `yaml:"input"`
	Display  DisplayConfig  `yaml:"display"`
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Actions  ActionsConfig  `yaml:"actions"`
	Tray     bool           `yaml:"tray"`
	Log      LogConfig      `yaml:"log"`
}

// CameraConfig selects the frame source: a camera device or, when Video is
// set, a recorded file.
type CameraConfig struct {
	Device int    `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
	Mirror *bool  `yaml:"mirror"`
	Video  string `yaml:"video"`
	Loop   bool   `yaml:"loop"`
}

// BlinkConfig tunes the debounce policy. Threshold is the eyelid gap in
// pixels below which an eye counts as closed. A cooldown of zero is kept.
type BlinkConfig struct {
	Threshold float64        `yaml:"threshold"`
	Cooldown  *time.Duration `yaml:"cooldown"`
}

// DetectorConfig configures the face mesh service.
type DetectorConfig struct {
	Python                string        `yaml:"python"`
	Script                string        `yaml:"script"`
	MaxFaces              int           `yaml:"max_faces"`
	MinConfidence         float64       `yaml:"min_confidence"`
	MinTrackingConfidence float64       `yaml:"min_tracking_confidence"`
	RefineLandmarks       *bool         `yaml:"refine_landmarks"`
	IdleTimeout           time.Duration `yaml:"idle_timeout"`
}

// InputConfig controls click injection. DryRun logs clicks instead of
// performing them; Sound plays a tone per click.
type InputConfig struct {
	DryRun bool `yaml:"dry_run"`
	Sound  bool `yaml:"sound"`
}

// DisplayConfig controls the preview window.
type DisplayConfig struct {
	Window *bool  `yaml:"window"`
	Title  string `yaml:"title"`
}

// ServerConfig enables the dashboard when Addr is set.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig locates the click history database.
type StoreConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ActionsConfig binds click sides to plugin actions run on each click.
type ActionsConfig struct {
	Dir     string         `yaml:"dir"`
	Timeout time.Duration  `yaml:"timeout"`
	Left    *ActionBinding `yaml:"left"`
	Right   *ActionBinding `yaml:"right"`
	// Replace skips the mouse click for sides that have an action.
	Replace bool `yaml:"replace"`
}

// ActionBinding names the plugin action run for one side. Params is passed
// to the plugin as JSON.
type ActionBinding struct {
	Plugin string         `yaml:"plugin"`
	Action string         `yaml:"action"`
	Params map[string]any `yaml:"params"`
}

// LogConfig sets the zerolog level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultDir is where winkmouse keeps its config and history database.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".winkmouse"
	}
	return filepath.Join(home, ".winkmouse")
}

// DefaultPath is the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML file at path, expanding environment variables first.
// A missing file at the default path yields the defaults; any other missing
// file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath() {
			return Default(), nil
		}
		return nil, err
	}

	return Parse(data)
}

// Parse decodes YAML config bytes and fills defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func boolPtr(v bool) *bool { return &v }

func durationPtr(v time.Duration) *time.Duration { return &v }

func (c *Config) applyDefaults() {
	if c.Camera.Width == 0 {
		c.Camera.Width = 640
	}
	if c.Camera.Height == 0 {
		c.Camera.Height = 480
	}
	if c.Camera.FPS == 0 {
		c.Camera.FPS = 30
	}
	if c.Camera.Mirror == nil {
		c.Camera.Mirror = boolPtr(true)
	}

	if c.Blink.Threshold == 0 {
		c.Blink.Threshold = 3.5
	}
	if c.Blink.Cooldown == nil {
		c.Blink.Cooldown = durationPtr(time.Second)
	}

	if c.Detector.MaxFaces == 0 {
		c.Detector.MaxFaces = 1
	}
	if c.Detector.MinConfidence == 0 {
		c.Detector.MinConfidence = 0.5
	}
	if c.Detector.MinTrackingConfidence == 0 {
		c.Detector.MinTrackingConfidence = 0.5
	}
	if c.Detector.RefineLandmarks == nil {
		c.Detector.RefineLandmarks = boolPtr(true)
	}
	if c.Detector.IdleTimeout == 0 {
		c.Detector.IdleTimeout = 30 * time.Second
	}

	if c.Display.Window == nil {
		c.Display.Window = boolPtr(true)
	}
	if c.Display.Title == "" {
		c.Display.Title = "Wink Mouse"
	}

	if c.Store.Enabled == nil {
		c.Store.Enabled = boolPtr(true)
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(DefaultDir(), "winkmouse.db")
	}

	if c.Actions.Dir == "" {
		c.Actions.Dir = filepath.Join(DefaultDir(), "plugins")
	}
	if c.Actions.Timeout == 0 {
		c.Actions.Timeout = 2 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects settings the tracker cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Camera.Device < 0 {
		errs = append(errs, fmt.Errorf("camera.device must not be negative, got %d", c.Camera.Device))
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 || c.Camera.FPS < 0 {
		errs = append(errs, errors.New("camera width, height and fps must not be negative"))
	}
	if c.Blink.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("blink.threshold must be positive, got %v", c.Blink.Threshold))
	}
	if c.Cooldown() < 0 {
		errs = append(errs, fmt.Errorf("blink.cooldown must not be negative, got %v", c.Cooldown()))
	}
	if c.Detector.MaxFaces < 1 {
		errs = append(errs, fmt.Errorf("detector.max_faces must be at least 1, got %d", c.Detector.MaxFaces))
	}
	for name, v := range map[string]float64{
		"detector.min_confidence":          c.Detector.MinConfidence,
		"detector.min_tracking_confidence": c.Detector.MinTrackingConfidence,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be between 0 and 1, got %v", name, v))
		}
	}
	if c.Actions.Timeout < 0 {
		errs = append(errs, fmt.Errorf("actions.timeout must not be negative, got %v", c.Actions.Timeout))
	}
	for side, b := range map[string]*ActionBinding{"left": c.Actions.Left, "right": c.Actions.Right} {
		if b != nil && (b.Plugin == "" || b.Action == "") {
			errs = append(errs, fmt.Errorf("actions.%s needs both plugin and action", side))
		}
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// Mirror reports whether frames are flipped horizontally.
func (c *Config) Mirror() bool { return c.Camera.Mirror == nil || *c.Camera.Mirror }

// Cooldown is the minimum time between two clicks of the same side.
func (c *Config) Cooldown() time.Duration {
	if c.Blink.Cooldown == nil {
		return time.Second
	}
	return *c.Blink.Cooldown
}

// ShowWindow reports whether the preview window is shown.
func (c *Config) ShowWindow() bool { return c.Display.Window == nil || *c.Display.Window }

// HistoryEnabled reports whether clicks are recorded in the store.
func (c *Config) HistoryEnabled() bool { return c.Store.Enabled == nil || *c.Store.Enabled }

// RefineLandmarks reports whether the iris refinement model is requested.
func (c *Config) RefineLandmarks() bool {
	return c.Detector.RefineLandmarks == nil || *c.Detector.RefineLandmarks
}

// HasActions reports whether any click side is bound to a plugin.
func (c *Config) HasActions() bool { return c.Actions.Left != nil || c.Actions.Right != nil }

// LogLevel returns the parsed log level, defaulting to info.
func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
