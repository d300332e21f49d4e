// Package config loads the facecam configuration from YAML with defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCascadePath is where distribution OpenCV packages install the
// frontal face Haar cascade.
const DefaultCascadePath = "/usr/share/opencv4/haarcascades/haarcascade_frontalface_default.xml"

// CascadeEnv overrides the cascade path when set.
const CascadeEnv = "FACECAM_CASCADE"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete facecam configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Output   OutputConfig   `yaml:"output"`
	Loop     LoopConfig     `yaml:"loop"`
	Window   WindowConfig   `yaml:"window"`
	Tray     TrayConfig     `yaml:"tray"`
	Log      LogConfig      `yaml:"log"`
}

// CameraConfig selects the capture device and the requested resolution.
// Width and height are hints; the device may negotiate something else.
type CameraConfig struct {
	Index  int `yaml:"index"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DetectorConfig holds the cascade model location and multi-scale policy.
type DetectorConfig struct {
	CascadePath  string  `yaml:"cascade_path"`
	ScaleFactor  float64 `yaml:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors"`
	MinSize      int     `yaml:"min_size"`
}

// OutputConfig names the directories screenshots and face crops go to.
type OutputConfig struct {
	ScreenshotDir string `yaml:"screenshot_dir"`
	FacesDir      string `yaml:"faces_dir"`
}

// LoopConfig controls frame loop pacing.
type LoopConfig struct {
	KeyWaitMs    int  `yaml:"key_wait_ms"`
	FrameDelayMs int  `yaml:"frame_delay_ms"`
	Mirror       bool `yaml:"mirror"`
}

// WindowConfig controls the preview window and box drawing.
type WindowConfig struct {
	Title        string `yaml:"title"`
	BoxThickness int    `yaml:"box_thickness"`
	BoxColorRGB  [3]int `yaml:"box_color_rgb"`
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cascade := DefaultCascadePath
	if env := os.Getenv(CascadeEnv); env != "" {
		cascade = env
	}

	return Config{
		Camera: CameraConfig{
			Index:  0,
			Width:  640,
			Height: 480,
		},
		Detector: DetectorConfig{
			CascadePath:  cascade,
			ScaleFactor:  1.1,
			MinNeighbors: 5,
			MinSize:      30,
		},
		Output: OutputConfig{
			ScreenshotDir: "screenshots",
			FacesDir:      "detected_faces",
		},
		Loop: LoopConfig{
			KeyWaitMs:    1,
			FrameDelayMs: 30,
			Mirror:       true,
		},
		Window: WindowConfig{
			Title:        "Face Detection",
			BoxThickness: 2,
			BoxColorRGB:  [3]int{0, 255, 0},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file on top of Default and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks value ranges. It does not check that the cascade file
// exists; that is the detector's job at startup.
func (c *Config) Validate() error {
	switch {
	case c.Camera.Index < 0:
		return fmt.Errorf("%w: camera.index must be >= 0", ErrInvalid)
	case c.Camera.Width <= 0 || c.Camera.Height <= 0:
		return fmt.Errorf("%w: camera.width and camera.height must be > 0", ErrInvalid)
	case c.Detector.CascadePath == "":
		return fmt.Errorf("%w: detector.cascade_path is required", ErrInvalid)
	case c.Detector.ScaleFactor <= 1.0:
		return fmt.Errorf("%w: detector.scale_factor must be > 1", ErrInvalid)
	case c.Detector.MinNeighbors < 0:
		return fmt.Errorf("%w: detector.min_neighbors must be >= 0", ErrInvalid)
	case c.Detector.MinSize <= 0:
		return fmt.Errorf("%w: detector.min_size must be > 0", ErrInvalid)
	case c.Output.ScreenshotDir == "" || c.Output.FacesDir == "":
		return fmt.Errorf("%w: output directories must not be empty", ErrInvalid)
	case c.Loop.KeyWaitMs < 1:
		return fmt.Errorf("%w: loop.key_wait_ms must be >= 1", ErrInvalid)
	case c.Loop.FrameDelayMs < 0:
		return fmt.Errorf("%w: loop.frame_delay_ms must be >= 0", ErrInvalid)
	case c.Window.BoxThickness <= 0:
		return fmt.Errorf("%w: window.box_thickness must be > 0", ErrInvalid)
	}

	for _, v := range c.Window.BoxColorRGB {
		if v < 0 || v > 255 {
			return fmt.Errorf("%w: window.box_color_rgb values must be 0-255", ErrInvalid)
		}
	}

	return nil
}

// KeyWait returns the keypress sampling timeout.
func (c *Config) KeyWait() time.Duration {
	return time.Duration(c.Loop.KeyWaitMs) * time.Millisecond
}

// FrameDelay returns the sleep between loop iterations.
func (c *Config) FrameDelay() time.Duration {
	return time.Duration(c.Loop.FrameDelayMs) * time.Millisecond
}
