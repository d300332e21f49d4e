package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/ayusman/facecam/internal/app"
	"github.com/ayusman/facecam/internal/capture"
	"github.com/ayusman/facecam/internal/config"
	"github.com/ayusman/facecam/internal/detector"
	"github.com/ayusman/facecam/internal/display"
	"github.com/ayusman/facecam/internal/log"
	"github.com/ayusman/facecam/internal/sink"
	"github.com/ayusman/facecam/internal/tray"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("facecam", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML config file")
	cameraIndex := fs.Int("camera", 0, "Camera device index")
	cascadePath := fs.String("cascade", "", "Path to the Haar cascade XML model")
	trayEnabled := fs.Bool("tray", false, "Show a system tray menu")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "facecam: %v\n", err)
		return 1
	}

	// Explicit flags win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "camera":
			cfg.Camera.Index = *cameraIndex
		case "cascade":
			cfg.Detector.CascadePath = *cascadePath
		case "tray":
			cfg.Tray.Enabled = *trayEnabled
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "facecam: %v\n", err)
		return 1
	}

	session := uuid.NewString()
	log.Init(os.Stdout, cfg.Log.Level, "session", session)
	log.Info("initializing face detection application",
		"camera", cfg.Camera.Index,
		"cascade", cfg.Detector.CascadePath,
	)

	deps := app.Deps{
		OpenDetector: func() (detector.Detector, error) {
			return detector.NewCascadeDetector(detector.Config{
				CascadePath:  cfg.Detector.CascadePath,
				ScaleFactor:  cfg.Detector.ScaleFactor,
				MinNeighbors: cfg.Detector.MinNeighbors,
				MinSize:      cfg.Detector.MinSize,
			})
		},
		Camera: capture.NewCamera(cfg.Camera.Index, cfg.Camera.Width, cfg.Camera.Height),
		OpenWindow: func() (display.Window, error) {
			return display.NewWindow(cfg.Window.Title), nil
		},
		Sink: sink.New(cfg.Output.ScreenshotDir, cfg.Output.FacesDir),
	}

	if cfg.Tray.Enabled {
		t := tray.New()
		t.Start()
		defer t.Stop()
		deps.Remote = t
	}

	loopCfg := app.DefaultConfig()
	loopCfg.KeyWait = cfg.KeyWait()
	loopCfg.FrameDelay = cfg.FrameDelay()
	loopCfg.Mirror = cfg.Loop.Mirror
	loopCfg.Style = styleFromConfig(cfg.Window)

	a, err := app.New(loopCfg, deps)
	if err != nil {
		log.Error("failed to create application", "err", err)
		return 1
	}

	if err := a.Run(); err != nil {
		var fault *app.Fault
		if errors.As(err, &fault) {
			return exitCode(fault.Kind)
		}
		return 1
	}
	return 0
}

// exitCode maps fault kinds to process exit codes.
func exitCode(kind app.FaultKind) int {
	switch kind {
	case app.FaultConfig:
		return 3
	case app.FaultDevice:
		return 4
	default:
		return 1
	}
}

func styleFromConfig(w config.WindowConfig) detector.Style {
	s := detector.DefaultStyle()
	s.Thickness = w.BoxThickness
	s.Color.R = uint8(w.BoxColorRGB[0])
	s.Color.G = uint8(w.BoxColorRGB[1])
	s.Color.B = uint8(w.BoxColorRGB[2])
	return s
}
