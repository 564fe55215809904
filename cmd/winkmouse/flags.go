package main

import (
	"flag"
	"io"
	"time"

	"github.com/ayusman/winkmouse/internal/config"
)

// options are the command line flags. Only flags given explicitly override
// the config file.
type options struct {
	configPath string
	camera     int
	video      string
	loop       bool
	headless   bool
	tray       bool
	serve      string
	dryRun     bool
	sound      bool
	threshold  float64
	cooldown   time.Duration
	noHistory  bool
	debug      bool

	set map[string]bool
}

func parseArgs(args []string, output io.Writer) (*options, error) {
	o := &options{set: make(map[string]bool)}

	fs := flag.NewFlagSet("winkmouse", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&o.configPath, "config", config.DefaultPath(), "path to the YAML config file")
	fs.IntVar(&o.camera, "camera", 0, "camera device index")
	fs.StringVar(&o.video, "video", "", "replay a video file instead of the camera")
	fs.BoolVar(&o.loop, "loop", false, "restart the video file when it ends")
	fs.BoolVar(&o.headless, "headless", false, "do not open the preview window")
	fs.BoolVar(&o.tray, "tray", false, "run from the system tray (implies -headless)")
	fs.StringVar(&o.serve, "serve", "", "serve the dashboard on this address, e.g. :8080")
	fs.BoolVar(&o.dryRun, "dry-run", false, "log clicks instead of clicking")
	fs.BoolVar(&o.sound, "sound", false, "play a tone on every click")
	fs.Float64Var(&o.threshold, "threshold", 0, "eyelid distance in pixels below which an eye is closed")
	fs.DurationVar(&o.cooldown, "cooldown", 0, "minimum time between two clicks of the same side")
	fs.BoolVar(&o.noHistory, "no-history", false, "do not record sessions and clicks")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	return o, nil
}

// apply copies explicitly set flags over cfg and validates the result.
func (o *options) apply(cfg *config.Config) error {
	if o.set["camera"] {
		cfg.Camera.Device = o.camera
	}
	if o.set["video"] {
		cfg.Camera.Video = o.video
	}
	if o.set["loop"] {
		cfg.Camera.Loop = o.loop
	}
	if o.set["headless"] && o.headless {
		cfg.Display.Window = boolPtr(false)
	}
	if o.set["tray"] {
		cfg.Tray = o.tray
	}
	if cfg.Tray {
		cfg.Display.Window = boolPtr(false)
	}
	if o.set["serve"] {
		cfg.Server.Addr = o.serve
	}
	if o.set["dry-run"] {
		cfg.Input.DryRun = o.dryRun
	}
	if o.set["sound"] {
		cfg.Input.Sound = o.sound
	}
	if o.set["threshold"] {
		cfg.Blink.Threshold = o.threshold
	}
	if o.set["cooldown"] {
		cooldown := o.cooldown
		cfg.Blink.Cooldown = &cooldown
	}
	if o.set["no-history"] && o.noHistory {
		cfg.Store.Enabled = boolPtr(false)
	}
	if o.set["debug"] && o.debug {
		cfg.Log.Level = "debug"
	}

	return cfg.Validate()
}

func boolPtr(v bool) *bool { return &v }
