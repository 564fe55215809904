package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/winkmouse/internal/app"
	"github.com/ayusman/winkmouse/internal/blink"
	"github.com/ayusman/winkmouse/internal/capture"
	"github.com/ayusman/winkmouse/internal/config"
	"github.com/ayusman/winkmouse/internal/detector"
	"github.com/ayusman/winkmouse/internal/display"
	"github.com/ayusman/winkmouse/internal/feedback"
	"github.com/ayusman/winkmouse/internal/hotkey"
	"github.com/ayusman/winkmouse/internal/input"
	"github.com/ayusman/winkmouse/internal/plugin"
	"github.com/ayusman/winkmouse/internal/server"
	"github.com/ayusman/winkmouse/internal/store"
	"github.com/ayusman/winkmouse/internal/tray"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.configPath).Msg("Failed to load config")
	}
	if err := opts.apply(cfg); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel())

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("winkmouse stopped")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy := blink.Policy{Threshold: cfg.Blink.Threshold, Cooldown: cfg.Cooldown()}
	if err := policy.Validate(); err != nil {
		return err
	}

	st := openStore(cfg)
	if st != nil {
		defer st.Close()
	}

	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxFaces:        cfg.Detector.MaxFaces,
		MinConfidence:   cfg.Detector.MinConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConfidence,
		RefineLandmarks: cfg.RefineLandmarks(),
		IdleTimeout:     cfg.Detector.IdleTimeout,
		Python:          cfg.Detector.Python,
		Script:          cfg.Detector.Script,
	})
	if err != nil {
		return fmt.Errorf("face detector: %w", err)
	}
	defer det.Close()

	sink, closeSink := buildSink(cfg)
	defer closeSink()

	appCfg := app.Config{
		Policy: policy,
		Mirror: cfg.Mirror(),
		Store:  st,
	}
	if cfg.ShowWindow() {
		window := display.NewWindow(cfg.Display.Title)
		defer window.Close()
		appCfg.Display = window
	}

	a := app.New(appCfg, buildCamera(cfg), det, sink)

	var t *tray.Tray
	var ctrl server.Controller = a
	if cfg.Tray {
		t = tray.New()
		ctrl = &trayController{app: a, tray: t}
		a.RegisterClickCallback(func(e app.ClickEvent) { t.SetLastClick(e.Side) })
	}

	if cfg.Server.Addr != "" {
		startServer(ctx, cfg.Server.Addr, a, ctrl, st)
	}

	if !cfg.ShowWindow() {
		go hotkey.ListenQuit(ctx, stop)
		log.Info().Str("keys", hotkey.Describe(hotkey.QuitKeys)).Msg("Press the quit hotkey to stop")
	}

	if t == nil {
		return a.Run(ctx)
	}

	// The tray owns the main thread; the loop runs beside it.
	t.OnToggle(a.SetEnabled)
	t.OnQuit(stop)
	if cfg.Server.Addr != "" {
		url := dashboardURL(cfg.Server.Addr)
		t.OnDashboard(func() { openBrowser(url) })
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()
	stop()
	return <-errCh
}

// openStore opens the history database, or returns nil when history is
// disabled or unavailable.
func openStore(cfg *config.Config) *store.Store {
	if !cfg.HistoryEnabled() {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		log.Warn().Err(err).Msg("Failed to create data directory, click history disabled")
		return nil
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open store, click history disabled")
		return nil
	}
	log.Debug().Str("path", st.Path()).Msg("Click history enabled")
	return st
}

func buildCamera(cfg *config.Config) capture.Camera {
	if cfg.Camera.Video != "" {
		log.Info().Str("video", cfg.Camera.Video).Bool("loop", cfg.Camera.Loop).Msg("Replaying video file")
		return capture.NewVideoFileCamera(cfg.Camera.Video, cfg.Camera.Loop)
	}
	return capture.NewCamera(capture.Settings{
		DeviceID: cfg.Camera.Device,
		Width:    cfg.Camera.Width,
		Height:   cfg.Camera.Height,
		FPS:      cfg.Camera.FPS,
	})
}

// buildSink returns the click sink and a function releasing its resources.
func buildSink(cfg *config.Config) (input.ClickSink, func()) {
	var primary input.ClickSink = input.NewRobotSink()
	if cfg.Input.DryRun {
		log.Info().Msg("Dry run: clicks are logged, not performed")
		primary = input.LogSink{}
	}

	sinks := input.Fanout{}
	var closers []func()

	actions, err := buildActionSink(cfg)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Click actions disabled")
	case actions != nil:
		closers = append(closers, actions.Close)
		if cfg.Actions.Replace {
			primary = input.Except{Sink: primary, Skip: boundSides(cfg)}
		}
		sinks = append(sinks, actions)
	}
	sinks = append(input.Fanout{primary}, sinks...)

	if cfg.Input.Sound {
		beeper := feedback.NewBeeper()
		if err := beeper.Err(); err != nil {
			log.Warn().Err(err).Msg("Audio unavailable, click tones disabled")
		} else {
			sinks = append(sinks, beeper)
			closers = append(closers, beeper.Close)
		}
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(sinks) == 1 {
		return primary, closeAll
	}
	return sinks, closeAll
}

// buildActionSink discovers plugins and binds them to click sides. It
// returns nil when no action is configured.
func buildActionSink(cfg *config.Config) (*plugin.Sink, error) {
	if !cfg.HasActions() {
		return nil, nil
	}

	bindings, err := actionBindings(cfg.Actions)
	if err != nil {
		return nil, err
	}

	manager := plugin.NewManager(cfg.Actions.Dir)
	if err := manager.Discover(); err != nil {
		return nil, fmt.Errorf("discover plugins: %w", err)
	}
	log.Info().Str("dir", manager.PluginDir()).Int("plugins", len(manager.List())).Msg("Plugins discovered")

	return plugin.NewSink(manager, plugin.NewExecutor(cfg.Actions.Timeout), bindings)
}

func actionBindings(ac config.ActionsConfig) (map[blink.Click]plugin.Binding, error) {
	bindings := make(map[blink.Click]plugin.Binding)
	for side, b := range map[blink.Click]*config.ActionBinding{blink.Left: ac.Left, blink.Right: ac.Right} {
		if b == nil {
			continue
		}
		var params json.RawMessage
		if len(b.Params) > 0 {
			data, err := json.Marshal(b.Params)
			if err != nil {
				return nil, fmt.Errorf("%s click action params: %w", side, err)
			}
			params = data
		}
		bindings[side] = plugin.Binding{Plugin: b.Plugin, Action: b.Action, Params: params}
	}
	return bindings, nil
}

func boundSides(cfg *config.Config) map[blink.Click]bool {
	return map[blink.Click]bool{
		blink.Left:  cfg.Actions.Left != nil,
		blink.Right: cfg.Actions.Right != nil,
	}
}

func startServer(ctx context.Context, addr string, a *app.App, ctrl server.Controller, st *store.Store) {
	frames := server.NewFrameHub()
	events := server.NewEventHub()
	a.RegisterFrameCallback(frames.Publish)
	a.RegisterClickCallback(func(e app.ClickEvent) { events.Broadcast(e) })

	srv := server.New(server.Config{
		StaticDir: findWebDir(),
		Store:     st,
		Control:   ctrl,
		Frames:    frames,
		Events:    events,
	})

	go func() {
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("Dashboard server failed")
		}
	}()
}

// trayController keeps the tray toggle in sync with dashboard toggles.
type trayController struct {
	app  *app.App
	tray *tray.Tray
}

func (c *trayController) IsEnabled() bool { return c.app.IsEnabled() }

func (c *trayController) SetEnabled(enabled bool) {
	c.app.SetEnabled(enabled)
	c.tray.SetEnabled(enabled)
}

// dashboardURL turns a listen address into a URL a browser can open.
func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to open browser")
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.winkmouse/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.DefaultDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
