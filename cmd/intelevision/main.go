package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/intelevision/internal/app"
	"github.com/ayusman/intelevision/internal/capture"
	"github.com/ayusman/intelevision/internal/config"
	"github.com/ayusman/intelevision/internal/detector"
	"github.com/ayusman/intelevision/internal/log"
	"github.com/ayusman/intelevision/internal/mqtt"
	"github.com/ayusman/intelevision/internal/sampler"
	"github.com/ayusman/intelevision/internal/server"
	"github.com/ayusman/intelevision/internal/store"
	"github.com/ayusman/intelevision/internal/tray"
)

func main() {
	cfg := config.Load()
	log.Init(cfg.LogLevel)

	log.Info("intelevision starting", "addr", cfg.Addr, "data_dir", cfg.DataDir)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	camCfg := capture.DefaultConfig()
	camCfg.DeviceID = cfg.CameraID
	camCfg.AltDeviceID = cfg.CameraAltID

	detCfg := detector.DefaultConfig()
	detCfg.PythonPath = cfg.PythonPath
	detCfg.ScriptPath = cfg.VisionScript
	detCfg.IdleTimeout = cfg.DetectorIdle

	application, err := app.New(app.Config{
		Store:          st,
		CameraConfig:   camCfg,
		DetectorConfig: detCfg,
		Throttle:       cfg.Throttle,
		DriverInterval: cfg.DriverInterval,
		Vocabulary:     cfg.Vocabulary,
	})
	if err != nil {
		log.Error("failed to create app", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Start(); err != nil {
		// Keep serving the API; the snapshot stays empty.
		log.Error("failed to open camera", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go initDetector(ctx, application, cfg)

	if cfg.MQTTEnabled() {
		client, err := mqtt.NewClient(mqtt.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		})
		if err != nil {
			log.Warn("mqtt disabled", "error", err)
		} else {
			defer client.Close()
			pub := mqtt.NewPublisher(client.Native(), mqtt.PublisherConfig{Topic: cfg.MQTTTopic})
			sub := pub.Attach(application.Snapshots())
			defer sub.Cancel()
			go pub.Start(ctx)
		}
	}

	webDir := findWebDir(cfg.DataDir)
	if webDir != "" {
		log.Info("serving static files", "dir", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       application,
	})
	go func() {
		if err := srv.ListenAndServe(cfg.Addr); err != nil {
			log.Error("server failed", "error", err)
			cancel()
		}
	}()

	if cfg.Tray {
		runTray(ctx, cancel, application, cfg.Addr)
	} else {
		<-ctx.Done()
	}

	log.Info("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", "error", err)
	}
}

// initDetector loads the detector models and, when configured, enables
// detection as soon as they are ready.
func initDetector(ctx context.Context, a *app.App, cfg *config.Config) {
	initCtx, cancel := context.WithTimeout(ctx, cfg.DetectorInitWait)
	defer cancel()

	if err := a.InitDetector(initCtx); err != nil {
		log.Error("detector failed to initialize", "error", err)
		return
	}
	log.Info("detector ready")

	if !cfg.AutoStartDetector {
		return
	}
	if err := a.StartWhenReady(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("failed to start detection", "error", err)
	}
}

// runTray blocks in the system tray until Quit is chosen or ctx ends.
func runTray(ctx context.Context, cancel context.CancelFunc, a *app.App, addr string) {
	t := tray.New()
	t.SetEnabled(a.IsEnabled())

	t.OnToggle(func(enabled bool) bool {
		if err := a.SetEnabled(enabled); err != nil {
			if errors.Is(err, sampler.ErrNotReady) {
				log.Warn("detector is still loading")
			} else {
				log.Error("failed to toggle detection", "error", err)
			}
		}
		return a.IsEnabled()
	})
	t.OnSwitchCamera(func() {
		if err := a.SwitchCamera(); err != nil {
			log.Error("camera switch failed", "error", err)
		}
	})
	t.OnSettings(func() {
		openBrowser(settingsURL(addr))
	})
	t.OnQuit(cancel)

	sub := t.Attach(a.Snapshots())
	defer sub.Cancel()

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	// Keep the toggle in step with detection started elsewhere.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if on := a.IsEnabled(); on != t.IsEnabled() {
					t.SetEnabled(on)
				}
			}
		}
	}()

	t.Run()
}

func settingsURL(addr string) string {
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
		log.Warn("failed to open browser", "url", url, "error", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <data dir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
