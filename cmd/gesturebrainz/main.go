package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("GestureBrainz v%s\n", version)
	fmt.Println("Touch gesture daemon for mpv playback control")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  gesturebrainz [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that turns touchscreen input (via Linux input devices) into")
	fmt.Println("  playback control for mpv over JSON IPC. Recognizes taps, double taps,")
	fmt.Println("  long-press scrubbing with speed ramping, horizontal seek drags and")
	fmt.Println("  vertical volume/brightness swipes, and broadcasts gesture events to")
	fmt.Println("  WebSocket clients for on-screen feedback.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Printf("        Path to YAML config file (default %q)\n", defaultConfigPath)
	fmt.Println("        A missing file at the default path is not an error; defaults apply.")
	fmt.Println()
	fmt.Println("  -input-device string")
	fmt.Printf("        Linux input event device for the touchscreen (default %q)\n", defaultInputDevice)
	fmt.Println()
	fmt.Println("  -update-hz int")
	fmt.Printf("        Engine tick frequency in Hz (default %d)\n", defaultUpdateHz)
	fmt.Println()
	fmt.Println("  -surface-width float")
	fmt.Println("  -surface-height float")
	fmt.Printf("        Touch surface dimensions in pixels (default %gx%g)\n", defaultSurfaceWidth, defaultSurfaceHeight)
	fmt.Println()
	fmt.Println("  -mpv-socket string")
	fmt.Printf("        mpv JSON IPC socket path (default %q)\n", defaultMPVSocket)
	fmt.Println("        Note: mpv must be started with --input-ipc-server=PATH")
	fmt.Println()
	fmt.Println("  -conflict-strategy string")
	fmt.Println("        Gesture conflict strategy: priority, first_detected, last_detected, defer")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for control IPC (default %q)\n", defaultSocketPath)
	fmt.Println()
	fmt.Println("  -ws-addr string")
	fmt.Printf("        State WebSocket listen address (default %q)\n", defaultWSAddr)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start daemon with default settings")
	fmt.Println("  gesturebrainz")
	fmt.Println()
	fmt.Println("  # Custom touchscreen device and surface size")
	fmt.Println("  gesturebrainz -input-device /dev/input/event4 -surface-width 1920 -surface-height 1080")
	fmt.Println()
	fmt.Println("  # Point at a non-default mpv socket")
	fmt.Println("  gesturebrainz -mpv-socket /run/user/1000/mpv.sock")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to the input device (run as root or add user to 'input' group)")
	fmt.Println("  - mpv must be running with --input-ipc-server pointing at the configured socket")
	fmt.Println("  - The config file is watched; edits to the gestures and bindings sections")
	fmt.Println("    apply without a restart")
	fmt.Println()
}

func main() {
	// Check for version/help flags early
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	// Parse command-line flags
	var (
		configPath = flag.String("config", defaultConfigPath, "Path to YAML config file")

		inputDevice = flag.String("input-device", defaultInputDevice, "Linux input event device for the touchscreen")
		updateHz    = flag.Int("update-hz", defaultUpdateHz, "Engine tick frequency in Hz")

		surfaceWidth  = flag.Float64("surface-width", defaultSurfaceWidth, "Touch surface width in pixels")
		surfaceHeight = flag.Float64("surface-height", defaultSurfaceHeight, "Touch surface height in pixels")

		mpvSocket    = flag.String("mpv-socket", defaultMPVSocket, "mpv JSON IPC socket path")
		mpvTimeoutMS = flag.Int("mpv-timeout-ms", 1000, "Timeout in milliseconds for mpv responses")

		conflictStrategy = flag.String("conflict-strategy", "", "Gesture conflict strategy: priority, first_detected, last_detected, defer")

		ipcSocketPath = flag.String("ipc-socket", defaultSocketPath, "Unix domain socket path for control IPC")
		wsAddr        = flag.String("ws-addr", defaultWSAddr, "State WebSocket listen address")

		logLevelStr = flag.String("log-level", defaultLogLevel, "Log level: error, warn, info, debug")
		showVersion = flag.Bool("version", false, "Print version and exit")
		showHelp    = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Load the config file. A missing file at the default path means
	// defaults; an explicitly given path must exist.
	configExplicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configExplicit = true
		}
	})

	cfg := DefaultConfig()
	configLoaded := false
	if _, statErr := os.Stat(ExpandPath(*configPath)); statErr == nil {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
		configLoaded = true
	} else if configExplicit {
		fmt.Fprintf(os.Stderr, "error: config file not found: %s\n", *configPath)
		os.Exit(1)
	}

	// Apply overrides for the flags the user actually set.
	var overrides FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input-device":
			overrides.InputDevice = inputDevice
		case "update-hz":
			overrides.UpdateHz = updateHz
		case "surface-width":
			overrides.SurfaceWidth = surfaceWidth
		case "surface-height":
			overrides.SurfaceHeight = surfaceHeight
		case "mpv-socket":
			overrides.PlayerSocketPath = mpvSocket
		case "mpv-timeout-ms":
			overrides.PlayerTimeoutMS = mpvTimeoutMS
		case "conflict-strategy":
			overrides.ConflictStrategy = conflictStrategy
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocketPath
		case "ws-addr":
			overrides.WSAddr = wsAddr
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	// Shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open touch devices
	files, err := openInputDevices(cfg.Input.Devices)
	if err != nil {
		logger.Error("failed to open input device", "error", err, "tip", "run as root or add user to 'input' group")
		os.Exit(1)
	}
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	// Connect to mpv
	player, err := NewMPVClient(cfg.Player.SocketPath, logger, cfg.Player.TimeoutMS)
	if err != nil {
		logger.Error("failed to connect to mpv", "error", err, "socket", cfg.Player.SocketPath)
		os.Exit(1)
	}
	defer player.Close()

	// Central message channel - everything funnels into the brain.
	msgs := make(chan brainMsg, 256)

	// WebSocket state server
	stateServer := NewStateServer(logger, msgs, HubConfig{})
	mux := http.NewServeMux()
	stateServer.Register(mux, cfg.WS.Path)
	httpSrv := &http.Server{Addr: cfg.WS.Addr, Handler: mux}

	logger.Debug("starting gesturebrainz", "version", version)
	logger.Info("listening",
		"input_devices", cfg.Input.Devices,
		"surface", fmt.Sprintf("%gx%g", cfg.Surface.Width, cfg.Surface.Height),
		"mpv_socket", cfg.Player.SocketPath,
		"ipc", cfg.IPC.SocketPath,
		"ws", cfg.WS.Addr+cfg.WS.Path,
		"update_rate_hz", cfg.Input.UpdateHz,
		"conflict_strategy", cfg.Gestures.ConflictStrategy)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runBrain(gctx, msgs, player, stateServer.Hub(), cfg, logger)
	})

	g.Go(func() error {
		stateServer.Hub().Run(gctx)
		return nil
	})

	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, msgs, logger)
	})

	g.Go(func() error {
		return runInputReader(gctx, files, msgs, logger)
	})

	g.Go(func() error {
		runPositionPoller(gctx, player, msgs, logger)
		return nil
	})

	// Watch the config file for live tuning updates. Only useful when a
	// file actually exists.
	if configLoaded {
		path := *configPath
		g.Go(func() error {
			return runConfigWatcher(gctx, path, msgs, logger)
		})
	}

	g.Go(func() error {
		errCh := make(chan error, 1)
		go func() { errCh <- httpSrv.ListenAndServe() }()

		select {
		case <-gctx.Done():
			shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutCtx)
			return nil
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("ws server: %w", err)
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
