package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/guidoenr/ravelizer/internal/app"
	"github.com/guidoenr/ravelizer/internal/audio"
	"github.com/guidoenr/ravelizer/internal/config"
	"github.com/guidoenr/ravelizer/internal/logger"
	"github.com/guidoenr/ravelizer/internal/render"
	"github.com/guidoenr/ravelizer/internal/web"
	"github.com/guidoenr/ravelizer/pkg/visualization"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ravelizer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   = flag.String("config", "", "YAML configuration file")
		root         = flag.String("root", "", "Directory holding shaders/<variant>/ and images/logo.png")
		variant      = flag.String("variant", "", "Visualization variant (see -list-variants)")
		rate         = flag.Float64("ups", 0, "Target updates per second")
		particles    = flag.Int("particles", -1, "Number of particles")
		fpsWindow    = flag.Float64("fps-window", 0, "Seconds over which the frame rate is averaged")
		headless     = flag.Bool("headless", false, "Render without a window (records frames only)")
		source       = flag.String("source", "", "Spectrum source (synthetic|mic)")
		deviceName   = flag.String("audio-device", "", "PortAudio device name (substring match)")
		listen       = flag.String("listen", "", "Serve the control API on this address, e.g. :8080")
		logLevel     = flag.String("log-level", "", "Log level (debug|info|warn|error)")
		logFile      = flag.String("log-file", "", "Append logs to this file")
		profilePath  = flag.String("profile", "", "Write per-tick timings to this CSV file")
		listVariants = flag.Bool("list-variants", false, "List available variants and exit")
		listDevs     = flag.Bool("list-audio-devices", false, "List available audio input devices and exit")
		noDriver     = flag.Bool("no-driver", false, "Do not push frames; wait for remote parameters")
		writeConfig  = flag.String("write-config", "", "Write the effective configuration to this YAML file and exit")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			cfg.Root = *root
		case "variant":
			cfg.Variant = *variant
		case "ups":
			cfg.TargetRate = float32(*rate)
		case "particles":
			cfg.Particles = *particles
		case "fps-window":
			cfg.FPSWindow = float32(*fpsWindow)
		case "headless":
			cfg.Headless = *headless
		case "source":
			cfg.Source = *source
		case "audio-device":
			cfg.AudioDevice = *deviceName
		case "listen":
			cfg.Listen = *listen
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-file":
			cfg.LogFile = *logFile
		case "profile":
			cfg.ProfilePath = *profilePath
		}
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if *writeConfig != "" {
		if err := config.Save(*writeConfig, cfg); err != nil {
			return err
		}
		fmt.Printf("configuration written to %s\n", *writeConfig)
		return nil
	}

	log, closeLog, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closeLog()

	if *listDevs {
		return printDevices()
	}

	ctrl := visualization.NewController(visualization.Options{
		Root:        cfg.Root,
		Factory:     backendFactory(cfg, log),
		ProfilePath: cfg.ProfilePath,
		Log:         log,
	})

	if *listVariants {
		printVariants(ctrl.Variants(), cfg.Variant)
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	serverDone := make(chan error, 1)
	if cfg.Listen != "" {
		srv := web.NewServer(ctrl, web.Options{
			Defaults: web.StartRequest{
				Variant:   cfg.Variant,
				Rate:      cfg.TargetRate,
				Particles: cfg.Particles,
				FPSWindow: cfg.FPSWindow,
			},
			Log: log,
		})
		go func() { serverDone <- srv.ListenAndServe(ctx, cfg.Listen) }()
	} else {
		close(serverDone)
	}

	if err := ctrl.Start(cfg.Variant, cfg.TargetRate, cfg.Particles, cfg.FPSWindow); err != nil {
		cancel()
		<-serverDone
		return fmt.Errorf("start %s: %w", cfg.Variant, err)
	}

	if *noDriver {
		select {
		case <-ctx.Done():
			ctrl.Stop()
		case <-ctrl.Done():
		}
		<-ctrl.Done()
	} else {
		src, closeSrc, err := spectrumSource(cfg, log)
		if err != nil {
			ctrl.Stop()
			<-ctrl.Done()
			cancel()
			<-serverDone
			return err
		}
		defer closeSrc()

		driver := app.New(app.Config{
			Rate:     cfg.TargetRate,
			Keyboard: true,
			Log:      log,
		}, ctrl, src)
		if err := driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-ctrl.Done()
	}

	cancel()
	if err := <-serverDone; err != nil {
		log.Error().Err(err).Msg("control server")
	}
	if err := ctrl.Err(); err != nil {
		return err
	}
	log.Info().Msg("exiting")
	return nil
}

// backendFactory picks the window backend. Without the sdl build tag only
// -headless runs; anything else fails at start with ErrBackendUnavailable.
func backendFactory(cfg config.Config, log zerolog.Logger) render.Factory {
	if cfg.Headless {
		return render.HeadlessFactory(render.Resolution{Width: 1920, Height: 1080})
	}
	if !render.SupportsSDL() {
		log.Warn().Msg("binary built without the sdl tag; use -headless or rebuild with -tags sdl")
	}
	return render.SDLFactory(render.SDLOptions{VSync: cfg.VSync})
}

func spectrumSource(cfg config.Config, log zerolog.Logger) (app.Source, func(), error) {
	if cfg.Source != config.SourceMic {
		log.Info().Msg("using synthetic spectrum")
		return app.Synthetic{}, func() {}, nil
	}
	mic, err := audio.NewMicrophone(audio.Config{
		DeviceName: cfg.AudioDevice,
		BufferSize: cfg.BufferSize,
		Channels:   2,
	}, cfg.NoiseFloor, log)
	if err != nil {
		return nil, nil, fmt.Errorf("audio capture: %w", err)
	}
	return mic, func() {
		if err := mic.Close(); err != nil {
			log.Warn().Err(err).Msg("close audio capture")
		}
	}, nil
}

func printVariants(names []string, selected string) {
	title := color.New(color.FgCyan, color.Bold)
	title.Println("Available variants")
	if len(names) == 0 {
		color.Yellow("  none found")
		return
	}
	for _, name := range names {
		if name == selected {
			color.Green("  * %s", name)
			continue
		}
		fmt.Printf("    %s\n", name)
	}
}

func printDevices() error {
	devices, err := audio.ListDevices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	title := color.New(color.FgCyan, color.Bold)
	title.Println("Audio input devices")
	for _, dev := range audio.Inputs(devices) {
		name := dev.Name
		if dev.IsDefaultInput {
			name = color.GreenString("%s (default)", dev.Name)
		}
		fmt.Printf("- %s [%s]\n    inputs:%d outputs:%d sample:%.0f Hz\n",
			name, dev.HostAPI, dev.MaxInput, dev.MaxOutput, dev.DefaultSampleHz)
	}
	return nil
}
