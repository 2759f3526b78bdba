package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/BeatGlow/kms"
	"github.com/BeatGlow/kms/internal/config"
	"github.com/BeatGlow/kms/pixel"
)

func main() {
	configFlag := flag.String("config", "", "YAML configuration file")
	deviceFlag := flag.String("device", "/dev/dri/card0", "Display device")
	framesFlag := flag.Uint64("frames", 0, "Stop after this many frames, with -image exit once it is shown (default: run until interrupted)")
	imageFlag := flag.String("image", "", "Show an image instead of the animation")
	hudFlag := flag.Bool("hud", false, "Show a status line")
	borderFlag := flag.Bool("border", false, "Draw a border around the screen")
	blPinFlag := flag.String("backlight", "", "Backlight GPIO pin")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg := config.Default()
	if *configFlag != "" {
		var err error
		if cfg, err = config.Load(*configFlag); err != nil {
			fatal(err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Device = *deviceFlag
		case "frames":
			cfg.Frames = *framesFlag
		case "image":
			cfg.Image = *imageFlag
		case "hud":
			cfg.HUD = *hudFlag
		case "border":
			cfg.Border = *borderFlag
		case "backlight":
			cfg.Backlight = *blPinFlag
		case "debug":
			cfg.Debug = *debugFlag
		}
	})
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config) (err error) {
	opts := &kms.Options{
		Logger:    log.Logger,
		MaxFrames: cfg.Frames,
	}
	if cfg.Backlight != "" {
		if _, err = host.Init(); err != nil {
			return err
		}
		if opts.Backlight = gpioreg.ByName(cfg.Backlight); opts.Backlight == nil {
			return fmt.Errorf("backlight pin %q not found", cfg.Backlight)
		}
	}

	var scene kms.Scene
	if cfg.Image != "" {
		if scene, err = loadImage(cfg.Image); err != nil {
			return err
		}
	} else {
		scene = &kms.BouncingRect{AnimationState: kms.AnimationState{
			X: cfg.Rect.X, Y: cfg.Rect.Y,
			VX: cfg.Rect.VX, VY: cfg.Rect.VY,
			W: cfg.Rect.Width, H: cfg.Rect.Height,
			Color: pixel.XRGB8888{V: cfg.Rect.Color},
		}}
	}

	dev, err := kms.Open(cfg.Device)
	if err != nil {
		return err
	}
	log.Info().Str("device", cfg.Device).Msg("opened display device")

	s, err := kms.NewSession(dev, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if r, ok := scene.(*kms.BouncingRect); ok {
		size := s.Mode().Size()
		r.Clamp(size.X, size.Y)
	}
	if cfg.Border {
		scene = kms.Border{Scene: scene, Color: pixel.White}
	}
	if cfg.HUD {
		var hud *kms.HUD
		if hud, err = kms.NewHUD(scene, s.Mode().String(), kms.DefaultHUDSize); err != nil {
			return err
		}
		defer func() {
			if cerr := hud.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}()
		scene = hud
	}

	if cfg.Image != "" && !cfg.HUD {
		return s.Show(ctx, scene)
	}
	return s.Run(ctx, scene)
}

func loadImage(name string) (kms.Scene, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	i, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	log.Debug().Str("image", name).Str("format", format).Stringer("size", i.Bounds().Size()).Msg("decoded image")
	return kms.Static{Image: i}, nil
}

func fatal(err error) {
	log.Error().Err(err).Msg("fatal")
	os.Exit(1)
}
