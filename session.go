package kms

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/kms/drm"
)

// Options for a Session.
type Options struct {
	// Logger receives progress and teardown diagnostics. The zero value
	// discards everything.
	Logger zerolog.Logger

	// MaxFrames limits Run, 0 is unlimited. Show returns right after its
	// frame is on screen when a limit is set.
	MaxFrames uint64

	// Backlight, if set, is driven high while the session owns the display.
	Backlight gpio.PinOut
}

// Session owns a display output from setup until Close: the selected connector
// and CRTC, two scanout buffers and the CRTC configuration to restore.
type Session struct {
	dev  Device
	opts Options
	log  zerolog.Logger

	resources *drm.Resources
	connector *drm.Connector
	binding   CrtcBinding
	mode      drm.ModeInfo
	saved     *SavedState
	buffers   [2]*PixelBuffer
	loop      *Loop
	backlight bool
	closed    bool
}

// NewSession takes over the first connected output of dev: it selects a
// connector and CRTC, saves the CRTC configuration, allocates two buffers of
// the preferred mode's size and shows the first one.
//
// The session owns dev from here on; if setup fails everything acquired so far
// is released, dev is closed and the display configuration is restored.
func NewSession(dev Device, opts *Options) (*Session, error) {
	s := &Session{dev: dev}
	if opts != nil {
		s.opts = *opts
	} else {
		s.opts.Logger = zerolog.Nop()
	}
	s.log = s.opts.Logger

	if err := s.setup(); err != nil {
		if cerr := s.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("teardown after failed setup")
		}
		return nil, err
	}
	return s, nil
}

func (s *Session) setup() (err error) {
	if s.resources, err = Enumerate(s.dev); err != nil {
		return
	}
	s.log.Debug().
		Int("connectors", len(s.resources.Connectors)).
		Int("crtcs", len(s.resources.Crtcs)).
		Int("encoders", len(s.resources.Encoders)).
		Msg("resources")

	if s.connector, s.binding, err = SelectOutput(s.dev, s.resources); err != nil {
		return
	}
	if len(s.connector.Modes) == 0 {
		return fmt.Errorf("%w: connector %d has no modes", ErrModeSet, s.connector.ID)
	}
	s.mode = s.connector.Modes[0]
	s.log.Info().
		Stringer("output", s.binding).
		Stringer("mode", s.mode).
		Str("refresh", s.mode.Refresh().String()).
		Msg("selected output")

	if s.saved, err = CaptureState(s.dev, s.binding); err != nil {
		return
	}
	s.log.Debug().Stringer("saved", s.saved).Msg("captured CRTC state")

	size := s.mode.Size()
	for i := range s.buffers {
		if s.buffers[i], err = AllocateBuffer(s.dev, size.X, size.Y); err != nil {
			return
		}
		s.log.Debug().Stringer("buffer", s.buffers[i]).Msg("allocated")
	}

	if err = Bind(s.dev, s.binding, s.buffers[0].FB, &s.mode); err != nil {
		return
	}

	if s.opts.Backlight != nil {
		if err := s.opts.Backlight.Out(gpio.High); err != nil {
			s.log.Warn().Err(err).Str("pin", s.opts.Backlight.Name()).Msg("backlight on")
		} else {
			s.backlight = true
		}
	}

	s.loop = NewLoop(s.dev, s.binding.CrtcID, s.buffers, s.log)
	s.loop.MaxFrames = s.opts.MaxFrames
	return nil
}

// Mode is the active display mode.
func (s *Session) Mode() drm.ModeInfo {
	return s.mode
}

// Binding is the selected connector and CRTC.
func (s *Session) Binding() CrtcBinding {
	return s.binding
}

// Connector is the selected output.
func (s *Session) Connector() *drm.Connector {
	return s.connector
}

// Buffers are the two scanout buffers, the first is shown after setup.
func (s *Session) Buffers() [2]*PixelBuffer {
	return s.buffers
}

// Stats about presented frames.
func (s *Session) Stats() Stats {
	if s.loop == nil {
		return Stats{}
	}
	return s.loop.Stats()
}

// Run presents frames of scene until ctx is canceled, the frame limit is
// reached or presentation fails.
func (s *Session) Run(ctx context.Context, scene Scene) error {
	if s.closed {
		return errors.New("kms: session closed")
	}
	err := s.loop.Run(ctx, scene)
	stats := s.loop.Stats()
	s.log.Info().
		Uint64("frames", stats.Frames).
		Dur("elapsed", stats.Elapsed).
		Str("rate", stats.Rate().String()).
		Msg("presentation stopped")
	return err
}

// Show presents a single frame of scene and keeps it on screen until ctx is
// canceled, or returns at once if MaxFrames is set.
func (s *Session) Show(ctx context.Context, scene Scene) error {
	if s.closed {
		return errors.New("kms: session closed")
	}
	if err := s.loop.Present(scene); err != nil {
		return err
	}
	if s.opts.MaxFrames > 0 {
		return nil
	}
	<-ctx.Done()
	return nil
}

// Close restores the saved CRTC configuration, destroys both buffers and
// closes the device. Every step is attempted even if earlier ones failed, the
// errors are joined. Calling Close more than once has no effect.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	step := func(name string, err error) {
		if err != nil {
			s.log.Warn().Err(err).Str("step", name).Msg("teardown")
			errs = append(errs, err)
		}
	}

	if s.backlight {
		step("backlight", s.opts.Backlight.Out(gpio.Low))
		s.backlight = false
	}
	if s.saved != nil {
		step("restore", Restore(s.dev, s.saved))
		s.saved = nil
	}
	for i, b := range s.buffers {
		if b != nil {
			step(fmt.Sprintf("buffer %d", i), b.Destroy())
			s.buffers[i] = nil
		}
	}
	s.connector = nil
	s.resources = nil
	step("close", s.dev.Close())

	return errors.Join(errs...)
}
