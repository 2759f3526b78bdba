package kms

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"

	"github.com/BeatGlow/kms/drm"
)

// State of the presentation loop.
type State uint8

// Loop states. A frame goes Rendering, FlipRequested, FlipComplete; Draining is
// passed through when Run stops, which leaves the loop Idle again.
const (
	Idle State = iota
	Rendering
	FlipRequested
	FlipComplete
	Draining
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rendering:
		return "rendering"
	case FlipRequested:
		return "flip requested"
	case FlipComplete:
		return "flip complete"
	case Draining:
		return "draining"
	default:
		return fmt.Sprintf("state %d", uint8(s))
	}
}

// Stats about presented frames.
type Stats struct {
	Frames  uint64
	Elapsed time.Duration
}

// Rate is the average presentation rate.
func (s Stats) Rate() physic.Frequency {
	if s.Elapsed <= 0 {
		return 0
	}
	return physic.Frequency(float64(s.Frames) / s.Elapsed.Seconds() * float64(physic.Hertz))
}

func (s Stats) String() string {
	return fmt.Sprintf("%d frames in %s (%s)", s.Frames, s.Elapsed.Round(time.Millisecond), s.Rate())
}

// Loop presents frames alternating between two buffers. The buffer being
// rendered is never the one being scanned out: at most one flip is outstanding
// and the next frame is only rendered after its completion event arrived.
type Loop struct {
	dev     Device
	crtcID  uint32
	buffers [2]*PixelBuffer
	log     zerolog.Logger

	// MaxFrames stops Run after that many frames, 0 runs until canceled.
	MaxFrames uint64

	back    int // index of the buffer rendered next
	state   State
	pending []drm.Event
	stats   Stats
}

// NewLoop returns a loop flipping crtcID between buffers. buffers[0] must be
// the framebuffer currently scanned out, rendering starts with buffers[1].
func NewLoop(dev Device, crtcID uint32, buffers [2]*PixelBuffer, log zerolog.Logger) *Loop {
	return &Loop{
		dev:     dev,
		crtcID:  crtcID,
		buffers: buffers,
		log:     log,
		back:    1,
	}
}

// State is the current loop state.
func (l *Loop) State() State {
	return l.state
}

// Back is the index of the buffer that will be rendered next.
func (l *Loop) Back() int {
	return l.back
}

// Stats since the loop was created.
func (l *Loop) Stats() Stats {
	return l.stats
}

// Run presents frames of scene until ctx is canceled, MaxFrames is reached or
// an error occurs. Cancellation is checked between frames, so a frame in
// flight always completes.
func (l *Loop) Run(ctx context.Context, scene Scene) error {
	start := time.Now()
	defer func() {
		l.state = Draining
		l.stats.Elapsed += time.Since(start)
		l.log.Debug().Stringer("state", l.state).Uint64("frames", l.stats.Frames).Msg("presentation stopped")
		l.state = Idle
	}()

	for n := uint64(0); ; n++ {
		if ctx.Err() != nil {
			l.log.Debug().Uint64("frames", n).Msg("presentation canceled")
			return nil
		}
		if l.MaxFrames > 0 && n >= l.MaxFrames {
			return nil
		}
		if err := l.Present(scene); err != nil {
			return err
		}
	}
}

// Present renders one frame into the back buffer, flips to it and waits until
// the flip completed. The scene is advanced after the flip.
func (l *Loop) Present(scene Scene) error {
	b := l.buffers[l.back]

	l.state = Rendering
	b.Clear()
	if err := scene.Render(b.Image()); err != nil {
		return fmt.Errorf("kms: render frame %d: %w", l.stats.Frames, err)
	}

	l.state = FlipRequested
	if err := l.dev.PageFlip(l.crtcID, b.FB, uint64(l.back)); err != nil {
		return fmt.Errorf("%w: crtc %d fb %d: %w", ErrFlipSchedule, l.crtcID, b.FB, err)
	}

	tag, err := l.waitFlip()
	if err != nil {
		return err
	}
	if tag != uint64(l.back) {
		return fmt.Errorf("%w: completion for buffer %d, expected %d", ErrFlipWait, tag, l.back)
	}
	l.state = FlipComplete

	scene.Advance(b.Bounds())
	l.back ^= 1
	l.stats.Frames++
	return nil
}

// waitFlip blocks until a flip completion event is available and returns its
// tag. Other events are discarded, completions beyond the first are kept for
// the next call.
func (l *Loop) waitFlip() (uint64, error) {
	for {
		for len(l.pending) > 0 {
			e := l.pending[0]
			l.pending = l.pending[1:]
			if e.Type == drm.EventFlipComplete {
				return e.UserData, nil
			}
			l.log.Trace().Stringer("event", e).Msg("ignored event")
		}

		events, err := l.dev.ReadEvents()
		if err != nil {
			if drm.IsTemporary(err) {
				continue
			}
			return 0, fmt.Errorf("%w: %w", ErrFlipWait, err)
		}
		l.pending = append(l.pending, events...)
	}
}
