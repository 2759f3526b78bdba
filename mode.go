package kms

import (
	"fmt"

	"github.com/BeatGlow/kms/drm"
)

// SavedState is the configuration a CRTC had before the session took it over.
type SavedState struct {
	Binding   CrtcBinding
	BufferID  uint32
	X, Y      uint32
	ModeValid bool
	Mode      drm.ModeInfo
}

func (s *SavedState) String() string {
	if !s.ModeValid {
		return fmt.Sprintf("crtc %d disabled", s.Binding.CrtcID)
	}
	return fmt.Sprintf("crtc %d fb %d at %d,%d mode %s", s.Binding.CrtcID, s.BufferID, s.X, s.Y, s.Mode)
}

// CaptureState reads the current configuration of the bound CRTC.
func CaptureState(dev Device, binding CrtcBinding) (*SavedState, error) {
	crtc, err := dev.Crtc(binding.CrtcID)
	if err != nil {
		return nil, fmt.Errorf("%w: crtc %d: %w", ErrResourceQuery, binding.CrtcID, err)
	}
	return &SavedState{
		Binding:   binding,
		BufferID:  crtc.BufferID,
		X:         crtc.X,
		Y:         crtc.Y,
		ModeValid: crtc.ModeValid,
		Mode:      crtc.Mode,
	}, nil
}

// Bind makes the CRTC scan out framebuffer fbID from its origin to the bound
// connector using mode.
func Bind(dev Device, binding CrtcBinding, fbID uint32, mode *drm.ModeInfo) error {
	if err := dev.SetCrtc(binding.CrtcID, fbID, 0, 0, []uint32{binding.ConnectorID}, mode); err != nil {
		return fmt.Errorf("%w: crtc %d fb %d mode %s: %w", ErrModeSet, binding.CrtcID, fbID, mode, err)
	}
	return nil
}

// Restore reprograms the CRTC with a captured configuration. A CRTC that had no
// valid mode is disabled.
func Restore(dev Device, saved *SavedState) error {
	var err error
	if saved.ModeValid {
		mode := saved.Mode
		err = dev.SetCrtc(saved.Binding.CrtcID, saved.BufferID, saved.X, saved.Y,
			[]uint32{saved.Binding.ConnectorID}, &mode)
	} else {
		err = dev.SetCrtc(saved.Binding.CrtcID, 0, 0, 0, nil, nil)
	}
	if err != nil {
		return fmt.Errorf("%w: restore %s: %w", ErrModeSet, saved, err)
	}
	return nil
}
