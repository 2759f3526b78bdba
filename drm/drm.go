// Package drm talks to the Linux Direct Rendering Manager kernel mode-setting
// (KMS) interface.
//
// It covers what a software renderer needs to own a display output: resource
// enumeration, dumb buffer allocation and mapping, framebuffer objects, CRTC
// programming, page flips and the event stream that reports their completion.
// Everything is plain ioctl and mmap on the card device node; there is no
// libdrm dependency.
package drm

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"syscall"

	"periph.io/x/conn/v3/physic"
)

// DefaultCard is the device node of the first DRM card.
const DefaultCard = "/dev/dri/card0"

// Errors
var (
	ErrNotSupported = errors.New("drm: not supported")
	ErrShortEvent   = errors.New("drm: truncated event")
)

// Capabilities for [Card.Capability].
const (
	CapDumbBuffer         = 0x01
	CapVBlankHighCrtc     = 0x02
	CapDumbPreferDepth    = 0x03
	CapDumbPreferShadow   = 0x04
	CapPrime              = 0x05
	CapTimestampMonotonic = 0x06
	CapAsyncPageFlip      = 0x07
)

// Page flip flags.
const (
	PageFlipEvent = 0x01
	PageFlipAsync = 0x02
)

// ConnectionStatus of a connector.
type ConnectionStatus uint32

// Connection states as reported by the kernel.
const (
	Connected         ConnectionStatus = 1
	Disconnected      ConnectionStatus = 2
	UnknownConnection ConnectionStatus = 3
)

func (s ConnectionStatus) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ModeInfo is a display timing mode, laid out as struct drm_mode_modeinfo.
type ModeInfo struct {
	Clock                                         uint32
	Hdisplay, HsyncStart, HsyncEnd, Htotal, Hskew uint16
	Vdisplay, VsyncStart, VsyncEnd, Vtotal, Vscan uint16
	Vrefresh                                      uint32
	Flags                                         uint32
	Type                                          uint32
	Name                                          [32]byte
}

// Size is the visible resolution.
func (m ModeInfo) Size() image.Point {
	return image.Pt(int(m.Hdisplay), int(m.Vdisplay))
}

// Refresh is the vertical refresh rate.
func (m ModeInfo) Refresh() physic.Frequency {
	return physic.Frequency(m.Vrefresh) * physic.Hertz
}

func (m ModeInfo) String() string {
	name, _, _ := bytes.Cut(m.Name[:], []byte{0})
	if len(name) == 0 {
		return fmt.Sprintf("%dx%d@%d", m.Hdisplay, m.Vdisplay, m.Vrefresh)
	}
	return fmt.Sprintf("%s@%d", name, m.Vrefresh)
}

// Resources is a snapshot of the card's display pipeline objects.
type Resources struct {
	Framebuffers []uint32
	Crtcs        []uint32
	Connectors   []uint32
	Encoders     []uint32

	MinWidth, MaxWidth   uint32
	MinHeight, MaxHeight uint32
}

// Connector is a physical output.
type Connector struct {
	ID         uint32
	EncoderID  uint32 // currently attached encoder, 0 if none
	Type       uint32
	TypeID     uint32
	Connection ConnectionStatus

	// Physical size in millimeters.
	Width, Height uint32
	Subpixel      uint32

	// Modes in kernel order; the first one is the preferred mode.
	Modes    []ModeInfo
	Encoders []uint32
}

// Encoder feeds a connector from a CRTC.
type Encoder struct {
	ID             uint32
	Type           uint32
	CrtcID         uint32
	PossibleCrtcs  uint32 // bit i set if Resources.Crtcs[i] can drive this encoder
	PossibleClones uint32
}

// Crtc is the scanout configuration of a CRTC.
type Crtc struct {
	ID        uint32
	BufferID  uint32 // framebuffer being scanned out, 0 if none
	X, Y      uint32
	GammaSize uint32
	ModeValid bool
	Mode      ModeInfo
}

// DumbBuffer is the result of a dumb buffer allocation.
type DumbBuffer struct {
	Handle uint32
	Pitch  uint32
	Size   uint64
}

// IsTemporary reports whether err is a transient condition (EAGAIN, EINTR)
// worth retrying.
func IsTemporary(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EINTR)
}
