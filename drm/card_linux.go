package drm

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/BeatGlow/kms/internal/ioctl"
)

// From <drm/drm.h> and <drm/drm_mode.h>
const ioctlBase = 'd'

type (
	sysGetCap struct {
		capability uint64
		value      uint64
	}

	sysResources struct {
		fbIDPtr, crtcIDPtr, connectorIDPtr, encoderIDPtr uint64

		countFbs, countCrtcs, countConnectors, countEncoders uint32

		minWidth, maxWidth   uint32
		minHeight, maxHeight uint32
	}

	sysGetConnector struct {
		encodersPtr   uint64
		modesPtr      uint64
		propsPtr      uint64
		propValuesPtr uint64

		countModes    uint32
		countProps    uint32
		countEncoders uint32

		encoderID       uint32
		connectorID     uint32
		connectorType   uint32
		connectorTypeID uint32

		connection        uint32
		mmWidth, mmHeight uint32
		subpixel          uint32
		_                 uint32
	}

	sysGetEncoder struct {
		encoderID      uint32
		encoderType    uint32
		crtcID         uint32
		possibleCrtcs  uint32
		possibleClones uint32
	}

	sysCrtc struct {
		setConnectorsPtr uint64
		countConnectors  uint32

		crtcID uint32
		fbID   uint32
		x, y   uint32

		gammaSize uint32
		modeValid uint32
		mode      ModeInfo
	}

	sysCreateDumb struct {
		height, width uint32
		bpp           uint32
		flags         uint32

		handle uint32
		pitch  uint32
		size   uint64
	}

	sysMapDumb struct {
		handle uint32
		_      uint32
		offset uint64
	}

	sysDestroyDumb struct {
		handle uint32
	}

	sysFBCmd struct {
		fbID          uint32
		width, height uint32
		pitch         uint32
		bpp           uint32
		depth         uint32
		handle        uint32
	}

	sysPageFlip struct {
		crtcID   uint32
		fbID     uint32
		flags    uint32
		_        uint32
		userData uint64
	}
)

var (
	ioctlSetMaster        = ioctl.Plain(ioctlBase, 0x1e)
	ioctlDropMaster       = ioctl.Plain(ioctlBase, 0x1f)
	ioctlGetCap           = ioctl.ReadWrite(ioctlBase, 0x0c, new(sysGetCap))
	ioctlModeGetResources = ioctl.ReadWrite(ioctlBase, 0xa0, new(sysResources))
	ioctlModeGetCrtc      = ioctl.ReadWrite(ioctlBase, 0xa1, new(sysCrtc))
	ioctlModeSetCrtc      = ioctl.ReadWrite(ioctlBase, 0xa2, new(sysCrtc))
	ioctlModeGetEncoder   = ioctl.ReadWrite(ioctlBase, 0xa6, new(sysGetEncoder))
	ioctlModeGetConnector = ioctl.ReadWrite(ioctlBase, 0xa7, new(sysGetConnector))
	ioctlModeAddFB        = ioctl.ReadWrite(ioctlBase, 0xae, new(sysFBCmd))
	ioctlModeRmFB         = ioctl.ReadWrite(ioctlBase, 0xaf, new(uint32))
	ioctlModePageFlip     = ioctl.ReadWrite(ioctlBase, 0xb0, new(sysPageFlip))
	ioctlModeCreateDumb   = ioctl.ReadWrite(ioctlBase, 0xb2, new(sysCreateDumb))
	ioctlModeMapDumb      = ioctl.ReadWrite(ioctlBase, 0xb3, new(sysMapDumb))
	ioctlModeDestroyDumb  = ioctl.ReadWrite(ioctlBase, 0xb4, new(sysDestroyDumb))
)

// Card is an open DRM device node.
type Card struct {
	fd     int
	path   string
	events []byte
}

// Open a DRM card by device node, typically /dev/dri/card[0..x], and become
// its DRM master. Opening fails if another client holds master.
func Open(path string) (*Card, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}

	c := &Card{
		fd:     fd,
		path:   path,
		events: make([]byte, minEventReadBuffer),
	}
	if err = c.ioctl(ioctlSetMaster, nil); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("drm: %s: set master: %w", path, err)
	}
	return c, nil
}

func (c *Card) String() string {
	return c.path
}

// Fd is the device file descriptor.
func (c *Card) Fd() uintptr {
	return uintptr(c.fd)
}

// Close drops DRM master and closes the device.
func (c *Card) Close() error {
	_ = c.ioctl(ioctlDropMaster, nil)
	if err := unix.Close(c.fd); err != nil {
		return &os.PathError{Op: "close", Path: c.path, Err: err}
	}
	return nil
}

func (c *Card) ioctl(cmd ioctl.Command, arg interface{}) error {
	return ioctl.Do(uintptr(c.fd), cmd, arg)
}

// Capability queries a driver capability, see the Cap constants.
func (c *Card) Capability(capability uint64) (uint64, error) {
	req := &sysGetCap{capability: capability}
	if err := c.ioctl(ioctlGetCap, req); err != nil {
		return 0, err
	}
	return req.value, nil
}

// Resources lists the card's framebuffers, CRTCs, connectors and encoders.
func (c *Card) Resources() (*Resources, error) {
	for {
		var req sysResources
		if err := c.ioctl(ioctlModeGetResources, &req); err != nil {
			return nil, err
		}

		res := &Resources{
			Framebuffers: make([]uint32, req.countFbs),
			Crtcs:        make([]uint32, req.countCrtcs),
			Connectors:   make([]uint32, req.countConnectors),
			Encoders:     make([]uint32, req.countEncoders),
		}
		want := req
		req.fbIDPtr = slicePointer(res.Framebuffers)
		req.crtcIDPtr = slicePointer(res.Crtcs)
		req.connectorIDPtr = slicePointer(res.Connectors)
		req.encoderIDPtr = slicePointer(res.Encoders)
		err := c.ioctl(ioctlModeGetResources, &req)
		runtime.KeepAlive(res)
		if err != nil {
			return nil, err
		}

		// Objects were hot-plugged between the two calls, try again.
		if req.countFbs > want.countFbs ||
			req.countCrtcs > want.countCrtcs ||
			req.countConnectors > want.countConnectors ||
			req.countEncoders > want.countEncoders {
			continue
		}

		res.Framebuffers = res.Framebuffers[:req.countFbs]
		res.Crtcs = res.Crtcs[:req.countCrtcs]
		res.Connectors = res.Connectors[:req.countConnectors]
		res.Encoders = res.Encoders[:req.countEncoders]
		res.MinWidth, res.MaxWidth = req.minWidth, req.maxWidth
		res.MinHeight, res.MaxHeight = req.minHeight, req.maxHeight
		return res, nil
	}
}

// Connector queries a connector, including its list of modes.
func (c *Card) Connector(id uint32) (*Connector, error) {
	for {
		req := sysGetConnector{connectorID: id}
		if err := c.ioctl(ioctlModeGetConnector, &req); err != nil {
			return nil, err
		}

		var (
			want       = req
			modes      = make([]ModeInfo, req.countModes)
			encoders   = make([]uint32, req.countEncoders)
			props      = make([]uint32, req.countProps)
			propValues = make([]uint64, req.countProps)
		)
		req.modesPtr = slicePointer(modes)
		req.encodersPtr = slicePointer(encoders)
		req.propsPtr = slicePointer(props)
		req.propValuesPtr = slicePointer(propValues)
		err := c.ioctl(ioctlModeGetConnector, &req)
		runtime.KeepAlive(modes)
		runtime.KeepAlive(encoders)
		runtime.KeepAlive(props)
		runtime.KeepAlive(propValues)
		if err != nil {
			return nil, err
		}

		if req.countModes > want.countModes ||
			req.countEncoders > want.countEncoders ||
			req.countProps > want.countProps {
			continue
		}

		return &Connector{
			ID:         req.connectorID,
			EncoderID:  req.encoderID,
			Type:       req.connectorType,
			TypeID:     req.connectorTypeID,
			Connection: ConnectionStatus(req.connection),
			Width:      req.mmWidth,
			Height:     req.mmHeight,
			Subpixel:   req.subpixel,
			Modes:      modes[:req.countModes],
			Encoders:   encoders[:req.countEncoders],
		}, nil
	}
}

// Encoder returns an encoder and the CRTCs it can be driven by.
func (c *Card) Encoder(id uint32) (*Encoder, error) {
	req := &sysGetEncoder{encoderID: id}
	if err := c.ioctl(ioctlModeGetEncoder, req); err != nil {
		return nil, err
	}
	return &Encoder{
		ID:             req.encoderID,
		Type:           req.encoderType,
		CrtcID:         req.crtcID,
		PossibleCrtcs:  req.possibleCrtcs,
		PossibleClones: req.possibleClones,
	}, nil
}

// Crtc returns the current configuration of a CRTC.
func (c *Card) Crtc(id uint32) (*Crtc, error) {
	req := &sysCrtc{crtcID: id}
	if err := c.ioctl(ioctlModeGetCrtc, req); err != nil {
		return nil, err
	}
	return &Crtc{
		ID:        req.crtcID,
		BufferID:  req.fbID,
		X:         req.x,
		Y:         req.y,
		GammaSize: req.gammaSize,
		ModeValid: req.modeValid != 0,
		Mode:      req.mode,
	}, nil
}

// SetCrtc programs a CRTC to scan out framebuffer fbID at (x, y) to the given
// connectors using mode. A nil mode with fbID 0 disables the CRTC.
func (c *Card) SetCrtc(crtcID, fbID, x, y uint32, connectors []uint32, mode *ModeInfo) error {
	req := &sysCrtc{
		crtcID:           crtcID,
		fbID:             fbID,
		x:                x,
		y:                y,
		setConnectorsPtr: slicePointer(connectors),
		countConnectors:  uint32(len(connectors)),
	}
	if mode != nil {
		req.mode = *mode
		req.modeValid = 1
	}
	err := c.ioctl(ioctlModeSetCrtc, req)
	runtime.KeepAlive(connectors)
	return err
}

// CreateDumb allocates a linear, CPU accessible buffer. The kernel picks the
// pitch, which may be larger than width * bpp / 8.
func (c *Card) CreateDumb(width, height, bpp uint32) (*DumbBuffer, error) {
	req := &sysCreateDumb{
		width:  width,
		height: height,
		bpp:    bpp,
	}
	if err := c.ioctl(ioctlModeCreateDumb, req); err != nil {
		return nil, err
	}
	return &DumbBuffer{
		Handle: req.handle,
		Pitch:  req.pitch,
		Size:   req.size,
	}, nil
}

// DestroyDumb frees a dumb buffer.
func (c *Card) DestroyDumb(handle uint32) error {
	return c.ioctl(ioctlModeDestroyDumb, &sysDestroyDumb{handle: handle})
}

// AddFB wraps a buffer object as a framebuffer that can be scanned out.
func (c *Card) AddFB(width, height uint32, depth, bpp uint8, pitch, handle uint32) (uint32, error) {
	req := &sysFBCmd{
		width:  width,
		height: height,
		pitch:  pitch,
		bpp:    uint32(bpp),
		depth:  uint32(depth),
		handle: handle,
	}
	if err := c.ioctl(ioctlModeAddFB, req); err != nil {
		return 0, err
	}
	return req.fbID, nil
}

// RemoveFB removes a framebuffer. Removing the framebuffer a CRTC is scanning
// out disables that CRTC.
func (c *Card) RemoveFB(fbID uint32) error {
	return c.ioctl(ioctlModeRmFB, &fbID)
}

// Map maps a dumb buffer of size bytes read/write and shared into memory.
func (c *Card) Map(handle uint32, size uint64) ([]byte, error) {
	req := &sysMapDumb{handle: handle}
	if err := c.ioctl(ioctlModeMapDumb, req); err != nil {
		return nil, err
	}
	b, err := unix.Mmap(c.fd, int64(req.offset), int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, os.NewSyscallError("mmap", err)
	}
	return b, nil
}

// Unmap releases a mapping returned by Map.
func (c *Card) Unmap(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return os.NewSyscallError("munmap", err)
	}
	return nil
}

// PageFlip schedules fbID to be scanned out by crtcID at the next vertical
// blank. Completion is reported by an EventFlipComplete carrying userData.
func (c *Card) PageFlip(crtcID, fbID uint32, userData uint64) error {
	return c.ioctl(ioctlModePageFlip, &sysPageFlip{
		crtcID:   crtcID,
		fbID:     fbID,
		flags:    PageFlipEvent,
		userData: userData,
	})
}

// ReadEvents blocks until the kernel has events for this client and returns
// them.
func (c *Card) ReadEvents() ([]Event, error) {
	n, err := unix.Read(c.fd, c.events)
	if err != nil {
		return nil, os.NewSyscallError("read", err)
	}
	return ParseEvents(c.events[:n])
}

func slicePointer[T any](s []T) uint64 {
	if len(s) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&s[0])))
}
