package kms

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/BeatGlow/kms/drm"
)

// fakeDevice is an in-memory display subsystem. It records every call and
// keeps track of CRTC configuration, live objects and outstanding flips.
type fakeDevice struct {
	resources  drm.Resources
	connectors map[uint32]*drm.Connector
	encoders   map[uint32]*drm.Encoder
	crtcs      map[uint32]*drm.Crtc
	dumbCap    uint64

	// fail makes the named operation return the error.
	fail map[string]error

	// temporary is the number of ReadEvents calls failing with EAGAIN
	// before events are delivered.
	temporary int

	calls   []string
	dumbs   map[uint32]uint64
	fbs     map[uint32]uint32
	mapped  int
	flipped []uint32 // framebuffers in flip order
	events  []drm.Event
	closed  bool

	nextHandle uint32
	nextFB     uint32
}

func testMode(w, h uint16) drm.ModeInfo {
	m := drm.ModeInfo{Hdisplay: w, Vdisplay: h, Vrefresh: 60}
	copy(m.Name[:], fmt.Sprintf("%dx%d", w, h))
	return m
}

// newFakeDevice has one connected 256×256 output on connector 31, encoder 41
// and the second of two CRTCs, which is scanning out framebuffer 7.
func newFakeDevice() *fakeDevice {
	mode := testMode(256, 256)
	return &fakeDevice{
		resources: drm.Resources{
			Crtcs:      []uint32{50, 51},
			Connectors: []uint32{30, 31},
			Encoders:   []uint32{40, 41},
		},
		connectors: map[uint32]*drm.Connector{
			30: {ID: 30, Connection: drm.Disconnected, Encoders: []uint32{40}},
			31: {ID: 31, Connection: drm.Connected, Encoders: []uint32{41}, Modes: []drm.ModeInfo{mode, testMode(128, 128)}},
		},
		encoders: map[uint32]*drm.Encoder{
			40: {ID: 40, PossibleCrtcs: 0b01},
			41: {ID: 41, PossibleCrtcs: 0b10},
		},
		crtcs: map[uint32]*drm.Crtc{
			50: {ID: 50},
			51: {ID: 51, BufferID: 7, ModeValid: true, Mode: testMode(640, 480)},
		},
		dumbCap:    1,
		fail:       make(map[string]error),
		dumbs:      make(map[uint32]uint64),
		fbs:        make(map[uint32]uint32),
		nextHandle: 1,
		nextFB:     100,
	}
}

func (d *fakeDevice) call(format string, args ...interface{}) error {
	name, _, _ := strings.Cut(format, " ")
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
	return d.fail[name]
}

func (d *fakeDevice) Close() error {
	if err := d.call("Close"); err != nil {
		return err
	}
	d.closed = true
	return nil
}

func (d *fakeDevice) Capability(c uint64) (uint64, error) {
	if err := d.call("Capability %d", c); err != nil {
		return 0, err
	}
	if c == drm.CapDumbBuffer {
		return d.dumbCap, nil
	}
	return 0, nil
}

func (d *fakeDevice) Resources() (*drm.Resources, error) {
	if err := d.call("Resources"); err != nil {
		return nil, err
	}
	res := d.resources
	return &res, nil
}

func (d *fakeDevice) Connector(id uint32) (*drm.Connector, error) {
	if err := d.call("Connector %d", id); err != nil {
		return nil, err
	}
	c, ok := d.connectors[id]
	if !ok {
		return nil, syscall.ENOENT
	}
	cc := *c
	return &cc, nil
}

func (d *fakeDevice) Encoder(id uint32) (*drm.Encoder, error) {
	if err := d.call("Encoder %d", id); err != nil {
		return nil, err
	}
	e, ok := d.encoders[id]
	if !ok {
		return nil, syscall.ENOENT
	}
	ee := *e
	return &ee, nil
}

func (d *fakeDevice) Crtc(id uint32) (*drm.Crtc, error) {
	if err := d.call("Crtc %d", id); err != nil {
		return nil, err
	}
	c, ok := d.crtcs[id]
	if !ok {
		return nil, syscall.ENOENT
	}
	cc := *c
	return &cc, nil
}

func (d *fakeDevice) SetCrtc(crtcID, fbID, x, y uint32, connectors []uint32, mode *drm.ModeInfo) error {
	if err := d.call("SetCrtc %d %d", crtcID, fbID); err != nil {
		return err
	}
	c, ok := d.crtcs[crtcID]
	if !ok {
		return syscall.ENOENT
	}
	if fbID != 0 && fbID != 7 {
		if _, ok := d.fbs[fbID]; !ok {
			return syscall.ENOENT
		}
	}
	c.BufferID, c.X, c.Y = fbID, x, y
	if mode != nil {
		c.ModeValid, c.Mode = true, *mode
	} else {
		c.ModeValid, c.Mode = false, drm.ModeInfo{}
	}
	return nil
}

func (d *fakeDevice) CreateDumb(width, height, bpp uint32) (*drm.DumbBuffer, error) {
	if err := d.call("CreateDumb %dx%d", width, height); err != nil {
		return nil, err
	}
	pitch := (width*bpp/8 + 63) &^ 63
	b := &drm.DumbBuffer{Handle: d.nextHandle, Pitch: pitch, Size: uint64(pitch) * uint64(height)}
	d.dumbs[b.Handle] = b.Size
	d.nextHandle++
	return b, nil
}

func (d *fakeDevice) DestroyDumb(handle uint32) error {
	if err := d.call("DestroyDumb %d", handle); err != nil {
		return err
	}
	if _, ok := d.dumbs[handle]; !ok {
		return syscall.ENOENT
	}
	delete(d.dumbs, handle)
	return nil
}

func (d *fakeDevice) AddFB(width, height uint32, depth, bpp uint8, pitch, handle uint32) (uint32, error) {
	if err := d.call("AddFB %d", handle); err != nil {
		return 0, err
	}
	if _, ok := d.dumbs[handle]; !ok {
		return 0, syscall.ENOENT
	}
	if depth != 24 || bpp != 32 {
		return 0, syscall.EINVAL
	}
	id := d.nextFB
	d.fbs[id] = handle
	d.nextFB++
	return id, nil
}

func (d *fakeDevice) RemoveFB(fbID uint32) error {
	if err := d.call("RemoveFB %d", fbID); err != nil {
		return err
	}
	if _, ok := d.fbs[fbID]; !ok {
		return syscall.ENOENT
	}
	delete(d.fbs, fbID)
	return nil
}

func (d *fakeDevice) Map(handle uint32, size uint64) ([]byte, error) {
	if err := d.call("Map %d", handle); err != nil {
		return nil, err
	}
	if have, ok := d.dumbs[handle]; !ok || have != size {
		return nil, syscall.EINVAL
	}
	d.mapped++
	return make([]byte, size), nil
}

func (d *fakeDevice) Unmap(b []byte) error {
	if err := d.call("Unmap"); err != nil {
		return err
	}
	d.mapped--
	return nil
}

func (d *fakeDevice) PageFlip(crtcID, fbID uint32, userData uint64) error {
	if err := d.call("PageFlip %d %d", fbID, userData); err != nil {
		return err
	}
	for _, e := range d.events {
		if e.Type == drm.EventFlipComplete {
			return syscall.EBUSY
		}
	}
	d.crtcs[crtcID].BufferID = fbID
	d.flipped = append(d.flipped, fbID)
	d.events = append(d.events, drm.Event{
		Type:     drm.EventFlipComplete,
		UserData: userData,
		Sequence: uint32(len(d.flipped)),
		CrtcID:   crtcID,
	})
	return nil
}

func (d *fakeDevice) ReadEvents() ([]drm.Event, error) {
	if err := d.call("ReadEvents"); err != nil {
		return nil, err
	}
	if d.temporary > 0 {
		d.temporary--
		return nil, syscall.EAGAIN
	}
	if len(d.events) == 0 {
		return nil, syscall.EIO
	}
	events := d.events
	d.events = nil
	return events, nil
}

// live reports whether any buffer object is still allocated.
func (d *fakeDevice) live() bool {
	return len(d.dumbs) > 0 || len(d.fbs) > 0 || d.mapped > 0
}

var _ Device = (*fakeDevice)(nil)
