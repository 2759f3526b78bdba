package drm

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Event types read from the card.
const (
	EventVBlank        = 0x01
	EventFlipComplete  = 0x02
	EventCrtcSequence  = 0x03
	eventHeaderSize    = 8
	eventVBlankSize    = 32
	minEventReadBuffer = 1024
)

// Event is a vblank-style event delivered by the kernel.
type Event struct {
	Type     uint32
	UserData uint64
	Sec      uint32
	Usec     uint32
	Sequence uint32
	CrtcID   uint32
}

// Time is the timestamp of the vblank that completed the event.
func (e Event) Time() time.Duration {
	return time.Duration(e.Sec)*time.Second + time.Duration(e.Usec)*time.Microsecond
}

func (e Event) String() string {
	var kind string
	switch e.Type {
	case EventVBlank:
		kind = "vblank"
	case EventFlipComplete:
		kind = "flip complete"
	case EventCrtcSequence:
		kind = "crtc sequence"
	default:
		kind = fmt.Sprintf("event %#x", e.Type)
	}
	return fmt.Sprintf("%s crtc=%d seq=%d data=%d", kind, e.CrtcID, e.Sequence, e.UserData)
}

// ParseEvents decodes the events contained in one read from the card. Events
// of unknown types are returned with only Type set.
func ParseEvents(b []byte) ([]Event, error) {
	var events []Event
	for len(b) > 0 {
		if len(b) < eventHeaderSize {
			return events, ErrShortEvent
		}
		var (
			typ    = binary.NativeEndian.Uint32(b[0:])
			length = int(binary.NativeEndian.Uint32(b[4:]))
		)
		if length < eventHeaderSize || length > len(b) {
			return events, ErrShortEvent
		}

		e := Event{Type: typ}
		switch typ {
		case EventVBlank, EventFlipComplete:
			if length < eventVBlankSize {
				return events, ErrShortEvent
			}
			e.UserData = binary.NativeEndian.Uint64(b[8:])
			e.Sec = binary.NativeEndian.Uint32(b[16:])
			e.Usec = binary.NativeEndian.Uint32(b[20:])
			e.Sequence = binary.NativeEndian.Uint32(b[24:])
			e.CrtcID = binary.NativeEndian.Uint32(b[28:])
		case EventCrtcSequence:
			// struct drm_event_crtc_sequence: user_data, time_ns, sequence
			if length < 32 {
				return events, ErrShortEvent
			}
			e.UserData = binary.NativeEndian.Uint64(b[8:])
			ns := int64(binary.NativeEndian.Uint64(b[16:]))
			e.Sec = uint32(ns / int64(time.Second))
			e.Usec = uint32(ns % int64(time.Second) / int64(time.Microsecond))
			e.Sequence = uint32(binary.NativeEndian.Uint64(b[24:]))
		}
		events = append(events, e)
		b = b[length:]
	}
	return events, nil
}

// AppendEvent encodes e the way the kernel does; used to fake event streams.
func AppendEvent(b []byte, e Event) []byte {
	var p [eventVBlankSize]byte
	binary.NativeEndian.PutUint32(p[0:], e.Type)
	binary.NativeEndian.PutUint32(p[4:], eventVBlankSize)
	binary.NativeEndian.PutUint64(p[8:], e.UserData)
	binary.NativeEndian.PutUint32(p[16:], e.Sec)
	binary.NativeEndian.PutUint32(p[20:], e.Usec)
	binary.NativeEndian.PutUint32(p[24:], e.Sequence)
	binary.NativeEndian.PutUint32(p[28:], e.CrtcID)
	return append(b, p[:]...)
}
