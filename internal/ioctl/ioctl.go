package ioctl

import (
	"errors"
	"fmt"
	"reflect"
	"syscall"
)

// Mode is the IOCTL mode.
type Mode uint8

// Modes
const (
	None Mode = iota
	Write
	Read
)

// Command to be sent over ioctl.
type Command uintptr

// Type is the driver-specific ioctl type (the magic byte).
func (c Command) Type() uint8 {
	return uint8(c >> 8)
}

// Number is the request number within Type.
func (c Command) Number() uint8 {
	return uint8(c)
}

// Size of the argument in bytes.
func (c Command) Size() uint16 {
	return uint16(c >> 16 & 0x3fff)
}

func (c Command) String() string {
	var (
		mode = Mode(c >> 30 & 0x03)
		str  string
	)
	if mode&Write > 0 {
		str += " write"
	}
	if mode&Read > 0 {
		str += " read"
	}
	return fmt.Sprintf("ioctl%s (%d bytes) type=%#02x nr=%#02x", str, c.Size(), c.Type(), c.Number())
}

// Error is a failed ioctl call.
type Error struct {
	Command Command
	Err     syscall.Errno
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s failed: %v", err.Command, err.Err)
}

func (err *Error) Unwrap() error {
	return err.Err
}

// Do executes the ioctl call with a pointer argument. Calls interrupted by a
// signal or reporting EAGAIN are restarted.
func Do(fd uintptr, command Command, ptr interface{}) error {
	var p uintptr

	if ptr != nil {
		v := reflect.ValueOf(ptr)
		p = v.Pointer()
	}

	return Call(fd, uintptr(command), p)
}

// Call does a plain ioctl system call.
func Call(fd, command, arg uintptr) error {
	for {
		_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, command, arg)
		switch errno {
		case 0:
			return nil
		case syscall.EINTR, syscall.EAGAIN:
			continue
		default:
			return &Error{Command: Command(command), Err: errno}
		}
	}
}

// Errno extracts the errno from a failed call, or 0.
func Errno(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}

// Encode an ioctl command.
func Encode(mode Mode, size uint16, cmd uintptr) Command {
	return Command(mode)<<30 | Command(size&0x3fff)<<16 | Command(cmd)
}

// Pointer to a value.
func Pointer(mode Mode, ref interface{}, cmd uintptr) Command {
	size := uint16(reflect.TypeOf(ref).Elem().Size())
	return Encode(mode, size, cmd)
}

// ReadWrite encodes an _IOWR(typ, nr, *ref) command.
func ReadWrite(typ, nr uint8, ref interface{}) Command {
	return Pointer(Read|Write, ref, uintptr(typ)<<8|uintptr(nr))
}

// WriteOnly encodes an _IOW(typ, nr, *ref) command.
func WriteOnly(typ, nr uint8, ref interface{}) Command {
	return Pointer(Write, ref, uintptr(typ)<<8|uintptr(nr))
}

// Plain encodes an _IO(typ, nr) command without argument.
func Plain(typ, nr uint8) Command {
	return Encode(None, 0, uintptr(typ)<<8|uintptr(nr))
}
