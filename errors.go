package kms

import "errors"

// Errors, one per failure class. Returned errors wrap one of these together
// with the underlying cause, test with [errors.Is].
var (
	ErrDeviceOpen        = errors.New("kms: cannot open display device")
	ErrResourceQuery     = errors.New("kms: cannot query display resources")
	ErrNoConnectedOutput = errors.New("kms: no connected output")
	ErrNoCompatibleCrtc  = errors.New("kms: no CRTC compatible with output")
	ErrBufferAllocation  = errors.New("kms: buffer allocation failed")
	ErrModeSet           = errors.New("kms: mode set failed")
	ErrFlipSchedule      = errors.New("kms: page flip rejected")
	ErrFlipWait          = errors.New("kms: waiting for page flip failed")
)
