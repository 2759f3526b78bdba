package kms

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBinding = CrtcBinding{CrtcID: 51, CrtcIndex: 1, ConnectorID: 31, EncoderID: 41}

func TestCaptureBindRestore(t *testing.T) {
	dev := newFakeDevice()
	before := *dev.crtcs[51]

	saved, err := CaptureState(dev, testBinding)
	require.NoError(t, err)
	assert.True(t, saved.ModeValid)
	assert.Equal(t, uint32(7), saved.BufferID)

	b, err := AllocateBuffer(dev, 256, 256)
	require.NoError(t, err)
	mode := testMode(256, 256)
	require.NoError(t, Bind(dev, testBinding, b.FB, &mode))
	assert.Equal(t, b.FB, dev.crtcs[51].BufferID)
	assert.Equal(t, mode, dev.crtcs[51].Mode)

	require.NoError(t, Restore(dev, saved))
	assert.Equal(t, before, *dev.crtcs[51])

	again, err := CaptureState(dev, testBinding)
	require.NoError(t, err)
	assert.Equal(t, saved, again)
}

func TestRestoreDisabledCrtc(t *testing.T) {
	dev := newFakeDevice()
	binding := CrtcBinding{CrtcID: 50, ConnectorID: 31}
	saved, err := CaptureState(dev, binding)
	require.NoError(t, err)
	assert.False(t, saved.ModeValid)

	b, err := AllocateBuffer(dev, 64, 64)
	require.NoError(t, err)
	mode := testMode(64, 64)
	require.NoError(t, Bind(dev, binding, b.FB, &mode))
	require.True(t, dev.crtcs[50].ModeValid)

	require.NoError(t, Restore(dev, saved))
	assert.False(t, dev.crtcs[50].ModeValid)
	assert.Zero(t, dev.crtcs[50].BufferID)
}

func TestModeErrors(t *testing.T) {
	dev := newFakeDevice()
	dev.fail["Crtc"] = syscall.EPERM
	_, err := CaptureState(dev, testBinding)
	assert.ErrorIs(t, err, ErrResourceQuery)

	dev = newFakeDevice()
	mode := testMode(256, 256)
	assert.ErrorIs(t, Bind(dev, testBinding, 12345, &mode), ErrModeSet)

	dev.fail["SetCrtc"] = syscall.EACCES
	err = Restore(dev, &SavedState{Binding: testBinding})
	assert.ErrorIs(t, err, ErrModeSet)
	assert.ErrorIs(t, err, syscall.EACCES)
}
