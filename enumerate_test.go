package kms

import (
	"errors"
	"math/rand"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeatGlow/kms/drm"
)

func TestOpenMissingDevice(t *testing.T) {
	dev, err := Open("/nonexistent/dri/card0")
	assert.Nil(t, dev)
	assert.ErrorIs(t, err, ErrDeviceOpen)
}

func TestEnumerate(t *testing.T) {
	dev := newFakeDevice()
	res, err := Enumerate(dev)
	require.NoError(t, err)
	assert.Equal(t, []uint32{50, 51}, res.Crtcs)
	assert.Equal(t, []uint32{30, 31}, res.Connectors)
}

func TestEnumerateErrors(t *testing.T) {
	tests := []struct {
		Name  string
		Setup func(*fakeDevice)
	}{
		{"no dumb buffers", func(d *fakeDevice) { d.dumbCap = 0 }},
		{"capability", func(d *fakeDevice) { d.fail["Capability"] = syscall.EINVAL }},
		{"resources", func(d *fakeDevice) { d.fail["Resources"] = syscall.EACCES }},
		{"no connectors", func(d *fakeDevice) { d.resources.Connectors = nil }},
		{"no crtcs", func(d *fakeDevice) { d.resources.Crtcs = nil }},
	}
	for _, test := range tests {
		t.Run(test.Name, func(it *testing.T) {
			dev := newFakeDevice()
			test.Setup(dev)
			res, err := Enumerate(dev)
			assert.Nil(it, res)
			assert.ErrorIs(it, err, ErrResourceQuery)
		})
	}
}

func TestSelectOutput(t *testing.T) {
	dev := newFakeDevice()
	res, err := Enumerate(dev)
	require.NoError(t, err)

	conn, binding, err := SelectOutput(dev, res)
	require.NoError(t, err)
	assert.Equal(t, uint32(31), conn.ID)
	assert.Equal(t, CrtcBinding{CrtcID: 51, CrtcIndex: 1, ConnectorID: 31, EncoderID: 41}, binding)
}

func TestSelectOutputFirstMatch(t *testing.T) {
	dev := newFakeDevice()
	dev.connectors[30].Connection = drm.Connected
	dev.connectors[30].Encoders = []uint32{41, 40}
	dev.encoders[41].PossibleCrtcs = 0b11

	_, binding, err := SelectOutput(dev, &dev.resources)
	require.NoError(t, err)
	assert.Equal(t, CrtcBinding{CrtcID: 50, CrtcIndex: 0, ConnectorID: 30, EncoderID: 41}, binding)
}

func TestSelectOutputSkipsFailingProbes(t *testing.T) {
	dev := newFakeDevice()
	dev.resources.Connectors = []uint32{29, 30, 31}
	dev.connectors[31].Encoders = []uint32{39, 41}

	conn, binding, err := SelectOutput(dev, &dev.resources)
	require.NoError(t, err)
	assert.Equal(t, uint32(31), conn.ID)
	assert.Equal(t, uint32(41), binding.EncoderID)
}

func TestSelectOutputErrors(t *testing.T) {
	t.Run("disconnected", func(it *testing.T) {
		dev := newFakeDevice()
		dev.connectors[31].Connection = drm.UnknownConnection
		_, _, err := SelectOutput(dev, &dev.resources)
		assert.ErrorIs(it, err, ErrNoConnectedOutput)
	})
	t.Run("query failure", func(it *testing.T) {
		dev := newFakeDevice()
		dev.fail["Connector"] = syscall.EIO
		_, _, err := SelectOutput(dev, &dev.resources)
		assert.ErrorIs(it, err, ErrNoConnectedOutput)
		assert.ErrorIs(it, err, syscall.EIO)
	})
	t.Run("no crtc", func(it *testing.T) {
		dev := newFakeDevice()
		dev.encoders[41].PossibleCrtcs = 0b100
		_, _, err := SelectOutput(dev, &dev.resources)
		assert.ErrorIs(it, err, ErrNoCompatibleCrtc)
	})
	t.Run("no encoders", func(it *testing.T) {
		dev := newFakeDevice()
		dev.connectors[31].Encoders = nil
		_, _, err := SelectOutput(dev, &dev.resources)
		assert.ErrorIs(it, err, ErrNoCompatibleCrtc)
	})
}

// The selector never returns a pair the hardware cannot drive.
func TestSelectOutputRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		dev := newFakeDevice()
		dev.resources.Crtcs = nil
		dev.resources.Connectors = nil
		dev.connectors = make(map[uint32]*drm.Connector)
		dev.encoders = make(map[uint32]*drm.Encoder)
		for j := 0; j < 1+r.Intn(4); j++ {
			dev.resources.Crtcs = append(dev.resources.Crtcs, uint32(50+j))
		}
		for j := 0; j < 1+r.Intn(6); j++ {
			id := uint32(40 + j)
			dev.encoders[id] = &drm.Encoder{ID: id, PossibleCrtcs: uint32(r.Intn(32))}
		}
		for j := 0; j < 1+r.Intn(4); j++ {
			id := uint32(30 + j)
			c := &drm.Connector{ID: id, Connection: drm.ConnectionStatus(1 + r.Intn(3))}
			for k := 0; k < r.Intn(3); k++ {
				c.Encoders = append(c.Encoders, uint32(40+r.Intn(7)))
			}
			dev.connectors[id] = c
			dev.resources.Connectors = append(dev.resources.Connectors, id)
		}

		conn, binding, err := SelectOutput(dev, &dev.resources)
		if err != nil {
			assert.True(t, errors.Is(err, ErrNoConnectedOutput) || errors.Is(err, ErrNoCompatibleCrtc), err)
			continue
		}
		assert.Equal(t, drm.Connected, conn.Connection)
		assert.Equal(t, conn.ID, binding.ConnectorID)
		assert.Contains(t, conn.Encoders, binding.EncoderID)
		require.Less(t, binding.CrtcIndex, len(dev.resources.Crtcs))
		assert.Equal(t, dev.resources.Crtcs[binding.CrtcIndex], binding.CrtcID)
		assert.NotZero(t, dev.encoders[binding.EncoderID].PossibleCrtcs&(1<<uint(binding.CrtcIndex)))
	}
}
