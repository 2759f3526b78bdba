package kms

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeatGlow/kms/pixel"
)

func TestAllocateBuffer(t *testing.T) {
	for _, size := range [][2]int{{256, 256}, {250, 100}, {1, 1}, {1920, 1080}} {
		dev := newFakeDevice()
		b, err := AllocateBuffer(dev, size[0], size[1])
		require.NoError(t, err)

		assert.GreaterOrEqual(t, b.Pitch, uint32(size[0]*4))
		assert.GreaterOrEqual(t, b.Size, uint64(b.Pitch)*uint64(size[1]))
		assert.Len(t, b.Pix, int(b.Size))
		assert.NotZero(t, b.FB)
		assert.Equal(t, b.Bounds(), b.Image().Bounds())
		assert.Equal(t, int(b.Pitch), b.Image().Stride)

		require.NoError(t, b.Destroy())
		assert.False(t, dev.live())
		assert.Nil(t, b.Pix)
	}
}

func TestAllocateBufferErrors(t *testing.T) {
	tests := []struct {
		Name string
		Fail string
		Want []string
	}{
		{"create", "CreateDumb", []string{"CreateDumb 64x32"}},
		{"add", "AddFB", []string{"CreateDumb 64x32", "AddFB 1", "DestroyDumb 1"}},
		{"map", "Map", []string{"CreateDumb 64x32", "AddFB 1", "Map 1", "RemoveFB 100", "DestroyDumb 1"}},
	}
	for _, test := range tests {
		t.Run(test.Name, func(it *testing.T) {
			dev := newFakeDevice()
			dev.fail[test.Fail] = syscall.ENOMEM
			b, err := AllocateBuffer(dev, 64, 32)
			assert.Nil(it, b)
			assert.ErrorIs(it, err, ErrBufferAllocation)
			assert.ErrorIs(it, err, syscall.ENOMEM)
			assert.Equal(it, test.Want, dev.calls)
			assert.False(it, dev.live())
		})
	}

	t.Run("size", func(it *testing.T) {
		dev := newFakeDevice()
		_, err := AllocateBuffer(dev, 0, 10)
		assert.ErrorIs(it, err, ErrBufferAllocation)
		assert.Empty(it, dev.calls)
	})
}

func TestBufferDestroyOrder(t *testing.T) {
	dev := newFakeDevice()
	b, err := AllocateBuffer(dev, 16, 16)
	require.NoError(t, err)

	dev.calls = nil
	dev.fail["Unmap"] = syscall.EINVAL
	err = b.Destroy()
	assert.ErrorIs(t, err, syscall.EINVAL)
	assert.Equal(t, []string{"Unmap", "RemoveFB 100", "DestroyDumb 1"}, dev.calls)

	// Released objects are not released again.
	dev.calls = nil
	assert.NoError(t, b.Destroy())
	assert.Empty(t, dev.calls)
}

func TestBufferClearAndPadding(t *testing.T) {
	dev := newFakeDevice()
	b, err := AllocateBuffer(dev, 250, 4)
	require.NoError(t, err)
	require.Equal(t, uint32(1024), b.Pitch)

	for i := range b.Pix {
		b.Pix[i] = 0xaa
	}
	b.Image().Fill(pixel.Magenta)
	for y := 0; y < 4; y++ {
		row := b.Pix[y*1024 : (y+1)*1024]
		assert.Equal(t, []byte{0xff, 0x00, 0xff, 0x00}, row[249*4:250*4], "last pixel of row %d", y)
		for _, v := range row[1000:] {
			require.Equal(t, byte(0xaa), v, "padding of row %d", y)
		}
	}

	b.Clear()
	for _, v := range b.Pix {
		require.Zero(t, v)
	}
}
