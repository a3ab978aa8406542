package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{name: "small size gets minimum", input: 1, expected: 4096},
		{name: "exactly one page", input: 4096, expected: 4096},
		{name: "just over one page", input: 4097, expected: 8192},
		{name: "zero size", input: 0, expected: 4096},
		{name: "large size", input: 100000, expected: 102400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetBytes(t *testing.T) {
	buf := GetBytes(100)
	assert.Len(t, buf, 100)
	assert.Equal(t, 4096, cap(buf))
	PutBytes(buf)

	assert.Empty(t, GetBytes(-5))
}

func TestPutBytes_IgnoresForeignSlices(t *testing.T) {
	assert.NotPanics(t, func() {
		PutBytes(nil)
		PutBytes(make([]byte, 10))
	})
}

func TestGetNRGBA(t *testing.T) {
	img := GetNRGBA(8, 4)
	require.NotNil(t, img)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())
	assert.Equal(t, 32, img.Stride)
	for _, b := range img.Pix {
		assert.Zero(t, b)
	}

	img.Pix[0] = 0xFF
	PutNRGBA(img)
	assert.Nil(t, img.Pix)

	again := GetNRGBA(8, 4)
	assert.Zero(t, again.Pix[0], "reused buffers are cleared")
	PutNRGBA(again)
}

func TestConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for range 50 {
				b := GetBytes(1000 * (n + 1))
				b[0] = byte(n)
				PutBytes(b)
			}
		}(i)
	}
	wg.Wait()
}
