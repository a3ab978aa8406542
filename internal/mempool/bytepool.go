package mempool

import (
	"image"
	"sync"
)

// A sized pool for pixel buffers so that per-frame bitmaps do not churn the heap.

var bytePools sync.Map // key: size class (int), value: *sync.Pool

// sizeClass rounds n up to the next 4 KiB bucket.
func sizeClass(n int) int {
	const step = 4096
	if n <= step {
		return step
	}
	r := (n + step - 1) / step
	return r * step
}

func poolFor(cls int) *sync.Pool {
	pAny, _ := bytePools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]byte, cls) }})
	p, _ := pAny.(*sync.Pool)
	return p
}

// GetBytes retrieves a []byte buffer of length n from the pool.
// Contents are not zeroed. The caller must return it via PutBytes when done.
func GetBytes(n int) []byte {
	if n < 0 {
		n = 0
	}
	cls := sizeClass(n)
	p := poolFor(cls)
	if p == nil {
		return make([]byte, n, cls)
	}
	buf, ok := p.Get().([]byte)
	if !ok || cap(buf) < cls {
		buf = make([]byte, cls)
	}
	return buf[:n]
}

// PutBytes returns a buffer to the pool. It is safe to pass a nil slice.
func PutBytes(buf []byte) {
	if buf == nil {
		return
	}
	c := cap(buf)
	// Only buffers that exactly fill a class go back, otherwise Get could hand
	// out a slice shorter than the class promises.
	if sizeClass(c) != c {
		return
	}
	if p := poolFor(c); p != nil {
		p.Put(buf[:c]) //nolint:staticcheck
	}
}

// GetNRGBA returns an NRGBA image of the given size backed by a pooled buffer.
// Pixels are zeroed. Release it with PutNRGBA.
func GetNRGBA(width, height int) *image.NRGBA {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	pix := GetBytes(width * height * 4)
	clear(pix)
	return &image.NRGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
}

// PutNRGBA returns the pixel buffer of img to the pool. img must not be used afterwards.
func PutNRGBA(img *image.NRGBA) {
	if img == nil {
		return
	}
	PutBytes(img.Pix)
	img.Pix = nil
}
