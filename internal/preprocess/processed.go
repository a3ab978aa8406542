package preprocess

import (
	"image"
	"sync"
)

// ImageMetadata describes the effective image handed to a recognizer.
type ImageMetadata struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	Rotation   int  `json:"rotation"`
	IsInverted bool `json:"isInverted"`
}

// ProcessedImage is the normalized image for exactly one recognition call.
// The owner must call Release once the recognizer is done with it.
type ProcessedImage struct {
	Image    image.Image
	Metadata ImageMetadata

	once    sync.Once
	release []func()
}

func newProcessedImage(img image.Image, rotation int, inverted bool) *ProcessedImage {
	b := img.Bounds()
	return &ProcessedImage{
		Image: img,
		Metadata: ImageMetadata{
			Width:      b.Dx(),
			Height:     b.Dy(),
			Rotation:   rotation,
			IsInverted: inverted,
		},
	}
}

func (p *ProcessedImage) onRelease(fn func()) {
	p.release = append(p.release, fn)
}

// Release frees pooled pixel buffers. It is safe to call more than once and
// on a nil receiver.
func (p *ProcessedImage) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		for _, fn := range p.release {
			fn()
		}
		p.release = nil
		p.Image = nil
	})
}
