// Package text defines the raw output of a text recognizer and the
// recognizer backends.
package text

import (
	"context"
	"errors"
	"image"

	"github.com/MeKo-Tech/visionbridge/internal/geometry"
)

// ErrNoBackend is returned when no text recognition backend is configured.
var ErrNoBackend = errors.New("text: no recognition backend configured")

// Symbol is a single recognized character.
type Symbol struct {
	Text       string
	Bounds     *geometry.Rect
	Corners    []geometry.Point
	Languages  []string
	Confidence *float64
	Angle      *float64
}

// Element is a word.
type Element struct {
	Text       string
	Bounds     *geometry.Rect
	Corners    []geometry.Point
	Languages  []string
	Confidence *float64
	Angle      *float64
	Symbols    []Symbol
}

// Line is a line of words.
type Line struct {
	Text       string
	Bounds     *geometry.Rect
	Corners    []geometry.Point
	Languages  []string
	Confidence *float64
	Angle      *float64
	Elements   []Element
}

// Block is a paragraph-like group of lines. Blocks carry no confidence or angle.
type Block struct {
	Text      string
	Bounds    *geometry.Rect
	Corners   []geometry.Point
	Languages []string
	Lines     []Line
}

// Text is the raw recognizer output for one image.
type Text struct {
	Text   string
	Blocks []Block
}

// Options selects the recognizer model.
type Options struct {
	Language Language
}

// Fingerprint is the cache key of a recognizer built from these options.
func (o Options) Fingerprint() string {
	l := o.Language
	if l == "" {
		l = DefaultLanguage
	}
	return "language=" + string(l)
}

// Recognizer is the text recognition backend.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (*Text, error)
	Close() error
}

type noBackend struct{}

// NewNoBackend returns a recognizer that always fails with ErrNoBackend.
func NewNoBackend() Recognizer { return noBackend{} }

func (noBackend) Recognize(context.Context, image.Image) (*Text, error) { return nil, ErrNoBackend }
func (noBackend) Close() error                                         { return nil }

func ptr(v float64) *float64 { return &v }
