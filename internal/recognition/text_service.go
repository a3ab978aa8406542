package recognition

import (
	"context"
	"errors"
	"sync"

	"github.com/MeKo-Tech/visionbridge/internal/geometry"
	"github.com/MeKo-Tech/visionbridge/internal/preprocess"
	"github.com/MeKo-Tech/visionbridge/internal/result"
	"github.com/MeKo-Tech/visionbridge/internal/text"
)

// TextService runs a text recognizer and maps its output.
type TextService struct {
	mu         sync.Mutex
	recognizer text.Recognizer
}

// NewTextService wraps recognizer.
func NewTextService(recognizer text.Recognizer) *TextService {
	return &TextService{recognizer: recognizer}
}

// Recognize blocks until the backend finishes.
func (s *TextService) Recognize(ctx context.Context, img *preprocess.ProcessedImage) (result.TextRecognitionResult, error) {
	if img == nil || img.Image == nil {
		return result.TextRecognitionResult{}, &Error{Feature: FeatureText, Err: errors.New("no image")}
	}
	s.mu.Lock()
	raw, err := s.recognizer.Recognize(ctx, img.Image)
	s.mu.Unlock()
	if err != nil {
		return result.TextRecognitionResult{}, &Error{Feature: FeatureText, Err: err}
	}
	return MapText(raw), nil
}

// Close releases the backend.
func (s *TextService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recognizer.Close()
}

// MapText converts raw recognizer output. Nil input yields an empty result.
func MapText(raw *text.Text) result.TextRecognitionResult {
	if raw == nil {
		return result.TextRecognitionResult{Blocks: []result.TextBlock{}}
	}
	blocks := make([]result.TextBlock, 0, len(raw.Blocks))
	for _, b := range raw.Blocks {
		lines := make([]result.TextLine, 0, len(b.Lines))
		for _, l := range b.Lines {
			elements := make([]result.TextElement, 0, len(l.Elements))
			for _, e := range l.Elements {
				symbols := make([]result.TextSymbol, 0, len(e.Symbols))
				for _, s := range e.Symbols {
					symbols = append(symbols, result.TextSymbol{
						Text:       s.Text,
						Bounds:     geometry.FromRectPtr(s.Bounds),
						Corners:    geometry.ToCorners(s.Corners),
						Languages:  languages(s.Languages),
						Confidence: s.Confidence,
						Angle:      s.Angle,
					})
				}
				elements = append(elements, result.TextElement{
					Text:       e.Text,
					Bounds:     geometry.FromRectPtr(e.Bounds),
					Corners:    geometry.ToCorners(e.Corners),
					Symbols:    symbols,
					Languages:  languages(e.Languages),
					Confidence: e.Confidence,
					Angle:      e.Angle,
				})
			}
			lines = append(lines, result.TextLine{
				Text:       l.Text,
				Bounds:     geometry.FromRectPtr(l.Bounds),
				Corners:    geometry.ToCorners(l.Corners),
				Elements:   elements,
				Languages:  languages(l.Languages),
				Confidence: l.Confidence,
				Angle:      l.Angle,
			})
		}
		blocks = append(blocks, result.TextBlock{
			Text:      b.Text,
			Bounds:    geometry.FromRectPtr(b.Bounds),
			Corners:   geometry.ToCorners(b.Corners),
			Lines:     lines,
			Languages: languages(b.Languages),
		})
	}
	return result.TextRecognitionResult{Text: raw.Text, Blocks: blocks}
}

func languages(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
