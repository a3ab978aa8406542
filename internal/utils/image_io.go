package utils

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SupportedImageExtensions lists the file extensions the registered decoders handle.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

var (
	// ErrImageNotFound is returned when the image file does not exist.
	ErrImageNotFound = errors.New("image file not found")
	// ErrUnsupportedFormat is returned when the file cannot be decoded as an image.
	ErrUnsupportedFormat = errors.New("failed to decode image file")
)

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(SupportedImageExtensions, ext)
}

// FileMetadata captures lightweight file and pixel information.
type FileMetadata struct {
	Path      string
	Format    string
	SizeBytes int64
	Width     int
	Height    int
}

// LoadImage opens and decodes an image file. The format is sniffed from the
// content, so files without a known extension still load.
func LoadImage(path string) (image.Image, FileMetadata, error) {
	if path == "" {
		return nil, FileMetadata{}, &ImageProcessingError{Operation: "load", Err: errors.New("empty path")}
	}

	f, err := os.Open(path) //nolint:gosec // G304: reading a caller-provided image path is expected
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrImageNotFound, path)
		}
		return nil, FileMetadata{}, &ImageProcessingError{Operation: "load", Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("Error closing image file", "path", path, "error", cerr)
		}
	}()

	fi, err := f.Stat()
	if err != nil {
		return nil, FileMetadata{}, &ImageProcessingError{Operation: "load", Err: err}
	}
	if fi.IsDir() {
		return nil, FileMetadata{}, &ImageProcessingError{
			Operation: "load",
			Err:       fmt.Errorf("%w: %s is a directory", ErrUnsupportedFormat, path),
		}
	}

	img, format, err := DecodeImage(f)
	if err != nil {
		return nil, FileMetadata{}, err
	}

	b := img.Bounds()
	return img, FileMetadata{
		Path:      path,
		Format:    format,
		SizeBytes: fi.Size(),
		Width:     b.Dx(),
		Height:    b.Dy(),
	}, nil
}

// DecodeImage decodes any registered image format from r.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", &ImageProcessingError{Operation: "decode", Err: fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)}
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", &ImageProcessingError{Operation: "decode", Err: fmt.Errorf("%w: empty image", ErrUnsupportedFormat)}
	}
	return img, format, nil
}
