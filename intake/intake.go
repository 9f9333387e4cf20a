package intake

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotAnImage is returned when the uploaded file does not declare an
// image/* content type. Rejection happens before any decoding, so the
// caller's state is untouched.
var ErrNotAnImage = errors.New("uploaded file is not an image")

// SourceImage is a decoded upload. Immutable after intake; a new upload
// replaces the whole value rather than mutating it.
type SourceImage struct {
	Bitmap   image.Image
	Width    int
	Height   int
	ByteSize int64
	MIME     string
	Filename string
}

// Stem returns the upload filename without its extension, used as the
// prefix for derived variant filenames.
func (s *SourceImage) Stem() string {
	return strings.TrimSuffix(s.Filename, filepath.Ext(s.Filename))
}

// Lossless reports whether the source should be re-encoded losslessly.
func (s *SourceImage) Lossless() bool {
	return s.MIME == "image/png"
}

// FromUpload validates and decodes an uploaded file. The declared content
// type is authoritative when present; an empty one is sniffed from the
// payload. Anything outside image/* is rejected with ErrNotAnImage.
func FromUpload(filename, declaredType string, data []byte) (*SourceImage, error) {
	if declaredType == "" {
		declaredType = mimetype.Detect(data).String()
	}
	if !strings.HasPrefix(declaredType, "image/") {
		return nil, fmt.Errorf("%w: %s declares %q", ErrNotAnImage, filename, declaredType)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}

	bounds := img.Bounds()
	return &SourceImage{
		Bitmap:   img,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		ByteSize: int64(len(data)),
		MIME:     declaredType,
		Filename: filename,
	}, nil
}
