// Package blob stores uploaded post images on the local filesystem.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

const (
	DefaultImageDir             = "images"
	DefaultImageMaxUploadSizeMB = 10
	DefaultImageMaxDimension    = 2048
	JPEGQuality                 = 82

	// URLPrefix is the public path prefix of stored images.
	URLPrefix = "images"
)

var (
	// ErrUnsupportedType is returned by Save for anything that is not png or jpeg.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrInvalidPath is returned by Release for paths outside the image directory.
	ErrInvalidPath = errors.New("invalid image path")
)

// ImageStore writes images under a single directory using random names.
type ImageStore struct {
	dir          string
	maxBytes     int64
	maxDimension int
	log          *slog.Logger
}

// NewImageStore builds an ImageStore from cfg. A nil cfg uses the defaults.
func NewImageStore(cfg *config.Config) *ImageStore {
	dir := DefaultImageDir
	maxMB := DefaultImageMaxUploadSizeMB
	maxDim := DefaultImageMaxDimension

	if cfg != nil {
		if cfg.ImageDir != "" {
			dir = cfg.ImageDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxMB = cfg.ImageMaxUploadSizeMB
		}
		if cfg.ImageMaxDimension > 0 {
			maxDim = cfg.ImageMaxDimension
		}
	}

	return &ImageStore{
		dir:          dir,
		maxBytes:     int64(maxMB) * 1024 * 1024,
		maxDimension: maxDim,
		log:          observability.GlobalLogger.With(slog.String("component", "blob")),
	}
}

// Dir is the directory served under /images.
func (s *ImageStore) Dir() string { return s.dir }

// MaxBytes is the upload size limit.
func (s *ImageStore) MaxBytes() int64 { return s.maxBytes }

// maxPixels is the decode budget: four times the area of the largest stored image.
func (s *ImageStore) maxPixels() int64 {
	d := int64(s.maxDimension)
	return d * d * 4
}

// AllowedType reports whether contentType is one of the accepted image types.
func AllowedType(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/png", "image/jpg", "image/jpeg":
		return true
	default:
		return false
	}
}

// Save stores content and returns its public path, e.g. "images/<uuid>.png".
// The type is sniffed from the bytes, never taken from the client.
func (s *ImageStore) Save(ctx context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", ErrUnsupportedType
	}
	if int64(len(content)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	detected := http.DetectContentType(content)
	if !AllowedType(detected) {
		return "", ErrUnsupportedType
	}

	// Dimensions come from the header, so oversized images are refused before
	// any pixel memory is allocated.
	header, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return "", ErrUnsupportedType
	}
	if int64(header.Width)*int64(header.Height) > s.maxPixels() {
		return "", models.NewValidationError(fmt.Sprintf("Image too large (max %d pixels)", s.maxPixels()))
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", ErrUnsupportedType
	}

	ext := ".png"
	if format == "jpeg" {
		ext = ".jpg"
	}

	data := content
	b := decoded.Bounds()
	if b.Dx() > s.maxDimension || b.Dy() > s.maxDimension {
		resized := resizeToFit(decoded, s.maxDimension, s.maxDimension)
		if data, err = encode(resized, format); err != nil {
			return "", models.NewInternalError(err)
		}
	}

	name := uuid.NewString() + ext
	if err := writeBytesToFile(filepath.Join(s.dir, name), data); err != nil {
		return "", models.NewInternalError(err)
	}

	s.log.InfoContext(ctx, "image stored",
		slog.String("name", name),
		slog.Int("bytes", len(data)),
	)
	return path.Join(URLPrefix, name), nil
}

// Release deletes a previously stored image. Missing files are not an error.
func (s *ImageStore) Release(_ context.Context, publicPath string) error {
	name, err := s.nameFor(publicPath)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image %s: %w", name, err)
	}
	return nil
}

func (s *ImageStore) nameFor(publicPath string) (string, error) {
	p := strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(publicPath)), "/")
	p = strings.TrimPrefix(p, URLPrefix+"/")
	if p == "" || p != path.Base(p) || p == "." || p == ".." {
		return "", ErrInvalidPath
	}
	return p, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if sh := float64(maxHeight) / float64(h); sh < scale {
		scale = sh
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encode(img image.Image, format string) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	var err error
	if format == "jpeg" {
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: JPEGQuality})
	} else {
		err = png.Encode(buf, img)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func writeBytesToFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}
