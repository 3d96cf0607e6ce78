package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
)

var ErrUnsupportedImage = errors.New("unsupported image")

// DefaultMaxPixels bounds the decoded size of an upload (width*height).
const DefaultMaxPixels = 40_000_000

// ImageStore keeps uploaded images on local disk and serves them under
// urlPrefix. Images wider than maxWidth are scaled down; images with more
// than maxPixels pixels are refused before they are decoded.
type ImageStore struct {
	dir       string
	urlPrefix string
	maxWidth  int
	maxPixels int
	logger    log.Logger
}

type Option func(*ImageStore)

// WithMaxPixels sets the pixel limit. Zero or less keeps DefaultMaxPixels.
func WithMaxPixels(n int) Option {
	return func(s *ImageStore) {
		if n > 0 {
			s.maxPixels = n
		}
	}
}

func NewImageStore(dir, urlPrefix string, maxWidth int, logger log.Logger, opts ...Option) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	s := &ImageStore{
		dir:       dir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
		maxWidth:  maxWidth,
		maxPixels: DefaultMaxPixels,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *ImageStore) Dir() string {
	return s.dir
}

// Save stores the image under a random name that keeps the original
// extension and returns its URL.
func (s *ImageStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	return s.write(ctx, uuid.NewString()+strings.ToLower(filepath.Ext(filename)), r)
}

// SaveNamed stores the image as "<uuid>-<original name>".
func (s *ImageStore) SaveNamed(ctx context.Context, filename string, r io.Reader) (string, error) {
	base := filepath.Base(filepath.Clean("/" + filename))
	return s.write(ctx, uuid.NewString()+"-"+base, r)
}

func (s *ImageStore) write(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, filepath.Ext(name))
	}
	// only the header is consumed here; it is replayed for the full decode
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > s.maxPixels/cfg.Height {
		return "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedImage, cfg.Width, cfg.Height, s.maxPixels)
	}

	img, err := imaging.Decode(io.MultiReader(&head, r), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if s.maxWidth > 0 && img.Bounds().Dx() > s.maxWidth {
		img = imaging.Resize(img, s.maxWidth, 0, imaging.Lanczos)
	}

	dst := filepath.Join(s.dir, name)
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if err := imaging.Encode(out, img, format); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	level.Debug(s.logger).Log("msg", "image stored", "file", dst)
	return path.Join(s.urlPrefix, name), nil
}
