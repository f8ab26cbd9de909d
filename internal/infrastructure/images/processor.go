// Package images re-encodes captured images and extracts their palettes.
package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"ContentEnricher/internal/infrastructure/fetch"
	"ContentEnricher/internal/ports"
)

const (
	defaultMaxDimension = 1920
	defaultQuality      = 80
	defaultFetchTimeout = 10 * time.Second
	defaultMaxBytes     = 20 << 20
	webpContentType     = "image/webp"
)

// Config tunes re-encoding.
type Config struct {
	MaxDimension int
	Quality      float32
	FetchTimeout time.Duration
	MaxBytes     int64
	Palette      PaletteOptions
}

// Processor implements ports.ImageProcessor.
type Processor struct {
	client *http.Client
	store  ports.ObjectStore
	cfg    Config
	logger *slog.Logger
}

var _ ports.ImageProcessor = (*Processor)(nil)

// NewProcessor builds a processor. A nil store disables re-encoding.
func NewProcessor(client *http.Client, store ports.ObjectStore, cfg Config, log *slog.Logger) *Processor {
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = defaultMaxDimension
	}
	if cfg.Quality <= 0 {
		cfg.Quality = defaultQuality
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	cfg.Palette = cfg.Palette.withDefaults()
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Processor{client: client, store: store, cfg: cfg, logger: log.With("component", "imaging")}
}

// Fetch downloads the original image.
func (p *Processor) Fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	resp, err := fetch.Get(ctx, p.client, sourceURL, fetch.Options{
		Timeout:  p.cfg.FetchTimeout,
		MaxBytes: p.cfg.MaxBytes,
		Accept:   "image/*",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	return resp.Body, nil
}

// Reencode shrinks the image to the configured bound, encodes it as WebP and
// uploads it. Any failure returns "" and the original URL stays in use.
func (p *Processor) Reencode(ctx context.Context, data []byte, ownerID, itemID string) string {
	if p.store == nil {
		return ""
	}

	encoded, err := p.encode(data)
	if err != nil {
		p.logger.Warn("image re-encode failed", "content_id", itemID, "error", err)
		return ""
	}

	stored, err := p.store.Put(ctx, ObjectPath(ownerID, itemID), encoded, webpContentType)
	if err != nil {
		p.logger.Warn("image upload failed", "content_id", itemID, "error", err)
		return ""
	}
	return stored
}

// ExtractPalette returns up to PaletteOptions.MaxColors hex colors by dominance.
func (p *Processor) ExtractPalette(data []byte) ([]string, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	return Palette(img, p.cfg.Palette), nil
}

func (p *Processor) encode(data []byte) ([]byte, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	bound := p.cfg.MaxDimension
	img = imaging.Fit(img, bound, bound, imaging.Lanczos)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: false, Quality: p.cfg.Quality}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

// ObjectPath is the deterministic storage key for an item's image.
func ObjectPath(ownerID, itemID string) string {
	return path.Join("images", ownerID, itemID+".webp")
}

func decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
