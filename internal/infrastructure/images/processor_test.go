package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	path        string
	data        []byte
	contentType string
	err         error
}

func (m *memStore) Put(_ context.Context, p string, data []byte, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.path, m.data, m.contentType = p, data, contentType
	return "https://cdn.example.com/" + p, nil
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestReencodeShrinksAndUploads(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	p := NewProcessor(nil, store, Config{}, nil)

	data := encodePNG(t, solid(4000, 1000, color.NRGBA{R: 200, G: 30, B: 30, A: 255}))
	stored := p.Reencode(context.Background(), data, "user-1", "item-9")

	assert.Equal(t, "https://cdn.example.com/images/user-1/item-9.webp", stored)
	assert.Equal(t, "images/user-1/item-9.webp", store.path)
	assert.Equal(t, "image/webp", store.contentType)

	out, err := imaging.Decode(bytes.NewReader(store.data))
	require.NoError(t, err)
	assert.Equal(t, 1920, out.Bounds().Dx())
	assert.Equal(t, 480, out.Bounds().Dy())
}

func TestReencodeDoesNotUpscale(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	p := NewProcessor(nil, store, Config{}, nil)

	data := encodePNG(t, solid(120, 80, color.NRGBA{G: 200, A: 255}))
	require.NotEmpty(t, p.Reencode(context.Background(), data, "u", "i"))

	out, err := imaging.Decode(bytes.NewReader(store.data))
	require.NoError(t, err)
	assert.Equal(t, 120, out.Bounds().Dx())
	assert.Equal(t, 80, out.Bounds().Dy())
}

func TestReencodeFailuresReturnEmpty(t *testing.T) {
	t.Parallel()

	p := NewProcessor(nil, &memStore{}, Config{}, nil)
	assert.Empty(t, p.Reencode(context.Background(), []byte("not an image"), "u", "i"))

	failing := NewProcessor(nil, &memStore{err: errors.New("bucket missing")}, Config{}, nil)
	data := encodePNG(t, solid(10, 10, color.NRGBA{B: 255, A: 255}))
	assert.Empty(t, failing.Reencode(context.Background(), data, "u", "i"))

	noStore := NewProcessor(nil, nil, Config{}, nil)
	assert.Empty(t, noStore.Reencode(context.Background(), data, "u", "i"))
}

func TestFetch(t *testing.T) {
	t.Parallel()

	data := encodePNG(t, solid(4, 4, color.NRGBA{R: 255, A: 255}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	p := NewProcessor(srv.Client(), nil, Config{}, nil)
	got, err := p.Fetch(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = p.Fetch(context.Background(), srv.URL+"/missing.png")
	require.Error(t, err)
}

func TestPaletteOrdersByDominance(t *testing.T) {
	t.Parallel()

	img := solid(64, 64, color.NRGBA{R: 30, G: 90, B: 200, A: 255})
	for y := 0; y < 64; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.NRGBA{R: 220, G: 40, B: 40, A: 255})
		}
	}

	p := NewProcessor(nil, nil, Config{}, nil)
	palette, err := p.ExtractPalette(encodePNG(t, img))
	require.NoError(t, err)
	require.Len(t, palette, 2)
	assert.Equal(t, "#1e5ac8", palette[0])
	assert.Equal(t, "#dc2828", palette[1])
}

func TestPaletteMonochromeIsEmpty(t *testing.T) {
	t.Parallel()

	palette := Palette(solid(50, 50, color.Gray{Y: 128}), PaletteOptions{})
	assert.NotNil(t, palette)
	assert.Empty(t, palette)
}

func TestPaletteCapsColors(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			band := x / 4
			img.Set(x, y, color.NRGBA{R: uint8(band * 16), G: uint8(255 - band*16), B: uint8((band * 53) % 256), A: 255})
		}
	}

	palette := Palette(img, PaletteOptions{MaxColors: 3, Distance: 0.01})
	assert.LessOrEqual(t, len(palette), 3)
}

func TestPaletteRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewProcessor(nil, nil, Config{}, nil).ExtractPalette([]byte{0x00, 0x01})
	require.Error(t, err)
}
