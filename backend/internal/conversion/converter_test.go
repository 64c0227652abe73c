package conversion

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/itchan-dev/mediable/shared/config"
	"github.com/itchan-dev/mediable/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFiles keeps files in memory and mirrors the fs conversion layout.
type memFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFiles() *memFiles {
	return &memFiles{files: make(map[string][]byte)}
}

func (m *memFiles) Open(p string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type memWriter struct {
	bytes.Buffer
	path  string
	files *memFiles
}

func (w *memWriter) Close() error {
	w.files.mu.Lock()
	w.files.files[w.path] = w.Bytes()
	w.files.mu.Unlock()
	return nil
}

func (m *memFiles) Create(p string) (io.WriteCloser, error) {
	return &memWriter{path: p, files: m}, nil
}

func (m *memFiles) ConversionPath(md domain.Media, conversion domain.ConversionName) string {
	return "conversions/" + conversion + md.ConversionExt()
}

func (m *memFiles) get(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[p]
	return data, ok
}

type MockRecorder struct {
	mu                         sync.Mutex
	AddGeneratedConversionFunc func(id domain.MediaId, name domain.ConversionName) error
	recorded                   []domain.ConversionName
}

func (m *MockRecorder) AddGeneratedConversion(ctx context.Context, id domain.MediaId, name domain.ConversionName) error {
	m.mu.Lock()
	m.recorded = append(m.recorded, name)
	m.mu.Unlock()
	if m.AddGeneratedConversionFunc != nil {
		return m.AddGeneratedConversionFunc(id, name)
	}
	return nil
}

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
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

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height, format
}

var presets = PresetsFromConfig([]config.ConversionSpec{
	{Name: "thumb", Width: 40, Height: 40, Mode: "fill"},
	{Name: "preview", Width: 100},
	{Name: "huge", Width: 4000, Height: 4000},
})

func TestPresetsFromConfig_Defaults(t *testing.T) {
	p := presets["preview"]
	assert.Equal(t, ModeFit, p.Mode)
	assert.Equal(t, defaultQuality, p.Quality)
	assert.Equal(t, ModeFill, presets["thumb"].Mode)
}

func TestExecute_GeneratesConversions(t *testing.T) {
	files := newMemFiles()
	files.files["originals/a.jpg"] = encodeJPEG(t, testImage(200, 100))
	recorder := &MockRecorder{}
	c := New(files, recorder, presets)

	err := c.Execute(context.Background(), domain.ConversionRequest{
		Id:          "r1",
		Media:       domain.Media{Id: 1, FilePath: "originals/a.jpg", MimeType: "image/jpeg"},
		Conversions: []domain.ConversionName{"thumb", "preview", "missing", "thumb"},
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.ConversionName{"thumb", "preview"}, recorder.recorded)

	thumb, ok := files.get("conversions/thumb.jpg")
	require.True(t, ok)
	w, h, format := decodeSize(t, thumb)
	assert.Equal(t, 40, w)
	assert.Equal(t, 40, h)
	assert.Equal(t, "jpeg", format)

	preview, ok := files.get("conversions/preview.jpg")
	require.True(t, ok)
	w, h, _ = decodeSize(t, preview)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
}

func TestExecute_PNGStaysPNG(t *testing.T) {
	files := newMemFiles()
	files.files["originals/a.png"] = encodePNG(t, testImage(50, 50))
	c := New(files, &MockRecorder{}, presets)

	err := c.Execute(context.Background(), domain.ConversionRequest{
		Media:       domain.Media{Id: 1, FilePath: "originals/a.png", MimeType: "image/png"},
		Conversions: []domain.ConversionName{"thumb"},
	})
	require.NoError(t, err)

	data, ok := files.get("conversions/thumb.png")
	require.True(t, ok)
	_, _, format := decodeSize(t, data)
	assert.Equal(t, "png", format)
}

func TestExecute_SkipsNonImages(t *testing.T) {
	files := newMemFiles()
	recorder := &MockRecorder{}
	c := New(files, recorder, presets)

	err := c.Execute(context.Background(), domain.ConversionRequest{
		Media:       domain.Media{Id: 1, FilePath: "originals/a.pdf", MimeType: "application/pdf"},
		Conversions: []domain.ConversionName{"thumb"},
	})
	require.NoError(t, err)
	assert.Empty(t, recorder.recorded)
}

func TestExecute_OnlyUnknownPresetsDoesNotOpenSource(t *testing.T) {
	c := New(newMemFiles(), &MockRecorder{}, presets)

	err := c.Execute(context.Background(), domain.ConversionRequest{
		Media:       domain.Media{Id: 1, FilePath: "originals/missing.jpg", MimeType: "image/jpeg"},
		Conversions: []domain.ConversionName{"nope"},
	})
	assert.NoError(t, err)
}

func TestExecute_Errors(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		c := New(newMemFiles(), &MockRecorder{}, presets)
		err := c.Execute(context.Background(), domain.ConversionRequest{
			Media:       domain.Media{Id: 1, FilePath: "originals/missing.jpg", MimeType: "image/jpeg"},
			Conversions: []domain.ConversionName{"thumb"},
		})
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.ErrorIs(t, err, domain.ErrUnconvertible)
	})

	t.Run("corrupt source", func(t *testing.T) {
		files := newMemFiles()
		files.files["originals/a.jpg"] = []byte("not an image")
		c := New(files, &MockRecorder{}, presets)
		err := c.Execute(context.Background(), domain.ConversionRequest{
			Media:       domain.Media{Id: 1, FilePath: "originals/a.jpg", MimeType: "image/jpeg"},
			Conversions: []domain.ConversionName{"thumb"},
		})
		assert.ErrorIs(t, err, domain.ErrUnconvertible)
	})

	t.Run("decompression bomb", func(t *testing.T) {
		files := newMemFiles()
		files.files["originals/a.png"] = encodePNG(t, testImage(64, 64))
		c := New(files, &MockRecorder{}, presets)
		c.maxDecodedBytes = 64 * 64 * 4 / 2
		err := c.Execute(context.Background(), domain.ConversionRequest{
			Media:       domain.Media{Id: 1, FilePath: "originals/a.png", MimeType: "image/png"},
			Conversions: []domain.ConversionName{"thumb"},
		})
		assert.ErrorContains(t, err, "too large")
		assert.ErrorIs(t, err, domain.ErrUnconvertible)
	})

	t.Run("recorder failure is reported and other conversions continue", func(t *testing.T) {
		files := newMemFiles()
		files.files["originals/a.png"] = encodePNG(t, testImage(64, 64))
		recorder := &MockRecorder{AddGeneratedConversionFunc: func(_ domain.MediaId, name domain.ConversionName) error {
			if name == "thumb" {
				return errors.New("db down")
			}
			return nil
		}}
		c := New(files, recorder, presets)
		err := c.Execute(context.Background(), domain.ConversionRequest{
			Media:       domain.Media{Id: 1, FilePath: "originals/a.png", MimeType: "image/png"},
			Conversions: []domain.ConversionName{"thumb", "preview"},
		})
		assert.ErrorContains(t, err, "db down")
		assert.NotErrorIs(t, err, domain.ErrUnconvertible)
		assert.Equal(t, []domain.ConversionName{"thumb", "preview"}, recorder.recorded)
	})

	t.Run("cancelled context", func(t *testing.T) {
		files := newMemFiles()
		files.files["originals/a.png"] = encodePNG(t, testImage(8, 8))
		c := New(files, &MockRecorder{}, presets)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := c.Execute(ctx, domain.ConversionRequest{
			Media:       domain.Media{Id: 1, FilePath: "originals/a.png", MimeType: "image/png"},
			Conversions: []domain.ConversionName{"thumb"},
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestResize(t *testing.T) {
	src := testImage(300, 150)

	tests := []struct {
		name  string
		p     Preset
		wantW int
		wantH int
	}{
		{name: "fit box", p: Preset{Width: 100, Height: 100, Mode: ModeFit}, wantW: 100, wantH: 50},
		{name: "fit width only", p: Preset{Width: 150, Mode: ModeFit}, wantW: 150, wantH: 75},
		{name: "fit height only", p: Preset{Height: 30, Mode: ModeFit}, wantW: 60, wantH: 30},
		{name: "fit never upscales", p: Preset{Width: 1000, Height: 1000, Mode: ModeFit}, wantW: 300, wantH: 150},
		{name: "fill crops", p: Preset{Width: 50, Height: 50, Mode: ModeFill}, wantW: 50, wantH: 50},
		{name: "fill with one dimension behaves like fit", p: Preset{Width: 60, Mode: ModeFill}, wantW: 60, wantH: 30},
		{name: "no dimensions", p: Preset{}, wantW: 300, wantH: 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Resize(src, tt.p).Bounds()
			assert.Equal(t, tt.wantW, b.Dx())
			assert.Equal(t, tt.wantH, b.Dy())
		})
	}
}
