// Package conversion produces resized variants of image media.
package conversion

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/itchan-dev/mediable/shared/config"
	"github.com/itchan-dev/mediable/shared/domain"
	"github.com/itchan-dev/mediable/shared/logger"
	_ "golang.org/x/image/webp"
)

const (
	ModeFit  = "fit"
	ModeFill = "fill"

	defaultQuality = 85
	// decoded RGBA bytes allowed per source image
	defaultMaxDecodedBytes = 256 << 20
)

// Preset is a named resize recipe.
type Preset struct {
	Name    domain.ConversionName
	Width   int
	Height  int
	Mode    string
	Quality int
}

// PresetsFromConfig indexes presets by name, filling in defaults.
func PresetsFromConfig(specs []config.ConversionSpec) map[domain.ConversionName]Preset {
	out := make(map[domain.ConversionName]Preset, len(specs))
	for _, s := range specs {
		p := Preset{Name: s.Name, Width: s.Width, Height: s.Height, Mode: s.Mode, Quality: s.Quality}
		if p.Mode == "" {
			p.Mode = ModeFit
		}
		if p.Quality == 0 {
			p.Quality = defaultQuality
		}
		out[p.Name] = p
	}
	return out
}

type FileStorage interface {
	Open(filePath string) (io.ReadCloser, error)
	Create(filePath string) (io.WriteCloser, error)
	ConversionPath(m domain.Media, conversion domain.ConversionName) string
}

type ConversionRecorder interface {
	AddGeneratedConversion(ctx context.Context, id domain.MediaId, conversion domain.ConversionName) error
}

// Converter executes conversion requests against local files.
type Converter struct {
	files           FileStorage
	recorder        ConversionRecorder
	presets         map[domain.ConversionName]Preset
	maxDecodedBytes int64
	log             *slog.Logger
}

func New(files FileStorage, recorder ConversionRecorder, presets map[domain.ConversionName]Preset) *Converter {
	return &Converter{
		files:           files,
		recorder:        recorder,
		presets:         presets,
		maxDecodedBytes: defaultMaxDecodedBytes,
		log:             logger.Component("converter"),
	}
}

// Execute performs every conversion named in req. Unknown presets and
// non-image media are skipped. The source is decoded once per request.
func (c *Converter) Execute(ctx context.Context, req domain.ConversionRequest) error {
	log := c.log.With("request_id", req.Id, "media_id", req.Media.Id)
	if !req.Media.IsImage() {
		log.Info("skipping conversions of non-image media", "mime_type", req.Media.MimeType)
		return nil
	}

	var src image.Image
	done := make(map[domain.ConversionName]bool, len(req.Conversions))
	var errs []error
	for _, name := range req.Conversions {
		if done[name] {
			continue
		}
		done[name] = true

		preset, ok := c.presets[name]
		if !ok {
			log.Warn("unknown conversion preset", "conversion", name)
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if src == nil {
			img, err := c.decode(req.Media)
			if err != nil {
				return err
			}
			src = img
		}

		if err := c.convert(ctx, req.Media, src, preset); err != nil {
			errs = append(errs, fmt.Errorf("conversion %q: %w", name, err))
			continue
		}
		log.Debug("conversion generated", "conversion", name)
	}
	return errors.Join(errs...)
}

// decode wraps failures caused by the source itself in domain.ErrUnconvertible.
func (c *Converter) decode(m domain.Media) (image.Image, error) {
	r, err := c.files.Open(m.FilePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnconvertible, err)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}

	// header dimensions are checked before allocating the decoded image
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image dimensions: %w", domain.ErrUnconvertible, err)
	}
	if int64(cfg.Width)*int64(cfg.Height)*4 > c.maxDecodedBytes {
		return nil, fmt.Errorf("%w: image too large: %dx%d pixels", domain.ErrUnconvertible, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %w", domain.ErrUnconvertible, err)
	}
	return img, nil
}

func (c *Converter) convert(ctx context.Context, m domain.Media, src image.Image, p Preset) error {
	dst := Resize(src, p)

	format, err := imaging.FormatFromExtension(m.ConversionExt())
	if err != nil {
		return err
	}
	w, err := c.files.Create(c.files.ConversionPath(m, p.Name))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if err := imaging.Encode(bw, dst, format, imaging.JPEGQuality(p.Quality)); err != nil {
		w.Close()
		return fmt.Errorf("failed to encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		w.Close()
		return fmt.Errorf("failed to write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}

	return c.recorder.AddGeneratedConversion(ctx, m.Id, p.Name)
}

// Resize applies p to src. Fit keeps the aspect ratio within the box and
// never upscales; fill crops to exactly the box. A zero dimension is
// derived from the aspect ratio.
func Resize(src image.Image, p Preset) image.Image {
	b := src.Bounds()
	if p.Width == 0 && p.Height == 0 {
		return src
	}
	if p.Mode == ModeFill && p.Width > 0 && p.Height > 0 {
		return imaging.Fill(src, p.Width, p.Height, imaging.Center, imaging.Lanczos)
	}

	width, height := p.Width, p.Height
	if width == 0 {
		width = b.Dx()
	}
	if height == 0 {
		height = b.Dy()
	}
	if b.Dx() <= width && b.Dy() <= height {
		return src
	}
	return imaging.Fit(src, width, height, imaging.Lanczos)
}
