// Package image provides a stdlib-backed Handler for JPEG and PNG, with
// WebP decode support via golang.org/x/image/webp. It deliberately does
// not write WebP — see handlers/vipsimage for the handler that does,
// forcing multi-hop chains through image/png as the shared intermediate.
package image

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/webp"

	"github.com/skryldev/chainconv/core"
	apperrors "github.com/skryldev/chainconv/errors"
)

const (
	codeJPEG = "jpeg"
	codePNG  = "png"
	codeWebP = "webp"

	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
	mimeWebP = "image/webp"
)

// Handler is a Codec backend covering JPEG and PNG read/write and WebP
// read-only, using only the standard library plus x/image/webp.
type Handler struct {
	quality int
	ready   bool
}

// New returns a Handler that encodes JPEG at the given quality (1-100;
// 0 defaults to 85).
func New(quality int) *Handler {
	if quality <= 0 {
		quality = 85
	}
	return &Handler{quality: quality}
}

func (h *Handler) Name() string { return "image" }

func (h *Handler) Ready() bool { return h.ready }

func (h *Handler) Init(_ context.Context) error {
	h.ready = true
	return nil
}

func (h *Handler) SupportedFormats() []core.Format {
	return []core.Format{
		{Name: "JPEG Image", Code: codeJPEG, Extension: "jpg", MIME: mimeJPEG, From: true, To: true},
		{Name: "PNG Image", Code: codePNG, Extension: "png", MIME: mimePNG, From: true, To: true},
		{Name: "WebP Image", Code: codeWebP, Extension: "webp", MIME: mimeWebP, From: true, To: false},
	}
}

func (h *Handler) SupportsAnyInput() bool { return false }

func (h *Handler) Convert(ctx context.Context, files []core.FileData, from, to core.Format) ([]core.FileData, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConvert, "image.convert", err)
	}

	out := make([]core.FileData, 0, len(files))
	for _, f := range files {
		img, err := decode(from.Code, f.Bytes)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryConvert, "image.decode", err)
		}

		data, err := h.encode(to.Code, img)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryConvert, "image.encode", err)
		}

		out = append(out, core.FileData{Name: renamed(f.Name, to.Extension), Bytes: data})
	}
	return out, nil
}

func decode(code string, data []byte) (image.Image, error) {
	r := bytes.NewReader(data)
	switch code {
	case codeJPEG:
		return jpeg.Decode(r)
	case codePNG:
		return png.Decode(r)
	case codeWebP:
		return webp.Decode(r)
	default:
		return nil, apperrors.ErrUnsupportedFormat(code)
	}
}

func (h *Handler) encode(code string, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	switch code {
	case codeJPEG:
		if err := jpeg.Encode(&buf, flattenAlpha(img), &jpeg.Options{Quality: h.quality}); err != nil {
			return nil, err
		}
	case codePNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.ErrUnsupportedFormat(code)
	}
	return buf.Bytes(), nil
}

// flattenAlpha composites img onto an opaque white background when it
// carries an alpha channel, since JPEG has no alpha channel to encode.
// This is the one place chain execution needs pixel-level work rather
// than a pure decode/encode round trip.
func flattenAlpha(img image.Image) image.Image {
	if !hasAlpha(img) {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return true
	}
	return false
}

func renamed(name, ext string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i+1] + ext
		}
	}
	return name + "." + ext
}

var _ core.Handler = (*Handler)(nil)
