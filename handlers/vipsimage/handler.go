// Package vipsimage provides a libvips-backed Handler covering PNG and
// WebP read/write. It deliberately omits JPEG so that a jpeg→webp
// request must route through handlers/image's PNG output first —
// exercising the router's multi-hop search rather than a direct codec
// call.
package vipsimage

import (
	"context"
	"fmt"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/skryldev/chainconv/core"
	apperrors "github.com/skryldev/chainconv/errors"
	"github.com/skryldev/chainconv/utils"
)

const (
	codePNG  = "png"
	codeWebP = "webp"

	mimePNG  = "image/png"
	mimeWebP = "image/webp"
)

// Config configures the libvips runtime.
type Config struct {
	DefaultQuality int
	MaxCacheSize   int
	MaxWorkers     int
	ReportLeaks    bool
}

// Handler is a Codec backend covering PNG and WebP read/write via
// libvips. Init starts the libvips runtime; Shutdown must be called
// once at process exit by the owner of the Router.
type Handler struct {
	cfg   Config
	ready bool
}

// New returns a Handler with cfg's quality/worker defaults applied.
func New(cfg Config) *Handler {
	if cfg.DefaultQuality <= 0 {
		cfg.DefaultQuality = 85
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	return &Handler{cfg: cfg}
}

func (h *Handler) Name() string { return "vipsimage" }

func (h *Handler) Ready() bool { return h.ready }

// Init starts libvips. Safe to call once; a handler whose Init already
// succeeded reports Ready() == true and Init is not called again by the
// registry or executor.
func (h *Handler) Init(_ context.Context) error {
	govips.Startup(&govips.Config{
		ConcurrencyLevel: h.cfg.MaxWorkers,
		MaxCacheSize:     h.cfg.MaxCacheSize,
		ReportLeaks:      h.cfg.ReportLeaks,
		CollectStats:     true,
	})
	h.ready = true
	return nil
}

// Shutdown releases libvips resources. Call once at process exit.
func (h *Handler) Shutdown() {
	govips.Shutdown()
}

func (h *Handler) SupportedFormats() []core.Format {
	return []core.Format{
		{Name: "PNG Image", Code: codePNG, Extension: "png", MIME: mimePNG, From: true, To: true},
		{Name: "WebP Image", Code: codeWebP, Extension: "webp", MIME: mimeWebP, From: true, To: true},
	}
}

func (h *Handler) SupportsAnyInput() bool { return false }

func (h *Handler) Convert(ctx context.Context, files []core.FileData, from, to core.Format) ([]core.FileData, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConvert, "vipsimage.convert", err)
	}

	out := make([]core.FileData, 0, len(files))
	for _, f := range files {
		ref, err := govips.NewImageFromBuffer(utils.CloneBytes(f.Bytes))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryConvert, "vipsimage.decode", err)
		}
		data, err := h.encode(ref, to.Code)
		ref.Close()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryConvert, "vipsimage.encode", err)
		}
		out = append(out, core.FileData{Name: renamed(f.Name, to.Extension), Bytes: data})
	}
	return out, nil
}

func (h *Handler) encode(ref *govips.ImageRef, code string) ([]byte, error) {
	switch code {
	case codePNG:
		ep := govips.NewPngExportParams()
		buf, _, err := ref.ExportPng(ep)
		return buf, err
	case codeWebP:
		ep := govips.NewWebpExportParams()
		ep.Quality = h.cfg.DefaultQuality
		buf, _, err := ref.ExportWebp(ep)
		return buf, err
	default:
		return nil, apperrors.ErrUnsupportedFormat(code)
	}
}

func renamed(name, ext string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i+1] + ext
		}
	}
	return fmt.Sprintf("%s.%s", name, ext)
}

var _ core.Handler = (*Handler)(nil)
