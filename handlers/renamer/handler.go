// Package renamer provides the any-input fallback handler: a byte
// passthrough that relabels a file's declared format without touching
// its bytes, used when the registry has no handler that can actually
// re-encode between two MIMEs the caller nonetheless considers
// equivalent (e.g. a stray extension mismatch).
package renamer

import (
	"context"
	"fmt"

	"github.com/skryldev/chainconv/core"
	apperrors "github.com/skryldev/chainconv/errors"
	"github.com/skryldev/chainconv/utils"
)

// formats is the set of MIMEs the renamer will close a chain at. It
// mirrors handlers/image and handlers/vipsimage's coverage so the
// any-input fallback is tried against the same format universe as the
// rest of the registry.
var formats = []core.Format{
	{Name: "JPEG (renamed)", Code: "jpeg", Extension: "jpg", MIME: "image/jpeg", From: true, To: true},
	{Name: "PNG (renamed)", Code: "png", Extension: "png", MIME: "image/png", From: true, To: true},
	{Name: "WebP (renamed)", Code: "webp", Extension: "webp", MIME: "image/webp", From: true, To: true},
}

// Handler is a SupportsAnyInput handler that clones bytes verbatim and
// relabels them under the requested format, without decoding.
type Handler struct {
	ready bool
}

// New returns a renamer Handler.
func New() *Handler { return &Handler{} }

func (h *Handler) Name() string { return "renamer" }

func (h *Handler) Ready() bool { return h.ready }

func (h *Handler) Init(_ context.Context) error {
	h.ready = true
	return nil
}

func (h *Handler) SupportedFormats() []core.Format { return formats }

func (h *Handler) SupportsAnyInput() bool { return true }

// Convert clones the input bytes unchanged and applies to's extension.
// It never transcodes, so it first sniffs the bytes and refuses to
// "rename" a file into a format its content doesn't already match —
// otherwise this fallback would silently mislabel data instead of
// genuinely closing the chain.
func (h *Handler) Convert(ctx context.Context, files []core.FileData, from, to core.Format) ([]core.FileData, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConvert, "renamer.convert", err)
	}

	out := make([]core.FileData, 0, len(files))
	for _, f := range files {
		if detected := utils.DetectFormat(f.Bytes); detected != to.Code {
			return nil, apperrors.New(apperrors.CategoryConvert, "renamer.convert",
				fmt.Errorf("content is %s, cannot rename to %s", detected, to.Code))
		}
		out = append(out, core.FileData{
			Name:  renamed(f.Name, to.Extension),
			Bytes: utils.CloneBytes(f.Bytes),
		})
	}
	return out, nil
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
