package vipsimage_test

import (
	"testing"

	"github.com/skryldev/chainconv/handlers/vipsimage"
)

// These tests cover the handler's static declarations only; Init/Convert
// require a linked libvips runtime this environment doesn't provide. The
// router's chain-building behavior around a vips-shaped hop is exercised
// instead by chainconv_test.go's TestConvert_TwoHopViaIntermediate, via a
// synthetic stand-in with the same format declarations (see DESIGN.md).

func TestHandler_Name(t *testing.T) {
	h := vipsimage.New(vipsimage.Config{})
	if h.Name() != "vipsimage" {
		t.Errorf("expected name 'vipsimage', got %q", h.Name())
	}
}

func TestHandler_DoesNotDeclareJPEG(t *testing.T) {
	h := vipsimage.New(vipsimage.Config{})
	for _, f := range h.SupportedFormats() {
		if f.Code == "jpeg" {
			t.Error("vipsimage must not declare jpeg — handlers/image owns jpeg write, forcing multi-hop chains")
		}
	}
}

func TestHandler_DeclaresPNGAndWebPReadWrite(t *testing.T) {
	h := vipsimage.New(vipsimage.Config{})
	seen := map[string]bool{}
	for _, f := range h.SupportedFormats() {
		if !f.From || !f.To {
			t.Errorf("format %q: expected both From and To true, got From=%v To=%v", f.Code, f.From, f.To)
		}
		seen[f.Code] = true
	}
	if !seen["png"] || !seen["webp"] {
		t.Errorf("expected both png and webp declared, got %+v", seen)
	}
}

func TestHandler_NotReadyBeforeInit(t *testing.T) {
	h := vipsimage.New(vipsimage.Config{})
	if h.Ready() {
		t.Error("a freshly constructed handler must not be Ready before Init")
	}
}
