package kms

import (
	"fmt"
	"image"
	"image/color"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/BeatGlow/kms/draw"
	"github.com/BeatGlow/kms/pixel"
)

// HUD defaults.
const (
	DefaultHUDSize = 16.0
	hudMargin      = 8
	hudPadding     = 6
	hudRadius      = 6
)

// HUD overlays a status line in the top left corner of another scene.
type HUD struct {
	Scene

	// Label is shown in front of the frame counter.
	Label string

	Color      color.Color
	Background color.Color

	ctx   *freetype.Context
	face  font.Face
	frame uint64
}

// NewHUD draws a status line over inner, which may be nil. The text is set in
// Go Regular at size points.
func NewHUD(inner Scene, label string, size float64) (*HUD, error) {
	if size <= 0 {
		size = DefaultHUDSize
	}
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("kms: hud font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetFontSize(size)
	ctx.SetHinting(font.HintingFull)

	return &HUD{
		Scene:      inner,
		Label:      label,
		Color:      pixel.White,
		Background: pixel.RGB(0x20, 0x20, 0x20),
		ctx:        ctx,
		face:       truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull}),
	}, nil
}

// Text is the status line for the current frame.
func (h *HUD) Text() string {
	if h.Label == "" {
		return fmt.Sprintf("frame %d", h.frame)
	}
	return fmt.Sprintf("%s  frame %d", h.Label, h.frame)
}

func (h *HUD) Render(dst *pixel.XRGB8888Image) error {
	if h.Scene != nil {
		if err := h.Scene.Render(dst); err != nil {
			return err
		}
	}

	var (
		text   = h.Text()
		width  = font.MeasureString(h.face, text).Ceil()
		height = h.face.Metrics().Height.Ceil()
		origin = dst.Bounds().Min.Add(image.Pt(hudMargin, hudMargin))
		panel  = image.Rectangle{Min: origin, Max: origin.Add(image.Pt(width+2*hudPadding, height+2*hudPadding))}
	)
	draw.RoundedBox(dst, panel, hudRadius, h.Background)

	h.ctx.SetDst(dst)
	h.ctx.SetClip(dst.Bounds())
	h.ctx.SetSrc(image.NewUniform(h.Color))
	baseline := origin.Y + hudPadding + h.face.Metrics().Ascent.Ceil()
	if _, err := h.ctx.DrawString(text, freetype.Pt(origin.X+hudPadding, baseline)); err != nil {
		return fmt.Errorf("kms: hud: %w", err)
	}
	return nil
}

func (h *HUD) Advance(bounds image.Rectangle) {
	if h.Scene != nil {
		h.Scene.Advance(bounds)
	}
	h.frame++
}

// Close releases the font face.
func (h *HUD) Close() error {
	return h.face.Close()
}
