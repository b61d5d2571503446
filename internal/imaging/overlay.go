package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

var palette = []color.RGBA{
	{R: 230, G: 57, B: 70, A: 255},
	{R: 42, G: 157, B: 143, A: 255},
	{R: 69, G: 123, B: 157, A: 255},
	{R: 244, G: 162, B: 97, A: 255},
	{R: 131, G: 56, B: 236, A: 255},
	{R: 38, G: 70, B: 83, A: 255},
}

// Overlay draws a numbered rectangle for each box and returns the result as PNG.
func Overlay(img image.Image, boxes []image.Rectangle, term string) ([]byte, error) {
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)

	dc := gg.NewContextForRGBA(canvas)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetLineWidth(3)

	label := strings.ToUpper(term[:min(1, len(term))]) + term[min(1, len(term)):]
	for i, box := range boxes {
		box = box.Sub(b.Min)
		c := palette[i%len(palette)]

		dc.SetColor(c)
		dc.DrawRectangle(float64(box.Min.X), float64(box.Min.Y), float64(box.Dx()), float64(box.Dy()))
		dc.Stroke()

		text := fmt.Sprintf("%s %d", label, i+1)
		tw, th := dc.MeasureString(text)
		x, y := float64(box.Min.X)+4, float64(box.Min.Y)+4
		dc.DrawRectangle(x, y, tw+8, th+8)
		dc.Fill()
		dc.SetColor(color.White)
		dc.DrawString(text, x+4, y+th+2)
	}

	return EncodePNG(dc.Image())
}
