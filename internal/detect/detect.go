package detect

import (
	"errors"
	"image"
	"sort"
	"strings"
)

type Method string

const (
	MethodBasic    Method = "basic"
	MethodAdvanced Method = "advanced"
)

const (
	MinComponentWidthAdvanced  = 50
	MinComponentHeightAdvanced = 50
	MaxUIComponents            = 6

	MinRegionWidthSimple  = 200
	MinRegionHeightSimple = 200
)

var ErrInvalidMethod = errors.New("invalid detection method. Must be 'basic' or 'advanced'")

func ParseMethod(value string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(value))) {
	case MethodBasic:
		return MethodBasic, nil
	case MethodAdvanced:
		return MethodAdvanced, nil
	default:
		return "", ErrInvalidMethod
	}
}

// Term is the word used for a detected area in prompts and responses.
func (m Method) Term() string {
	if m == MethodAdvanced {
		return "component"
	}
	return "region"
}

type Region struct {
	Index  int             `json:"index"`
	Bounds image.Rectangle `json:"-"`
}

// Detect segments img and returns regions in reading order with 1-based indexes.
func Detect(img image.Image, method Method) []Region {
	if img == nil {
		return nil
	}
	gray := newLuma(img)

	var boxes []image.Rectangle
	if method == MethodAdvanced {
		boxes = detectComponents(gray)
	}
	if len(boxes) == 0 {
		boxes = detectRegions(gray)
	}

	sortReadingOrder(boxes)

	offset := img.Bounds().Min
	regions := make([]Region, len(boxes))
	for i, b := range boxes {
		regions[i] = Region{Index: i + 1, Bounds: b.Add(offset)}
	}
	return regions
}

func sortReadingOrder(boxes []image.Rectangle) {
	sort.SliceStable(boxes, func(i, j int) bool {
		if boxes[i].Min.Y != boxes[j].Min.Y {
			return boxes[i].Min.Y < boxes[j].Min.Y
		}
		return boxes[i].Min.X < boxes[j].Min.X
	})
}

// luma is a zero-origin 8-bit grayscale copy of the source image.
type luma struct {
	w, h int
	pix  []uint8
}

func newLuma(img image.Image) *luma {
	b := img.Bounds()
	l := &luma{w: b.Dx(), h: b.Dy(), pix: make([]uint8, b.Dx()*b.Dy())}
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < l.h; y++ {
			copy(l.pix[y*l.w:(y+1)*l.w], g.Pix[y*g.Stride:y*g.Stride+l.w])
		}
		return l
	}
	for y := 0; y < l.h; y++ {
		for x := 0; x < l.w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			l.pix[y*l.w+x] = uint8((19595*r + 38470*g + 7471*bl + 1<<15) >> 24)
		}
	}
	return l
}

func (l *luma) at(x, y int) int {
	return int(l.pix[y*l.w+x])
}
