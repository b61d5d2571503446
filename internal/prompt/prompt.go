package prompt

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

type Size string

const (
	SizeConcise   Size = "concise"
	SizeExtensive Size = "extensive"
)

var ErrInvalidSize = errors.New("invalid prompt choice. Must be 'concise' or 'extensive'")

func ParseSize(value string) (Size, error) {
	switch Size(strings.ToLower(strings.TrimSpace(value))) {
	case SizeConcise:
		return SizeConcise, nil
	case SizeExtensive:
		return SizeExtensive, nil
	default:
		return "", ErrInvalidSize
	}
}

// Title upper-cases the first letter of a detection term ("region" -> "Region").
func Title(term string) string {
	if term == "" {
		return term
	}
	return strings.ToUpper(term[:1]) + term[1:]
}

// Position names the third of the image that contains the centre of r.
func Position(r image.Rectangle, size image.Point) string {
	if size.X <= 0 || size.Y <= 0 {
		return "center"
	}
	cx := (r.Min.X + r.Max.X) / 2
	cy := (r.Min.Y + r.Max.Y) / 2

	vertical := "middle"
	switch {
	case cy < size.Y/3:
		vertical = "top"
	case cy >= 2*size.Y/3:
		vertical = "bottom"
	}
	horizontal := "center"
	switch {
	case cx < size.X/3:
		horizontal = "left"
	case cx >= 2*size.X/3:
		horizontal = "right"
	}
	if vertical == "middle" && horizontal == "center" {
		return "center"
	}
	return vertical + "-" + horizontal
}

// RegionPrompt is the vision prompt for one cropped region, with its placement
// inside the full screenshot appended.
func RegionPrompt(term string, index, total int, bounds image.Rectangle, imageSize image.Point) string {
	var b strings.Builder
	b.WriteString(VisionAnalysis)
	b.WriteString("\n\n")
	writeSection(&b, "LOCATION CONTEXT", []string{
		fmt.Sprintf("%s %d of %d", Title(term), index, total),
		fmt.Sprintf("Position in screenshot: %s", Position(bounds, imageSize)),
		fmt.Sprintf("Bounds: x=%d y=%d width=%d height=%d (screenshot %dx%d)",
			bounds.Min.X, bounds.Min.Y, bounds.Dx(), bounds.Dy(), imageSize.X, imageSize.Y),
	})
	return strings.TrimRight(b.String(), "\n")
}

// DuplicateDescription stands in for a region that repeats an earlier one.
func DuplicateDescription(term string, original int, position string) string {
	return fmt.Sprintf("Same as %s %d, repeated at %s.", Title(term), original, position)
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for _, line := range lines {
		b.WriteString("- " + line + "\n")
	}
}
