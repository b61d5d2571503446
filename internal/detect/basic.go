package detect

import "image"

const (
	gutterTolerance = 12
	maxFallbackBand = 4
)

func detectRegions(l *luma) []image.Rectangle {
	full := image.Rect(0, 0, l.w, l.h)
	if l.w < MinRegionWidthSimple || l.h < MinRegionHeightSimple {
		return []image.Rectangle{full}
	}

	var out []image.Rectangle
	for _, band := range splitRows(l, full) {
		out = append(out, splitColumns(l, band)...)
	}

	if len(out) == 1 && l.h >= 2*MinRegionHeightSimple {
		return equalBands(full)
	}
	return out
}

func splitRows(l *luma, r image.Rectangle) []image.Rectangle {
	uniform := func(y int) bool {
		lo, hi := 255, 0
		for x := r.Min.X; x < r.Max.X; x++ {
			v := l.at(x, y)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		return hi-lo <= gutterTolerance
	}
	cuts := gutterCuts(r.Min.Y, r.Max.Y, uniform, MinRegionHeightSimple)

	bands := make([]image.Rectangle, 0, len(cuts)+1)
	start := r.Min.Y
	for _, c := range cuts {
		bands = append(bands, image.Rect(r.Min.X, start, r.Max.X, c))
		start = c
	}
	return append(bands, image.Rect(r.Min.X, start, r.Max.X, r.Max.Y))
}

func splitColumns(l *luma, r image.Rectangle) []image.Rectangle {
	uniform := func(x int) bool {
		lo, hi := 255, 0
		for y := r.Min.Y; y < r.Max.Y; y++ {
			v := l.at(x, y)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		return hi-lo <= gutterTolerance
	}
	cuts := gutterCuts(r.Min.X, r.Max.X, uniform, MinRegionWidthSimple)

	cols := make([]image.Rectangle, 0, len(cuts)+1)
	start := r.Min.X
	for _, c := range cuts {
		cols = append(cols, image.Rect(start, r.Min.Y, c, r.Max.Y))
		start = c
	}
	return append(cols, image.Rect(start, r.Min.Y, r.Max.X, r.Max.Y))
}

// gutterCuts returns the midpoints of uniform runs in [lo, hi) that leave at
// least minSize on both sides of the cut.
func gutterCuts(lo, hi int, uniform func(int) bool, minSize int) []int {
	var cuts []int
	start := lo
	runStart := -1
	flush := func(runEnd int) {
		mid := (runStart + runEnd) / 2
		if mid-start >= minSize && hi-mid >= minSize {
			cuts = append(cuts, mid)
			start = mid
		}
	}
	for i := lo; i < hi; i++ {
		if uniform(i) {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			flush(i)
			runStart = -1
		}
	}
	if runStart >= 0 {
		flush(hi)
	}
	return cuts
}

func equalBands(r image.Rectangle) []image.Rectangle {
	n := r.Dy() / MinRegionHeightSimple
	if n > maxFallbackBand {
		n = maxFallbackBand
	}
	if n < 1 {
		n = 1
	}
	step := r.Dy() / n
	bands := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		y0 := r.Min.Y + i*step
		y1 := y0 + step
		if i == n-1 {
			y1 = r.Max.Y
		}
		bands = append(bands, image.Rect(r.Min.X, y0, r.Max.X, y1))
	}
	return bands
}
