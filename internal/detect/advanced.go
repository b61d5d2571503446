package detect

import (
	"image"
	"sort"
)

const (
	edgeThreshold = 60
	dilateRadius  = 4
	maxCoverage   = 0.9
	mergeIoU      = 0.5
)

func detectComponents(l *luma) []image.Rectangle {
	if l.w < 3 || l.h < 3 {
		return nil
	}
	mask := dilate(edges(l), l.w, l.h, dilateRadius)
	boxes := components(mask, l.w, l.h)

	imageArea := float64(l.w * l.h)
	kept := boxes[:0]
	for _, b := range boxes {
		if b.Dx() < MinComponentWidthAdvanced || b.Dy() < MinComponentHeightAdvanced {
			continue
		}
		if float64(area(b)) >= maxCoverage*imageArea {
			continue
		}
		kept = append(kept, b)
	}

	kept = mergeOverlapping(kept)
	sort.SliceStable(kept, func(i, j int) bool { return area(kept[i]) > area(kept[j]) })
	if len(kept) > MaxUIComponents {
		kept = kept[:MaxUIComponents]
	}
	return kept
}

// edges marks pixels whose Sobel gradient magnitude exceeds edgeThreshold.
func edges(l *luma) []bool {
	out := make([]bool, l.w*l.h)
	for y := 1; y < l.h-1; y++ {
		for x := 1; x < l.w-1; x++ {
			gx := -l.at(x-1, y-1) - 2*l.at(x-1, y) - l.at(x-1, y+1) +
				l.at(x+1, y-1) + 2*l.at(x+1, y) + l.at(x+1, y+1)
			gy := -l.at(x-1, y-1) - 2*l.at(x, y-1) - l.at(x+1, y-1) +
				l.at(x-1, y+1) + 2*l.at(x, y+1) + l.at(x+1, y+1)
			if abs(gx)+abs(gy) > edgeThreshold {
				out[y*l.w+x] = true
			}
		}
	}
	return out
}

// dilate applies a square structuring element of the given radius as two
// separable passes over a running window count.
func dilate(mask []bool, w, h, radius int) []bool {
	tmp := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		row := mask[y*w : (y+1)*w]
		count := 0
		for x := 0; x < radius && x < w; x++ {
			if row[x] {
				count++
			}
		}
		for x := 0; x < w; x++ {
			if in := x + radius; in < w && row[in] {
				count++
			}
			if out := x - radius - 1; out >= 0 && row[out] {
				count--
			}
			tmp[y*w+x] = count > 0
		}
	}

	out := make([]bool, len(mask))
	for x := 0; x < w; x++ {
		count := 0
		for y := 0; y < radius && y < h; y++ {
			if tmp[y*w+x] {
				count++
			}
		}
		for y := 0; y < h; y++ {
			if in := y + radius; in < h && tmp[in*w+x] {
				count++
			}
			if o := y - radius - 1; o >= 0 && tmp[o*w+x] {
				count--
			}
			out[y*w+x] = count > 0
		}
	}
	return out
}

// components labels 4-connected foreground areas and returns their bounding boxes.
func components(mask []bool, w, h int) []image.Rectangle {
	seen := make([]bool, len(mask))
	var boxes []image.Rectangle
	stack := make([]int, 0, 1024)

	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		seen[start] = true
		stack = append(stack[:0], start)
		minX, minY := w, h
		maxX, maxY := -1, -1

		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := p%w, p/w
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
			push := func(q int) {
				if mask[q] && !seen[q] {
					seen[q] = true
					stack = append(stack, q)
				}
			}
			if x > 0 {
				push(p - 1)
			}
			if x < w-1 {
				push(p + 1)
			}
			if y > 0 {
				push(p - w)
			}
			if y < h-1 {
				push(p + w)
			}
		}
		boxes = append(boxes, image.Rect(minX, minY, maxX+1, maxY+1))
	}
	return boxes
}

// mergeOverlapping unions boxes that overlap heavily or contain one another
// until no such pair remains.
func mergeOverlapping(boxes []image.Rectangle) []image.Rectangle {
	out := append([]image.Rectangle(nil), boxes...)
	for merged := true; merged; {
		merged = false
		for i := 0; i < len(out) && !merged; i++ {
			for j := i + 1; j < len(out); j++ {
				if !shouldMerge(out[i], out[j]) {
					continue
				}
				out[i] = out[i].Union(out[j])
				out = append(out[:j], out[j+1:]...)
				merged = true
				break
			}
		}
	}
	return out
}

func shouldMerge(a, b image.Rectangle) bool {
	if a.In(b) || b.In(a) {
		return true
	}
	return iou(a, b) > mergeIoU
}

func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := float64(area(inter))
	return ia / (float64(area(a)) + float64(area(b)) - ia)
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
