package mosaic

import (
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ErrNoImages is returned when there is nothing to compose.
var ErrNoImages = errors.New("mosaic: no images provided")

const maxPerRow = 3

func aspectRatio(img image.Image) float64 {
	b := img.Bounds()
	return float64(b.Dx()) / float64(b.Dy())
}

// Images with close aspect ratios sit side by side, everything else
// starts a new row.
func combineHorizontally(a, b image.Image) bool {
	ar1, ar2 := aspectRatio(a), aspectRatio(b)
	max := ar1
	if ar2 > max {
		max = ar2
	}
	diff := ar1 - ar2
	if diff < 0 {
		diff = -diff
	}
	return diff/max <= 0.2
}

func groupRows(imgs []image.Image) [][]image.Image {
	var rows [][]image.Image
	current := []image.Image{imgs[0]}

	for _, img := range imgs[1:] {
		if combineHorizontally(current[len(current)-1], img) && len(current) < maxPerRow {
			current = append(current, img)
		} else {
			rows = append(rows, current)
			current = []image.Image{img}
		}
	}
	return append(rows, current)
}

type placement struct {
	img           image.Image
	width, height int
}

// Compose lays multiple post images out as a single mosaic of the given
// target width, with border-sized gaps between images but none on the
// outer edges.
func Compose(imgs []image.Image, targetWidth, border int) (image.Image, error) {
	if len(imgs) == 0 {
		return nil, ErrNoImages
	}

	var rows [][]placement
	totalHeight := 0

	for _, group := range groupRows(imgs) {
		widthRatio := 0.0
		for _, img := range group {
			widthRatio += aspectRatio(img)
		}
		rowHeight := int(float64(targetWidth) / widthRatio)

		available := targetWidth - border*(len(group)-1)
		scaledTotal := 0
		row := make([]placement, 0, len(group))
		for _, img := range group {
			w := int(float64(rowHeight) * aspectRatio(img))
			row = append(row, placement{img: img, width: w, height: rowHeight})
			scaledTotal += w
		}

		// Stretch or shrink the row so it fills the target width
		// exactly after gaps.
		factor := float64(available) / float64(scaledTotal)
		maxH := 0
		for i := range row {
			row[i].width = int(float64(row[i].width) * factor)
			row[i].height = int(float64(row[i].height) * factor)
			if row[i].height > maxH {
				maxH = row[i].height
			}
		}

		if len(rows) > 0 {
			totalHeight += border
		}
		totalHeight += maxH
		rows = append(rows, row)
	}

	out := image.NewRGBA(image.Rect(0, 0, targetWidth, totalHeight))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	y := 0
	for ri, row := range rows {
		x := 0
		rowHeight := 0
		for _, p := range row {
			if p.height > rowHeight {
				rowHeight = p.height
			}
		}

		for pi, p := range row {
			centered := y + (rowHeight-p.height)/2
			dst := image.Rect(x, centered, x+p.width, centered+p.height)
			draw.CatmullRom.Scale(out, dst, p.img, p.img.Bounds(), draw.Over, nil)

			x += p.width
			if pi < len(row)-1 {
				x += border
			}
		}

		y += rowHeight
		if ri < len(rows)-1 {
			y += border
		}
	}

	return out, nil
}
