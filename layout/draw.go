package layout

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/pkg/errors"
)

// DrawWorkingSet writes a debug PNG of the current node positions, scaled
// to fit the image. Used by the offline layout command to eyeball a
// settled embedding.
func DrawWorkingSet(ws *WorkingSet, filename string) error {
	width, height := 800, 600
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	points := make([]vectorPoint, 0, len(ws.Nodes))
	minX, minY := 0.0, 0.0
	maxX, maxY := 1.0, 1.0
	for i := range ws.Nodes {
		p := ws.Nodes[i].Pos
		if i == 0 {
			minX, maxX = p.X(), p.X()
			minY, maxY = p.Y(), p.Y()
		}
		if p.X() < minX {
			minX = p.X()
		}
		if p.X() > maxX {
			maxX = p.X()
		}
		if p.Y() < minY {
			minY = p.Y()
		}
		if p.Y() > maxY {
			maxY = p.Y()
		}
		points = append(points, vectorPoint{x: p.X(), y: p.Y(), center: ws.Nodes[i].IsCenter})
	}
	spanX, spanY := maxX-minX, maxY-minY
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}
	margin := 10.0
	for _, p := range points {
		px := int(margin + (p.x-minX)/spanX*(float64(width)-2*margin))
		py := int(margin + (p.y-minY)/spanY*(float64(height)-2*margin))
		c := color.RGBA{A: 255}
		if p.center {
			c = color.RGBA{R: 200, A: 255}
		}
		img.Set(px, py, c)
		img.Set(px+1, py, c)
		img.Set(px, py+1, c)
		img.Set(px+1, py+1, c)
	}
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create '%s'", filename)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return errors.Wrap(err, "failed to encode png")
	}
	return nil
}

type vectorPoint struct {
	x, y   float64
	center bool
}
