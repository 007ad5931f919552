// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package preview renders a detection catalog over a grayscale stretch of
// the source image as a JPEG, for quick visual sanity-checking of an
// extraction run. The grayscale stretch itself is fits/writejpg.go's
// WriteMonoJPG unchanged in shape (normalize to [min,max], clip, apply
// inverse gamma); the per-object marker color comes from
// pixelops.go's rgbPFChroma pattern of going through colorful.Hcl and back
// via LinearRgb rather than picking RGB bytes directly, so marker hues stay
// perceptually distinct even at low saturation.
package preview

import (
	"bufio"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Marker is the minimal ellipse geometry preview needs to draw one object.
type Marker struct {
	X, Y        float64
	A, B, Theta float64
}

// RenderToFile stretches data (width x height, row-major) to [min,max] with
// the given gamma, overlays an ellipse outline per marker in a distinct
// hue, and writes the result as a quality-JPEG to fileName.
func RenderToFile(fileName string, data []float32, width, height int32, markers []Marker, min, max, gamma float32, quality int) error {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := Render(w, data, width, height, markers, min, max, gamma, quality); err != nil {
		return err
	}
	return w.Flush()
}

// Render is RenderToFile without the file handling.
func Render(w io.Writer, data []float32, width, height int32, markers []Marker, min, max, gamma float32, quality int) error {
	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	scale := 1.0 / (max - min)
	gammaInv := float64(1.0 / gamma)
	for y := int32(0); y < height; y++ {
		rowOff := y * width
		for x := int32(0); x < width; x++ {
			v := (data[rowOff+x] - min) * scale
			if math.IsNaN(float64(v)) || v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			if gammaInv != 1.0 {
				v = float32(math.Pow(float64(v), gammaInv))
			}
			g := uint8(v * 255)
			img.SetRGBA(int(x), int(y), color.RGBA{g, g, g, 255})
		}
	}

	for i, m := range markers {
		drawEllipse(img, m, markerColor(i), width, height)
	}

	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

// markerColor picks a hue spread evenly around the color wheel so adjacent
// indices remain visually distinguishable, held at a fixed chroma/lightness
// via colorful.Hcl so every marker reads at comparable brightness against
// the grayscale background.
func markerColor(i int) color.RGBA {
	hue := math.Mod(float64(i)*137.50776405, 360) // golden-angle hue spacing
	r, g, b := colorful.Hcl(hue, 0.8, 0.65).Clamped().LinearRgb()
	return color.RGBA{clamp8(r), clamp8(g), clamp8(b), 255}
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 255
	}
	return uint8(v * 255)
}

// drawEllipse plots the outline of m's conic onto img by angular sampling,
// the simplest faithful rendering of an (a, b, theta) ellipse without
// pulling in a vector graphics dependency.
func drawEllipse(img *image.RGBA, m Marker, c color.RGBA, width, height int32) {
	cosT, sinT := math.Cos(m.Theta), math.Sin(m.Theta)
	const steps = 128
	for i := 0; i < steps; i++ {
		t := 2 * math.Pi * float64(i) / steps
		ex, ey := m.A*math.Cos(t), m.B*math.Sin(t)
		x := m.X + ex*cosT - ey*sinT
		y := m.Y + ex*sinT + ey*cosT
		xi, yi := int(math.Round(x)), int(math.Round(y))
		if xi < 0 || yi < 0 || xi >= int(width) || yi >= int(height) {
			continue
		}
		img.SetRGBA(xi, yi, c)
	}
}
