package preview

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
)

func flatPlane(width, height int32, level float32) []float32 {
	data := make([]float32, width*height)
	for i := range data {
		data[i] = level
	}
	return data
}

func TestRenderProducesCorrectlySizedJPEG(t *testing.T) {
	data := flatPlane(16, 12, 0.5)
	var buf bytes.Buffer
	if err := Render(&buf, data, 16, 12, nil, 0, 1, 1, 90); err != nil {
		t.Fatalf("Render error: %v", err)
	}
	img, err := jpeg.Decode(&buf)
	if err != nil {
		t.Fatalf("jpeg.Decode error: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 16 || bounds.Dy() != 12 {
		t.Errorf("decoded size = %dx%d, want 16x12", bounds.Dx(), bounds.Dy())
	}
}

func TestRenderClampsOutOfRangeValues(t *testing.T) {
	data := []float32{-10, 0.5, 10, 0.5}
	var buf bytes.Buffer
	if err := Render(&buf, data, 2, 2, nil, 0, 1, 1, 90); err != nil {
		t.Fatalf("Render error: %v", err)
	}
	img, err := jpeg.Decode(&buf)
	if err != nil {
		t.Fatalf("jpeg.Decode error: %v", err)
	}
	r0, g0, b0, _ := img.At(0, 0).RGBA()
	if r0 != 0 || g0 != 0 || b0 != 0 {
		t.Errorf("clamped-low pixel = (%d,%d,%d), want black", r0, g0, b0)
	}
}

func TestRenderDrawsMarkerPixels(t *testing.T) {
	data := flatPlane(32, 32, 0.2)
	markers := []Marker{{X: 16, Y: 16, A: 8, B: 4, Theta: 0}}
	var buf bytes.Buffer
	if err := Render(&buf, data, 32, 32, markers, 0, 1, 1, 95); err != nil {
		t.Fatalf("Render error: %v", err)
	}
	img, err := jpeg.Decode(&buf)
	if err != nil {
		t.Fatalf("jpeg.Decode error: %v", err)
	}
	if colorDiffersFromGray(img, 24, 16) {
		return
	}
	t.Error("expected the ellipse outline to alter at least one sampled pixel near the marker's right edge")
}

func colorDiffersFromGray(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return !(r == g && g == b)
}

func TestMarkerColorVariesByIndex(t *testing.T) {
	c0 := markerColor(0)
	c1 := markerColor(1)
	if c0 == c1 {
		t.Error("markerColor(0) and markerColor(1) should differ")
	}
}
