package deblend

import (
	"testing"

	"github.com/stellarforge/sep/internal/pixtype"
)

func sumNPix(objs []Object) int32 {
	var n int32
	for _, o := range objs {
		n += o.NPix
	}
	return n
}

func TestDeblendRejectsBadNThresh(t *testing.T) {
	data := []float32{10}
	if _, err := Deblend(data, pixtype.F32, 1, 1, nil, []int32{0}, 5, 1, 0.005, 1); err == nil {
		t.Fatal("expected error for nthresh below 2")
	}
	if _, err := Deblend(data, pixtype.F32, 1, 1, nil, []int32{0}, 5, 100, 0.005, 1); err == nil {
		t.Fatal("expected error for nthresh above 64")
	}
}

func TestDeblendRejectsBadContrast(t *testing.T) {
	data := []float32{10}
	if _, err := Deblend(data, pixtype.F32, 1, 1, nil, []int32{0}, 5, 32, 0, 1); err == nil {
		t.Fatal("expected error for zero contrast")
	}
	if _, err := Deblend(data, pixtype.F32, 1, 1, nil, []int32{0}, 5, 32, 1.5, 1); err == nil {
		t.Fatal("expected error for contrast above 1")
	}
}

func TestDeblendSingleSourceStaysWhole(t *testing.T) {
	width := int32(5)
	// a single, smoothly peaked blob should not be split at any reasonable contrast
	data := []float32{
		0, 0, 0, 0, 0,
		0, 5, 8, 5, 0,
		0, 8, 20, 8, 0,
		0, 5, 8, 5, 0,
		0, 0, 0, 0, 0,
	}
	var pixels []int32
	for i, v := range data {
		if v > 1 {
			pixels = append(pixels, int32(i))
		}
	}
	objs, err := Deblend(data, pixtype.F32, width, 5, nil, pixels, 1, 32, 0.5, 1)
	if err != nil {
		t.Fatalf("Deblend error: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("got %d objects, want 1 for a single smooth peak", len(objs))
	}
	if sumNPix(objs) != int32(len(pixels)) {
		t.Errorf("total NPix = %d, want %d (all root pixels accounted for)", sumNPix(objs), len(pixels))
	}
}

func TestDeblendSplitsTwoSeparatedPeaks(t *testing.T) {
	width := int32(9)
	height := int32(3)
	data := make([]float32, width*height)
	// two well-separated, bright peaks joined by a faint bridge just above
	// threshold, connected as one root component
	set := func(x, y int32, v float32) { data[y*width+x] = v }
	for x := int32(0); x < width; x++ {
		for y := int32(0); y < height; y++ {
			set(x, y, 2)
		}
	}
	set(1, 1, 100)
	set(7, 1, 100)

	var pixels []int32
	for i, v := range data {
		if v > 1 {
			pixels = append(pixels, int32(i))
		}
	}

	objs, err := Deblend(data, pixtype.F32, width, height, nil, pixels, 1, 32, 0.01, 1)
	if err != nil {
		t.Fatalf("Deblend error: %v", err)
	}
	if len(objs) < 2 {
		t.Fatalf("got %d objects, want at least 2 for two well-separated bright peaks", len(objs))
	}
	if sumNPix(objs) != int32(len(pixels)) {
		t.Errorf("total NPix = %d, want %d (every root pixel reassigned)", sumNPix(objs), len(pixels))
	}
}

func TestDeblendDropsBelowMinArea(t *testing.T) {
	width := int32(9)
	height := int32(3)
	data := make([]float32, width*height)
	set := func(x, y int32, v float32) { data[y*width+x] = v }
	for x := int32(0); x < width; x++ {
		for y := int32(0); y < height; y++ {
			set(x, y, 2)
		}
	}
	set(1, 1, 100)
	set(7, 1, 100)
	var pixels []int32
	for i, v := range data {
		if v > 1 {
			pixels = append(pixels, int32(i))
		}
	}
	// minarea far larger than any single branch forces fallback to the
	// undivided root rather than dropping every sub-object.
	objs, err := Deblend(data, pixtype.F32, width, height, nil, pixels, 1, 32, 0.01, int32(len(pixels)+1))
	if err != nil {
		t.Fatalf("Deblend error: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("got %d objects, want 1 (fallback to undivided root)", len(objs))
	}
}
