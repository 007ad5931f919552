package scan

import (
	"sort"
	"testing"

	"github.com/stellarforge/sep/internal/pixtype"
)

func pixelsOf(r *Result, c *Component) []int32 {
	var out []int32
	r.Walk(c, func(p int32) { out = append(out, p) })
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestScanFindsSingleBlob(t *testing.T) {
	width, height := int32(5), int32(5)
	data := make([]float32, width*height)
	// 2x2 blob at (1,1)-(2,2)
	data[1*5+1] = 10
	data[1*5+2] = 10
	data[2*5+1] = 10
	data[2*5+2] = 10

	result := Scan(data, pixtype.F32, width, height, Config{Threshold: 5, MinArea: 1, Conn8: true})
	if len(result.Components) != 1 {
		t.Fatalf("got %d components, want 1", len(result.Components))
	}
	c := &result.Components[0]
	if c.NPix != 4 {
		t.Errorf("NPix = %d, want 4", c.NPix)
	}
	if c.XMin != 1 || c.XMax != 2 || c.YMin != 1 || c.YMax != 2 {
		t.Errorf("bbox = [%d,%d]x[%d,%d], want [1,2]x[1,2]", c.XMin, c.XMax, c.YMin, c.YMax)
	}
}

func TestScanSeparatesDisjointBlobs(t *testing.T) {
	width, height := int32(7), int32(1)
	data := []float32{0, 10, 0, 0, 0, 10, 0}
	result := Scan(data, pixtype.F32, width, height, Config{Threshold: 5, MinArea: 1, Conn8: true})
	if len(result.Components) != 2 {
		t.Fatalf("got %d components, want 2", len(result.Components))
	}
}

func TestScanMinAreaFilter(t *testing.T) {
	width, height := int32(5), int32(1)
	data := []float32{10, 0, 10, 10, 0}
	result := Scan(data, pixtype.F32, width, height, Config{Threshold: 5, MinArea: 2, Conn8: true})
	if len(result.Components) != 1 {
		t.Fatalf("got %d components, want 1 (single pixel blob dropped by MinArea)", len(result.Components))
	}
	if result.Components[0].NPix != 2 {
		t.Errorf("NPix = %d, want 2", result.Components[0].NPix)
	}
}

func TestScanConnectivityDiagonal(t *testing.T) {
	width, height := int32(3), int32(3)
	data := []float32{
		10, 0, 0,
		0, 10, 0,
		0, 0, 10,
	}
	conn8 := Scan(data, pixtype.F32, width, height, Config{Threshold: 5, MinArea: 1, Conn8: true})
	if len(conn8.Components) != 1 {
		t.Errorf("conn8: got %d components, want 1 (diagonal chain should merge)", len(conn8.Components))
	}

	conn4 := Scan(data, pixtype.F32, width, height, Config{Threshold: 5, MinArea: 1, Conn8: false})
	if len(conn4.Components) != 3 {
		t.Errorf("conn4: got %d components, want 3 (no diagonal connectivity)", len(conn4.Components))
	}
}

func TestScanUnionMergesLShape(t *testing.T) {
	// An L-shape where two provisionally distinct labels must merge: this
	// exercises the union-find path, not just simple left/top neighbor reuse.
	width, height := int32(3), int32(3)
	data := []float32{
		10, 0, 10,
		10, 10, 10,
		0, 0, 0,
	}
	result := Scan(data, pixtype.F32, width, height, Config{Threshold: 5, MinArea: 1, Conn8: false})
	if len(result.Components) != 1 {
		t.Fatalf("got %d components, want 1 merged component", len(result.Components))
	}
	if result.Components[0].NPix != 5 {
		t.Errorf("NPix = %d, want 5", result.Components[0].NPix)
	}
}

func TestScanPeakAndFlux(t *testing.T) {
	width, height := int32(3), int32(1)
	data := []float32{10, 20, 10}
	result := Scan(data, pixtype.F32, width, height, Config{Threshold: 5, MinArea: 1, Conn8: true})
	c := &result.Components[0]
	if c.FluxMax != 20 {
		t.Errorf("FluxMax = %v, want 20", c.FluxMax)
	}
	if c.PeakPix != 1 {
		t.Errorf("PeakPix = %d, want 1", c.PeakPix)
	}
	wantFlux := float64(10-5) + float64(20-5) + float64(10-5)
	if c.Flux != wantFlux {
		t.Errorf("Flux = %v, want %v", c.Flux, wantFlux)
	}
}

func TestWalkReturnsAllMemberPixels(t *testing.T) {
	width, height := int32(3), int32(1)
	data := []float32{10, 10, 10}
	result := Scan(data, pixtype.F32, width, height, Config{Threshold: 5, MinArea: 1, Conn8: true})
	got := pixelsOf(result, &result.Components[0])
	want := []int32{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pixel[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestScanExcludesMaskedPixels(t *testing.T) {
	width, height := int32(3), int32(1)
	data := []float32{10, 10, 10}
	mask := []float32{0, 1, 0}

	result := Scan(data, pixtype.F32, width, height, Config{
		Threshold: 5, MinArea: 1, Conn8: true,
		Mask: mask, MaskThreshold: 0.5,
	})
	if len(result.Components) != 2 {
		t.Fatalf("got %d components, want 2 (split by the masked middle pixel)", len(result.Components))
	}
	for _, c := range result.Components {
		if c.NPix != 1 {
			t.Errorf("NPix = %d, want 1 for each side of the masked pixel", c.NPix)
		}
	}
}

func TestScanMaskThresholdIsExclusiveOnValue(t *testing.T) {
	width, height := int32(3), int32(1)
	data := []float32{10, 10, 10}
	mask := []float32{0, 0.4, 0}

	result := Scan(data, pixtype.F32, width, height, Config{
		Threshold: 5, MinArea: 1, Conn8: true,
		Mask: mask, MaskThreshold: 0.5,
	})
	if len(result.Components) != 1 {
		t.Fatalf("got %d components, want 1 (mask value below threshold leaves pixel unmasked)", len(result.Components))
	}
	if result.Components[0].NPix != 3 {
		t.Errorf("NPix = %d, want 3", result.Components[0].NPix)
	}
}
