package median

import "testing"

func TestMedianFloat32Slice9(t *testing.T) {
	a := []float32{9, 8, 7, 6, 5, 4, 3, 2, 1}
	if got := MedianFloat32Slice9(a); got != 5 {
		t.Errorf("MedianFloat32Slice9 = %v, want 5", got)
	}
}

func TestMedianFloat32DelegatesBySize(t *testing.T) {
	nine := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	if got := MedianFloat32(nine); got != 5 {
		t.Errorf("MedianFloat32(len 9) = %v, want 5", got)
	}
	five := []float32{5, 3, 1, 4, 2}
	if got := MedianFloat32(five); got != 3 {
		t.Errorf("MedianFloat32(len 5) = %v, want 3", got)
	}
}

func TestFilterMeshConditionalNoOpForTrivialWindow(t *testing.T) {
	cells := []float32{1, 2, 3, 4}
	out := FilterMeshConditional(cells, 2, 2, 1, 1, 1.0, nil)
	for i := range cells {
		if out[i] != cells[i] {
			t.Errorf("1x1 window should be a no-op, got %v want %v", out[i], cells[i])
		}
	}
}

func TestFilterMeshConditionalReplacesOutlier(t *testing.T) {
	gw, gh := int32(3), int32(3)
	cells := []float32{
		1, 1, 1,
		1, 100, 1,
		1, 1, 1,
	}
	out := FilterMeshConditional(cells, gw, gh, 3, 3, 0.01, nil)
	center := out[gw+1]
	if center == 100 {
		t.Errorf("outlier center cell was not replaced")
	}
}

func TestFilterMeshConditionalRespectsThreshold(t *testing.T) {
	gw, gh := int32(3), int32(3)
	cells := []float32{
		1, 1, 1,
		1, 2, 1,
		1, 1, 1,
	}
	rms := make([]float32, len(cells))
	for i := range rms {
		rms[i] = 1000 // huge rms makes the deviation limit impossible to exceed
	}
	out := FilterMeshConditional(cells, gw, gh, 3, 3, 1.0, rms)
	if out[gw+1] != 2 {
		t.Errorf("cell within threshold should be unchanged, got %v want 2", out[gw+1])
	}
}

func TestGatherAndMedian(t *testing.T) {
	data := []float32{10, 20, 30, 40, 50}
	offsets := []int32{-1, 0, 1}
	buf := make([]float32, len(offsets))
	got := GatherAndMedian(data, 2, offsets, buf)
	if got != 30 {
		t.Errorf("GatherAndMedian = %v, want 30", got)
	}
}

func TestGatherAndMedianSkipsOutOfBounds(t *testing.T) {
	data := []float32{10, 20, 30}
	offsets := []int32{-5, 0, 5}
	buf := make([]float32, len(offsets))
	got := GatherAndMedian(data, 0, offsets, buf)
	if got != 10 {
		t.Errorf("GatherAndMedian with out-of-bounds offsets = %v, want 10", got)
	}
}
