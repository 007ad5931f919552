package qsort

import "testing"

func TestQSelectMedianFloat32Odd(t *testing.T) {
	a := []float32{5, 1, 4, 2, 3}
	if got := QSelectMedianFloat32(a); got != 3 {
		t.Errorf("median = %v, want 3", got)
	}
}

func TestQSelectMedianFloat32Single(t *testing.T) {
	a := []float32{42}
	if got := QSelectMedianFloat32(a); got != 42 {
		t.Errorf("median = %v, want 42", got)
	}
}

func TestQSelectFloat32KthSmallest(t *testing.T) {
	a := []float32{9, 3, 7, 1, 8, 2}
	if got := QSelectFloat32(append([]float32(nil), a...), 1); got != 1 {
		t.Errorf("1st smallest = %v, want 1", got)
	}
	if got := QSelectFloat32(append([]float32(nil), a...), len(a)); got != 9 {
		t.Errorf("last smallest = %v, want 9", got)
	}
}
