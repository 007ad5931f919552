package sep

import (
	"math"
	"testing"
)

func TestNewKernelValidation(t *testing.T) {
	if _, err := NewKernel([]float32{1, 2}, 2); err == nil {
		t.Fatal("expected error for even-sized kernel")
	}
	k, err := NewKernel([]float32{0, 1, 0, 1, 1, 1, 0, 1, 0}, 3)
	if err != nil {
		t.Fatalf("NewKernel error: %v", err)
	}
	if k.N != 3 {
		t.Errorf("N = %d, want 3", k.N)
	}
}

func TestConvolveIdentity(t *testing.T) {
	k, err := NewKernel([]float32{0, 0, 0, 0, 1, 0, 0, 0, 0}, 3)
	if err != nil {
		t.Fatalf("NewKernel error: %v", err)
	}
	data := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	buf := NewFloat32Buffer(data, 3, 3)
	out := make([]float32, len(data))
	if err := Convolve(buf, k, out); err != nil {
		t.Fatalf("Convolve error: %v", err)
	}
	for i := range data {
		if out[i] != data[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], data[i])
		}
	}
}

func TestConvolveRejectsInvalidBuffer(t *testing.T) {
	k, _ := NewKernel([]float32{1}, 1)
	buf := NewFloat32Buffer([]float32{1, 2}, 3, 1)
	if err := Convolve(buf, k, make([]float32, 3)); err == nil {
		t.Fatal("expected error for invalid buffer")
	}
}

func TestNormalizeKernelEnergy(t *testing.T) {
	weights := []float32{0, 3, 0, 4, 0, 0, 0, 0, 0}
	NormalizeKernelEnergy(weights)
	var energy float64
	for _, w := range weights {
		energy += float64(w) * float64(w)
	}
	if math.Abs(energy-1) > 1e-6 {
		t.Errorf("normalized energy = %v, want 1", energy)
	}
}
