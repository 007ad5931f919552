package aperture

import (
	"math"
	"testing"

	"github.com/stellarforge/sep/internal/pixtype"
)

func flatImage(width, height int32, level float32) *Image {
	data := make([]float32, width*height)
	for i := range data {
		data[i] = level
	}
	return &Image{Raw: data, DType: pixtype.F32, Width: width, Height: height, GlobalRMS: 1}
}

func TestSumCircleFluxScalesWithArea(t *testing.T) {
	img := flatImage(41, 41, 1)
	small := SumCircle(img, 20, 20, 3, 0)
	large := SumCircle(img, 20, 20, 6, 0)
	if large.Flux <= small.Flux {
		t.Errorf("large.Flux=%v should exceed small.Flux=%v", large.Flux, small.Flux)
	}
	wantSmall := math.Pi * 3 * 3
	if math.Abs(small.Flux-wantSmall)/wantSmall > 0.05 {
		t.Errorf("SumCircle(r=3) flux = %v, want ~%v (pi*r^2 for unit-value image)", small.Flux, wantSmall)
	}
}

func TestSumCircleOutOfBoundsSetsTrunc(t *testing.T) {
	img := flatImage(5, 5, 1)
	s := SumCircle(img, 0, 0, 3, 0)
	if s.Flags&Trunc == 0 {
		t.Errorf("expected Trunc flag set for an aperture straddling the image border")
	}
}

func TestSumCircleAllMasked(t *testing.T) {
	img := flatImage(11, 11, 1)
	mask := make([]float32, 11*11)
	for i := range mask {
		mask[i] = 1
	}
	img.Mask = mask
	img.MaskThreshold = 1
	s := SumCircle(img, 5, 5, 2, 0)
	if s.Flags&AllMasked == 0 {
		t.Errorf("expected AllMasked flag when every candidate pixel is masked")
	}
	if s.Flux != 0 {
		t.Errorf("Flux = %v, want 0 when everything is masked", s.Flux)
	}
}

func TestSumEllipseMatchesCircleWhenIsotropic(t *testing.T) {
	img := flatImage(41, 41, 1)
	circle := SumCircle(img, 20, 20, 5, 5)
	ellipse := SumEllipse(img, 20, 20, 1, 1, 0, 5, 5)
	if math.Abs(circle.Flux-ellipse.Flux) > 1 {
		t.Errorf("SumEllipse(isotropic) = %v, want close to SumCircle = %v", ellipse.Flux, circle.Flux)
	}
}

func TestKronRadiusUniformDisk(t *testing.T) {
	img := flatImage(41, 41, 1)
	k, flag := KronRadius(img, 20, 20, 1, 1, 0, 10)
	if flag != 0 {
		t.Errorf("unexpected flag %v for a well-populated uniform disk", flag)
	}
	if k <= 0 || k > 10 {
		t.Errorf("KronRadius = %v, want in (0,10]", k)
	}
}

func TestKronRadiusNonPositiveFlux(t *testing.T) {
	img := flatImage(11, 11, 0)
	k, flag := KronRadius(img, 5, 5, 1, 1, 0, 3)
	if flag&NonPositive == 0 {
		t.Errorf("expected NonPositive flag for a zero-flux image")
	}
	if k != 3 {
		t.Errorf("KronRadius fallback = %v, want rMax = 3", k)
	}
}

func TestFluxErrUsesVarianceWhenPresent(t *testing.T) {
	img := flatImage(21, 21, 1)
	variance := make([]float32, 21*21)
	for i := range variance {
		variance[i] = 4
	}
	img.Variance = variance
	s := SumCircle(img, 10, 10, 3, 0)
	if s.FluxErr <= 0 {
		t.Errorf("FluxErr = %v, want positive when variance is supplied", s.FluxErr)
	}
}
