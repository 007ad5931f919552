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

// Package aperture implements circular and elliptical aperture photometry
// and the Kron radius estimator: a radius-bounded double loop over integer
// pixel offsets, a per-pixel distance test against that radius, and a
// running mass/moment sum. Membership extends from a plain circle to
// sub-pixel sampling and conic-ellipse policies.
package aperture

import (
	"math"

	"github.com/stellarforge/sep/internal/pixtype"
)

// Flag bits set on an aperture measurement.
type Flag uint32

const (
	Trunc       Flag = 1 << iota // a contributing pixel fell outside the image
	HasMasked                    // at least one masked pixel was touched
	AllMasked                    // every candidate pixel was masked
	NonPositive                  // Kron: total flux was non-positive
)

// Sum is the result of an aperture photometry call.
type Sum struct {
	Flux    float64
	FluxErr float64
	Area    float64
	Flags   Flag
}

// Image bundles the arrays an aperture kernel samples from.
type Image struct {
	Raw            interface{}
	DType          pixtype.DType
	Width, Height  int32
	Mask           []float32 // nil if unused
	MaskThreshold  float32
	Noise          []float32 // per-pixel RMS, nil if unused
	Variance       []float32 // per-pixel variance, nil if unused
	GlobalRMS      float32
}

func (img *Image) at(x, y int32) (float32, bool) {
	if x < 0 || x >= img.Width || y < 0 || y >= img.Height {
		return 0, false
	}
	i := y*img.Width + x
	v := pixtype.At(img.Raw, img.DType, int(i))
	return v, true
}

func (img *Image) masked(x, y int32) bool {
	if img.Mask == nil {
		return false
	}
	i := y*img.Width + x
	return img.Mask[i] >= img.MaskThreshold
}

func (img *Image) pixelVariance(x, y int32) float32 {
	i := y*img.Width + x
	switch {
	case img.Variance != nil:
		return img.Variance[i]
	case img.Noise != nil:
		return img.Noise[i] * img.Noise[i]
	default:
		return img.GlobalRMS * img.GlobalRMS
	}
}

// SumCircle integrates flux within radius r of (x, y), subpix=0 selecting
// exact analytic circle-square overlap and subpix>=1 selecting subpix x
// subpix sub-pixel sampling, per the contract.
func SumCircle(img *Image, x, y, r float64, subpix int) Sum {
	return sumRegion(img, x, y, subpix, func(dx, dy float64) float64 {
		return circleCoverage(dx, dy, r, subpix)
	}, r+math.Sqrt2/2)
}

// SumEllipse is SumCircle's elliptical counterpart: membership is
// cxx*dx^2+cyy*dy^2+cxy*dx*dy <= rScale^2.
func SumEllipse(img *Image, x, y, cxx, cyy, cxy, rScale float64, subpix int) Sum {
	// Conservative outer radius bound for the pixel scan window: the
	// largest axis of the ellipse defined by cxx/cyy/cxy at r=rScale, set by
	// the smaller eigenvalue of the conic's matrix.
	lambdaMin := (cxx+cyy)/2 - math.Sqrt((cxx-cyy)*(cxx-cyy)/4+cxy*cxy/4)
	bound := rScale / math.Sqrt(lambdaMin)
	return sumRegion(img, x, y, subpix, func(dx, dy float64) float64 {
		return ellipseCoverage(dx, dy, cxx, cyy, cxy, rScale, subpix)
	}, bound+math.Sqrt2/2)
}

// sumRegion shares the pixel scan, masking, flagging and flux/variance
// accumulation between SumCircle and SumEllipse; coverage returns the
// fraction (0..1) of the pixel centered at (dx,dy) relative to the aperture
// center that falls inside the aperture.
func sumRegion(img *Image, x, y float64, subpix int, coverage func(dx, dy float64) float64, scanRadius float64) Sum {
	var s Sum
	xi0 := int32(math.Floor(x - scanRadius))
	xi1 := int32(math.Ceil(x + scanRadius))
	yi0 := int32(math.Floor(y - scanRadius))
	yi1 := int32(math.Ceil(y + scanRadius))

	anyCandidate := false
	anyUnmasked := false

	for yi := yi0; yi <= yi1; yi++ {
		for xi := xi0; xi <= xi1; xi++ {
			dx := float64(xi) - x
			dy := float64(yi) - y
			frac := coverage(dx, dy)
			if frac <= 0 {
				continue
			}
			anyCandidate = true

			v, inBounds := img.at(xi, yi)
			if !inBounds {
				s.Flags |= Trunc
				continue
			}
			if img.masked(xi, yi) {
				s.Flags |= HasMasked
				continue
			}
			anyUnmasked = true

			s.Flux += frac * float64(v)
			s.Area += frac
			variance := img.pixelVariance(xi, yi)
			if img.Variance != nil {
				s.FluxErr += frac * frac * float64(variance)
			} else {
				s.FluxErr += frac * float64(variance)
			}
		}
	}
	if anyCandidate && !anyUnmasked {
		s.Flags |= AllMasked
	}
	s.FluxErr = math.Sqrt(s.FluxErr)
	return s
}

// circleCoverage returns the fraction of the unit pixel centered at
// (dx, dy) relative to the aperture center that lies within radius r of the
// center: exact analytic circle-square intersection for subpix==0, and
// sub-pixel sampling otherwise.
func circleCoverage(dx, dy, r float64, subpix int) float64 {
	if subpix <= 0 {
		return circleSquareOverlap(dx, dy, r)
	}
	return subsampleCoverage(dx, dy, subpix, func(sdx, sdy float64) bool {
		return sdx*sdx+sdy*sdy <= r*r
	})
}

func ellipseCoverage(dx, dy, cxx, cyy, cxy, rScale float64, subpix int) float64 {
	// The ellipse contract does not define an exact analytic form; an exact
	// circle integral is only meaningful for an axis-aligned circle, so the
	// ellipse kernel always sub-samples (subpix defaults to a sane minimum
	// when the caller passes 0, matching sum_circle's subpix=0 meaning
	// "exact" only for the circular case).
	sp := subpix
	if sp <= 0 {
		sp = 5
	}
	return subsampleCoverage(dx, dy, sp, func(sdx, sdy float64) bool {
		return cxx*sdx*sdx+cyy*sdy*sdy+cxy*sdx*sdy <= rScale*rScale
	})
}

// subsampleCoverage splits the unit pixel at (dx,dy) into subpix x subpix
// sub-pixels and returns the fraction whose centers satisfy inside.
func subsampleCoverage(dx, dy float64, subpix int, inside func(sdx, sdy float64) bool) float64 {
	n := subpix
	count := 0
	step := 1.0 / float64(n)
	start := -0.5 + step/2
	for j := 0; j < n; j++ {
		sdy := dy + start + float64(j)*step
		for i := 0; i < n; i++ {
			sdx := dx + start + float64(i)*step
			if inside(sdx, sdy) {
				count++
			}
		}
	}
	return float64(count) / float64(n*n)
}

// circleSquareOverlap returns the exact fraction of the unit square
// centered at (dx, dy) that overlaps the disk of radius r centered at the
// origin, via closed-form segment-area integration against the square's
// four edges.
func circleSquareOverlap(dx, dy, r float64) float64 {
	x0, x1 := dx-0.5, dx+0.5
	y0, y1 := dy-0.5, dy+0.5
	return rectCircleArea(x1, y1, r) - rectCircleArea(x0, y1, r) - rectCircleArea(x1, y0, r) + rectCircleArea(x0, y0, r)
}

// rectCircleArea returns the area of the intersection of the disk of
// radius r centered at the origin with the rectangle [0,x] x [0,y]
// (negative x or y handled by symmetry), the standard inclusion-exclusion
// building block for exact circle-square overlap.
func rectCircleArea(x, y, r float64) float64 {
	sx, sy := 1.0, 1.0
	if x < 0 {
		sx, x = -1, -x
	}
	if y < 0 {
		sy, y = -1, -y
	}
	area := circleSegmentCorner(x, y, r)
	return sx * sy * area
}

// circleSegmentCorner integrates the area under the circle of radius r,
// clipped to [0,x]x[0,y], for x,y >= 0.
func circleSegmentCorner(x, y, r float64) float64 {
	if r <= 0 {
		return 0
	}
	if x <= 0 || y <= 0 {
		return 0
	}
	d := math.Hypot(x, y)
	if d <= r {
		// rectangle entirely inside the disk
		return x * y
	}
	// Integrate area under min(y, sqrt(r^2-t^2)) dt for t in [0, min(x,r)].
	xi := math.Min(x, r)
	if xi <= 0 {
		return 0
	}
	// Split at t where sqrt(r^2-t^2) == y, i.e. t = sqrt(r^2-y^2) (if real).
	var tSplit float64
	hasSplit := false
	if y < r {
		tSplit = math.Sqrt(r*r - y*y)
		if tSplit > 0 && tSplit < xi {
			hasSplit = true
		}
	}

	area := 0.0
	switch {
	case hasSplit:
		area += tSplit*y + circularIntegral(tSplit, xi, r)
	case y >= r:
		// circle height never exceeds y across the whole strip
		area += circularIntegral(0, xi, r)
	default:
		// circle height stays above y across the whole strip
		area += xi * y
	}
	return area
}

// circularIntegral computes the definite integral of sqrt(r^2-t^2) dt from
// a to b (0 <= a <= b <= r), the closed form for a circular segment area.
func circularIntegral(a, b, r float64) float64 {
	f := func(t float64) float64 {
		return 0.5 * (t*math.Sqrt(math.Max(r*r-t*t, 0)) + r*r*math.Asin(clamp(t/r, -1, 1)))
	}
	return f(b) - f(a)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// KronRadius evaluates K = sum(r*I(r)) / sum(I(r)) over pixels within
// r_max of (x,y) under the conic metric r^2 = cxx*dx^2+cyy*dy^2+cxy*dx*dy.
// Falls back to K=r_max with NonPositive set if total flux is non-positive
// or too few pixels contribute.
func KronRadius(img *Image, x, y, cxx, cyy, cxy, rMax float64) (float64, Flag) {
	xi0 := int32(math.Floor(x - rMax))
	xi1 := int32(math.Ceil(x + rMax))
	yi0 := int32(math.Floor(y - rMax))
	yi1 := int32(math.Ceil(y + rMax))

	var sumRI, sumI float64
	n := 0
	for yi := yi0; yi <= yi1; yi++ {
		for xi := xi0; xi <= xi1; xi++ {
			v, inBounds := img.at(xi, yi)
			if !inBounds || img.masked(xi, yi) || v <= 0 {
				continue
			}
			dx := float64(xi) - x
			dy := float64(yi) - y
			r2 := cxx*dx*dx + cyy*dy*dy + cxy*dx*dy
			if r2 > rMax*rMax {
				continue
			}
			r := math.Sqrt(r2)
			sumRI += r * float64(v)
			sumI += float64(v)
			n++
		}
	}
	if sumI <= 0 || n < 3 {
		return rMax, NonPositive
	}
	return sumRI / sumI, 0
}
