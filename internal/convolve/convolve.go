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

// Package convolve implements the matched-filter convolution the extractor
// applies to the background-subtracted image before thresholding: a fixed
// set of offsets precomputed from the row width, each weighted and summed
// per output pixel, generalized from a fixed 3x3 kernel to an arbitrary
// odd-sized kernel supplied by the caller, with zero-padding at the edges
// so every output pixel keeps a valid value.
package convolve

import (
	"math"

	"github.com/stellarforge/sep/internal/errs"
	"github.com/stellarforge/sep/internal/pixtype"
)

// Kernel is a square, odd-sized convolution kernel, row-major, weights[ky*n+kx].
type Kernel struct {
	Weights []float32
	N       int // side length, odd
}

// NewKernel validates and wraps a row-major odd-sized kernel.
func NewKernel(weights []float32, n int) (*Kernel, error) {
	if n < 1 || n%2 == 0 {
		return nil, errs.New(errs.IllegalArgument, "convolve: kernel size must be odd and >= 1, got %d", n)
	}
	if len(weights) != n*n {
		return nil, errs.New(errs.InvalidDimension, "convolve: kernel weights length %d does not match %dx%d", len(weights), n, n)
	}
	return &Kernel{Weights: weights, N: n}, nil
}

// offsets precomputes the row-major pixel index offsets and matching weight
// order for a kernel against an image of the given width, the same
// precompute-once-per-call idiom estimateNoisePureGo uses for its fixed 3x3
// case.
func (k *Kernel) offsets(width int32) ([]int32, []float32) {
	half := int32(k.N / 2)
	offs := make([]int32, 0, k.N*k.N)
	wts := make([]float32, 0, k.N*k.N)
	idx := 0
	for ky := -half; ky <= half; ky++ {
		for kx := -half; kx <= half; kx++ {
			offs = append(offs, ky*width+kx)
			wts = append(wts, k.Weights[idx])
			idx++
		}
	}
	return offs, wts
}

// Apply convolves raw (tagged by d, width x height) with kernel k, writing a
// float32 result of the same dimensions into out (len(out) must equal
// width*height). Edge pixels closer than the kernel's half-width to the
// image border are computed with the kernel zero-padded against the missing
// neighbors, rather than copied through unfiltered.
func Apply(out []float32, raw interface{}, d pixtype.DType, width, height int32, k *Kernel) error {
	if int32(len(out)) != width*height {
		return errs.New(errs.InvalidDimension, "convolve: output size %d does not match image size %dx%d", len(out), width, height)
	}
	if !pixtype.Supported(d) {
		return errs.New(errs.UnsupportedDType, "convolve: unsupported dtype")
	}

	half := int32(k.N / 2)
	offs, wts := k.offsets(width)

	// Fast path: already float32, no per-pixel conversion needed.
	data := pixtype.AsF32(raw, d)
	at := func(i int32) float32 {
		if data != nil {
			return data[i]
		}
		return pixtype.At(raw, d, int(i))
	}

	for y := int32(0); y < height; y++ {
		interior := y >= half && y < height-half
		for x := int32(0); x < width; x++ {
			i := y*width + x
			if interior && x >= half && x < width-half {
				var sum float32
				for j, o := range offs {
					sum += at(i+o) * wts[j]
				}
				out[i] = sum
				continue
			}
			// Border pixel: zero-pad missing neighbors instead of skipping.
			var sum float32
			idx := 0
			for ky := -half; ky <= half; ky++ {
				ny := y + ky
				for kx := -half; kx <= half; kx++ {
					nx := x + kx
					if ny >= 0 && ny < height && nx >= 0 && nx < width {
						sum += at(ny*width+nx) * k.Weights[idx]
					}
					idx++
				}
			}
			out[i] = sum
		}
	}
	return nil
}

// NormalizeEnergy rescales weights in place so that the sum of their
// squares is 1, a normalization a caller can apply to a matched-filter
// kernel so that the filtered image's noise statistics stay comparable to
// the unfiltered one. Apply does not normalize the kernel itself.
func NormalizeEnergy(weights []float32) {
	var energy float64
	for _, w := range weights {
		energy += float64(w) * float64(w)
	}
	if energy <= 0 {
		return
	}
	scale := float32(1 / math.Sqrt(energy))
	for i := range weights {
		weights[i] *= scale
	}
}
