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

package sep

import "github.com/stellarforge/sep/internal/convolve"

// Kernel is an odd-sized, row-major matched-filter kernel. Normalization is
// the caller's responsibility; NormalizeKernelEnergy is provided as a
// convenience.
type Kernel struct {
	Weights []float32
	N       int
}

// NewKernel validates an odd-sized row-major kernel.
func NewKernel(weights []float32, n int) (*Kernel, error) {
	k, err := convolve.NewKernel(weights, n)
	if err != nil {
		return nil, err
	}
	return &Kernel{Weights: k.Weights, N: k.N}, nil
}

// NormalizeKernelEnergy rescales weights in place so the sum of their
// squares is 1.
func NormalizeKernelEnergy(weights []float32) {
	convolve.NormalizeEnergy(weights)
}

// Convolve produces the matched-filtered image into out (length
// buf.Width*buf.Height), zero-padding at the edges.
func Convolve(buf PixelBuffer, k *Kernel, out []float32) error {
	if err := buf.validate(); err != nil {
		return err
	}
	ik := &convolve.Kernel{Weights: k.Weights, N: k.N}
	return convolve.Apply(out, buf.Raw, buf.DType, buf.Width, buf.Height, ik)
}
