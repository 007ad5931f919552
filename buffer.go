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

import "github.com/stellarforge/sep/internal/pixtype"

// DType tags the storage type backing a PixelBuffer.
type DType = pixtype.DType

const (
	F32 = pixtype.F32
	F64 = pixtype.F64
	I32 = pixtype.I32
	U16 = pixtype.U16
)

// PixelBuffer is an immutable view of a row-major W x H array of one of the
// supported dtypes, with optional noise/variance and mask companions of the
// same shape.
type PixelBuffer struct {
	Raw           interface{} // []float32, []float64, []int32 or []uint16
	DType         DType
	Width, Height int32

	Noise         []float32 // per-pixel standard deviation, nil if unused
	Variance      []float32 // per-pixel variance, nil if unused; takes priority over Noise
	Mask          []float32 // nil if unused
	MaskThreshold float32
	GlobalRMS     float32 // used when neither Noise nor Variance is supplied
}

// NewFloat32Buffer wraps an existing float32 image without copying it.
func NewFloat32Buffer(data []float32, width, height int32) PixelBuffer {
	return PixelBuffer{Raw: data, DType: F32, Width: width, Height: height}
}

// pixtypeAsF32 returns buf's pixel data as a float32 slice, converting on
// the fly (and allocating) when the backing dtype is not already float32.
func pixtypeAsF32(buf PixelBuffer) []float32 {
	if f32 := pixtype.AsF32(buf.Raw, buf.DType); f32 != nil {
		return f32
	}
	n := pixtype.Len(buf.Raw, buf.DType)
	return pixtype.FillRow(make([]float32, n), buf.Raw, buf.DType, 0, n)
}

func (b *PixelBuffer) validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return errNew(InvalidDimension, "pixel buffer: invalid dimensions %dx%d", b.Width, b.Height)
	}
	if !pixtype.Supported(b.DType) {
		return errNew(UnsupportedDType, "pixel buffer: unsupported dtype %s", b.DType)
	}
	n := pixtype.Len(b.Raw, b.DType)
	if int32(n) != b.Width*b.Height {
		return errNew(InvalidDimension, "pixel buffer: data length %d does not match %dx%d", n, b.Width, b.Height)
	}
	if b.Mask != nil && int32(len(b.Mask)) != b.Width*b.Height {
		return errNew(InvalidDimension, "pixel buffer: mask shape does not match image shape")
	}
	if b.Noise != nil && int32(len(b.Noise)) != b.Width*b.Height {
		return errNew(InvalidDimension, "pixel buffer: noise shape does not match image shape")
	}
	if b.Variance != nil && int32(len(b.Variance)) != b.Width*b.Height {
		return errNew(InvalidDimension, "pixel buffer: variance shape does not match image shape")
	}
	return nil
}
