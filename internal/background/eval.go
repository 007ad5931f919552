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

package background

import "github.com/stellarforge/sep/internal/errs"

// Width and Height of the image the map was built from.
func (m *Map) Width() int32  { return m.width }
func (m *Map) Height() int32 { return m.height }

// GridDims returns the mesh grid dimensions (gw, gh).
func (m *Map) GridDims() (int32, int32) { return m.gw, m.gh }

// GlobalBack is the clipped background level over the whole image.
func (m *Map) GlobalBack() float32 { return m.globalBack }

// GlobalRMS is the clipped RMS over the whole image.
func (m *Map) GlobalRMS() float32 { return m.globalRMS }

// BackLine fills out (length >= Width()) with the background surface
// evaluated along image row y, via bicubic spline interpolation over the
// mesh grid.
func (m *Map) BackLine(y int32, out []float32) error {
	if y < 0 || y >= m.height {
		return errs.New(errs.InvalidDimension, "background: row %d out of range [0,%d)", y, m.height)
	}
	if int32(len(out)) < m.width {
		return errs.New(errs.InvalidDimension, "background: output row too short")
	}
	m.backSpline.EvalLine(y, m.width, out)
	return nil
}

// RMSLine is BackLine's counterpart for the RMS surface.
func (m *Map) RMSLine(y int32, out []float32) error {
	if y < 0 || y >= m.height {
		return errs.New(errs.InvalidDimension, "background: row %d out of range [0,%d)", y, m.height)
	}
	if int32(len(out)) < m.width {
		return errs.New(errs.InvalidDimension, "background: output row too short")
	}
	m.rmsSpline.EvalLine(y, m.width, out)
	return nil
}

// BackArray evaluates the full background surface into a newly allocated
// Width()*Height() buffer.
func (m *Map) BackArray() []float32 {
	out := make([]float32, m.width*m.height)
	row := make([]float32, m.width)
	for y := int32(0); y < m.height; y++ {
		m.backSpline.EvalLine(y, m.width, row)
		copy(out[y*m.width:(y+1)*m.width], row)
	}
	return out
}

// RMSArray is BackArray's counterpart for the RMS surface.
func (m *Map) RMSArray() []float32 {
	out := make([]float32, m.width*m.height)
	row := make([]float32, m.width)
	for y := int32(0); y < m.height; y++ {
		m.rmsSpline.EvalLine(y, m.width, row)
		copy(out[y*m.width:(y+1)*m.width], row)
	}
	return out
}

// SubtractFromArray subtracts the evaluated background from dest in place.
// Numerically equivalent to evaluating BackArray and subtracting it, but
// avoids the intermediate allocation.
func (m *Map) SubtractFromArray(dest []float32) error {
	if int32(len(dest)) != m.width*m.height {
		return errs.New(errs.InvalidDimension, "background: destination size %d does not match image size %dx%d", len(dest), m.width, m.height)
	}
	row := make([]float32, m.width)
	for y := int32(0); y < m.height; y++ {
		m.backSpline.EvalLine(y, m.width, row)
		base := y * m.width
		for x := int32(0); x < m.width; x++ {
			dest[base+x] -= row[x]
		}
	}
	return nil
}

// Free releases the map's backing state. Provided for API parity with the
// spec's explicit-lifetime background map contract; in Go the garbage
// collector reclaims the memory once the Map is unreachable, so Free simply
// drops the map's own references to make that collection immediate.
func (m *Map) Free() {
	m.back, m.rms = nil, nil
	m.backSpline, m.rmsSpline = nil, nil
}
