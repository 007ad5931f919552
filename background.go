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

import "github.com/stellarforge/sep/internal/background"

// BackgroundConfig controls mesh construction for MakeBackground.
type BackgroundConfig struct {
	BW, BH           int32   // mesh cell pixel size, >= 1
	FilterW, FilterH int32   // median filter window in cells, odd, >= 1
	FilterThresh     float32 // relative deviation threshold for conditional filter replacement
	Kappa            float32 // sigma clip factor; 0 selects the documented default of 3.0
	MaxClipIter      int     // clipping iterations per cell; 0 selects the documented default of 10
}

// DefaultBackgroundConfig returns the background algorithm's documented
// defaults for a mesh cell of bw x bh pixels.
func DefaultBackgroundConfig(bw, bh int32) BackgroundConfig {
	cfg := background.DefaultConfig(bw, bh)
	return BackgroundConfig{
		BW: cfg.BW, BH: cfg.BH,
		FilterW: cfg.FilterW, FilterH: cfg.FilterH,
		FilterThresh: cfg.FilterThresh,
		Kappa:        cfg.Kappa,
		MaxClipIter:  cfg.MaxClipIter,
	}
}

func (c BackgroundConfig) toInternal() background.Config {
	cfg := background.DefaultConfig(c.BW, c.BH)
	if c.FilterW != 0 {
		cfg.FilterW = c.FilterW
	}
	if c.FilterH != 0 {
		cfg.FilterH = c.FilterH
	}
	cfg.FilterThresh = c.FilterThresh
	if c.Kappa != 0 {
		cfg.Kappa = c.Kappa
	}
	if c.MaxClipIter != 0 {
		cfg.MaxClipIter = c.MaxClipIter
	}
	return cfg
}

// BackgroundMap is the opaque, read-many, explicitly-freed background/RMS
// surface produced by MakeBackground.
type BackgroundMap struct {
	inner *background.Map
}

// MakeBackground partitions buf into a regular mesh, computes clipped
// background/RMS statistics per cell, fills invalid cells by neighbor
// interpolation, optionally smooths the surfaces, and prepares bicubic
// spline evaluation. Fails with MeshTooSmall if the configured cell size
// yields fewer than the algorithm's floor of usable samples per cell.
func MakeBackground(buf PixelBuffer, cfg BackgroundConfig) (*BackgroundMap, error) {
	if err := buf.validate(); err != nil {
		return nil, err
	}
	data := pixtypeAsF32(buf)
	m, err := background.Estimate(data, buf.Width, buf.Height, buf.Mask, cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return &BackgroundMap{inner: m}, nil
}

// BackLine fills out with the background surface along image row y.
func (b *BackgroundMap) BackLine(y int32, out []float32) error {
	return b.inner.BackLine(y, out)
}

// RMSLine fills out with the RMS surface along image row y.
func (b *BackgroundMap) RMSLine(y int32, out []float32) error {
	return b.inner.RMSLine(y, out)
}

// BackArray evaluates the full background surface.
func (b *BackgroundMap) BackArray() []float32 { return b.inner.BackArray() }

// RMSArray evaluates the full RMS surface.
func (b *BackgroundMap) RMSArray() []float32 { return b.inner.RMSArray() }

// SubtractFromArray subtracts the evaluated background from dest in place.
func (b *BackgroundMap) SubtractFromArray(dest []float32) error {
	return b.inner.SubtractFromArray(dest)
}

// GlobalBack is the clipped background level over the whole image.
func (b *BackgroundMap) GlobalBack() float32 { return b.inner.GlobalBack() }

// GlobalRMS is the clipped RMS over the whole image.
func (b *BackgroundMap) GlobalRMS() float32 { return b.inner.GlobalRMS() }

// Free releases the map's backing state. The background map is otherwise
// safe to share read-only across goroutines (see the concurrency
// contract); Free must not be called while another goroutine is still
// reading from it.
func (b *BackgroundMap) Free() {
	b.inner.Free()
}
