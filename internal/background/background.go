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

// Package background implements the mesh-based background/noise
// estimator: a grid of per-cell estimates, an outlier pass, a smoothing
// pass and array/line evaluation primitives, built on a clipped-mean/mode
// cell estimator and bicubic spline evaluation rather than fitting a
// per-cell linear gradient.
package background

import (
	"github.com/stellarforge/sep/internal/errs"
	"github.com/stellarforge/sep/internal/median"
	"github.com/stellarforge/sep/internal/qsort"
	"github.com/stellarforge/sep/internal/spline"
	"github.com/stellarforge/sep/internal/stats"
)

// Config controls mesh construction.
type Config struct {
	BW, BH              int32   // mesh cell pixel size
	FilterW, FilterH    int32   // median filter window, in cells; odd
	FilterThresh        float32 // relative deviation threshold for conditional filter replacement
	MaskThreshold       float32 // pixels with mask >= this are excluded
	Kappa               float32 // sigma clip factor; DefaultConfig sets 3.0
	MaxClipIter         int     // clipping iterations per cell
}

// DefaultConfig returns the background algorithm's documented defaults.
func DefaultConfig(bw, bh int32) Config {
	return Config{
		BW: bw, BH: bh,
		FilterW: 3, FilterH: 3,
		FilterThresh:  0.0,
		MaskThreshold: 0,
		Kappa:         3.0,
		MaxClipIter:   10,
	}
}

// minCellFloor is the small floor of usable samples per cell below which
// the mesh configuration itself is rejected as too small.
const minCellFloor = 4

// Map is the background/RMS surface produced by Estimate.
type Map struct {
	width, height int32
	bw, bh        int32
	gw, gh        int32

	back []float32 // per-cell background, row-major gw*gh
	rms  []float32 // per-cell RMS, row-major gw*gh

	globalBack, globalRMS float32

	backSpline *spline.Grid2D
	rmsSpline  *spline.Grid2D
}

// Estimate builds a background map from a float32 image of the given
// dimensions. mask may be nil; when present, pixels with mask[i] >=
// cfg.MaskThreshold are excluded from cell statistics.
func Estimate(data []float32, width, height int32, mask []float32, cfg Config) (*Map, error) {
	if width <= 0 || height <= 0 {
		return nil, errs.New(errs.InvalidDimension, "background: invalid image dimensions %dx%d", width, height)
	}
	if cfg.BW < 1 || cfg.BH < 1 {
		return nil, errs.New(errs.IllegalArgument, "background: mesh cell size must be >= 1, got %dx%d", cfg.BW, cfg.BH)
	}
	if mask != nil && int32(len(mask)) != width*height {
		return nil, errs.New(errs.InvalidDimension, "background: mask shape does not match image shape")
	}
	if cfg.BW*cfg.BH < minCellFloor {
		return nil, errs.New(errs.MeshTooSmall, "background: mesh cell %dx%d yields fewer than %d samples", cfg.BW, cfg.BH, minCellFloor)
	}

	gw := (width + cfg.BW - 1) / cfg.BW
	gh := (height + cfg.BH - 1) / cfg.BH

	m := &Map{
		width: width, height: height,
		bw: cfg.BW, bh: cfg.BH,
		gw: gw, gh: gh,
		back: make([]float32, gw*gh),
		rms:  make([]float32, gw*gh),
	}

	valid := make([]bool, gw*gh)
	buffer := make([]float32, cfg.BW*cfg.BH)
	scratch := make([]float32, cfg.BW*cfg.BH)

	for gy := int32(0); gy < gh; gy++ {
		yStart, yEnd := gy*cfg.BH, (gy+1)*cfg.BH
		if yEnd > height {
			yEnd = height
		}
		for gx := int32(0); gx < gw; gx++ {
			xStart, xEnd := gx*cfg.BW, (gx+1)*cfg.BW
			if xEnd > width {
				xEnd = width
			}

			n := gatherCell(data, width, mask, cfg.MaskThreshold, xStart, xEnd, yStart, yEnd, buffer)
			c := gy*gw + gx
			if n < minCellFloor {
				valid[c] = false
				continue
			}
			bg, rms, nValid := stats.CellStats(buffer[:n], scratch[:n], cfg.Kappa, cfg.MaxClipIter)
			if nValid == 0 {
				valid[c] = false
				continue
			}
			m.back[c] = bg
			m.rms[c] = rms
			valid[c] = true
		}
	}

	fillInvalid(m.back, valid, gw, gh)
	fillInvalid(m.rms, valid, gw, gh)

	if cfg.FilterW > 1 || cfg.FilterH > 1 {
		m.back = median.FilterMeshConditional(m.back, gw, gh, cfg.FilterW, cfg.FilterH, cfg.FilterThresh, m.rms)
		m.rms = median.FilterMeshConditional(m.rms, gw, gh, cfg.FilterW, cfg.FilterH, cfg.FilterThresh, m.rms)
	}

	m.globalBack, m.globalRMS = stats.GlobalStats(validPixels(data, mask, cfg.MaskThreshold), cfg.Kappa, cfg.MaxClipIter)

	cellW := float32(width) / float32(gw)
	cellH := float32(height) / float32(gh)
	m.backSpline = spline.NewGrid2D(m.back, int(gw), int(gh), cellW, cellH)
	m.rmsSpline = spline.NewGrid2D(m.rms, int(gw), int(gh), cellW, cellH)

	return m, nil
}

func gatherCell(data []float32, width int32, mask []float32, maskThresh float32, xStart, xEnd, yStart, yEnd int32, buffer []float32) int {
	n := 0
	for y := yStart; y < yEnd; y++ {
		rowOff := y * width
		for x := xStart; x < xEnd; x++ {
			i := rowOff + x
			if mask != nil && mask[i] >= maskThresh {
				continue
			}
			buffer[n] = data[i]
			n++
		}
	}
	return n
}

// validPixels returns the subset of data not excluded by mask, for the
// whole-image clipped global background/RMS estimate.
func validPixels(data []float32, mask []float32, maskThresh float32) []float32 {
	if mask == nil {
		return data
	}
	out := make([]float32, 0, len(data))
	for i, v := range data {
		if mask[i] >= maskThresh {
			continue
		}
		out = append(out, v)
	}
	return out
}

// fillInvalid replaces cells flagged invalid (too few valid pixels) with the
// median of their valid 8-neighbors, relaxing the required neighbor count
// on each pass until every cell has a value or no progress can be made.
func fillInvalid(cells []float32, valid []bool, gw, gh int32) {
	remaining := 0
	for _, v := range valid {
		if !v {
			remaining++
		}
	}
	if remaining == 0 {
		return
	}

	temp := make([]float32, 8)
	for neighbors := 8; neighbors >= 0 && remaining > 0; neighbors-- {
		progressed := true
		for progressed {
			progressed = false
			for y := int32(0); y < gh; y++ {
				for x := int32(0); x < gw; x++ {
					c := y*gw + x
					if valid[c] {
						continue
					}
					gathered := 0
					for dy := int32(-1); dy <= 1; dy++ {
						ny := y + dy
						if ny < 0 || ny >= gh {
							continue
						}
						for dx := int32(-1); dx <= 1; dx++ {
							if dx == 0 && dy == 0 {
								continue
							}
							nx := x + dx
							if nx < 0 || nx >= gw {
								continue
							}
							nc := ny*gw + nx
							if valid[nc] {
								temp[gathered] = cells[nc]
								gathered++
							}
						}
					}
					if gathered >= neighbors && gathered > 0 {
						med := qsort.QSelectMedianFloat32(append([]float32(nil), temp[:gathered]...))
						cells[c] = med
						valid[c] = true
						remaining--
						progressed = true
					}
				}
			}
		}
	}
	// Any cell still unresolved (fully isolated mesh) falls back to the
	// surface-wide median rather than being left at its zero-value default.
	if remaining > 0 {
		known := make([]float32, 0, len(cells))
		for i, v := range valid {
			if v {
				known = append(known, cells[i])
			}
		}
		fallback := float32(0)
		if len(known) > 0 {
			fallback = qsort.QSelectMedianFloat32(known)
		}
		for i, v := range valid {
			if !v {
				cells[i] = fallback
			}
		}
	}
}
