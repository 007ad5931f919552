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

// Package deblend re-partitions a connected component found by
// internal/scan into one or more astrophysical sources, by repeatedly
// re-deriving a higher threshold, recomputing the mass above it, and
// comparing against the parent component's mass to decide whether a
// sub-peak is a real, separately promotable source. This "re-derive a
// threshold, recompute a mass sum, compare against the parent sum" shape
// generalizes from a single inner/outer split to nthresh geometrically
// spaced levels; Object is a flat struct of the resulting per-object
// statistics.
package deblend

import (
	"math"
	"sort"

	"github.com/stellarforge/sep/internal/errs"
	"github.com/stellarforge/sep/internal/pixtype"
	"github.com/stellarforge/sep/internal/scan"
)

// Object is one promoted sub-source of a deblended root component.
type Object struct {
	Pixels   []int32 // row-major pixel indices belonging to this object
	NPix     int32
	Flux     float64 // integrated flux above the root threshold
	XMin, XMax, YMin, YMax int32
	PeakPix  int32
	FluxMax  float32
	Overflow bool // set on the root when the internal limit is exceeded
}

// internalLimit bounds the number of provisional clumps tracked across all
// threshold levels, the Go stand-in for the fixed-size deblending stack the
// contract's DEBLEND_OVERFLOW bit reports on.
const internalLimit = 4096

// Deblend re-partitions root (as found by scan.Scan, restricted to its own
// pixel list) into nthresh geometrically spaced threshold levels between
// the root's detection threshold and its peak value, promoting a clump to
// an independent object once its flux above its birth threshold exceeds
// contrast*F0, where F0 is the root's total integrated flux. Pixels shared
// between surviving branches are assigned to the nearest promoted branch by
// flux contribution.
func Deblend(raw interface{}, d pixtype.DType, width, height int32, root *scan.Component, rootPixels []int32, rootThresh float32, nthresh int, contrast float32, minarea int32) ([]Object, error) {
	if nthresh < 2 || nthresh > 64 {
		return nil, errs.New(errs.IllegalArgument, "deblend: nthresh must be in [2,64], got %d", nthresh)
	}
	if contrast <= 0 || contrast > 1 {
		return nil, errs.New(errs.IllegalArgument, "deblend: contrast must be in (0,1], got %g", contrast)
	}

	data := pixtype.AsF32(raw, d)
	at := func(i int32) float32 {
		if data != nil {
			return data[i]
		}
		return pixtype.At(raw, d, int(i))
	}

	peak := float32(0)
	var f0 float64
	for _, p := range rootPixels {
		v := at(p)
		if v > peak {
			peak = v
		}
		f0 += float64(v - rootThresh)
	}
	if peak <= rootThresh || f0 <= 0 {
		return []Object{rootAsObject(rootPixels, rootThresh, at)}, nil
	}

	thresholds := geometricLevels(rootThresh, peak, nthresh)

	// promoted holds every clump that has already cleared the contrast test
	// at some level, keyed by an arbitrary representative pixel so pixel
	// reassignment below can find "the nearest promoted branch."
	type clump struct {
		pixels []int32
		flux   float64
	}
	var promoted []clump
	overflow := false

	for _, t := range thresholds {
		sub := restrictedScan(rootPixels, at, t, width)
		for _, c := range sub {
			if len(promoted)+1 > internalLimit {
				overflow = true
				break
			}
			flux := 0.0
			for _, p := range c {
				flux += float64(at(p) - t)
			}
			if flux > float64(contrast)*f0 {
				promoted = append(promoted, clump{pixels: c, flux: flux})
			}
		}
		if overflow {
			break
		}
	}

	if overflow {
		obj := rootAsObject(rootPixels, rootThresh, at)
		obj.Overflow = true
		return []Object{obj}, nil
	}

	if len(promoted) == 0 {
		return []Object{rootAsObject(rootPixels, rootThresh, at)}, nil
	}

	// Merge promoted clumps that are nested (a later, tighter-threshold
	// clump fully contained in an earlier one keeps only the tightest,
	// brightest version); then assign every root pixel to its nearest
	// promoted branch weighted by flux contribution. A clump found at a
	// higher level lies wholly inside one clump of each lower level, so one
	// of its pixels decides containment.
	var leaves []clump
	for i, c := range promoted {
		nested := false
		for _, d := range promoted[i+1:] {
			for _, p := range c.pixels {
				nested = nested || p == d.pixels[0]
			}
		}
		if !nested {
			leaves = append(leaves, c)
		}
	}
	promoted = leaves
	centers := make([][2]float64, len(promoted))
	for i, c := range promoted {
		cx, cy, mass := 0.0, 0.0, 0.0
		for _, p := range c.pixels {
			v := float64(at(p) - rootThresh)
			if v <= 0 {
				continue
			}
			x, y := float64(int32(p)%width), float64(int32(p)/width)
			cx += x * v
			cy += y * v
			mass += v
		}
		if mass <= 0 {
			mass = 1e-8
		}
		centers[i] = [2]float64{cx / mass, cy / mass}
	}

	objs := make([]Object, len(promoted))
	for i := range objs {
		objs[i] = Object{XMin: math.MaxInt32, YMin: math.MaxInt32, XMax: math.MinInt32, YMax: math.MinInt32}
	}

	for _, p := range rootPixels {
		v := at(p)
		x, y := float64(int32(p)%width), float64(int32(p)/width)
		best, bestDist := 0, math.MaxFloat64
		for i, c := range centers {
			dx, dy := x-c[0], y-c[1]
			dist := dx*dx + dy*dy
			if dist < bestDist {
				bestDist = dist
				best = i
			}
		}
		o := &objs[best]
		o.Pixels = append(o.Pixels, p)
		o.NPix++
		o.Flux += float64(v - rootThresh)
		px, py := int32(p)%width, int32(p)/width
		if px < o.XMin {
			o.XMin = px
		}
		if px > o.XMax {
			o.XMax = px
		}
		if py < o.YMin {
			o.YMin = py
		}
		if py > o.YMax {
			o.YMax = py
		}
		if v > o.FluxMax {
			o.FluxMax = v
			o.PeakPix = p
		}
	}

	out := objs[:0]
	for _, o := range objs {
		if o.NPix >= minarea {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []Object{rootAsObject(rootPixels, rootThresh, at)}, nil
	}
	return out, nil
}

// rootAsObject wraps pixels as a single unsplit Object when deblending
// finds nothing to promote; its bounding box is left at sentinel values
// since the caller already has it from the originating scan.Component.
func rootAsObject(pixels []int32, thresh float32, at func(int32) float32) Object {
	o := Object{XMin: math.MaxInt32, YMin: math.MaxInt32, XMax: math.MinInt32, YMax: math.MinInt32, Pixels: pixels}
	o.NPix = int32(len(pixels))
	for _, p := range pixels {
		v := at(p)
		o.Flux += float64(v - thresh)
		if v > o.FluxMax {
			o.FluxMax = v
			o.PeakPix = p
		}
	}
	return o
}

// geometricLevels builds nthresh thresholds geometrically spaced between
// lo (exclusive) and hi (the peak), the spacing the contract specifies for
// deblending.
func geometricLevels(lo, hi float32, nthresh int) []float32 {
	levels := make([]float32, nthresh)
	logLo, logHi := math.Log(float64(lo)+1), math.Log(float64(hi)+1)
	if lo <= 0 {
		logLo = math.Log(1)
	}
	for i := 0; i < nthresh; i++ {
		frac := float64(i+1) / float64(nthresh+1)
		v := math.Exp(logLo+frac*(logHi-logLo)) - 1
		levels[i] = float32(v)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels
}

// restrictedScan re-runs connected-component labeling limited to pixels in
// rootPixels whose value exceeds t, the "connected-component analysis
// restricted to the root's pixel list" step of the contract.
func restrictedScan(rootPixels []int32, at func(int32) float32, t float32, width int32) [][]int32 {
	member := make(map[int32]bool, len(rootPixels))
	for _, p := range rootPixels {
		if at(p) > t {
			member[p] = true
		}
	}
	visited := make(map[int32]bool, len(member))
	var clumps [][]int32
	for p := range member {
		if visited[p] {
			continue
		}
		var clump []int32
		stack := []int32{p}
		visited[p] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			clump = append(clump, cur)
			for _, n := range eightNeighbors(cur, width) {
				if member[n] && !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}
		clumps = append(clumps, clump)
	}
	return clumps
}

// eightNeighbors returns cur's eight neighbor pixel indices, skipping the
// east/west wraps at row boundaries.
func eightNeighbors(cur, width int32) []int32 {
	x := cur % width
	out := make([]int32, 0, 8)
	for _, dy := range [3]int32{-width, 0, width} {
		for _, dx := range [3]int32{-1, 0, 1} {
			if dx == 0 && dy == 0 {
				continue
			}
			nx := x + dx
			if nx < 0 || nx >= width {
				continue
			}
			out = append(out, cur+dy+dx)
		}
	}
	return out
}
