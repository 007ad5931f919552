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

// Package scan implements the connected-component extractor: a single
// left-to-right, top-to-bottom pass over a thresholded image (Lutz 1980)
// that assigns every foreground pixel a provisional component label,
// merging labels via union-find the moment two provisional components are
// discovered to touch, and finally collecting each root label's pixels into
// an arena-backed list (see plist.go), favoring an imperative,
// no-per-pixel-allocation style throughout. A pixel is foreground only when
// its value exceeds the threshold AND, if a mask is configured, the mask
// value at that pixel falls below the mask threshold.
package scan

import "github.com/stellarforge/sep/internal/pixtype"

// Component is one connected region of foreground pixels found by Scan.
type Component struct {
	Pixels   uint32 // arena head; walk with a.each or Result.Walk
	NPix     int32
	XMin, XMax, YMin, YMax int32
	Flux     float64 // sum of (value - threshold) over member pixels
	FluxMax  float32
	PeakPix  int32
}

// Result holds every component Scan found, plus the arena backing their
// pixel lists.
type Result struct {
	arena      *arena
	Components []Component
}

// Walk calls fn for every pixel index belonging to component c.
func (r *Result) Walk(c *Component, fn func(pixel int32)) {
	r.arena.each(c.Pixels, fn)
}

// Config controls the scan.
type Config struct {
	Threshold float32 // absolute threshold; a pixel is foreground if value > Threshold
	MinArea   int32   // components with fewer than MinArea pixels are discarded
	Conn8     bool    // eight-connectivity (diagonal neighbors count) vs four

	Mask          []float32 // optional, same shape as the scanned image
	MaskThreshold float32   // pixels with Mask[i] >= this are excluded from the scan
}

// masked reports whether pixel i is excluded from the scan by cfg's mask.
func (cfg *Config) masked(i int32) bool {
	return cfg.Mask != nil && cfg.Mask[i] >= cfg.MaskThreshold
}

// unionFind is a standard union-find over provisional label ids, label 0
// reserved as "no label".
type unionFind struct {
	parent []int32
}

func newUnionFind(capacity int) *unionFind {
	return &unionFind{parent: make([]int32, 1, capacity+1)}
}

func (u *unionFind) newLabel() int32 {
	id := int32(len(u.parent))
	u.parent = append(u.parent, id)
	return id
}

func (u *unionFind) find(x int32) int32 {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]] // path halving
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int32) int32 {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return ra
	}
	if ra < rb {
		u.parent[rb] = ra
		return ra
	}
	u.parent[ra] = rb
	return rb
}

// Scan runs the connected-component extractor over a width x height image
// tagged with dtype d, returning every component with at least cfg.MinArea
// pixels.
func Scan(raw interface{}, d pixtype.DType, width, height int32, cfg Config) *Result {
	n := int(width) * int(height)
	labels := make([]int32, n) // provisional label per pixel, 0 = background
	uf := newUnionFind(n/4 + 1)

	data := pixtype.AsF32(raw, d)
	at := func(i int32) float32 {
		if data != nil {
			return data[i]
		}
		return pixtype.At(raw, d, int(i))
	}

	for y := int32(0); y < height; y++ {
		rowOff := y * width
		for x := int32(0); x < width; x++ {
			i := rowOff + x
			if at(i) <= cfg.Threshold || cfg.masked(i) {
				continue
			}

			var neighborLabels [4]int32
			nn := 0
			if x > 0 && labels[i-1] != 0 {
				neighborLabels[nn] = labels[i-1]
				nn++
			}
			if y > 0 {
				if labels[i-width] != 0 {
					neighborLabels[nn] = labels[i-width]
					nn++
				}
				if cfg.Conn8 {
					if x > 0 && labels[i-width-1] != 0 {
						neighborLabels[nn] = labels[i-width-1]
						nn++
					}
					if x < width-1 && labels[i-width+1] != 0 {
						neighborLabels[nn] = labels[i-width+1]
						nn++
					}
				}
			}

			if nn == 0 {
				labels[i] = uf.newLabel()
				continue
			}

			label := neighborLabels[0]
			for k := 1; k < nn; k++ {
				label = uf.union(label, neighborLabels[k])
			}
			labels[i] = label
		}
	}

	return collect(labels, uf, at, width, height, cfg)
}

// collect resolves every provisional label to its root and accumulates
// per-root statistics and pixel-list arenas in a single pass.
func collect(labels []int32, uf *unionFind, at func(int32) float32, width, height int32, cfg Config) *Result {
	rootToComponent := make(map[int32]int)
	comps := make([]Component, 0, 64)
	a := newArena(len(labels))

	for i, label := range labels {
		if label == 0 {
			continue
		}
		root := uf.find(label)
		idx, ok := rootToComponent[root]
		v := at(int32(i))
		x := int32(i) % width
		y := int32(i) / width
		flux := float64(v - cfg.Threshold)

		if !ok {
			idx = len(comps)
			rootToComponent[root] = idx
			comps = append(comps, Component{
				XMin: x, XMax: x, YMin: y, YMax: y,
				FluxMax: v, PeakPix: int32(i),
			})
		}
		c := &comps[idx]
		c.Pixels = a.push(c.Pixels, int32(i))
		c.NPix++
		c.Flux += flux
		if x < c.XMin {
			c.XMin = x
		}
		if x > c.XMax {
			c.XMax = x
		}
		if y < c.YMin {
			c.YMin = y
		}
		if y > c.YMax {
			c.YMax = y
		}
		if v > c.FluxMax {
			c.FluxMax = v
			c.PeakPix = int32(i)
		}
	}

	out := make([]Component, 0, len(comps))
	for _, c := range comps {
		if c.NPix >= cfg.MinArea {
			out = append(out, c)
		}
	}
	return &Result{arena: a, Components: out}
}
