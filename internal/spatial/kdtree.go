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

// Package spatial implements a pointerless 2D k-d tree: alternating-axis
// sort-in-place construction, recursive nearest-neighbor descent with a
// plane-distance prune. Each leaf carries an (X,Y) position plus an
// opaque object index, so a nearest-neighbor search can report which
// object it landed on.
package spatial

import "sort"

// Point is one indexed 2D position stored in the tree.
type Point struct {
	X, Y  float32
	Index int32 // caller-defined payload, e.g. an object id
}

func distSquared(a, b Point) float32 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// KDTree is a pointerless k-d tree with k=2, built in place over a slice of
// Points by Build.
type KDTree []Point

// Build arranges points into a balanced k-d tree in place, pivoting on X at
// even depths.
func Build(points []Point) KDTree {
	t := KDTree(points)
	t.buildX()
	return t
}

func (t KDTree) buildX() {
	sort.Slice(t, func(i, j int) bool { return t[i].X <= t[j].X })
	l := len(t)
	if l > 1 {
		t[:l/2].buildY()
		if l > 2 {
			t[l/2+1:].buildY()
		}
	}
}

func (t KDTree) buildY() {
	sort.Slice(t, func(i, j int) bool { return t[i].Y <= t[j].Y })
	l := len(t)
	if l > 1 {
		t[:l/2].buildX()
		if l > 2 {
			t[l/2+1:].buildX()
		}
	}
}

// NearestNeighbor returns the closest point to p (by squared distance) and
// that squared distance. The tree must be non-empty.
func (t KDTree) NearestNeighbor(p Point) (closest Point, distSq float32) {
	l := len(t)
	mid := t[l/2]
	closest, distSq = mid, distSquared(p, mid)
	if p.X <= mid.X {
		if l > 1 {
			if pt, d := t[:l/2].nearestY(p); d < distSq {
				closest, distSq = pt, d
			}
			if l > 2 {
				dp := p.X - mid.X
				if dp*dp <= distSq {
					if pt, d := t[l/2+1:].nearestY(p); d < distSq {
						closest, distSq = pt, d
					}
				}
			}
		}
	} else {
		if l > 2 {
			if pt, d := t[l/2+1:].nearestY(p); d < distSq {
				closest, distSq = pt, d
			}
		}
		if l > 1 {
			dp := p.X - mid.X
			if dp*dp <= distSq {
				if pt, d := t[:l/2].nearestY(p); d < distSq {
					closest, distSq = pt, d
				}
			}
		}
	}
	return closest, distSq
}

func (t KDTree) nearestY(p Point) (closest Point, distSq float32) {
	l := len(t)
	mid := t[l/2]
	closest, distSq = mid, distSquared(p, mid)
	if p.Y <= mid.Y {
		if l > 1 {
			if pt, d := t[:l/2].NearestNeighbor(p); d < distSq {
				closest, distSq = pt, d
			}
			if l > 2 {
				dp := p.Y - mid.Y
				if dp*dp <= distSq {
					if pt, d := t[l/2+1:].NearestNeighbor(p); d < distSq {
						closest, distSq = pt, d
					}
				}
			}
		}
	} else {
		if l > 2 {
			if pt, d := t[l/2+1:].NearestNeighbor(p); d < distSq {
				closest, distSq = pt, d
			}
		}
		if l > 1 {
			dp := p.Y - mid.Y
			if dp*dp <= distSq {
				if pt, d := t[:l/2].NearestNeighbor(p); d < distSq {
					closest, distSq = pt, d
				}
			}
		}
	}
	return closest, distSq
}
