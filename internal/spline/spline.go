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

// Package spline implements the natural cubic spline interpolation the
// background algorithm requires for evaluating the coarse mesh grid back
// onto full image rows: C2 bicubic splines rather than plain bilinear
// interpolation between mesh cells (see internal/background).
//
// Tridiagonal solves use the classic natural-boundary algorithm (second
// derivatives zero at the ends); reductions over the resulting coefficient
// vectors go through gonum/floats.
package spline

import "gonum.org/v1/gonum/floats"

// Natural1D is a natural cubic spline through control points (xs[i], ys[i]),
// xs strictly increasing. It is evaluated with Eval.
type Natural1D struct {
	xs, ys []float64
	// second derivatives at each knot
	m []float64
}

// NewNatural1D fits a natural cubic spline to the given knots.
func NewNatural1D(xs, ys []float64) *Natural1D {
	n := len(xs)
	s := &Natural1D{xs: xs, ys: ys, m: make([]float64, n)}
	if n < 3 {
		return s
	}

	// Tridiagonal system for second derivatives, natural boundary conditions
	// m[0]=m[n-1]=0. Thomas algorithm.
	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = xs[i+1] - xs[i]
	}

	alpha := make([]float64, n)
	for i := 1; i < n-1; i++ {
		alpha[i] = 3.0/h[i]*(ys[i+1]-ys[i]) - 3.0/h[i-1]*(ys[i]-ys[i-1])
	}

	l := make([]float64, n)
	mu := make([]float64, n)
	z := make([]float64, n)
	l[0] = 1
	for i := 1; i < n-1; i++ {
		l[i] = 2*(xs[i+1]-xs[i-1]) - h[i-1]*mu[i-1]
		mu[i] = h[i] / l[i]
		z[i] = (alpha[i] - h[i-1]*z[i-1]) / l[i]
	}
	l[n-1] = 1

	c := make([]float64, n)
	for j := n - 2; j >= 0; j-- {
		c[j] = z[j] - mu[j]*c[j+1]
	}
	// c is the quadratic coefficient of each piece, half the second
	// derivative at the knot; Eval takes the second derivative itself.
	for j := range c {
		c[j] *= 2
	}
	s.m = c
	return s
}

// Eval evaluates the spline at x, clamping to the nearest knot interval
// when x lies outside [xs[0], xs[n-1]].
func (s *Natural1D) Eval(x float64) float64 {
	n := len(s.xs)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return s.ys[0]
	}
	if n == 2 {
		t := (x - s.xs[0]) / (s.xs[1] - s.xs[0])
		return s.ys[0] + t*(s.ys[1]-s.ys[0])
	}

	i := locate(s.xs, x)
	h := s.xs[i+1] - s.xs[i]
	a := (s.xs[i+1] - x) / h
	b := (x - s.xs[i]) / h

	y0, y1 := s.ys[i], s.ys[i+1]
	c0, c1 := s.m[i], s.m[i+1]

	// standard natural cubic spline evaluation formula
	terms := []float64{
		a * y0,
		b * y1,
		((a*a*a - a) * c0) * (h * h) / 6,
		((b*b*b - b) * c1) * (h * h) / 6,
	}
	return floats.Sum(terms)
}

// locate returns the index i such that xs[i] <= x <= xs[i+1], clamped to
// the valid range of interior intervals.
func locate(xs []float64, x float64) int {
	n := len(xs)
	if x <= xs[0] {
		return 0
	}
	if x >= xs[n-1] {
		return n - 2
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xs[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// Grid2D is a natural bicubic spline over a regular grid of gw x gh control
// values, with cell centers spaced cellW x cellH pixels apart (matching the
// background mesh layout). Evaluation at an arbitrary image point is done
// separably: spline across grid columns within each grid row to interpolate
// along Y for each grid column, then spline the resulting row of
// intermediate values along X -- the standard separable bicubic construction.
type Grid2D struct {
	gw, gh         int
	cellW, cellH   float64
	values         []float64 // row-major, gw*gh
	gridX, gridY   []float64 // knot coordinates (cell centers) per axis
	columnSplines  []*Natural1D // one per grid column, along Y
}

// NewGrid2D builds a bicubic spline evaluator over the given mesh. values is
// row-major with gw*gh entries; cellW/cellH are the pixel spacing between
// adjacent cell centers along X/Y.
func NewGrid2D(values []float32, gw, gh int, cellW, cellH float32) *Grid2D {
	g := &Grid2D{
		gw: gw, gh: gh,
		cellW: float64(cellW), cellH: float64(cellH),
		values: make([]float64, len(values)),
	}
	for i, v := range values {
		g.values[i] = float64(v)
	}
	g.gridX = make([]float64, gw)
	for x := 0; x < gw; x++ {
		g.gridX[x] = (float64(x) + 0.5) * g.cellW
	}
	g.gridY = make([]float64, gh)
	for y := 0; y < gh; y++ {
		g.gridY[y] = (float64(y) + 0.5) * g.cellH
	}

	g.columnSplines = make([]*Natural1D, gw)
	colBuf := make([]float64, gh)
	for x := 0; x < gw; x++ {
		for y := 0; y < gh; y++ {
			colBuf[y] = g.values[y*gw+x]
		}
		g.columnSplines[x] = NewNatural1D(g.gridY, append([]float64(nil), colBuf...))
	}
	return g
}

// EvalPoint evaluates the bicubic surface at pixel coordinate (px, py).
func (g *Grid2D) EvalPoint(px, py float64) float32 {
	rowBuf := make([]float64, g.gw)
	for x := 0; x < g.gw; x++ {
		rowBuf[x] = g.columnSplines[x].Eval(py)
	}
	rowSpline := NewNatural1D(g.gridX, rowBuf)
	return float32(rowSpline.Eval(px))
}

// EvalLine fills out (length w, one entry per image column) with the
// surface evaluated along image row y.
func (g *Grid2D) EvalLine(y int32, w int32, out []float32) {
	py := float64(y)
	rowBuf := make([]float64, g.gw)
	for x := 0; x < g.gw; x++ {
		rowBuf[x] = g.columnSplines[x].Eval(py)
	}
	rowSpline := NewNatural1D(g.gridX, rowBuf)
	for x := int32(0); x < w; x++ {
		out[x] = float32(rowSpline.Eval(float64(x)))
	}
}
