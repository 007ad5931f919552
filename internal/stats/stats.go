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

// Package stats implements iterative kappa-sigma clipped location/scale
// estimation around a median, plus the mean/mode background-level
// estimate built on top of it, the statistic the background estimator
// uses both per mesh cell and over the whole image.
package stats

import (
	"math"

	"github.com/stellarforge/sep/internal/qsort"
)

// modeSkewThreshold is the fraction of stdDev within which a clipped
// sample's mean and median are considered to coincide, i.e. the
// distribution is narrow/symmetric rather than skewed.
const modeSkewThreshold = 0.3

// mode estimates the background level from a clipped sample's median,
// mean and standard deviation: the mean itself when the distribution is
// narrow (mean and median nearly equal), otherwise the classic
// 2.5*median - 1.5*mean mode approximation for a skewed distribution.
func mode(median, mean, stdDev float32) float32 {
	if stdDev == 0 {
		return mean
	}
	if float32(math.Abs(float64(mean-median))) < modeSkewThreshold*stdDev {
		return mean
	}
	return 2.5*median - 1.5*mean
}

// CellStats returns the kappa-sigma clipped mean/mode background estimate
// and standard deviation of buffer, iterating at most maxClipIter times.
// scratch must have the same length as buffer and is used as working
// storage so buffer itself is left untouched; nValid is the sample count
// remaining after clipping.
func CellStats(buffer, scratch []float32, kappa float32, maxClipIter int) (back, stdDev float32, nValid int) {
	n := copy(scratch, buffer)
	remaining := scratch[:n]
	median, mean, stdDev, nValid := clip(remaining, kappa, maxClipIter)
	return mode(median, mean, stdDev), stdDev, nValid
}

// GlobalStats is CellStats without a preallocated scratch buffer, for the
// one-off whole-image clipped background/RMS estimate. pixels is copied
// before clipping so the caller's slice is not reordered.
func GlobalStats(pixels []float32, kappa float32, maxClipIter int) (globalBack, globalRMS float32) {
	tmp := make([]float32, len(pixels))
	copy(tmp, pixels)
	median, mean, stdDev, _ := clip(tmp, kappa, maxClipIter)
	return mode(median, mean, stdDev), stdDev
}

// clip repeatedly takes the median of remaining, computes the mean and
// standard deviation around it, and drops samples outside kappa*stdDev,
// stopping once an iteration rejects nothing, maxClipIter is exhausted, or
// too few samples remain to usefully continue.
func clip(remaining []float32, kappa float32, maxClipIter int) (median, mean, stdDev float32, nValid int) {
	if len(remaining) == 0 {
		return 0, 0, 0, 0
	}
	for iter := 0; iter < maxClipIter; iter++ {
		median = qsort.QSelectMedianFloat32(remaining)

		var sum float64
		for _, v := range remaining {
			sum += float64(v)
		}
		meanF64 := sum / float64(len(remaining))
		mean = float32(meanF64)

		var variance float64
		for _, v := range remaining {
			diff := float64(v) - meanF64
			variance += diff * diff
		}
		variance /= float64(len(remaining))
		stdDev = float32(math.Sqrt(variance))

		if stdDev == 0 || len(remaining) <= 3 {
			break
		}

		low := median - kappa*stdDev
		high := median + kappa*stdDev
		kept := 0
		for _, v := range remaining {
			if v >= low && v <= high {
				remaining[kept] = v
				kept++
			}
		}
		rejected := len(remaining) - kept
		remaining = remaining[:kept]
		if rejected == 0 || len(remaining) == 0 {
			break
		}
	}
	return median, mean, stdDev, len(remaining)
}
