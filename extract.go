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

import (
	"math"

	"github.com/stellarforge/sep/internal/clean"
	"github.com/stellarforge/sep/internal/deblend"
	"github.com/stellarforge/sep/internal/moments"
	"github.com/stellarforge/sep/internal/pixtype"
	"github.com/stellarforge/sep/internal/scan"
)

// ObjectFlag carries the per-object condition bits the contract reserves
// for numeric anomalies instead of errors.
type ObjectFlag uint32

const (
	ObjMerged    ObjectFlag = 1 << iota // another object was merged into this one by the clean pass
	ObjTrunc                            // object's pixel list truncated at the image border
	ObjDOverflow                        // deblending hit the internal clump limit; root emitted undeblended
	ObjSingular                         // second moments were singular (a2<=0 or b2<=0); a=b=sqrt(1/12) substituted
	ObjIsoPlus                          // isophotal extent extended beyond the detection image border
	ObjCrowded                          // set by BuildCatalog when the Kron radius fell back to its maximum (non-positive flux or too few pixels)
)

// ThreshType selects how Thresh in ExtractConfig is interpreted.
type ThreshType int

const (
	ThreshAbsolute ThreshType = iota // thresh is in pixel value units
	ThreshRelative                   // thresh multiplies the per-pixel noise/RMS
)

// FilterType selects the detection plane extraction scans.
type FilterType int

const (
	FilterConv    FilterType = iota // scan the unconvolved (but background-subtracted) image
	FilterMatched                   // scan the matched-filter convolved image
)

// ExtractConfig controls one Extract call.
type ExtractConfig struct {
	Thresh     float32
	ThreshType ThreshType
	MinArea    int32

	Kernel     *Kernel    // optional matched filter; required when FilterType==FilterMatched
	FilterType FilterType

	DeblendNThresh int     // default 32 if 0
	DeblendCont    float32 // default 0.005 if 0

	Clean      bool
	CleanParam float32 // default 1.0 if 0 and Clean is set

	Conn8 bool // eight-connectivity when true; four-connectivity when false (the zero value)
}

// Object is one detected, deblended, measured source.
type Object struct {
	XPeak, YPeak           int32
	Peak                   float32
	MX, MY                 float64
	XMin, XMax, YMin, YMax int32
	MX2, MY2, MXY          float64
	A, B, Theta            float64
	CXX, CYY, CXY          float64

	FDNPix int32 // pixel count before deblending (root component)
	NPix   int32 // pixel count of this (possibly deblended) object

	FDFlux, DFlux, Flux float64
	FluxErr             float64

	Flag ObjectFlag

	pixels []int32 // row-major pixel indices, retained for aperture/Kron follow-up
}

// ObjectList is the result of Extract: every detected object plus the
// detection threshold used to find them.
type ObjectList struct {
	Objects []Object
	Thresh  float32
}

// Extract runs the full detection pipeline: connected-component scan of
// buf (or, when cfg.FilterType is FilterMatched, of a matched-filter
// convolution of buf using cfg.Kernel) at cfg.Thresh, multi-threshold
// deblending of each resulting component, shape/moment analysis, and
// optional post-extraction cleaning of marginal neighbors.
func Extract(buf PixelBuffer, cfg ExtractConfig) (ObjectList, error) {
	if err := buf.validate(); err != nil {
		return ObjectList{}, err
	}
	if cfg.MinArea < 1 {
		return ObjectList{}, errNew(IllegalArgument, "extract: minarea must be >= 1, got %d", cfg.MinArea)
	}
	nthresh := cfg.DeblendNThresh
	if nthresh == 0 {
		nthresh = 32
	}
	contrast := cfg.DeblendCont
	if contrast == 0 {
		contrast = 0.005
	}

	raw, dtype := buf.Raw, buf.DType
	absThresh := cfg.Thresh
	if cfg.ThreshType == ThreshRelative {
		absThresh = cfg.Thresh * buf.GlobalRMS
	}

	if cfg.FilterType == FilterMatched {
		if cfg.Kernel == nil {
			return ObjectList{}, errNew(IllegalArgument, "extract: FilterMatched requires a kernel")
		}
		conv := make([]float32, buf.Width*buf.Height)
		if err := Convolve(buf, cfg.Kernel, conv); err != nil {
			return ObjectList{}, err
		}
		raw, dtype = conv, F32
	}

	result := scan.Scan(raw, dtype, buf.Width, buf.Height, scan.Config{
		Threshold:     absThresh,
		MinArea:       cfg.MinArea,
		Conn8:         cfg.Conn8,
		Mask:          buf.Mask,
		MaskThreshold: buf.MaskThreshold,
	})

	data := pixtype.AsF32(raw, dtype)
	at := func(i int32) float32 {
		if data != nil {
			return data[i]
		}
		return pixtype.At(raw, dtype, int(i))
	}

	var objects []Object
	for ci := range result.Components {
		c := &result.Components[ci]

		var rootPixels []int32
		result.Walk(c, func(p int32) { rootPixels = append(rootPixels, p) })

		subObjects, err := deblend.Deblend(raw, dtype, buf.Width, buf.Height, c, rootPixels, absThresh, nthresh, contrast, cfg.MinArea)
		if err != nil {
			return ObjectList{}, err
		}

		for _, sub := range subObjects {
			o := objectFromDeblend(sub, c, at, buf.Width, buf.Height, absThresh)
			o.FluxErr = isophotalFluxErr(buf, sub.Pixels)
			objects = append(objects, o)
		}
	}

	if cfg.Clean && len(objects) > 1 {
		cleanParam := cfg.CleanParam
		if cleanParam == 0 {
			cleanParam = 1.0
		}
		candidates := make([]clean.Candidate, len(objects))
		for i, o := range objects {
			candidates[i] = clean.Candidate{X: float32(o.MX), Y: float32(o.MY), Flux: o.Flux, MX2: o.MX2, MY2: o.MY2}
		}
		results := clean.Clean(candidates, cleanParam)
		kept := objects[:0]
		for i, o := range objects {
			if results[i].Merged {
				objects[results[i].MergedTo].Flag |= ObjMerged
				continue
			}
			kept = append(kept, o)
		}
		objects = kept
	}

	return ObjectList{Objects: objects, Thresh: absThresh}, nil
}

// isophotalFluxErr computes the propagated error of an object's summed
// isophotal flux: variance per pixel if supplied, else noise^2, else the
// global RMS^2, summed unweighted over member pixels (§ sum_circle's
// fluxerr formula specialized to whole-pixel membership).
func isophotalFluxErr(buf PixelBuffer, pixels []int32) float64 {
	var sum float64
	for _, p := range pixels {
		switch {
		case buf.Variance != nil:
			sum += float64(buf.Variance[p])
		case buf.Noise != nil:
			sum += float64(buf.Noise[p]) * float64(buf.Noise[p])
		default:
			sum += float64(buf.GlobalRMS) * float64(buf.GlobalRMS)
		}
	}
	return math.Sqrt(sum)
}

func objectFromDeblend(sub deblend.Object, root *scan.Component, at func(int32) float32, width, height int32, thresh float32) Object {
	xs := make([]int32, len(sub.Pixels))
	ys := make([]int32, len(sub.Pixels))
	values := make([]float32, len(sub.Pixels))
	for i, p := range sub.Pixels {
		xs[i] = p % width
		ys[i] = p / width
		v := at(p) - thresh
		if v < 0 {
			v = 0
		}
		values[i] = v
	}
	shape := moments.Compute(xs, ys, values)

	// An undeblended root carries no box of its own; take the component's.
	xMin, xMax, yMin, yMax := sub.XMin, sub.XMax, sub.YMin, sub.YMax
	if xMin > xMax {
		xMin, xMax, yMin, yMax = root.XMin, root.XMax, root.YMin, root.YMax
	}

	o := Object{
		XPeak: sub.PeakPix % width, YPeak: sub.PeakPix / width,
		Peak: sub.FluxMax,
		MX:   shape.MX, MY: shape.MY,
		XMin: xMin, XMax: xMax, YMin: yMin, YMax: yMax,
		MX2: shape.MX2, MY2: shape.MY2, MXY: shape.MXY,
		A: shape.A, B: shape.B, Theta: shape.Theta,
		CXX: shape.CXX, CYY: shape.CYY, CXY: shape.CXY,
		FDNPix: root.NPix,
		NPix:   sub.NPix,
		FDFlux: root.Flux, DFlux: sub.Flux, Flux: sub.Flux,
		pixels: sub.Pixels,
	}
	if shape.Singular {
		o.Flag |= ObjSingular
	}
	if sub.Overflow {
		o.Flag |= ObjDOverflow
	}
	if xMin == 0 || yMin == 0 || xMax == width-1 || yMax == height-1 {
		o.Flag |= ObjTrunc
	}
	return o
}
