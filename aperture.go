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

import "github.com/stellarforge/sep/internal/aperture"

// ApertureFlag carries the per-measurement condition bits a SumCircle,
// SumEllipse or KronRadius call reports alongside its result.
type ApertureFlag uint32

const (
	ApertureTrunc       ApertureFlag = 1 << iota // a contributing pixel fell outside the image
	ApertureHasMasked                            // at least one masked pixel was touched
	ApertureAllMasked                            // every candidate pixel was masked
	ApertureNonPositive                          // Kron: total flux was non-positive
)

// ApertureSum is the flux, its propagated error, the effective pixel area
// summed over, and condition flags for one aperture measurement.
type ApertureSum struct {
	Flux    float64
	FluxErr float64
	Area    float64
	Flags   ApertureFlag
}

func apertureImage(buf PixelBuffer) *aperture.Image {
	return &aperture.Image{
		Raw: buf.Raw, DType: buf.DType, Width: buf.Width, Height: buf.Height,
		Mask: buf.Mask, MaskThreshold: buf.MaskThreshold,
		Noise: buf.Noise, Variance: buf.Variance, GlobalRMS: buf.GlobalRMS,
	}
}

func fromInternalSum(s aperture.Sum) ApertureSum {
	return ApertureSum{Flux: s.Flux, FluxErr: s.FluxErr, Area: s.Area, Flags: ApertureFlag(s.Flags)}
}

// SumCircle integrates flux within radius r of (x, y). subpix==0 selects
// exact analytic circle-square overlap; subpix>=1 selects subpix x subpix
// sub-pixel sampling.
func SumCircle(buf PixelBuffer, x, y, r float64, subpix int) (ApertureSum, error) {
	if err := buf.validate(); err != nil {
		return ApertureSum{}, err
	}
	return fromInternalSum(aperture.SumCircle(apertureImage(buf), x, y, r, subpix)), nil
}

// SumEllipse integrates flux within the conic cxx*dx^2+cyy*dy^2+cxy*dx*dy <=
// rScale^2 of (x, y). There is no exact analytic form for the general
// ellipse; subpix==0 defaults to a subpix of 5.
func SumEllipse(buf PixelBuffer, x, y, cxx, cyy, cxy, rScale float64, subpix int) (ApertureSum, error) {
	if err := buf.validate(); err != nil {
		return ApertureSum{}, err
	}
	return fromInternalSum(aperture.SumEllipse(apertureImage(buf), x, y, cxx, cyy, cxy, rScale, subpix)), nil
}

// KronKey is the canonical Kron radius scale factor used when reporting
// flux_auto in a catalog (§6): the Kron radius itself, times this factor,
// bounds the aperture passed to SumEllipse.
const KronKey = 2.5

// KronRadius evaluates the first-moment radius K = sum(r*I(r))/sum(I(r))
// over pixels within rMax of (x,y) under the conic metric
// r^2 = cxx*dx^2+cyy*dy^2+cxy*dx*dy. Falls back to rMax with
// ApertureNonPositive set when total flux is non-positive or too few
// pixels contribute.
func KronRadius(buf PixelBuffer, x, y, cxx, cyy, cxy, rMax float64) (float64, ApertureFlag, error) {
	if err := buf.validate(); err != nil {
		return 0, 0, err
	}
	r, flag := aperture.KronRadius(apertureImage(buf), x, y, cxx, cyy, cxy, rMax)
	return r, ApertureFlag(flag), nil
}
