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
	"bufio"
	"fmt"
	"io"
)

// CatalogEntry is one row of a WriteCatalog output: an object's position,
// isophotal flux, and Kron-aperture ("auto") flux.
type CatalogEntry struct {
	Index       int
	X, Y        float64
	Flux        float64
	FluxErr     float64
	KronRadius  float64
	FluxAuto    float64
	FluxErrAuto float64
	Flags       ObjectFlag
}

// BuildCatalog measures the Kron radius and elliptical auto-flux of every
// object in list against buf, in addition to the isophotal flux already
// carried on the Object.
func BuildCatalog(buf PixelBuffer, list ObjectList) ([]CatalogEntry, error) {
	if err := buf.validate(); err != nil {
		return nil, err
	}
	entries := make([]CatalogEntry, len(list.Objects))
	for i, o := range list.Objects {
		rMax := float64(o.XMax-o.XMin+o.YMax-o.YMin) / 2
		if rMax <= 0 {
			rMax = 1
		}
		kr, kflag, err := KronRadius(buf, o.MX, o.MY, o.CXX, o.CYY, o.CXY, rMax)
		if err != nil {
			return nil, err
		}
		flags := o.Flag
		if kflag&ApertureNonPositive != 0 {
			flags |= ObjCrowded
		}

		auto, err := SumEllipse(buf, o.MX, o.MY, o.CXX, o.CYY, o.CXY, kr*KronKey, 0)
		if err != nil {
			return nil, err
		}

		entries[i] = CatalogEntry{
			Index: i + 1, X: o.MX, Y: o.MY,
			Flux: o.Flux, FluxErr: o.FluxErr,
			KronRadius:  kr,
			FluxAuto:    auto.Flux,
			FluxErrAuto: auto.FluxErr,
			Flags:       flags,
		}
	}
	return entries, nil
}

// WriteCatalog writes entries as whitespace-separated text: one line per
// object, "index x y flux fluxerr kron*2.5 flux_auto fluxerr_auto flags",
// preceded by a #-prefixed header line naming the columns.
func WriteCatalog(w io.Writer, entries []CatalogEntry) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, "# index x y flux fluxerr kronrad flux_auto fluxerr_auto flags"); err != nil {
		return err
	}
	for _, e := range entries {
		_, err := fmt.Fprintf(bw, "%d %.6g %.6g %.8g %.8g %.6g %.8g %.8g %d\n",
			e.Index, e.X, e.Y, e.Flux, e.FluxErr, e.KronRadius*KronKey, e.FluxAuto, e.FluxErrAuto, e.Flags)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}
