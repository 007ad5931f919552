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

// Package sep is a library for source extraction and photometry on 2-D
// astronomical images: it estimates a spatially varying background,
// identifies connected groups of pixels standing above that background,
// splits blended groups into individual objects via multi-threshold
// deblending, and measures fluxes within circular or elliptical apertures.
package sep

import "github.com/stellarforge/sep/internal/errs"

// Kind enumerates the stable error categories every public entry point can
// return.
type Kind = errs.Kind

const (
	AllocFailure      = errs.AllocFailure
	MeshTooSmall      = errs.MeshTooSmall
	InternalOverflow  = errs.InternalOverflow
	UnsupportedDType  = errs.UnsupportedDType
	InvalidDimension  = errs.InvalidDimension
	IllegalArgument   = errs.IllegalArgument
)

// Error is the concrete error type every public entry point returns.
type Error = errs.Error

// GetErrorDetail returns the human-readable detail string for the last
// error raised by this process, across any goroutine -- the closest Go
// analogue to the reference implementation's thread-local error detail
// slot (see internal/errs for why a mutex-guarded package slot was chosen
// over simulating per-goroutine storage).
func GetErrorDetail() string {
	return errs.Detail()
}

// errNew constructs a *Error of the given kind; a thin wrapper so the rest
// of this package doesn't need to import internal/errs directly.
func errNew(kind Kind, format string, args ...interface{}) *Error {
	return errs.New(kind, format, args...)
}
