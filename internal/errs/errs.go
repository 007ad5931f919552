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

// Package errs defines the stable error taxonomy shared by every internal
// package, plus the last-error detail slot required by the external error
// channel contract. The root package re-exports Kind and Error so callers
// never import this package directly.
package errs

import (
	"fmt"
	"sync"
)

// Kind enumerates the stable error categories of the error taxonomy.
type Kind int

const (
	AllocFailure Kind = iota
	MeshTooSmall
	InternalOverflow
	UnsupportedDType
	InvalidDimension
	IllegalArgument
)

func (k Kind) String() string {
	switch k {
	case AllocFailure:
		return "AllocFailure"
	case MeshTooSmall:
		return "MeshTooSmall"
	case InternalOverflow:
		return "InternalOverflow"
	case UnsupportedDType:
		return "UnsupportedDType"
	case InvalidDimension:
		return "InvalidDimension"
	case IllegalArgument:
		return "IllegalArgument"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across the library boundary.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New builds and records an Error of the given kind, also updating the
// last-error detail slot (see setDetail/Detail).
func New(kind Kind, format string, args ...interface{}) *Error {
	e := &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
	setDetail(e.Message)
	return e
}

// Go has no implicit per-goroutine thread-local storage, so the "process-wide
// slot... thread-local storage if the implementation supports it" contract
// from the external interfaces section is implemented as a single mutex
// guarded slot shared by the calling process, the closest safe analogue
// without adding a goroutine-local-storage dependency the example pack does
// not use. This is recorded as an explicit Open Question decision in
// DESIGN.md.
var (
	detailMu sync.Mutex
	detail   string
)

func setDetail(msg string) {
	detailMu.Lock()
	detail = msg
	detailMu.Unlock()
}

// Detail returns the human-readable detail string for the last error
// recorded by New, across any package in this module.
func Detail() string {
	detailMu.Lock()
	defer detailMu.Unlock()
	return detail
}
