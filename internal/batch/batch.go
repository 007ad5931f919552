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

// Package batch provides the bounded fan-out helper extraction callers use
// to process many images/objects concurrently. Every public extraction
// entry point itself stays strictly single-threaded and touches no shared
// state, matching the single-call concurrency contract -- any parallelism
// is the caller's choice, applied across independent calls. This is
// adapted from internal/ops/ref/refframe.go's inParallel, which runs a
// function over a slice of images bounded by a buffered "limiter" channel
// used as a counting semaphore; the shape (fill the channel to admit a
// worker, drain it on completion, drain it fully at the end to join) is
// kept unchanged, generalized from *fits.Image to any item type via
// generics.
package batch

// RunConcurrent applies fn to every item in items, running at most
// maxConcurrency invocations at once, and returns results in the same order
// as items.
func RunConcurrent[T any, R any](items []T, maxConcurrency int, fn func(T) R) []R {
	if len(items) == 0 {
		return nil
	}
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	results := make([]R, len(items))
	limiter := make(chan bool, maxConcurrency)
	for i, item := range items {
		limiter <- true
		go func(i int, item T) {
			defer func() { <-limiter }()
			results[i] = fn(item)
		}(i, item)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
	return results
}

// RunConcurrentErr is RunConcurrent for functions that can fail. Every item
// is processed; it returns all results in item order (a failed item holds
// whatever fn returned with its error) together with the error of the
// lowest-index item that failed, if any.
func RunConcurrentErr[T any, R any](items []T, maxConcurrency int, fn func(T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))
	limiter := make(chan bool, maxConcurrency)
	for i, item := range items {
		limiter <- true
		go func(i int, item T) {
			defer func() { <-limiter }()
			results[i], errs[i] = fn(item)
		}(i, item)
	}
	for i := 0; i < cap(limiter); i++ {
		limiter <- true
	}
	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
