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

// Package sysinfo reports the host facts the CLI banner and the batch
// fan-out sizing decisions need: total physical memory
// (github.com/pbnjay/memory.TotalMemory(), read once at startup) and CPU
// feature flags via cpuid. This module doesn't ship a hand-rolled assembly
// fast path, so the cpuid data here is informational (the CLI banner prints
// the brand string), not a SIMD kernel switch; arena sizing uses memory only.
package sysinfo

import (
	"runtime"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
)

// Info summarizes the host this process is running on.
type Info struct {
	TotalMemoryMiB uint64
	NumCPU         int
	HasAVX2        bool
	HasSSE42       bool
	BrandName      string
}

// Gather reads the current host's memory and CPU feature information.
func Gather() Info {
	return Info{
		TotalMemoryMiB: memory.TotalMemory() / 1024 / 1024,
		NumCPU:         runtime.GOMAXPROCS(0),
		HasAVX2:        cpuid.CPU.AVX2(),
		HasSSE42:       cpuid.CPU.SSE42(),
		BrandName:      cpuid.CPU.BrandName,
	}
}

// RecommendedConcurrency picks a sensible internal/batch.RunConcurrent
// fan-out width: one goroutine per logical CPU, at least one; memory is not
// taken into account.
func (i Info) RecommendedConcurrency() int {
	if i.NumCPU < 1 {
		return 1
	}
	return i.NumCPU
}

// RecommendedArenaPixels sizes a scan/deblend pixel-list arena so its
// worst-case allocation stays within a conservative fraction of physical
// memory, mirroring PrepareBatches' "how many images of this size fit in
// stMemory MiB" budget calculation applied to a single pixel-index arena
// (4 bytes pixel + 4 bytes next-link per entry) instead of a whole frame.
func (i Info) RecommendedArenaPixels(imageWidth, imageHeight int32) int {
	const bytesPerNode = 8
	const budgetFraction = 0.25
	budget := uint64(float64(i.TotalMemoryMiB) * 1024 * 1024 * budgetFraction)
	maxNodes := int(budget / bytesPerNode)
	imagePixels := int(imageWidth) * int(imageHeight)
	if maxNodes > imagePixels {
		return imagePixels
	}
	if maxNodes < 1 {
		return 1
	}
	return maxNodes
}
