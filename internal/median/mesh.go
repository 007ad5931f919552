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

package median

// FilterMeshConditional applies a conditional median filter of size
// fw x fh to the gw x gh mesh surface, the generalization of
// MedianFilter3x3's fixed 3x3 window that the background algorithm's step 3
// needs. A cell is only replaced by its local window median when it
// deviates from that median by more than filterThresh * rms[cell]; rms may
// be nil to disable the condition and always replace (used for the RMS
// surface itself, which is smoothed unconditionally in the background
// estimator).
//
// cells is read-only; the filtered copy is returned.
func FilterMeshConditional(cells []float32, gw, gh int32, fw, fh int32, filterThresh float32, rms []float32) []float32 {
	out := make([]float32, len(cells))
	copy(out, cells)
	if fw <= 1 && fh <= 1 {
		return out
	}

	halfW, halfH := fw/2, fh/2
	window := make([]float32, 0, fw*fh)

	for y := int32(0); y < gh; y++ {
		for x := int32(0); x < gw; x++ {
			window = window[:0]
			for wy := y - halfH; wy <= y+halfH; wy++ {
				if wy < 0 || wy >= gh {
					continue
				}
				for wx := x - halfW; wx <= x+halfW; wx++ {
					if wx < 0 || wx >= gw {
						continue
					}
					window = append(window, cells[wy*gw+wx])
				}
			}
			med := MedianFloat32(append([]float32(nil), window...))

			c := y*gw + x
			cell := cells[c]
			if rms == nil {
				out[c] = med
				continue
			}
			limit := filterThresh * rms[c]
			if limit < 0 {
				limit = -limit
			}
			diff := cell - med
			if diff < 0 {
				diff = -diff
			}
			if diff > limit {
				out[c] = med
			}
		}
	}
	return out
}

// GatherAndMedian collects the values at index plus the given offsets
// (skipping any that fall outside [0, len(data))) into buffer and returns
// their median, for an arbitrary offset mask rather than a fixed
// neighborhood shape.
func GatherAndMedian(data []float32, index int32, offsets []int32, buffer []float32) float32 {
	n := 0
	for _, o := range offsets {
		i := index + o
		if i >= 0 && int(i) < len(data) {
			buffer[n] = data[i]
			n++
		}
	}
	return MedianFloat32(buffer[:n])
}
