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

import "github.com/stellarforge/sep/internal/preview"

// RenderPreviewToFile writes a JPEG visualization of buf with list's objects
// outlined as ellipses, stretched to [min,max] with the given gamma.
func RenderPreviewToFile(fileName string, buf PixelBuffer, list ObjectList, min, max, gamma float32, quality int) error {
	if err := buf.validate(); err != nil {
		return err
	}
	data := pixtypeAsF32(buf)
	markers := make([]preview.Marker, len(list.Objects))
	for i, o := range list.Objects {
		markers[i] = preview.Marker{X: o.MX, Y: o.MY, A: o.A * 2.5, B: o.B * 2.5, Theta: o.Theta}
	}
	return preview.RenderToFile(fileName, data, buf.Width, buf.Height, markers, min, max, gamma, quality)
}
