// Licensed to NASA JPL under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. NASA JPL licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package mibiimage

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"github.com/ionpath/mibi-core/core/errortypes"
	"github.com/ionpath/mibi-core/core/utils"
)

// ExportPNGs - writes each channel plane as a grayscale PNG into dir, named
// after the channel target (or bare label) made file system safe. Only
// integer typed images can be exported. Bit depth is chosen once for the
// whole stack so all exported planes share a scale: 8 bit if every value
// fits in uint8, else 16 bit if every value fits in uint16.
func (img *MibiImage) ExportPNGs(dir string) error {
	if !img.data.Type.IsInteger() {
		return errortypes.MakeValidationError("cannot export float data (%v) as PNG", img.data.Type)
	}

	min := floats.Min(img.data.Values)
	max := floats.Max(img.data.Values)
	if min < 0 || max >= 65536 {
		return errortypes.MakeValidationError("values [%v, %v] do not fit in a 16 bit PNG", min, max)
	}
	wide := max >= 256

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for ch, channel := range img.channels {
		name := channel.Target
		if !channel.IsPaired() {
			name = channel.Label
		}
		path := filepath.Join(dir, utils.FormatForFilename(name)+".png")
		if err := writePlanePNG(path, &img.data, ch, wide); err != nil {
			return err
		}
	}
	return nil
}

func writePlanePNG(path string, data *Data, ch int, wide bool) error {
	bounds := image.Rect(0, 0, data.Cols, data.Rows)

	var out image.Image
	if wide {
		gray := image.NewGray16(bounds)
		for r := 0; r < data.Rows; r++ {
			for c := 0; c < data.Cols; c++ {
				v := uint16(data.At(r, c, ch))
				gray.Pix[gray.PixOffset(c, r)] = uint8(v >> 8)
				gray.Pix[gray.PixOffset(c, r)+1] = uint8(v)
			}
		}
		out = gray
	} else {
		gray := image.NewGray(bounds)
		for r := 0; r < data.Rows; r++ {
			for c := 0; c < data.Cols; c++ {
				gray.Pix[gray.PixOffset(c, r)] = uint8(data.At(r, c, ch))
			}
		}
		out = gray
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
