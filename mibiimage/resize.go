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
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ionpath/mibi-core/core/errortypes"
)

// Resize - returns a new image resampled to rows x cols using separable
// Catmull-Rom (bicubic) interpolation with edge clamping and no
// anti-aliasing, so output is deterministic for a given input.
//
// The requested size must keep the aspect ratio of the original. With
// preserveType true the result keeps the original element type, truncating
// fractional values; the round trip through interpolation may lose
// precision. With preserveType false the result is Float64.
func (img *MibiImage) Resize(rows, cols int, preserveType bool) (*MibiImage, error) {
	if rows <= 0 || cols <= 0 {
		return nil, errortypes.MakeValidationError("invalid resize dimensions: %vx%v", rows, cols)
	}
	if float64(cols)/float64(rows) != float64(img.data.Cols)/float64(img.data.Rows) {
		return nil, errortypes.MakeValidationError(
			"image of size %vx%v cannot be resized to %vx%v without changing the aspect ratio",
			img.data.Rows, img.data.Cols, rows, cols)
	}

	outType := TypeFloat64
	if preserveType {
		outType = img.data.Type
	}

	depth := img.data.Depth
	values := make([]float64, rows*cols*depth)
	for ch := 0; ch < depth; ch++ {
		src := mat.NewDense(img.data.Rows, img.data.Cols, img.data.Plane(ch))
		dst := resamplePlane(src, rows, cols)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				v := dst.At(r, c)
				if preserveType {
					v = outType.Clamp(v)
				}
				values[(r*cols+c)*depth+ch] = v
			}
		}
	}

	data, err := MakeData(rows, cols, depth, outType, values)
	if err != nil {
		return nil, err
	}
	return New(data, img.channels, img.Meta.Copy())
}

// resamplePlane - resizes one plane, rows first then columns, so the 2D
// kernel separates into two 1D convolutions
func resamplePlane(src *mat.Dense, rows, cols int) *mat.Dense {
	srcRows, srcCols := src.Dims()

	// Rows pass
	rowPass := mat.NewDense(rows, srcCols, nil)
	for c := 0; c < srcCols; c++ {
		for r := 0; r < rows; r++ {
			rowPass.Set(r, c, sampleCatmullRom(func(i int) float64 {
				return src.At(clampIndex(i, srcRows), c)
			}, srcRows, rows, r))
		}
	}

	// Columns pass
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r, c, sampleCatmullRom(func(i int) float64 {
				return rowPass.At(r, clampIndex(i, srcCols))
			}, srcCols, cols, c))
		}
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// sampleCatmullRom - one output sample along one axis. Pixel centers sit at
// half-integer positions; indices outside the source clamp to the edge.
func sampleCatmullRom(at func(int) float64, srcLen, dstLen, dstIdx int) float64 {
	scale := float64(srcLen) / float64(dstLen)
	pos := (float64(dstIdx)+0.5)*scale - 0.5
	base := int(math.Floor(pos))
	t := pos - float64(base)

	w0, w1, w2, w3 := catmullRomWeights(t)
	return w0*at(base-1) + w1*at(base) + w2*at(base+1) + w3*at(base+2)
}

// catmullRomWeights - the a=-0.5 cubic convolution weights
func catmullRomWeights(t float64) (float64, float64, float64, float64) {
	t2 := t * t
	t3 := t2 * t
	w0 := -0.5*t3 + t2 - 0.5*t
	w1 := 1.5*t3 - 2.5*t2 + 1.0
	w2 := -1.5*t3 + 2.0*t2 + 0.5*t
	w3 := 0.5*t3 - 0.5*t2
	return w0, w1, w2, w3
}
