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
	"github.com/ionpath/mibi-core/core/errortypes"
)

// Data - a dense rows x cols x depth pixel stack. Values are row-major with
// the channel index fastest, so plane c of pixel (r,c) sits at
// (row*Cols+col)*Depth+channel, matching the layout channel planes are
// acquired and serialized in.
type Data struct {
	Rows   int
	Cols   int
	Depth  int
	Type   DataType
	Values []float64
}

// MakeData - builds a Data, allocating zeroed values if none are given
func MakeData(rows, cols, depth int, dataType DataType, values []float64) (Data, error) {
	if rows <= 0 || cols <= 0 || depth <= 0 {
		return Data{}, errortypes.MakeValidationError("invalid data dimensions: %vx%vx%v", rows, cols, depth)
	}
	if dataType == TypeUnknown {
		return Data{}, errortypes.MakeValidationError("data element type must be specified")
	}
	if values == nil {
		values = make([]float64, rows*cols*depth)
	}
	if len(values) != rows*cols*depth {
		return Data{}, errortypes.MakeValidationError("data length %v does not match dimensions %vx%vx%v", len(values), rows, cols, depth)
	}
	return Data{Rows: rows, Cols: cols, Depth: depth, Type: dataType, Values: values}, nil
}

// At - value of channel ch at pixel (row, col)
func (d *Data) At(row, col, ch int) float64 {
	return d.Values[(row*d.Cols+col)*d.Depth+ch]
}

// Set - sets channel ch at pixel (row, col)
func (d *Data) Set(row, col, ch int, v float64) {
	d.Values[(row*d.Cols+col)*d.Depth+ch] = v
}

// Plane - copies out one channel plane, row-major
func (d *Data) Plane(ch int) []float64 {
	plane := make([]float64, d.Rows*d.Cols)
	for i := range plane {
		plane[i] = d.Values[i*d.Depth+ch]
	}
	return plane
}

// Copy - deep copy
func (d *Data) Copy() Data {
	values := make([]float64, len(d.Values))
	copy(values, d.Values)
	return Data{Rows: d.Rows, Cols: d.Cols, Depth: d.Depth, Type: d.Type, Values: values}
}

// Equal - same element type, dimensions and every value
func (d *Data) Equal(other *Data) bool {
	if d.Rows != other.Rows || d.Cols != other.Cols || d.Depth != other.Depth || d.Type != other.Type {
		return false
	}
	for i, v := range d.Values {
		if v != other.Values[i] {
			return false
		}
	}
	return true
}

// RGBImage - an 8 bit RGB image, used for the optical and slide label pages
// carried alongside channel data in a container
type RGBImage struct {
	Rows   int
	Cols   int
	Values []uint8 // (row*Cols+col)*3 + component
}

// MakeRGBImage - builds an RGBImage, allocating zeroed values if none given
func MakeRGBImage(rows, cols int, values []uint8) (RGBImage, error) {
	if rows <= 0 || cols <= 0 {
		return RGBImage{}, errortypes.MakeValidationError("invalid image dimensions: %vx%v", rows, cols)
	}
	if values == nil {
		values = make([]uint8, rows*cols*3)
	}
	if len(values) != rows*cols*3 {
		return RGBImage{}, errortypes.MakeValidationError("RGB data length %v does not match dimensions %vx%vx3", len(values), rows, cols)
	}
	return RGBImage{Rows: rows, Cols: cols, Values: values}, nil
}

// At - one component of pixel (row, col), component 0=R, 1=G, 2=B
func (img *RGBImage) At(row, col, component int) uint8 {
	return img.Values[(row*img.Cols+col)*3+component]
}

// Set - sets one component of pixel (row, col)
func (img *RGBImage) Set(row, col, component int, v uint8) {
	img.Values[(row*img.Cols+col)*3+component] = v
}

// Equal - same dimensions and every component
func (img *RGBImage) Equal(other *RGBImage) bool {
	if img.Rows != other.Rows || img.Cols != other.Cols {
		return false
	}
	for i, v := range img.Values {
		if v != other.Values[i] {
			return false
		}
	}
	return true
}
