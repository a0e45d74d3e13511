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

import "math"

// DataType - the element type of a pixel stack. Pixel values are held as
// float64 internally, which represents every one of these types exactly, so
// the tag is what decides storage encoding, lossless-conversion checks and
// equality between images.
type DataType int

const (
	TypeUnknown DataType = iota
	TypeUint8
	TypeUint16
	TypeUint32
	TypeInt8
	TypeInt16
	TypeInt32
	TypeFloat32
	TypeFloat64
)

var dataTypeName = map[DataType]string{
	TypeUnknown: "unknown",
	TypeUint8:   "uint8",
	TypeUint16:  "uint16",
	TypeUint32:  "uint32",
	TypeInt8:    "int8",
	TypeInt16:   "int16",
	TypeInt32:   "int32",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
}

func (t DataType) String() string {
	if name, ok := dataTypeName[t]; ok {
		return name
	}
	return "unknown"
}

// IsInteger - true for the integer element types
func (t DataType) IsInteger() bool {
	switch t {
	case TypeUint8, TypeUint16, TypeUint32, TypeInt8, TypeInt16, TypeInt32:
		return true
	}
	return false
}

// Integer range limits per type. Unsigned 32 bit still fits float64 exactly.
var dataTypeMin = map[DataType]float64{
	TypeUint8:  0,
	TypeUint16: 0,
	TypeUint32: 0,
	TypeInt8:   math.MinInt8,
	TypeInt16:  math.MinInt16,
	TypeInt32:  math.MinInt32,
}

var dataTypeMax = map[DataType]float64{
	TypeUint8:  math.MaxUint8,
	TypeUint16: math.MaxUint16,
	TypeUint32: math.MaxUint32,
	TypeInt8:   math.MaxInt8,
	TypeInt16:  math.MaxInt16,
	TypeInt32:  math.MaxInt32,
}

// CanRepresent - true if v survives a round trip through this element type
// unchanged. This is the lossless-conversion test the container writer
// relies on: it must never silently truncate.
func (t DataType) CanRepresent(v float64) bool {
	switch t {
	case TypeFloat64:
		return true
	case TypeFloat32:
		return float64(float32(v)) == v
	case TypeUint8, TypeUint16, TypeUint32, TypeInt8, TypeInt16, TypeInt32:
		if v != math.Trunc(v) {
			return false
		}
		return v >= dataTypeMin[t] && v <= dataTypeMax[t]
	}
	return false
}

// Clamp - clamps v into the representable range of this type, truncating
// fractions for integer types. Used by resize when preserving element type.
func (t DataType) Clamp(v float64) float64 {
	if t == TypeFloat64 {
		return v
	}
	if t == TypeFloat32 {
		return float64(float32(v))
	}
	v = math.Trunc(v)
	if v < dataTypeMin[t] {
		return dataTypeMin[t]
	}
	if v > dataTypeMax[t] {
		return dataTypeMax[t]
	}
	return v
}
