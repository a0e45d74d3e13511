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

// The container codec: multiplexed SIMS images and their auxiliary pages
// serialized as plain multi-page TIFF files, readable by any TIFF tool but
// carrying acquisition metadata as JSON in each page description.
package mibitiff

// Classic TIFF structure constants. Containers are always written little
// endian with one compressed strip per page; the reader accepts either byte
// order.
const (
	tiffMagic       = 42
	headerSize      = 8
	ifdEntrySize    = 12
	inlineValueSize = 4
)

// Tag ids used by container pages
const (
	tagImageWidth       = 256
	tagImageLength      = 257
	tagBitsPerSample    = 258
	tagCompression      = 259
	tagPhotometric      = 262
	tagImageDescription = 270
	tagStripOffsets     = 273
	tagSamplesPerPixel  = 277
	tagRowsPerStrip     = 278
	tagStripByteCounts  = 279
	tagXResolution      = 282
	tagYResolution      = 283
	tagPlanarConfig     = 284
	tagPageName         = 285
	tagXPosition        = 286
	tagYPosition        = 287
	tagResolutionUnit   = 296
	tagSoftware         = 305
	tagDateTime         = 306
	tagSampleFormat     = 339
	tagSMinSampleValue  = 340
	tagSMaxSampleValue  = 341
)

// Field types
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSByte     = 6
	typeUndefined = 7
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
)

var fieldTypeSize = map[uint16]int{
	typeByte:      1,
	typeASCII:     1,
	typeShort:     2,
	typeLong:      4,
	typeRational:  8,
	typeSByte:     1,
	typeUndefined: 1,
	typeSShort:    2,
	typeSLong:     4,
	typeSRational: 8,
	typeFloat:     4,
	typeDouble:    8,
}

// Tag values
const (
	compressionNone         = 1
	compressionAdobeDeflate = 8
	compressionDeflate      = 32946

	photometricMinIsBlack = 1
	photometricRGB        = 2

	sampleFormatUint  = 1
	sampleFormatFloat = 3

	resolutionUnitCM = 3
)
