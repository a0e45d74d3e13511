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

package mibitiff

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"

	"github.com/klauspost/compress/zlib"

	"github.com/ionpath/mibi-core/core/errortypes"
)

// pageSpec - everything needed to lay out one container page. The writer
// builds one of these per channel plane plus one per auxiliary image, and
// the encoder turns the list into a single little endian multi-page file
// with one deflate compressed strip per page.
type pageSpec struct {
	width        int
	height       int
	spp          int // samples per pixel: 1 for channel data, 3 for RGB
	bits         int
	sampleFormat uint16
	photometric  uint16
	pixels       []byte // raw uncompressed strip, row major, interleaved
	description  string
	pageName     string
	dateTime     string
	software     string
	xRes         *rational
	yRes         *rational
	xPos         *sRational
	yPos         *sRational
	rangeMin     *float64
	rangeMax     *float64
	rangeAsFloat bool // store range tags as DOUBLE instead of LONG
}

// ifdEntry - one tag with its raw little endian value bytes
type ifdEntry struct {
	tag       uint16
	fieldType uint16
	count     uint32
	value     []byte
}

// encodeContainer - serializes pages into a classic little endian TIFF.
// Each page is laid out as strip, external tag values, then IFD; the next
// IFD pointer of each page is patched once the following page's position is
// known.
func encodeContainer(pages []pageSpec) ([]byte, error) {
	if len(pages) <= 0 {
		return nil, errortypes.MakeValidationError("a container must have at least one page")
	}

	buf := &bytes.Buffer{}
	buf.Write([]byte{'I', 'I'})
	binary.Write(buf, binary.LittleEndian, uint16(tiffMagic))
	// First IFD offset, patched below
	binary.Write(buf, binary.LittleEndian, uint32(0))

	pointerPos := 4 // where the previous next-IFD pointer lives
	out := buf.Bytes()

	for _, page := range pages {
		pageBytes, ifdOffset, nextPtrPos, err := encodePage(&page, len(out))
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint32(out[pointerPos:], uint32(ifdOffset))
		out = append(out, pageBytes...)
		pointerPos = nextPtrPos
	}

	// Last page terminates the IFD chain
	binary.LittleEndian.PutUint32(out[pointerPos:], 0)
	return out, nil
}

// encodePage - one page's bytes starting at file offset base. Returns the
// absolute IFD offset and the absolute position of its next-IFD pointer.
func encodePage(page *pageSpec, base int) ([]byte, int, int, error) {
	strip, err := compressStrip(page.pixels)
	if err != nil {
		return nil, 0, 0, err
	}

	entries, err := pageEntries(page, len(strip))
	if err != nil {
		return nil, 0, 0, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].tag < entries[j].tag
	})

	buf := &bytes.Buffer{}
	stripOffset := base
	buf.Write(strip)
	pad(buf, base)

	// External value area for entries that do not fit inline
	offsets := map[uint16]int{}
	for _, e := range entries {
		if len(e.value) > inlineValueSize {
			offsets[e.tag] = base + buf.Len()
			buf.Write(e.value)
			pad(buf, base)
		}
	}

	// Strip offset is only known now, fill it in
	for i := range entries {
		if entries[i].tag == tagStripOffsets {
			binary.LittleEndian.PutUint32(entries[i].value, uint32(stripOffset))
		}
	}

	ifdOffset := base + buf.Len()
	binary.Write(buf, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(buf, binary.LittleEndian, e.tag)
		binary.Write(buf, binary.LittleEndian, e.fieldType)
		binary.Write(buf, binary.LittleEndian, e.count)
		if len(e.value) <= inlineValueSize {
			inline := [inlineValueSize]byte{}
			copy(inline[:], e.value)
			buf.Write(inline[:])
		} else {
			binary.Write(buf, binary.LittleEndian, uint32(offsets[e.tag]))
		}
	}
	nextPtrPos := base + buf.Len()
	binary.Write(buf, binary.LittleEndian, uint32(0))

	return buf.Bytes(), ifdOffset, nextPtrPos, nil
}

// pageEntries - the tag set for one page
func pageEntries(page *pageSpec, stripLen int) ([]ifdEntry, error) {
	entries := []ifdEntry{
		longEntry(tagImageWidth, uint32(page.width)),
		longEntry(tagImageLength, uint32(page.height)),
		shortsEntry(tagBitsPerSample, repeatShort(uint16(page.bits), page.spp)),
		shortsEntry(tagCompression, []uint16{compressionAdobeDeflate}),
		shortsEntry(tagPhotometric, []uint16{page.photometric}),
		longEntry(tagStripOffsets, 0), // patched after layout
		shortsEntry(tagSamplesPerPixel, []uint16{uint16(page.spp)}),
		longEntry(tagRowsPerStrip, uint32(page.height)),
		longEntry(tagStripByteCounts, uint32(stripLen)),
		shortsEntry(tagPlanarConfig, []uint16{1}),
		shortsEntry(tagResolutionUnit, []uint16{resolutionUnitCM}),
		shortsEntry(tagSampleFormat, repeatShort(page.sampleFormat, page.spp)),
	}

	if len(page.description) > 0 {
		entries = append(entries, asciiEntry(tagImageDescription, page.description))
	}
	if len(page.pageName) > 0 {
		entries = append(entries, asciiEntry(tagPageName, page.pageName))
	}
	if len(page.dateTime) > 0 {
		entries = append(entries, asciiEntry(tagDateTime, page.dateTime))
	}
	if len(page.software) > 0 {
		entries = append(entries, asciiEntry(tagSoftware, page.software))
	}
	if page.xRes != nil {
		entries = append(entries, rationalEntry(tagXResolution, *page.xRes))
	}
	if page.yRes != nil {
		entries = append(entries, rationalEntry(tagYResolution, *page.yRes))
	}
	if page.xPos != nil {
		entries = append(entries, sRationalEntry(tagXPosition, *page.xPos))
	}
	if page.yPos != nil {
		entries = append(entries, sRationalEntry(tagYPosition, *page.yPos))
	}
	if page.rangeMin != nil {
		entries = append(entries, rangeEntry(tagSMinSampleValue, *page.rangeMin, page.rangeAsFloat))
	}
	if page.rangeMax != nil {
		entries = append(entries, rangeEntry(tagSMaxSampleValue, *page.rangeMax, page.rangeAsFloat))
	}
	return entries, nil
}

// compressStrip - zlib deflate, the AdobeDeflate strip encoding
func compressStrip(pixels []byte) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := zlib.NewWriter(buf)
	if _, err := w.Write(pixels); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pad - keeps values starting on even file offsets
func pad(buf *bytes.Buffer, base int) {
	if (base+buf.Len())%2 != 0 {
		buf.WriteByte(0)
	}
}

func repeatShort(v uint16, n int) []uint16 {
	vs := make([]uint16, n)
	for i := range vs {
		vs[i] = v
	}
	return vs
}

func longEntry(tag uint16, v uint32) ifdEntry {
	value := make([]byte, 4)
	binary.LittleEndian.PutUint32(value, v)
	return ifdEntry{tag: tag, fieldType: typeLong, count: 1, value: value}
}

func shortsEntry(tag uint16, vs []uint16) ifdEntry {
	value := make([]byte, 2*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint16(value[i*2:], v)
	}
	return ifdEntry{tag: tag, fieldType: typeShort, count: uint32(len(vs)), value: value}
}

func asciiEntry(tag uint16, s string) ifdEntry {
	value := append([]byte(s), 0)
	return ifdEntry{tag: tag, fieldType: typeASCII, count: uint32(len(value)), value: value}
}

func rationalEntry(tag uint16, r rational) ifdEntry {
	value := make([]byte, 8)
	binary.LittleEndian.PutUint32(value, r.Num)
	binary.LittleEndian.PutUint32(value[4:], r.Denom)
	return ifdEntry{tag: tag, fieldType: typeRational, count: 1, value: value}
}

func sRationalEntry(tag uint16, r sRational) ifdEntry {
	value := make([]byte, 8)
	binary.LittleEndian.PutUint32(value, uint32(r.Num))
	binary.LittleEndian.PutUint32(value[4:], uint32(r.Denom))
	return ifdEntry{tag: tag, fieldType: typeSRational, count: 1, value: value}
}

// rangeEntry - sample range tags are LONG for unsigned integer storage and
// DOUBLE for float storage
func rangeEntry(tag uint16, v float64, asFloat bool) ifdEntry {
	if asFloat {
		value := make([]byte, 8)
		binary.LittleEndian.PutUint64(value, math.Float64bits(v))
		return ifdEntry{tag: tag, fieldType: typeDouble, count: 1, value: value}
	}
	return longEntry(tag, uint32(v))
}
