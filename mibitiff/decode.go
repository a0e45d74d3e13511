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
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"

	"github.com/ionpath/mibi-core/core/errortypes"
)

// tiffPage - one parsed page with the tags the codec cares about and,
// optionally, the decoded pixel strip
type tiffPage struct {
	width        int
	height       int
	spp          int
	bits         int
	sampleFormat int
	photometric  int
	compression  int

	description string
	pageName    string
	software    string
	dateTime    string

	xRes, yRes *rational
	xPos, yPos *sRational
	rangeMin   *float64
	rangeMax   *float64

	resolutionUnit int

	stripOffsets    []int
	stripByteCounts []int

	// Populated only when pixels are materialized
	samples []float64
}

const maxPages = 65536

// parseContainer - walks every IFD of a classic TIFF in either byte order.
// Pixel strips are only decompressed when materialize is true; metadata-only
// callers skip that cost.
func parseContainer(data []byte, materialize bool) ([]tiffPage, error) {
	if len(data) < headerSize {
		return nil, errortypes.MakeFormatError("file too short to be a TIFF (%v bytes)", len(data))
	}

	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, errortypes.MakeFormatError("not a TIFF file, bad byte order mark %q", data[:2])
	}
	if order.Uint16(data[2:]) != tiffMagic {
		return nil, errortypes.MakeFormatError("not a TIFF file, bad magic %v", order.Uint16(data[2:]))
	}

	pages := []tiffPage{}
	offset := int(order.Uint32(data[4:]))
	for offset != 0 {
		if len(pages) >= maxPages {
			return nil, errortypes.MakeFormatError("IFD chain exceeds %v pages, likely a cycle", maxPages)
		}
		page, next, err := parseIFD(data, offset, order)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse IFD %v at offset %v", len(pages), offset)
		}
		if materialize {
			if err := materializePage(data, page); err != nil {
				return nil, errors.Wrapf(err, "failed to decode pixels of page %v", len(pages))
			}
		}
		pages = append(pages, *page)
		offset = next
	}
	if len(pages) <= 0 {
		return nil, errortypes.MakeFormatError("TIFF has no pages")
	}
	return pages, nil
}

func parseIFD(data []byte, offset int, order binary.ByteOrder) (*tiffPage, int, error) {
	if offset < 0 || offset+2 > len(data) {
		return nil, 0, errortypes.MakeFormatError("IFD offset %v out of bounds", offset)
	}
	count := int(order.Uint16(data[offset:]))
	end := offset + 2 + count*ifdEntrySize + 4
	if end > len(data) {
		return nil, 0, errortypes.MakeFormatError("IFD at %v with %v entries overruns file", offset, count)
	}

	page := &tiffPage{spp: 1, compression: compressionNone, sampleFormat: sampleFormatUint, resolutionUnit: 0}
	for i := 0; i < count; i++ {
		entry := data[offset+2+i*ifdEntrySize:]
		if err := parseEntry(page, data, entry, order); err != nil {
			return nil, 0, err
		}
	}
	next := int(order.Uint32(data[offset+2+count*ifdEntrySize:]))
	return page, next, nil
}

func parseEntry(page *tiffPage, data []byte, entry []byte, order binary.ByteOrder) error {
	tag := order.Uint16(entry)
	fieldType := order.Uint16(entry[2:])
	count := int(order.Uint32(entry[4:]))

	size, ok := fieldTypeSize[fieldType]
	if !ok {
		// Unknown field types are skipped, not fatal
		return nil
	}
	if count < 1 {
		return errortypes.MakeFormatError("tag %v has a zero value count", tag)
	}
	byteLen := size * count

	var raw []byte
	if byteLen <= inlineValueSize {
		raw = entry[8 : 8+byteLen]
	} else {
		valueOffset := int(order.Uint32(entry[8:]))
		if valueOffset < 0 || valueOffset+byteLen > len(data) {
			return errortypes.MakeFormatError("tag %v value at %v overruns file", tag, valueOffset)
		}
		raw = data[valueOffset : valueOffset+byteLen]
	}

	switch tag {
	case tagImageWidth:
		page.width = int(readUint(raw, fieldType, 0, order))
	case tagImageLength:
		page.height = int(readUint(raw, fieldType, 0, order))
	case tagBitsPerSample:
		page.bits = int(readUint(raw, fieldType, 0, order))
	case tagCompression:
		page.compression = int(readUint(raw, fieldType, 0, order))
	case tagPhotometric:
		page.photometric = int(readUint(raw, fieldType, 0, order))
	case tagSamplesPerPixel:
		page.spp = int(readUint(raw, fieldType, 0, order))
	case tagSampleFormat:
		page.sampleFormat = int(readUint(raw, fieldType, 0, order))
	case tagResolutionUnit:
		page.resolutionUnit = int(readUint(raw, fieldType, 0, order))
	case tagStripOffsets:
		page.stripOffsets = readUintSlice(raw, fieldType, count, order)
	case tagStripByteCounts:
		page.stripByteCounts = readUintSlice(raw, fieldType, count, order)
	case tagImageDescription:
		page.description = readASCII(raw)
	case tagPageName:
		page.pageName = readASCII(raw)
	case tagSoftware:
		page.software = readASCII(raw)
	case tagDateTime:
		page.dateTime = readASCII(raw)
	case tagXResolution:
		if err := checkTagEncoding(tag, fieldType, typeRational, byteLen); err != nil {
			return err
		}
		page.xRes = &rational{Num: order.Uint32(raw), Denom: order.Uint32(raw[4:])}
	case tagYResolution:
		if err := checkTagEncoding(tag, fieldType, typeRational, byteLen); err != nil {
			return err
		}
		page.yRes = &rational{Num: order.Uint32(raw), Denom: order.Uint32(raw[4:])}
	case tagXPosition:
		if err := checkTagEncoding(tag, fieldType, typeSRational, byteLen); err != nil {
			return err
		}
		page.xPos = &sRational{Num: int32(order.Uint32(raw)), Denom: int32(order.Uint32(raw[4:]))}
	case tagYPosition:
		if err := checkTagEncoding(tag, fieldType, typeSRational, byteLen); err != nil {
			return err
		}
		page.yPos = &sRational{Num: int32(order.Uint32(raw)), Denom: int32(order.Uint32(raw[4:]))}
	case tagSMinSampleValue:
		v := readRangeValue(raw, fieldType, order)
		page.rangeMin = &v
	case tagSMaxSampleValue:
		v := readRangeValue(raw, fieldType, order)
		page.rangeMax = &v
	}
	return nil
}

// checkTagEncoding - rational tags must carry the 8 byte encoding their type
// declares; anything else would read past the value bytes
func checkTagEncoding(tag uint16, fieldType uint16, want uint16, byteLen int) error {
	if fieldType != want || byteLen < 8 {
		return errortypes.MakeFormatError("tag %v has field type %v with %v value bytes, expected type %v",
			tag, fieldType, byteLen, want)
	}
	return nil
}

func readUint(raw []byte, fieldType uint16, idx int, order binary.ByteOrder) uint64 {
	switch fieldType {
	case typeByte:
		return uint64(raw[idx])
	case typeShort:
		return uint64(order.Uint16(raw[idx*2:]))
	case typeLong:
		return uint64(order.Uint32(raw[idx*4:]))
	}
	return 0
}

func readUintSlice(raw []byte, fieldType uint16, count int, order binary.ByteOrder) []int {
	vs := make([]int, count)
	for i := range vs {
		vs[i] = int(readUint(raw, fieldType, i, order))
	}
	return vs
}

func readASCII(raw []byte) string {
	return string(bytes.TrimRight(raw, "\x00"))
}

// readRangeValue - sample range tags appear as LONG for unsigned integer
// storage and DOUBLE for float storage
func readRangeValue(raw []byte, fieldType uint16, order binary.ByteOrder) float64 {
	switch fieldType {
	case typeDouble:
		return math.Float64frombits(order.Uint64(raw))
	case typeFloat:
		return float64(math.Float32frombits(order.Uint32(raw)))
	default:
		return float64(readUint(raw, fieldType, 0, order))
	}
}

// materializePage - decompresses the page's strips and decodes samples into
// float64, interleaved exactly as stored
func materializePage(data []byte, page *tiffPage) error {
	if page.width <= 0 || page.height <= 0 || page.spp <= 0 {
		return errortypes.MakeFormatError("page has invalid dimensions %vx%vx%v", page.height, page.width, page.spp)
	}
	if len(page.stripOffsets) != len(page.stripByteCounts) {
		return errortypes.MakeFormatError("page has %v strip offsets but %v byte counts",
			len(page.stripOffsets), len(page.stripByteCounts))
	}

	raw := []byte{}
	for i, off := range page.stripOffsets {
		n := page.stripByteCounts[i]
		if off < 0 || off+n > len(data) {
			return errortypes.MakeFormatError("strip %v at %v overruns file", i, off)
		}
		strip, err := decompressStrip(data[off:off+n], page.compression)
		if err != nil {
			return errors.Wrapf(err, "failed to decompress strip %v", i)
		}
		raw = append(raw, strip...)
	}

	sampleCount := page.width * page.height * page.spp
	if len(raw)*8 < sampleCount*page.bits {
		return errortypes.MakeFormatError("page has %v bytes of samples, need %v",
			len(raw), sampleCount*page.bits/8)
	}

	order := byteOrderOf(data)
	samples := make([]float64, sampleCount)
	switch {
	case page.bits == 8:
		for i := range samples {
			samples[i] = float64(raw[i])
		}
	case page.bits == 16 && page.sampleFormat == sampleFormatUint:
		for i := range samples {
			samples[i] = float64(order.Uint16(raw[i*2:]))
		}
	case page.bits == 32 && page.sampleFormat == sampleFormatUint:
		for i := range samples {
			samples[i] = float64(order.Uint32(raw[i*4:]))
		}
	case page.bits == 32 && page.sampleFormat == sampleFormatFloat:
		for i := range samples {
			samples[i] = float64(math.Float32frombits(order.Uint32(raw[i*4:])))
		}
	case page.bits == 64 && page.sampleFormat == sampleFormatFloat:
		for i := range samples {
			samples[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
		}
	default:
		return errortypes.MakeFormatError("unsupported sample encoding: %v bits, format %v",
			page.bits, page.sampleFormat)
	}
	page.samples = samples
	return nil
}

func byteOrderOf(data []byte) binary.ByteOrder {
	if data[0] == 'M' {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func decompressStrip(strip []byte, compression int) ([]byte, error) {
	switch compression {
	case compressionNone:
		return strip, nil
	case compressionAdobeDeflate, compressionDeflate:
		r, err := zlib.NewReader(bytes.NewReader(strip))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}
	return nil, errortypes.MakeFormatError("unsupported compression %v", compression)
}
