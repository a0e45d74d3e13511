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
	"testing"

	"github.com/ionpath/mibi-core/core/errortypes"
	"github.com/ionpath/mibi-core/mibiimage"
)

// singleEntryTIFF - a minimal little endian TIFF: one IFD holding one entry
// with the given raw inline value bytes
func singleEntryTIFF(t *testing.T, tag uint16, fieldType uint16, count uint32, value [4]byte) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	buf.WriteString("II")
	binary.Write(buf, binary.LittleEndian, uint16(tiffMagic))
	binary.Write(buf, binary.LittleEndian, uint32(headerSize))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, tag)
	binary.Write(buf, binary.LittleEndian, fieldType)
	binary.Write(buf, binary.LittleEndian, count)
	buf.Write(value[:])
	binary.Write(buf, binary.LittleEndian, uint32(0))
	return buf.Bytes()
}

func Test_corruptTagEncodingsRejected(t *testing.T) {
	// A resolution tag declared as a single BYTE cannot hold a rational;
	// the parser must fail cleanly instead of reading past the value
	data := singleEntryTIFF(t, tagXResolution, typeByte, 1, [4]byte{40, 0, 0, 0})
	if _, err := parseContainer(data, false); !errortypes.IsFormatError(err) {
		t.Errorf("expected format error for BYTE resolution, got %v", err)
	}

	// Positions are signed rationals, a SHORT is just as corrupt
	data = singleEntryTIFF(t, tagXPosition, typeShort, 1, [4]byte{1, 0, 0, 0})
	if _, err := parseContainer(data, false); !errortypes.IsFormatError(err) {
		t.Errorf("expected format error for SHORT position, got %v", err)
	}

	// A zero value count leaves nothing to read for any tag
	data = singleEntryTIFF(t, tagImageWidth, typeLong, 0, [4]byte{})
	if _, err := parseContainer(data, false); !errortypes.IsFormatError(err) {
		t.Errorf("expected format error for zero count, got %v", err)
	}

	// A well formed entry of the right type still parses
	data = singleEntryTIFF(t, tagImageWidth, typeLong, 1, [4]byte{2, 0, 0, 0})
	pages, err := parseContainer(data, false)
	if err != nil {
		t.Fatalf("parseContainer failed: %v", err)
	}
	if pages[0].width != 2 {
		t.Errorf("width = %v, want 2", pages[0].width)
	}
}

func Test_corruptTagInEncodedContainer(t *testing.T) {
	// Take a real container and rewrite its first XResolution entry to claim
	// a BYTE of count 1; the reader must return a format error, not panic
	xRes := rational{Num: 40, Denom: 1}
	xPos := sRational{Num: 1, Denom: 4}
	page := pageSpec{
		width: 1, height: 1, spp: 1, bits: 16,
		sampleFormat: sampleFormatUint,
		photometric:  photometricMinIsBlack,
		pixels:       encodeSamples([]float64{7}, mibiimage.TypeUint16),
		description:  `{"image.type":"SIMS","channel.mass":89,"channel.target":"dsDNA"}`,
		software:     "IonpathMIBIv1.0",
		xRes:         &xRes,
		yRes:         &xRes,
		xPos:         &xPos,
		yPos:         &xPos,
	}
	data, err := encodeContainer([]pageSpec{page})
	if err != nil {
		t.Fatalf("encodeContainer failed: %v", err)
	}

	order := binary.LittleEndian
	ifd := int(order.Uint32(data[4:]))
	entries := int(order.Uint16(data[ifd:]))
	corrupted := false
	for i := 0; i < entries; i++ {
		entry := ifd + 2 + i*ifdEntrySize
		if order.Uint16(data[entry:]) == tagXResolution {
			order.PutUint16(data[entry+2:], typeByte)
			order.PutUint32(data[entry+4:], 1)
			corrupted = true
			break
		}
	}
	if !corrupted {
		t.Fatalf("container has no XResolution entry to corrupt")
	}

	if _, err := parseContainer(data, false); !errortypes.IsFormatError(err) {
		t.Errorf("expected format error for corrupted resolution, got %v", err)
	}
}
