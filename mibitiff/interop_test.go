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
	"image"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/ionpath/mibi-core/mibiimage"
)

// Containers are plain multi-page TIFFs, so a generic TIFF reader must be
// able to open the first page and see the same pixels we wrote
func Test_genericTIFFReaderInterop(t *testing.T) {
	img := testImage(t, mibiimage.TypeUint16)
	data := writeToBytes(t, img, WriteParams{})

	decoded, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("generic TIFF decode failed: %v", err)
	}
	gray, ok := decoded.(*image.Gray16)
	if !ok {
		t.Fatalf("expected 16 bit grayscale, got %T", decoded)
	}
	if gray.Bounds().Dx() != 2 || gray.Bounds().Dy() != 2 {
		t.Fatalf("unexpected bounds %v", gray.Bounds())
	}

	// First page is beta-tubulin, the canonical first target
	idx, err := img.TargetIndex("beta-tubulin")
	if err != nil {
		t.Fatalf("TargetIndex failed: %v", err)
	}
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			want := uint16(img.Data().At(r, c, idx))
			if got := gray.Gray16At(c, r).Y; got != want {
				t.Errorf("pixel (%v,%v) = %v, want %v", r, c, got, want)
			}
		}
	}
}
