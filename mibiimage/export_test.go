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
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ionpath/mibi-core/core/errortypes"
)

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %v: %v", path, err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("failed to decode %v: %v", path, err)
	}
	return decoded
}

func Test_exportPNGs8Bit(t *testing.T) {
	values := []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 255,
	}
	data, _ := MakeData(2, 2, 2, TypeUint16, values)
	img, _ := New(data, []ChannelID{
		MassChannel(89, "dsDNA"),
		MassChannel(141, "Keratin/Pan"),
	}, Metadata{})

	dir := t.TempDir()
	if err := img.ExportPNGs(dir); err != nil {
		t.Fatalf("ExportPNGs failed: %v", err)
	}

	// Max value 255 fits 8 bit, and the slash in the target is made safe
	decoded := decodePNG(t, filepath.Join(dir, "dsDNA.png"))
	gray, ok := decoded.(*image.Gray)
	if !ok {
		t.Fatalf("expected 8 bit grayscale, got %T", decoded)
	}
	if gray.Bounds().Dx() != 2 || gray.Bounds().Dy() != 2 {
		t.Fatalf("unexpected bounds %v", gray.Bounds())
	}
	if gray.GrayAt(1, 0).Y != 2 || gray.GrayAt(1, 1).Y != 4 {
		t.Errorf("pixel values misplaced: %v", gray.Pix)
	}

	decoded = decodePNG(t, filepath.Join(dir, "Keratin-Pan.png"))
	if _, ok := decoded.(*image.Gray); !ok {
		t.Fatalf("expected 8 bit grayscale, got %T", decoded)
	}
}

func Test_exportPNGs16Bit(t *testing.T) {
	// One value over 255 pushes the whole stack to 16 bit
	values := []float64{1, 2, 3, 300}
	data, _ := MakeData(2, 2, 1, TypeUint16, values)
	img, _ := New(data, []ChannelID{MassChannel(89, "dsDNA")}, Metadata{})

	dir := t.TempDir()
	if err := img.ExportPNGs(dir); err != nil {
		t.Fatalf("ExportPNGs failed: %v", err)
	}

	decoded := decodePNG(t, filepath.Join(dir, "dsDNA.png"))
	gray, ok := decoded.(*image.Gray16)
	if !ok {
		t.Fatalf("expected 16 bit grayscale, got %T", decoded)
	}
	if gray.Gray16At(1, 1).Y != 300 {
		t.Errorf("Gray16At(1,1) = %v, want 300", gray.Gray16At(1, 1).Y)
	}
}

func Test_exportPNGsRejections(t *testing.T) {
	floatData, _ := MakeData(1, 1, 1, TypeFloat32, []float64{1})
	img, _ := New(floatData, []ChannelID{MassChannel(89, "dsDNA")}, Metadata{})
	if err := img.ExportPNGs(t.TempDir()); !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for float data, got %v", err)
	}

	bigData, _ := MakeData(1, 1, 1, TypeUint32, []float64{70000})
	img, _ = New(bigData, []ChannelID{MassChannel(89, "dsDNA")}, Metadata{})
	if err := img.ExportPNGs(t.TempDir()); !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for out-of-range data, got %v", err)
	}
}

func Test_exportPNGsBareLabels(t *testing.T) {
	data, _ := MakeData(1, 1, 1, TypeUint8, []float64{7})
	img, _ := New(data, []ChannelID{SimpleChannel("SED")}, Metadata{})

	dir := t.TempDir()
	if err := img.ExportPNGs(dir); err != nil {
		t.Fatalf("ExportPNGs failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "SED.png")); err != nil {
		t.Errorf("expected SED.png: %v", err)
	}
}
