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
	"fmt"
	"testing"

	"github.com/ionpath/mibi-core/core/errortypes"
)

func makeTestImage(t *testing.T) *MibiImage {
	t.Helper()

	// 2x2, 3 channels, values distinct per plane so slicing is checkable
	values := []float64{
		1, 10, 100,
		2, 20, 200,
		3, 30, 300,
		4, 40, 400,
	}
	data, err := MakeData(2, 2, 3, TypeUint16, values)
	if err != nil {
		t.Fatalf("MakeData failed: %v", err)
	}

	channels := []ChannelID{
		MassChannel(89, "dsDNA"),
		MassChannel(115, "CD45"),
		MassChannel(141, "Keratin"),
	}

	meta := Metadata{Run: "20180703_1234_test", FOVName: "R1C3_Tonsil"}
	img, err := New(data, channels, meta)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return img
}

func Test_newValidation(t *testing.T) {
	data, _ := MakeData(2, 2, 2, TypeUint16, nil)

	// Channel count mismatch
	_, err := New(data, []ChannelID{MassChannel(89, "dsDNA")}, Metadata{})
	if !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for count mismatch, got %v", err)
	}

	// Duplicate identity
	_, err = New(data, []ChannelID{MassChannel(89, "dsDNA"), MassChannel(89, "dsDNA")}, Metadata{})
	if !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for duplicate channel, got %v", err)
	}

	// Duplicate mass with distinct targets
	_, err = New(data, []ChannelID{MassChannel(89, "dsDNA"), MassChannel(89, "CD45")}, Metadata{})
	if !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for duplicate mass, got %v", err)
	}

	// Duplicate target with distinct masses
	_, err = New(data, []ChannelID{MassChannel(89, "dsDNA"), MassChannel(115, "dsDNA")}, Metadata{})
	if !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for duplicate target, got %v", err)
	}

	// Mixed identity forms
	_, err = New(data, []ChannelID{MassChannel(89, "dsDNA"), SimpleChannel("CD45")}, Metadata{})
	if !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for mixed channel forms, got %v", err)
	}

	// Bare labels are fine on their own
	img, err := New(data, []ChannelID{SimpleChannel("SED"), SimpleChannel("Optical")}, Metadata{})
	if err != nil {
		t.Errorf("bare label channels should be valid: %v", err)
	}
	if img.IsPaired() {
		t.Errorf("bare label image reported as paired")
	}
}

func Test_equalAndCopy(t *testing.T) {
	img := makeTestImage(t)
	dup := img.Copy()

	if !img.Equal(dup) {
		t.Fatalf("copy is not equal to original")
	}

	// Editing the copy's pixels must not touch the original
	dup.Data().Set(0, 0, 0, 999)
	if img.Equal(dup) {
		t.Errorf("pixel edit should break equality")
	}
	if img.Data().At(0, 0, 0) != 1 {
		t.Errorf("copy shares pixel storage with original")
	}

	dup = img.Copy()
	dup.Meta.Run = "other_run"
	if img.Equal(dup) {
		t.Errorf("metadata edit should break equality")
	}
}

func Test_channelLookups(t *testing.T) {
	img := makeTestImage(t)

	idx, err := img.MassIndex(115)
	if err != nil || idx != 1 {
		t.Errorf("MassIndex(115) = %v, %v, want 1", idx, err)
	}
	if _, err = img.MassIndex(999); !errortypes.IsNotFoundError(err) {
		t.Errorf("expected not found error for missing mass, got %v", err)
	}

	idx, err = img.TargetIndex("Keratin")
	if err != nil || idx != 2 {
		t.Errorf("TargetIndex(Keratin) = %v, %v, want 2", idx, err)
	}

	indices, err := img.MassIndices([]int{141, 89})
	if err != nil || len(indices) != 2 || indices[0] != 2 || indices[1] != 0 {
		t.Errorf("MassIndices = %v, %v, want [2 0]", indices, err)
	}

	idx, err = img.ChannelIndex(MassChannel(89, "dsDNA"))
	if err != nil || idx != 0 {
		t.Errorf("ChannelIndex = %v, %v, want 0", idx, err)
	}
	if _, err = img.ChannelIndex(MassChannel(89, "CD45")); !errortypes.IsNotFoundError(err) {
		t.Errorf("expected not found error for mismatched pair, got %v", err)
	}
}

func Example_targetSuggestions() {
	data, _ := MakeData(1, 1, 2, TypeUint16, nil)
	img, _ := New(data, []ChannelID{MassChannel(115, "CD45"), MassChannel(141, "Keratin")}, Metadata{})

	_, err := img.TargetIndex("cd45")
	fmt.Printf("%v\n", err)

	_, err = img.TargetIndex("CD45RO")
	fmt.Printf("%v\n", err)

	// Output:
	// target cd45 not found. Did you mean: CD45?
	// target CD45RO not found. Did you mean: CD45?
}

func Test_sliceByTargets(t *testing.T) {
	img := makeTestImage(t)

	sliced, err := img.SliceByTargets([]string{"Keratin", "dsDNA"})
	if err != nil {
		t.Fatalf("SliceByTargets failed: %v", err)
	}

	wantChannels := []ChannelID{MassChannel(141, "Keratin"), MassChannel(89, "dsDNA")}
	got := sliced.Channels()
	if len(got) != 2 || got[0] != wantChannels[0] || got[1] != wantChannels[1] {
		t.Errorf("sliced channels = %v, want %v", got, wantChannels)
	}

	if sliced.Data().At(0, 0, 0) != 100 || sliced.Data().At(0, 0, 1) != 1 {
		t.Errorf("sliced planes in wrong order: %v", sliced.Data().Values)
	}
	if sliced.Meta.Run != img.Meta.Run {
		t.Errorf("slice dropped metadata")
	}

	// Slices copy, never alias
	sliced.Data().Set(0, 0, 0, 999)
	if img.Data().At(0, 0, 2) != 100 {
		t.Errorf("slice shares pixel storage with original")
	}
}

func Test_append(t *testing.T) {
	img := makeTestImage(t)

	otherData, _ := MakeData(2, 2, 1, TypeUint16, []float64{7, 8, 9, 10})
	other, _ := New(otherData, []ChannelID{MassChannel(197, "beta-tubulin")}, Metadata{Run: "other"})

	if err := img.Append(other); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if img.ChannelCount() != 4 {
		t.Fatalf("ChannelCount = %v, want 4", img.ChannelCount())
	}
	if img.Data().At(1, 1, 3) != 10 || img.Data().At(1, 1, 0) != 4 {
		t.Errorf("appended values misplaced: %v", img.Data().Values)
	}
	if img.Meta.Run != "20180703_1234_test" {
		t.Errorf("append replaced receiver metadata")
	}

	// Overlapping channel rejected
	overlap, _ := New(otherData.Copy(), []ChannelID{MassChannel(89, "dsDNA")}, Metadata{})
	if err := img.Append(overlap); !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for overlapping channel, got %v", err)
	}

	// Frame size mismatch rejected
	smallData, _ := MakeData(1, 1, 1, TypeUint16, nil)
	small, _ := New(smallData, []ChannelID{MassChannel(1, "X")}, Metadata{})
	if err := img.Append(small); !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for frame size mismatch, got %v", err)
	}

	// Element type mismatch rejected
	floatData, _ := MakeData(2, 2, 1, TypeFloat32, nil)
	floaty, _ := New(floatData, []ChannelID{MassChannel(2, "Y")}, Metadata{})
	if err := img.Append(floaty); !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for element type mismatch, got %v", err)
	}
}

func Test_removeByTargets(t *testing.T) {
	img := makeTestImage(t)

	if err := img.RemoveByTargets([]string{"CD45"}); err != nil {
		t.Fatalf("RemoveByTargets failed: %v", err)
	}
	if img.ChannelCount() != 2 {
		t.Fatalf("ChannelCount = %v, want 2", img.ChannelCount())
	}
	if img.Data().At(0, 1, 1) != 200 {
		t.Errorf("remaining planes shifted incorrectly: %v", img.Data().Values)
	}

	if err := img.RemoveByTargets([]string{"nope"}); !errortypes.IsNotFoundError(err) {
		t.Errorf("expected not found error, got %v", err)
	}

	if err := img.RemoveByTargets([]string{"dsDNA", "Keratin"}); !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error removing all channels, got %v", err)
	}
}

func Test_renameTargets(t *testing.T) {
	img := makeTestImage(t)

	if err := img.RenameTargets(map[string]string{"Keratin": "Pan-Keratin"}); err != nil {
		t.Fatalf("RenameTargets failed: %v", err)
	}
	idx, err := img.TargetIndex("Pan-Keratin")
	if err != nil || idx != 2 {
		t.Errorf("renamed target not found at expected index: %v, %v", idx, err)
	}
	if img.Channels()[2].Mass != 141 {
		t.Errorf("rename lost the mass pairing")
	}

	// Missing old name fails without partial application
	err = img.RenameTargets(map[string]string{"dsDNA": "DNA", "nope": "x"})
	if !errortypes.IsNotFoundError(err) {
		t.Errorf("expected not found error, got %v", err)
	}
	if _, err = img.TargetIndex("dsDNA"); err != nil {
		t.Errorf("failed rename should not have applied partially: %v", err)
	}

	// Rename that collides with an existing target fails validation
	err = img.RenameTargets(map[string]string{"dsDNA": "CD45"})
	if !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for colliding rename, got %v", err)
	}
}
