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

// The in-memory model of a multiplexed SIMS image: a stack of co-registered
// single channel intensity planes, each labeled by a (mass, target) pair or
// a bare string, plus the acquisition metadata bag. Everything that reads,
// writes or transforms these images goes through this package, which owns
// the structural invariants.
package mibiimage

import (
	"github.com/ionpath/mibi-core/core/errortypes"
	"golang.org/x/exp/slices"
)

// MibiImage - a multiplexed image with labeled channels and metadata.
// Channels and data are only reachable through methods so the channel
// uniqueness and shape invariants can't be broken from outside.
type MibiImage struct {
	data     Data
	channels []ChannelID
	Meta     Metadata
}

// New - builds a MibiImage, validating that the channel list matches the
// data depth and that channel identities, masses and targets are unique
func New(data Data, channels []ChannelID, meta Metadata) (*MibiImage, error) {
	if len(data.Values) != data.Rows*data.Cols*data.Depth || data.Type == TypeUnknown {
		return nil, errortypes.MakeValidationError("image data is not well formed, use MakeData")
	}
	if err := validateChannels(channels, data.Depth); err != nil {
		return nil, err
	}
	return &MibiImage{
		data:     data,
		channels: slices.Clone(channels),
		Meta:     meta,
	}, nil
}

// Data - the pixel stack. The returned pointer shares storage with the
// image; values may be edited in place but the shape is owned by the image.
func (img *MibiImage) Data() *Data {
	return &img.data
}

// Channels - copy of the channel identity list, in data plane order
func (img *MibiImage) Channels() []ChannelID {
	return slices.Clone(img.channels)
}

// ChannelCount - number of channels
func (img *MibiImage) ChannelCount() int {
	return len(img.channels)
}

// IsPaired - true if channels are in (mass, target) form. Images are either
// all paired or all bare labels, enforced at construction.
func (img *MibiImage) IsPaired() bool {
	return len(img.channels) > 0 && img.channels[0].IsPaired()
}

// Masses - the channel masses in plane order, or nil for bare-label images
func (img *MibiImage) Masses() []int {
	if !img.IsPaired() {
		return nil
	}
	masses := make([]int, len(img.channels))
	for i, c := range img.channels {
		masses[i] = c.Mass
	}
	return masses
}

// Targets - the channel targets in plane order, or nil for bare-label images
func (img *MibiImage) Targets() []string {
	if !img.IsPaired() {
		return nil
	}
	targets := make([]string, len(img.channels))
	for i, c := range img.channels {
		targets[i] = c.Target
	}
	return targets
}

// SetChannels - relabels all channels at once, revalidating uniqueness and
// form. The count cannot change.
func (img *MibiImage) SetChannels(channels []ChannelID) error {
	if err := validateChannels(channels, img.data.Depth); err != nil {
		return err
	}
	img.channels = slices.Clone(channels)
	return nil
}

// Copy - deep copy of data, channels and metadata
func (img *MibiImage) Copy() *MibiImage {
	return &MibiImage{
		data:     img.data.Copy(),
		channels: slices.Clone(img.channels),
		Meta:     img.Meta.Copy(),
	}
}

// Equal - true iff metadata, channel sequences, element type and every
// pixel are equal
func (img *MibiImage) Equal(other *MibiImage) bool {
	if other == nil {
		return false
	}
	if !img.Meta.Equal(&other.Meta) {
		return false
	}
	if !slices.Equal(img.channels, other.channels) {
		return false
	}
	return img.data.Equal(&other.data)
}

// SliceByIndices - new image containing copies of the given channel planes,
// in the given order, with a copy of the metadata
func (img *MibiImage) SliceByIndices(indices []int) (*MibiImage, error) {
	for _, idx := range indices {
		if idx < 0 || idx >= len(img.channels) {
			return nil, errortypes.MakeValidationError("channel index %v out of range", idx)
		}
	}

	depth := len(indices)
	values := make([]float64, img.data.Rows*img.data.Cols*depth)
	for pixel := 0; pixel < img.data.Rows*img.data.Cols; pixel++ {
		for outCh, idx := range indices {
			values[pixel*depth+outCh] = img.data.Values[pixel*img.data.Depth+idx]
		}
	}

	channels := make([]ChannelID, depth)
	for i, idx := range indices {
		channels[i] = img.channels[idx]
	}

	data, err := MakeData(img.data.Rows, img.data.Cols, depth, img.data.Type, values)
	if err != nil {
		return nil, err
	}
	return New(data, channels, img.Meta.Copy())
}

// SliceByTargets - new image containing only the named targets, in the
// order given
func (img *MibiImage) SliceByTargets(targets []string) (*MibiImage, error) {
	indices, err := img.TargetIndices(targets)
	if err != nil {
		return nil, err
	}
	return img.SliceByIndices(indices)
}

// Append - appends another image's channels and data. Metadata of the
// receiver is preserved. Fails on overlapping channel identities, on
// differing identity forms, and on differing frame sizes or element types.
func (img *MibiImage) Append(other *MibiImage) error {
	if img.data.Rows != other.data.Rows || img.data.Cols != other.data.Cols {
		return errortypes.MakeValidationError("images have different frame sizes: %vx%v vs %vx%v",
			img.data.Rows, img.data.Cols, other.data.Rows, other.data.Cols)
	}
	if img.data.Type != other.data.Type {
		return errortypes.MakeValidationError("images have different element types: %v vs %v", img.data.Type, other.data.Type)
	}
	if img.IsPaired() != other.IsPaired() {
		return errortypes.MakeValidationError("images have different channel identity forms")
	}
	for _, ch := range other.channels {
		if slices.Contains(img.channels, ch) {
			return errortypes.MakeValidationError("images contain overlapping channels: %v", ch)
		}
	}

	combined := append(slices.Clone(img.channels), other.channels...)
	if err := validateChannels(combined, len(combined)); err != nil {
		return err
	}

	depth := len(combined)
	values := make([]float64, img.data.Rows*img.data.Cols*depth)
	for pixel := 0; pixel < img.data.Rows*img.data.Cols; pixel++ {
		copy(values[pixel*depth:], img.data.Values[pixel*img.data.Depth:(pixel+1)*img.data.Depth])
		copy(values[pixel*depth+img.data.Depth:], other.data.Values[pixel*other.data.Depth:(pixel+1)*other.data.Depth])
	}

	img.data.Depth = depth
	img.data.Values = values
	img.channels = combined
	return nil
}

// RemoveByTargets - removes the named target channels in place
func (img *MibiImage) RemoveByTargets(targets []string) error {
	removeIndices, err := img.TargetIndices(targets)
	if err != nil {
		return err
	}

	keep := []int{}
	for i := range img.channels {
		if !slices.Contains(removeIndices, i) {
			keep = append(keep, i)
		}
	}
	if len(keep) <= 0 {
		return errortypes.MakeValidationError("cannot remove all channels from an image")
	}

	sliced, err := img.SliceByIndices(keep)
	if err != nil {
		return err
	}
	img.data = sliced.data
	img.channels = sliced.channels
	return nil
}

// RenameTargets - substitutes target labels in place, preserving mass
// pairing. Fails if any requested target does not exist.
func (img *MibiImage) RenameTargets(renames map[string]string) error {
	for oldName := range renames {
		if _, err := img.TargetIndex(oldName); err != nil {
			return err
		}
	}

	channels := slices.Clone(img.channels)
	for i, c := range channels {
		if newName, ok := renames[c.Target]; ok {
			channels[i].Target = newName
		}
	}
	return img.SetChannels(channels)
}
