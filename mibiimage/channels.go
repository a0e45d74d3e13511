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
	"strings"

	"github.com/ionpath/mibi-core/core/errortypes"
)

// ChannelID - identity of one acquired channel. Either a bare string label,
// or a (mass, target) pair; within one image all channels must use the same
// form.
type ChannelID struct {
	Label  string
	Mass   int
	Target string
}

// SimpleChannel - a bare string labeled channel
func SimpleChannel(label string) ChannelID {
	return ChannelID{Label: label}
}

// MassChannel - a (mass, target) labeled channel
func MassChannel(mass int, target string) ChannelID {
	return ChannelID{Mass: mass, Target: target}
}

// IsPaired - true for (mass, target) form
func (c ChannelID) IsPaired() bool {
	return len(c.Label) <= 0
}

func (c ChannelID) String() string {
	if c.IsPaired() {
		return fmt.Sprintf("%v (%v)", c.Target, c.Mass)
	}
	return c.Label
}

// validateChannels - the construction invariants: count matches the data
// depth, identities unique, all one form, and for paired form masses and
// targets each unique on their own
func validateChannels(channels []ChannelID, depth int) error {
	if len(channels) != depth {
		return errortypes.MakeValidationError("channels length %v does not match data depth %v", len(channels), depth)
	}

	seen := map[ChannelID]bool{}
	for _, ch := range channels {
		if seen[ch] {
			return errortypes.MakeValidationError("channels are not all unique: %v", ch)
		}
		seen[ch] = true
	}

	pairedCount := 0
	for _, ch := range channels {
		if ch.IsPaired() {
			pairedCount++
		}
	}
	if pairedCount == 0 {
		return nil
	}
	if pairedCount != len(channels) {
		return errortypes.MakeValidationError("channels must be all bare labels or all (mass, target) pairs")
	}

	masses := map[int]bool{}
	targets := map[string]bool{}
	for _, ch := range channels {
		if masses[ch.Mass] {
			return errortypes.MakeValidationError("masses are not all unique: %v", ch.Mass)
		}
		if targets[ch.Target] {
			return errortypes.MakeValidationError("targets are not all unique: %v", ch.Target)
		}
		masses[ch.Mass] = true
		targets[ch.Target] = true
	}
	return nil
}

// ChannelIndex - index of an exact channel identity
func (img *MibiImage) ChannelIndex(ch ChannelID) (int, error) {
	for i, c := range img.channels {
		if c == ch {
			return i, nil
		}
	}
	return -1, errortypes.MakeNotFoundError(fmt.Sprintf("channel %v", ch))
}

// MassIndex - index of the channel with the given mass; only meaningful for
// paired-form images
func (img *MibiImage) MassIndex(mass int) (int, error) {
	for i, c := range img.channels {
		if c.IsPaired() && c.Mass == mass {
			return i, nil
		}
	}
	return -1, errortypes.MakeNotFoundError(fmt.Sprintf("mass %v", mass))
}

// TargetIndex - index of the channel with the given target name
func (img *MibiImage) TargetIndex(target string) (int, error) {
	for i, c := range img.channels {
		if c.IsPaired() && c.Target == target {
			return i, nil
		}
	}
	return -1, errortypes.MakeNotFoundErrorWithSuggestions(
		fmt.Sprintf("target %v", target), img.suggestTargets(target))
}

// MassIndices - batch mass lookup, fails on the first miss
func (img *MibiImage) MassIndices(masses []int) ([]int, error) {
	result := make([]int, 0, len(masses))
	for _, mass := range masses {
		idx, err := img.MassIndex(mass)
		if err != nil {
			return nil, err
		}
		result = append(result, idx)
	}
	return result, nil
}

// TargetIndices - batch target lookup. A miss reports likely matches found
// by case-insensitive substring so a typo'd panel name is easy to spot.
func (img *MibiImage) TargetIndices(targets []string) ([]int, error) {
	result := make([]int, 0, len(targets))
	for _, target := range targets {
		idx, err := img.TargetIndex(target)
		if err != nil {
			return nil, err
		}
		result = append(result, idx)
	}
	return result, nil
}

// suggestTargets - case-insensitive substring matches in either direction
func (img *MibiImage) suggestTargets(miss string) []string {
	missLower := strings.ToLower(miss)
	suggestions := []string{}
	for _, c := range img.channels {
		targetLower := strings.ToLower(c.Target)
		if len(targetLower) > 0 &&
			(strings.Contains(targetLower, missLower) || strings.Contains(missLower, targetLower)) {
			suggestions = append(suggestions, c.Target)
		}
	}
	return suggestions
}
