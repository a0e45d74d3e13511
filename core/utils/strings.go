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

// Exposes utility functions for strings: the canonical channel name sort
// order used when serializing containers, and transliteration of target
// labels into safe file names
package utils

import (
	"sort"
	"strconv"
	"strings"
)

// SortChannelNames - sorts target names in place into the canonical
// container page order: names that parse as numbers go after all text
// names and sort numerically, text names sort case-insensitively.
// Eg: beta-tubulin, CD20, CD4, CD45, CD8, dsDNA, Keratin, 23, 97, 144
func SortChannelNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return compareChannelNames(names[i], names[j]) < 0
	})
}

func compareChannelNames(x, y string) int {
	fx, xErr := strconv.ParseFloat(x, 64)
	fy, yErr := strconv.ParseFloat(y, 64)

	if xErr == nil && yErr == nil {
		// Both numbers
		if fx < fy {
			return -1
		}
		if fx > fy {
			return 1
		}
		return 0
	}
	if xErr == nil {
		// x is a number, y isn't, numbers go last
		return 1
	}
	if yErr == nil {
		return -1
	}

	return strings.Compare(strings.ToLower(x), strings.ToLower(y))
}

// FormatForFilename - replaces path delimiters in a target label so it can
// be used as a file name when writing one container per channel
func FormatForFilename(label string) string {
	label = strings.ReplaceAll(label, "/", "-")
	label = strings.ReplaceAll(label, "\\", "-")
	return label
}
