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
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/ionpath/mibi-core/core/errortypes"
	"github.com/ionpath/mibi-core/core/utils"
)

// DateFormat - how acquisition dates appear in run metadata
const DateFormat = "2006-01-02T15:04:05"

// ReservedPrefix - namespace prefix for recognized metadata fields in a
// container page description
const ReservedPrefix = "mibi."

// Keys that may never be used for user-defined metadata, as they have
// structural meaning in container page descriptions
var reservedKeys = []string{"image.type", "channel.mass", "channel.target", "shape", "SIMS"}

// IsReservedMetadataKey - true if a user-defined metadata key would collide
// with the reserved container namespace
func IsReservedMetadataKey(key string) bool {
	if strings.HasPrefix(key, ReservedPrefix) {
		return true
	}
	for _, reserved := range reservedKeys {
		if key == reserved {
			return true
		}
	}
	return false
}

// StagePosition - stage coordinates at acquisition time, in microns
type StagePosition struct {
	X float64
	Y float64
}

// Metadata - the acquisition metadata bag carried by a MibiImage. The
// recognized fields are explicit; anything else callers want attached goes
// through SetUserField. fovID, folder and aperture are only reachable
// through their setters because they carry invariants: fovID must always be
// the leading path segment of folder, and aperture is only ever stored as a
// normalized short code.
type Metadata struct {
	Run            string
	Date           time.Time
	Coordinates    *StagePosition
	Size           *float64 // field of view width/height, microns
	Slide          string
	FOVName        string
	Dwell          *float64 // pixel dwell time, ms
	Scans          string   // comma-separated scan numbers
	Instrument     string
	Tissue         string
	Panel          string
	MassOffset     *float64
	MassGain       *float64
	TimeResolution *float64
	Miscalibrated  *bool
	CheckReg       *bool
	Filename       string
	Description    string
	Version        string

	fovID       string
	folder      string
	aperture    string
	userDefined map[string]interface{}
}

// FOVID - the field of view id, eg "fov-1-scan-1"
func (m *Metadata) FOVID() string {
	return m.fovID
}

// Folder - the acquisition folder path; its leading segment is always the
// fov id
func (m *Metadata) Folder() string {
	return m.folder
}

// Aperture - the normalized aperture short code, eg "C"
func (m *Metadata) Aperture() string {
	return m.aperture
}

// SetFOVID - sets the fov id. If no folder is set yet the folder is derived
// as equal to the id; if a folder is set its leading path segment must match.
func (m *Metadata) SetFOVID(fovID string) error {
	if len(fovID) <= 0 {
		return errortypes.MakeValidationError("fov id cannot be empty")
	}
	if len(m.folder) > 0 {
		if leadingSegment(m.folder) != fovID {
			return errortypes.MakeValidationError("fov id %v does not match folder %v", fovID, m.folder)
		}
		m.fovID = fovID
		return nil
	}
	m.fovID = fovID
	m.folder = fovID
	return nil
}

// SetFolder - sets the acquisition folder path. If no fov id is set yet it
// is derived as the folder's leading path segment; if one is set it must
// match.
func (m *Metadata) SetFolder(folder string) error {
	if len(folder) <= 0 {
		return errortypes.MakeValidationError("folder cannot be empty")
	}
	lead := leadingSegment(folder)
	if len(m.fovID) > 0 && m.fovID != lead {
		return errortypes.MakeValidationError("folder %v does not match fov id %v", folder, m.fovID)
	}
	m.folder = folder
	m.fovID = lead
	return nil
}

// SetFOVIDAndFolder - sets both together, validating consistency
func (m *Metadata) SetFOVIDAndFolder(fovID string, folder string) error {
	if len(fovID) <= 0 && len(folder) <= 0 {
		return errortypes.MakeValidationError("fov id and folder cannot both be empty")
	}
	if len(folder) <= 0 {
		m.fovID = ""
		m.folder = ""
		return m.SetFOVID(fovID)
	}
	if len(fovID) <= 0 {
		m.fovID = ""
		m.folder = ""
		return m.SetFolder(folder)
	}
	if leadingSegment(folder) != fovID {
		return errortypes.MakeValidationError("fov id %v does not match folder %v", fovID, folder)
	}
	m.fovID = fovID
	m.folder = folder
	return nil
}

func leadingSegment(folder string) string {
	return strings.SplitN(folder, "/", 2)[0]
}

// The fixed aperture enumeration. Only these short codes are ever stored;
// everything the instrument software has historically written for the same
// physical aperture maps onto them at assignment time.
var apertureSynonyms = map[string]string{
	// Current short codes map to themselves
	"A": "A",
	"B": "B",
	"C": "C",
	"D": "D",
	// Legacy width strings
	"50um":   "A",
	"50 um":  "A",
	"200um":  "B",
	"200 um": "B",
	"300um":  "C",
	"300 um": "C",
	"3mm":    "D",
	"3 mm":   "D",
	"3000um": "D",
	// Obsolete vendor codes
	"1": "A",
	"2": "B",
	"3": "C",
	"4": "D",
}

// NormalizeAperture - maps an aperture string, current or legacy, onto the
// fixed short-code enumeration. Unrecognized values are an error, never
// stored verbatim.
func NormalizeAperture(aperture string) (string, error) {
	if code, ok := apertureSynonyms[aperture]; ok {
		return code, nil
	}
	codes := utils.GetMapKeys(apertureSynonyms)
	sort.Strings(codes)
	return "", errortypes.MakeValidationError("invalid aperture: %v, expecting one of: %v", aperture, strings.Join(codes, ", "))
}

// SetAperture - stores the normalized short code for an aperture string.
// An empty string clears the field.
func (m *Metadata) SetAperture(aperture string) error {
	if len(aperture) <= 0 {
		m.aperture = ""
		return nil
	}
	code, err := NormalizeAperture(aperture)
	if err != nil {
		return err
	}
	m.aperture = code
	return nil
}

// SetUserField - attaches a user-defined metadata key/value. Keys that
// collide with the reserved container namespace are rejected. Numeric values
// are stored as float64, the form they take in the page description JSON, so
// an image compares equal to itself after a container round trip.
func (m *Metadata) SetUserField(key string, value interface{}) error {
	if len(key) <= 0 {
		return errortypes.MakeValidationError("user-defined metadata key cannot be empty")
	}
	if IsReservedMetadataKey(key) {
		return errortypes.MakeValidationError("user-defined metadata key %v collides with a reserved field", key)
	}
	if m.userDefined == nil {
		m.userDefined = map[string]interface{}{}
	}
	m.userDefined[key] = canonicalUserValue(value)
	return nil
}

func canonicalUserValue(value interface{}) interface{} {
	switch v := value.(type) {
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	}
	return value
}

// UserField - reads back one user-defined value
func (m *Metadata) UserField(key string) (interface{}, bool) {
	value, ok := m.userDefined[key]
	return value, ok
}

// UserFieldKeys - all user-defined keys in sorted order
func (m *Metadata) UserFieldKeys() []string {
	keys := utils.GetMapKeys(m.userDefined)
	sort.Strings(keys)
	return keys
}

// Copy - deep copy, including pointer fields and the user-defined map
func (m *Metadata) Copy() Metadata {
	result := *m
	result.Coordinates = copyFloatPair(m.Coordinates)
	result.Size = copyFloat(m.Size)
	result.Dwell = copyFloat(m.Dwell)
	result.MassOffset = copyFloat(m.MassOffset)
	result.MassGain = copyFloat(m.MassGain)
	result.TimeResolution = copyFloat(m.TimeResolution)
	result.Miscalibrated = copyBool(m.Miscalibrated)
	result.CheckReg = copyBool(m.CheckReg)
	if m.userDefined != nil {
		result.userDefined = map[string]interface{}{}
		for key, value := range m.userDefined {
			result.userDefined[key] = value
		}
	}
	return result
}

// Equal - field-by-field comparison, pointers by pointed-to value
func (m *Metadata) Equal(other *Metadata) bool {
	if m.Run != other.Run ||
		!m.Date.Equal(other.Date) ||
		m.Slide != other.Slide ||
		m.FOVName != other.FOVName ||
		m.Scans != other.Scans ||
		m.Instrument != other.Instrument ||
		m.Tissue != other.Tissue ||
		m.Panel != other.Panel ||
		m.Filename != other.Filename ||
		m.Description != other.Description ||
		m.Version != other.Version ||
		m.fovID != other.fovID ||
		m.folder != other.folder ||
		m.aperture != other.aperture {
		return false
	}
	if !floatPairEqual(m.Coordinates, other.Coordinates) ||
		!floatEqual(m.Size, other.Size) ||
		!floatEqual(m.Dwell, other.Dwell) ||
		!floatEqual(m.MassOffset, other.MassOffset) ||
		!floatEqual(m.MassGain, other.MassGain) ||
		!floatEqual(m.TimeResolution, other.TimeResolution) ||
		!boolEqual(m.Miscalibrated, other.Miscalibrated) ||
		!boolEqual(m.CheckReg, other.CheckReg) {
		return false
	}
	if len(m.userDefined) != len(other.userDefined) {
		return false
	}
	for key, value := range m.userDefined {
		otherValue, ok := other.userDefined[key]
		if !ok || !reflect.DeepEqual(value, otherValue) {
			return false
		}
	}
	return true
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyFloatPair(v *StagePosition) *StagePosition {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func floatEqual(a, b *float64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func boolEqual(a, b *bool) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func floatPairEqual(a, b *StagePosition) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

// Float - convenience for building optional float fields in-line
func Float(v float64) *float64 {
	return &v
}

// Bool - convenience for building optional bool fields in-line
func Bool(v bool) *bool {
	return &v
}
