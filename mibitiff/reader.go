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
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ionpath/mibi-core/core/errortypes"
	"github.com/ionpath/mibi-core/core/logger"
	"github.com/ionpath/mibi-core/core/utils"
	"github.com/ionpath/mibi-core/mibiimage"
)

// Containers written by any version of the instrument software carry this
// software tag prefix; anything else is a foreign TIFF
const softwarePrefix = "IonpathMIBI"

// ReadParams - selects which parts of a container to materialize. Setting
// a mass or target filter implies Channels; the two filters are mutually
// exclusive.
type ReadParams struct {
	Channels bool
	SED      bool
	Optical  bool
	Label    bool

	MassFilter   []int
	TargetFilter []string
}

// ReadResult - everything one container read produced. Fields not requested
// in ReadParams, or not present in the file, are nil.
type ReadResult struct {
	Image   *mibiimage.MibiImage
	SED     *mibiimage.Data
	Optical *mibiimage.RGBImage
	Label   *mibiimage.RGBImage

	// Warnings - non-fatal problems found while reading: filter entries not
	// present in the file, and metadata fields rewritten by schema migration
	Warnings []string
}

// InfoParams - optional channel filters for Info. The two filters are
// mutually exclusive; empty filters list every channel.
type InfoParams struct {
	MassFilter   []int
	TargetFilter []string
}

// ContainerInfo - metadata and channel listing of a container, read without
// decompressing any pixel data
type ContainerInfo struct {
	Metadata mibiimage.Metadata
	Channels []mibiimage.ChannelID
	Warnings []string
}

// Read - reads a container file
func Read(path string, params ReadParams, log logger.ILogger) (*ReadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadBytes(data, params, log)
}

// ReadBytes - reads a container from memory
func ReadBytes(data []byte, params ReadParams, log logger.ILogger) (*ReadResult, error) {
	if log == nil {
		log = &logger.NullLogger{}
	}
	if err := validateReadParams(&params); err != nil {
		return nil, err
	}

	pages, err := parseContainer(data, true)
	if err != nil {
		return nil, err
	}
	if err := checkSoftware(&pages[0]); err != nil {
		return nil, err
	}

	result := &ReadResult{Warnings: []string{}}
	channelPages := []*tiffPage{}
	channels := []mibiimage.ChannelID{}

	for i := range pages {
		page := &pages[i]
		imageType, desc, err := classifyPage(page)
		if err != nil {
			return nil, err
		}

		switch imageType {
		case "SIMS":
			if !params.Channels {
				continue
			}
			channel, err := pageChannel(desc)
			if err != nil {
				return nil, err
			}
			if !channelMatches(channel, params.MassFilter, params.TargetFilter) {
				continue
			}
			channelPages = append(channelPages, page)
			channels = append(channels, channel)
		case "SED":
			if params.SED {
				sed, err := grayPageData(page)
				if err != nil {
					return nil, err
				}
				result.SED = sed
			}
		case "Optical":
			if params.Optical {
				rgb, err := rgbPageData(page)
				if err != nil {
					return nil, err
				}
				result.Optical = rgb
			}
		case "Label":
			if params.Label {
				rgb, err := rgbPageData(page)
				if err != nil {
					return nil, err
				}
				result.Label = rgb
			}
		}
	}

	if params.Channels {
		misses, err := filterMissWarnings(channels, params.MassFilter, params.TargetFilter)
		if err != nil {
			return nil, err
		}
		result.Warnings = append(result.Warnings, misses...)
		if len(channelPages) > 0 {
			img, warnings, err := assembleImage(channelPages, channels)
			if err != nil {
				return nil, err
			}
			result.Image = img
			result.Warnings = append(result.Warnings, warnings...)
		}
	}

	for _, w := range result.Warnings {
		log.Infof("warning: %v", w)
	}
	return result, nil
}

// ReadImage - convenience wrapper reading all channel data of a container
func ReadImage(path string, log logger.ILogger) (*mibiimage.MibiImage, error) {
	result, err := Read(path, ReadParams{Channels: true}, log)
	if err != nil {
		return nil, err
	}
	return result.Image, nil
}

// Info - reads a container's metadata and channel listing without touching
// pixel data. Filtered channels absent from the file are a warning when other
// filter entries matched and a not-found error when none did.
func Info(path string, params InfoParams, log logger.ILogger) (*ContainerInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return InfoBytes(data, params, log)
}

// InfoBytes - Info over an in-memory container
func InfoBytes(data []byte, params InfoParams, log logger.ILogger) (*ContainerInfo, error) {
	if log == nil {
		log = &logger.NullLogger{}
	}
	if len(params.MassFilter) > 0 && len(params.TargetFilter) > 0 {
		return nil, errortypes.MakeValidationError("mass and target filters cannot be combined")
	}
	pages, err := parseContainer(data, false)
	if err != nil {
		return nil, err
	}
	if err := checkSoftware(&pages[0]); err != nil {
		return nil, err
	}

	info := &ContainerInfo{Channels: []mibiimage.ChannelID{}, Warnings: []string{}}
	haveMeta := false
	sawChannels := false
	for i := range pages {
		page := &pages[i]
		imageType, desc, err := classifyPage(page)
		if err != nil {
			return nil, err
		}
		if imageType != "SIMS" {
			continue
		}
		sawChannels = true
		channel, err := pageChannel(desc)
		if err != nil {
			return nil, err
		}
		if !channelMatches(channel, params.MassFilter, params.TargetFilter) {
			continue
		}
		info.Channels = append(info.Channels, channel)
		if !haveMeta {
			meta, warnings, err := buildMetadata(page)
			if err != nil {
				return nil, err
			}
			info.Metadata = *meta
			info.Warnings = append(info.Warnings, warnings...)
			haveMeta = true
		}
	}
	if !sawChannels {
		return nil, errortypes.MakeFormatError("container has no channel pages")
	}
	misses, err := filterMissWarnings(info.Channels, params.MassFilter, params.TargetFilter)
	if err != nil {
		return nil, err
	}
	info.Warnings = append(info.Warnings, misses...)
	for _, w := range info.Warnings {
		log.Infof("warning: %v", w)
	}
	return info, nil
}

func validateReadParams(params *ReadParams) error {
	if len(params.MassFilter) > 0 && len(params.TargetFilter) > 0 {
		return errortypes.MakeValidationError("mass and target filters cannot be combined")
	}
	if len(params.MassFilter) > 0 || len(params.TargetFilter) > 0 {
		params.Channels = true
	}
	if !params.Channels && !params.SED && !params.Optical && !params.Label {
		return errortypes.MakeValidationError("at least one output must be requested")
	}
	return nil
}

func checkSoftware(first *tiffPage) error {
	if !strings.HasPrefix(first.software, softwarePrefix) {
		return errortypes.MakeFormatError(
			"not a MIBI container: software tag %q does not begin with %q", first.software, softwarePrefix)
	}
	return nil
}

// classifyPage - parses the page description JSON and extracts image.type
func classifyPage(page *tiffPage) (string, map[string]interface{}, error) {
	if len(page.description) <= 0 {
		return "", nil, errortypes.MakeFormatError("page is missing its description")
	}
	desc := map[string]interface{}{}
	if err := json.Unmarshal([]byte(page.description), &desc); err != nil {
		return "", nil, errortypes.MakeFormatError("page description is not valid JSON: %v", err)
	}
	imageType, _ := desc["image.type"].(string)
	if len(imageType) <= 0 {
		return "", nil, errortypes.MakeFormatError("page description has no image.type")
	}
	return imageType, desc, nil
}

func pageChannel(desc map[string]interface{}) (mibiimage.ChannelID, error) {
	mass, massOK := desc["channel.mass"].(float64)
	target, targetOK := desc["channel.target"].(string)
	if !massOK || !targetOK {
		return mibiimage.ChannelID{}, errortypes.MakeFormatError("channel page is missing channel.mass or channel.target")
	}
	return mibiimage.MassChannel(int(mass), target), nil
}

func channelMatches(channel mibiimage.ChannelID, massFilter []int, targetFilter []string) bool {
	if len(massFilter) > 0 {
		return utils.ItemInSlice(channel.Mass, massFilter)
	}
	if len(targetFilter) > 0 {
		return utils.ItemInSlice(channel.Target, targetFilter)
	}
	return true
}

// filterMissWarnings - filter entries absent from the file are a warning if
// anything matched and an error if nothing did
func filterMissWarnings(channels []mibiimage.ChannelID, massFilter []int, targetFilter []string) ([]string, error) {
	masses := make([]int, len(channels))
	targets := make([]string, len(channels))
	for i, ch := range channels {
		masses[i] = ch.Mass
		targets[i] = ch.Target
	}

	misses := []string{}
	for _, m := range massFilter {
		if !utils.ItemInSlice(m, masses) {
			misses = append(misses, fmt.Sprintf("%v", m))
		}
	}
	for _, t := range targetFilter {
		if !utils.ItemInSlice(t, targets) {
			misses = append(misses, t)
		}
	}

	if len(misses) <= 0 {
		return nil, nil
	}
	if len(channels) <= 0 {
		return nil, errortypes.MakeNotFoundError(fmt.Sprintf("channels [%v]", strings.Join(misses, ", ")))
	}
	return []string{fmt.Sprintf("requested channels not in file: %v", strings.Join(misses, ", "))}, nil
}

// assembleImage - stacks channel pages, in file order, into one MibiImage.
// Metadata comes from the first page only; all pages of a well formed
// container carry identical copies.
func assembleImage(channelPages []*tiffPage, channels []mibiimage.ChannelID) (*mibiimage.MibiImage, []string, error) {
	first := channelPages[0]
	dataType, err := pageDataType(first)
	if err != nil {
		return nil, nil, err
	}

	for _, page := range channelPages[1:] {
		if page.width != first.width || page.height != first.height {
			return nil, nil, errortypes.MakeFormatError("channel pages have differing frame sizes")
		}
		if page.bits != first.bits || page.sampleFormat != first.sampleFormat {
			return nil, nil, errortypes.MakeFormatError("channel pages have differing sample encodings")
		}
	}

	depth := len(channelPages)
	rows, cols := first.height, first.width
	values := make([]float64, rows*cols*depth)
	for ch, page := range channelPages {
		for pixel := 0; pixel < rows*cols; pixel++ {
			values[pixel*depth+ch] = page.samples[pixel]
		}
	}

	data, err := mibiimage.MakeData(rows, cols, depth, dataType, values)
	if err != nil {
		return nil, nil, err
	}

	meta, warnings, err := buildMetadata(first)
	if err != nil {
		return nil, nil, err
	}

	img, err := mibiimage.New(data, channels, *meta)
	if err != nil {
		return nil, nil, err
	}
	return img, warnings, nil
}

func pageDataType(page *tiffPage) (mibiimage.DataType, error) {
	switch {
	case page.bits == 8 && page.sampleFormat == sampleFormatUint:
		return mibiimage.TypeUint8, nil
	case page.bits == 16 && page.sampleFormat == sampleFormatUint:
		return mibiimage.TypeUint16, nil
	case page.bits == 32 && page.sampleFormat == sampleFormatUint:
		return mibiimage.TypeUint32, nil
	case page.bits == 32 && page.sampleFormat == sampleFormatFloat:
		return mibiimage.TypeFloat32, nil
	case page.bits == 64 && page.sampleFormat == sampleFormatFloat:
		return mibiimage.TypeFloat64, nil
	}
	return mibiimage.TypeUnknown, errortypes.MakeFormatError(
		"unsupported channel sample encoding: %v bits, format %v", page.bits, page.sampleFormat)
}

// buildMetadata - reconstructs the acquisition metadata from a channel
// page's description JSON and tags, migrating older schemas as needed
func buildMetadata(page *tiffPage) (*mibiimage.Metadata, []string, error) {
	desc := map[string]interface{}{}
	if err := json.Unmarshal([]byte(page.description), &desc); err != nil {
		return nil, nil, errortypes.MakeFormatError("page description is not valid JSON: %v", err)
	}

	warnings, err := migrateDescription(desc)
	if err != nil {
		return nil, nil, errortypes.MakeFormatError("page metadata cannot be migrated: %v", err)
	}

	meta := &mibiimage.Metadata{}
	meta.Run, _ = desc["mibi.run"].(string)
	meta.Version, _ = desc["mibi.version"].(string)
	meta.Instrument, _ = desc["mibi.instrument"].(string)
	meta.Slide, _ = desc["mibi.slide"].(string)
	meta.FOVName, _ = desc["mibi.fov_name"].(string)
	meta.Scans, _ = desc["mibi.scans"].(string)
	meta.Tissue, _ = desc["mibi.tissue"].(string)
	meta.Panel, _ = desc["mibi.panel"].(string)
	meta.Filename, _ = desc["mibi.filename"].(string)
	meta.Description, _ = desc["mibi.description"].(string)
	meta.Dwell = descFloat(desc, "mibi.dwell")
	meta.MassOffset = descFloat(desc, "mibi.mass_offset")
	meta.MassGain = descFloat(desc, "mibi.mass_gain")
	meta.TimeResolution = descFloat(desc, "mibi.time_resolution")
	meta.Miscalibrated = descBool(desc, "mibi.miscalibrated")
	meta.CheckReg = descBool(desc, "mibi.check_reg")

	fovID, _ := desc["mibi.fov_id"].(string)
	folder, _ := desc["mibi.folder"].(string)
	if len(fovID) > 0 || len(folder) > 0 {
		if err := meta.SetFOVIDAndFolder(fovID, folder); err != nil {
			return nil, nil, errortypes.MakeFormatError("page metadata is inconsistent: %v", err)
		}
	}
	if aperture, ok := desc["mibi.aperture"].(string); ok {
		if err := meta.SetAperture(aperture); err != nil {
			return nil, nil, errortypes.MakeFormatError("page metadata is inconsistent: %v", err)
		}
	}

	for key, value := range desc {
		if strings.HasPrefix(key, mibiimage.ReservedPrefix) || mibiimage.IsReservedMetadataKey(key) {
			continue
		}
		if err := meta.SetUserField(key, value); err != nil {
			return nil, nil, err
		}
	}

	if err := metadataFromTags(meta, page); err != nil {
		return nil, nil, err
	}
	return meta, warnings, nil
}

func metadataFromTags(meta *mibiimage.Metadata, page *tiffPage) error {
	if page.resolutionUnit != resolutionUnitCM {
		return errortypes.MakeFormatError("channel page resolution unit is %v, expected centimeters", page.resolutionUnit)
	}
	if page.xRes == nil || page.xRes.Num == 0 || page.xRes.Denom == 0 {
		return errortypes.MakeFormatError("channel page is missing its resolution")
	}
	pixelsPerCM := float64(page.xRes.Num) / float64(page.xRes.Denom)
	size := float64(page.height) / pixelsPerCM * micronsPerCM
	meta.Size = &size

	if len(page.dateTime) > 0 {
		date, err := time.Parse(tagDateFormat, page.dateTime)
		if err != nil {
			return errortypes.MakeFormatError("channel page has a malformed date %q: %v", page.dateTime, err)
		}
		meta.Date = date
	}

	if page.xPos != nil && page.yPos != nil {
		meta.Coordinates = &mibiimage.StagePosition{
			X: cmToMicron(page.xPos.Num, page.xPos.Denom),
			Y: cmToMicron(page.yPos.Num, page.yPos.Denom),
		}
	}
	return nil
}

func descFloat(desc map[string]interface{}, key string) *float64 {
	if v, ok := desc[key].(float64); ok {
		return &v
	}
	return nil
}

func descBool(desc map[string]interface{}, key string) *bool {
	if v, ok := desc[key].(bool); ok {
		return &v
	}
	return nil
}

// grayPageData - a single channel page's pixels as Data
func grayPageData(page *tiffPage) (*mibiimage.Data, error) {
	if page.spp != 1 {
		return nil, errortypes.MakeFormatError("expected a grayscale page, got %v samples per pixel", page.spp)
	}
	dataType, err := pageDataType(page)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(page.samples))
	copy(values, page.samples)
	data, err := mibiimage.MakeData(page.height, page.width, 1, dataType, values)
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// rgbPageData - an RGB page's pixels as RGBImage
func rgbPageData(page *tiffPage) (*mibiimage.RGBImage, error) {
	if page.spp != 3 || page.bits != 8 {
		return nil, errortypes.MakeFormatError(
			"expected an 8 bit RGB page, got %v samples per pixel at %v bits", page.spp, page.bits)
	}
	values := make([]uint8, len(page.samples))
	for i, v := range page.samples {
		values[i] = uint8(v)
	}
	rgb, err := mibiimage.MakeRGBImage(page.height, page.width, values)
	if err != nil {
		return nil, err
	}
	return &rgb, nil
}
