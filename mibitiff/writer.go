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
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/ionpath/mibi-core/core/errortypes"
	"github.com/ionpath/mibi-core/core/logger"
	"github.com/ionpath/mibi-core/core/utils"
	"github.com/ionpath/mibi-core/mibiimage"
)

// SoftwareVersion - written into the software tag of every page and checked
// on read, so foreign TIFFs are rejected early
const SoftwareVersion = "IonpathMIBIv1.0"

// How acquisition dates appear in the date/time tag
const tagDateFormat = "2006:01:02 15:04:05"

// Slide label crop regions within a standard optical image, as
// ((rowStart, rowEnd), (colStart, colEnd)). Which one applies depends on
// the stage Y coordinate: positive Y means the field of view sits on the
// top half of the slide, so the label is read from one fixed region and
// negative Y from the other.
var (
	topLabelCoordinates    = [2][2]int{{570, 1170}, {355, 955}}
	bottomLabelCoordinates = [2][2]int{{1420, 2020}, {355, 955}}
)

// ChannelRange - the display range stored with one channel page
type ChannelRange struct {
	Min float64
	Max float64
}

// WriteParams - optional inputs to Write
type WriteParams struct {
	// SED - secondary electron image to append after the channel pages
	SED *mibiimage.Data
	// Optical - slide optical image to append; when set, the slide label
	// crop is derived from it and appended as the final page
	Optical *mibiimage.RGBImage
	// Ranges - per channel display ranges, parallel to the image's channel
	// list. Defaults to (0, channel max).
	Ranges []ChannelRange
	// SingleFilePerChannel - write each channel as its own single page
	// file into the directory dest instead of one multi-page file
	SingleFilePerChannel bool
	// ForceType - storage element type, uint16 or float32. Defaults by the
	// image's element type: integer data to uint16, float data to float32.
	ForceType mibiimage.DataType
}

// Write - serializes img and any auxiliary images into the container format
// at dest, building the whole file in memory and committing it with a
// single write so a failed serialization never leaves a partial file.
func Write(dest string, img *mibiimage.MibiImage, params WriteParams, log logger.ILogger) error {
	if log == nil {
		log = &logger.NullLogger{}
	}
	if !img.IsPaired() {
		return errortypes.MakeValidationError("container channels must be (mass, target) pairs")
	}
	if missing := missingMetadata(&img.Meta); len(missing) > 0 {
		return errortypes.MakeValidationError("image metadata is missing required fields: %v", strings.Join(missing, ", "))
	}

	storage, err := storageType(img, params.ForceType)
	if err != nil {
		return err
	}

	ranges, err := channelRanges(img, params.Ranges)
	if err != nil {
		return err
	}

	common, err := commonPageTags(img)
	if err != nil {
		return err
	}

	if params.SingleFilePerChannel {
		return writeSingleFiles(dest, img, storage, ranges, common, log)
	}

	pages, err := channelPages(img, canonicalOrder(img), storage, ranges, common)
	if err != nil {
		return err
	}

	auxPages, err := auxiliaryPages(img, params, log)
	if err != nil {
		return err
	}
	pages = append(pages, auxPages...)

	encoded, err := encodeContainer(pages)
	if err != nil {
		return err
	}
	log.Infof("writing %v pages (%v channels) to %v", len(pages), img.ChannelCount(), dest)
	return os.WriteFile(dest, encoded, 0644)
}

// missingMetadata - the field names a container cannot be written without
func missingMetadata(meta *mibiimage.Metadata) []string {
	missing := []string{}
	stringFields := []struct {
		name  string
		value string
	}{
		{"run", meta.Run},
		{"fov_id", meta.FOVID()},
		{"fov_name", meta.FOVName},
		{"folder", meta.Folder()},
		{"scans", meta.Scans},
	}
	for _, f := range stringFields {
		if len(f.value) <= 0 {
			missing = append(missing, f.name)
		}
	}
	floatFields := []struct {
		name  string
		value *float64
	}{
		{"dwell", meta.Dwell},
		{"mass_gain", meta.MassGain},
		{"mass_offset", meta.MassOffset},
		{"time_resolution", meta.TimeResolution},
		{"size", meta.Size},
	}
	for _, f := range floatFields {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	if meta.Coordinates == nil {
		missing = append(missing, "coordinates")
	}
	if meta.Date.IsZero() {
		missing = append(missing, "date")
	}
	return missing
}

// storageType - resolves the on-disk element type and verifies every value
// survives the conversion exactly
func storageType(img *mibiimage.MibiImage, forced mibiimage.DataType) (mibiimage.DataType, error) {
	storage := forced
	if storage == mibiimage.TypeUnknown {
		if img.Data().Type.IsInteger() {
			storage = mibiimage.TypeUint16
		} else {
			storage = mibiimage.TypeFloat32
		}
	}
	if storage != mibiimage.TypeUint16 && storage != mibiimage.TypeFloat32 {
		return mibiimage.TypeUnknown, errortypes.MakeValidationError(
			"container storage type must be uint16 or float32, not %v", storage)
	}
	for _, v := range img.Data().Values {
		if !storage.CanRepresent(v) {
			return mibiimage.TypeUnknown, errortypes.MakeValidationError(
				"value %v cannot be stored as %v without loss", v, storage)
		}
	}
	return storage, nil
}

// channelRanges - validates explicit ranges or defaults each channel to
// (0, channel max)
func channelRanges(img *mibiimage.MibiImage, explicit []ChannelRange) ([]ChannelRange, error) {
	if explicit != nil {
		if len(explicit) != img.ChannelCount() {
			return nil, errortypes.MakeValidationError(
				"got %v ranges for %v channels", len(explicit), img.ChannelCount())
		}
		return explicit, nil
	}
	ranges := make([]ChannelRange, img.ChannelCount())
	for i := range ranges {
		ranges[i] = ChannelRange{Min: 0, Max: floats.Max(img.Data().Plane(i))}
	}
	return ranges, nil
}

// pageTags - the resolution, position and timestamp tags shared by every
// channel page
type pageTags struct {
	xRes, yRes rational
	xPos, yPos sRational
	dateTime   string
}

func commonPageTags(img *mibiimage.MibiImage) (*pageTags, error) {
	size := *img.Meta.Size
	xRes, err := unsignedRationalFromFloat(float64(img.Data().Rows) * micronsPerCM / size)
	if err != nil {
		return nil, err
	}
	yRes, err := unsignedRationalFromFloat(float64(img.Data().Cols) * micronsPerCM / size)
	if err != nil {
		return nil, err
	}
	xPos, err := micronToCM(img.Meta.Coordinates.X)
	if err != nil {
		return nil, err
	}
	yPos, err := micronToCM(img.Meta.Coordinates.Y)
	if err != nil {
		return nil, err
	}
	return &pageTags{
		xRes:     xRes,
		yRes:     yRes,
		xPos:     xPos,
		yPos:     yPos,
		dateTime: img.Meta.Date.Format(tagDateFormat),
	}, nil
}

// canonicalOrder - channel indices sorted into the canonical target order,
// so equivalent images always serialize to the same page sequence
func canonicalOrder(img *mibiimage.MibiImage) []int {
	targets := img.Targets()
	sorted := make([]string, len(targets))
	copy(sorted, targets)
	utils.SortChannelNames(sorted)

	byTarget := map[string]int{}
	for i, t := range targets {
		byTarget[t] = i
	}
	order := make([]int, len(sorted))
	for i, t := range sorted {
		order[i] = byTarget[t]
	}
	return order
}

func channelPages(img *mibiimage.MibiImage, order []int, storage mibiimage.DataType,
	ranges []ChannelRange, common *pageTags) ([]pageSpec, error) {

	pages := make([]pageSpec, 0, len(order))
	for _, idx := range order {
		page, err := channelPage(img, idx, storage, ranges[idx], common)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *page)
	}
	return pages, nil
}

func channelPage(img *mibiimage.MibiImage, idx int, storage mibiimage.DataType,
	chRange ChannelRange, common *pageTags) (*pageSpec, error) {

	channel := img.Channels()[idx]
	desc, err := channelDescription(img, channel)
	if err != nil {
		return nil, err
	}

	bits := 16
	sampleFormat := uint16(sampleFormatUint)
	rangeAsFloat := false
	if storage == mibiimage.TypeFloat32 {
		bits = 32
		sampleFormat = sampleFormatFloat
		rangeAsFloat = true
	}

	return &pageSpec{
		width:        img.Data().Cols,
		height:       img.Data().Rows,
		spp:          1,
		bits:         bits,
		sampleFormat: sampleFormat,
		photometric:  photometricMinIsBlack,
		pixels:       encodeSamples(img.Data().Plane(idx), storage),
		description:  desc,
		pageName:     channel.String(),
		dateTime:     common.dateTime,
		software:     SoftwareVersion,
		xRes:         &common.xRes,
		yRes:         &common.yRes,
		xPos:         &common.xPos,
		yPos:         &common.yPos,
		rangeMin:     &chRange.Min,
		rangeMax:     &chRange.Max,
		rangeAsFloat: rangeAsFloat,
	}, nil
}

// channelDescription - the JSON metadata block for one channel page
func channelDescription(img *mibiimage.MibiImage, channel mibiimage.ChannelID) (string, error) {
	desc := metadataFields(&img.Meta)
	desc["image.type"] = "SIMS"
	desc["channel.mass"] = channel.Mass
	desc["channel.target"] = channel.Target

	encoded, err := json.Marshal(desc)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// metadataFields - the mibi.* namespace entries plus user-defined fields
func metadataFields(meta *mibiimage.Metadata) map[string]interface{} {
	version := meta.Version
	if len(version) <= 0 {
		version = SoftwareVersion
	}
	desc := map[string]interface{}{
		"mibi.run":             meta.Run,
		"mibi.version":         version,
		"mibi.fov_id":          meta.FOVID(),
		"mibi.fov_name":        meta.FOVName,
		"mibi.folder":          meta.Folder(),
		"mibi.dwell":           *meta.Dwell,
		"mibi.scans":           meta.Scans,
		"mibi.mass_offset":     *meta.MassOffset,
		"mibi.mass_gain":       *meta.MassGain,
		"mibi.time_resolution": *meta.TimeResolution,
	}

	instrument := meta.Instrument
	if len(instrument) <= 0 {
		instrument = "MIBI"
	}
	desc["mibi.instrument"] = instrument

	if len(meta.Slide) > 0 {
		desc["mibi.slide"] = meta.Slide
	}
	if len(meta.Aperture()) > 0 {
		desc["mibi.aperture"] = meta.Aperture()
	}
	if len(meta.Tissue) > 0 {
		desc["mibi.tissue"] = meta.Tissue
	}
	if len(meta.Panel) > 0 {
		desc["mibi.panel"] = meta.Panel
	}
	if len(meta.Filename) > 0 {
		desc["mibi.filename"] = meta.Filename
	}
	if len(meta.Description) > 0 {
		desc["mibi.description"] = meta.Description
	}
	if meta.Miscalibrated != nil {
		desc["mibi.miscalibrated"] = *meta.Miscalibrated
	}
	if meta.CheckReg != nil {
		desc["mibi.check_reg"] = *meta.CheckReg
	}
	for _, key := range meta.UserFieldKeys() {
		value, _ := meta.UserField(key)
		desc[key] = value
	}
	return desc
}

// encodeSamples - raw little endian strip bytes for one plane
func encodeSamples(plane []float64, storage mibiimage.DataType) []byte {
	if storage == mibiimage.TypeFloat32 {
		out := make([]byte, len(plane)*4)
		for i, v := range plane {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
		}
		return out
	}
	out := make([]byte, len(plane)*2)
	for i, v := range plane {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// auxiliaryPages - SED, optical and slide label pages, in that order
func auxiliaryPages(img *mibiimage.MibiImage, params WriteParams, log logger.ILogger) ([]pageSpec, error) {
	pages := []pageSpec{}

	if params.SED != nil {
		page, err := sedPage(img, params.SED)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *page)
	}

	if params.Optical != nil {
		pages = append(pages, rgbPage(params.Optical, "Optical"))

		label, err := cropLabel(params.Optical, img.Meta.Coordinates.Y > 0)
		if err != nil {
			return nil, err
		}
		log.Debugf("derived %vx%v slide label from optical image", label.Rows, label.Cols)
		pages = append(pages, rgbPage(label, "Label"))
	}
	return pages, nil
}

// sedPage - only the first plane of a multi-plane SED stack is stored
func sedPage(img *mibiimage.MibiImage, sed *mibiimage.Data) (*pageSpec, error) {
	storage := mibiimage.TypeUint16
	bits := 16
	sampleFormat := uint16(sampleFormatUint)
	if !sed.Type.IsInteger() {
		storage = mibiimage.TypeFloat32
		bits = 32
		sampleFormat = sampleFormatFloat
	}
	for _, v := range sed.Values {
		if !storage.CanRepresent(v) {
			return nil, errortypes.MakeValidationError("SED value %v cannot be stored as %v without loss", v, storage)
		}
	}

	// SED pages carry their own resolution since the SED frame size can
	// differ from the channel frame size over the same field of view
	size := *img.Meta.Size
	xRes, err := unsignedRationalFromFloat(float64(sed.Rows) * micronsPerCM / size)
	if err != nil {
		return nil, err
	}
	yRes, err := unsignedRationalFromFloat(float64(sed.Cols) * micronsPerCM / size)
	if err != nil {
		return nil, err
	}
	xPos, err := micronToCM(img.Meta.Coordinates.X)
	if err != nil {
		return nil, err
	}
	yPos, err := micronToCM(img.Meta.Coordinates.Y)
	if err != nil {
		return nil, err
	}

	desc, err := json.Marshal(map[string]interface{}{"image.type": "SED"})
	if err != nil {
		return nil, err
	}
	return &pageSpec{
		width:        sed.Cols,
		height:       sed.Rows,
		spp:          1,
		bits:         bits,
		sampleFormat: sampleFormat,
		photometric:  photometricMinIsBlack,
		pixels:       encodeSamples(sed.Plane(0), storage),
		description:  string(desc),
		pageName:     "SED",
		software:     SoftwareVersion,
		xRes:         &xRes,
		yRes:         &yRes,
		xPos:         &xPos,
		yPos:         &yPos,
	}, nil
}

func rgbPage(img *mibiimage.RGBImage, imageType string) pageSpec {
	desc, _ := json.Marshal(map[string]interface{}{
		"image.type": imageType,
		"shape":      []int{img.Rows, img.Cols, 3},
	})
	values := make([]byte, len(img.Values))
	copy(values, img.Values)
	return pageSpec{
		width:        img.Cols,
		height:       img.Rows,
		spp:          3,
		bits:         8,
		sampleFormat: sampleFormatUint,
		photometric:  photometricRGB,
		pixels:       values,
		description:  string(desc),
		pageName:     imageType,
		software:     SoftwareVersion,
	}
}

// cropLabel - extracts the slide label region from the optical image and
// rotates it upright. The label text runs along the slide axis, so the crop
// is transposed and then flipped left to right.
func cropLabel(optical *mibiimage.RGBImage, stageTop bool) (*mibiimage.RGBImage, error) {
	coords := bottomLabelCoordinates
	if stageTop {
		coords = topLabelCoordinates
	}
	rowStart, rowEnd := coords[0][0], coords[0][1]
	colStart, colEnd := coords[1][0], coords[1][1]
	if optical.Rows < rowEnd || optical.Cols < colEnd {
		return nil, errortypes.MakeValidationError(
			"optical image %vx%v is too small for the %vx%v label crop",
			optical.Rows, optical.Cols, rowEnd, colEnd)
	}

	cropRows := rowEnd - rowStart
	cropCols := colEnd - colStart
	label, err := mibiimage.MakeRGBImage(cropCols, cropRows, nil)
	if err != nil {
		return nil, err
	}
	for i := 0; i < cropCols; i++ {
		for j := 0; j < cropRows; j++ {
			for c := 0; c < 3; c++ {
				label.Set(i, j, c, optical.At(rowStart+cropRows-1-j, colStart+i, c))
			}
		}
	}
	return &label, nil
}

// writeSingleFiles - one single page container per channel, named for the
// channel target, in the caller-given input order
func writeSingleFiles(dir string, img *mibiimage.MibiImage, storage mibiimage.DataType,
	ranges []ChannelRange, common *pageTags, log logger.ILogger) error {

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	suffix := ".tiff"
	if storage == mibiimage.TypeFloat32 {
		suffix = ".float.tiff"
	}

	for idx, channel := range img.Channels() {
		page, err := channelPage(img, idx, storage, ranges[idx], common)
		if err != nil {
			return err
		}
		encoded, err := encodeContainer([]pageSpec{*page})
		if err != nil {
			return err
		}
		path := filepath.Join(dir, utils.FormatForFilename(channel.Target)+suffix)
		if err := os.WriteFile(path, encoded, 0644); err != nil {
			return err
		}
		log.Debugf("wrote channel %v to %v", channel, path)
	}
	log.Infof("wrote %v single channel files to %v", img.ChannelCount(), dir)
	return nil
}
