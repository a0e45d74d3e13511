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

// Prints a JSON manifest of a container: acquisition metadata and the
// channel listing, optionally filtered by mass or target. Pixel data is
// never decompressed.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/ionpath/mibi-core/core/logger"
	"github.com/ionpath/mibi-core/mibiimage"
	"github.com/ionpath/mibi-core/mibitiff"
)

var filePath string
var masses string
var targets string

type channelManifest struct {
	Mass   int    `json:"mass"`
	Target string `json:"target"`
}

type manifest struct {
	File     string            `json:"file"`
	Run      string            `json:"run"`
	FOVID    string            `json:"fovId"`
	FOVName  string            `json:"fovName"`
	Folder   string            `json:"folder"`
	Aperture string            `json:"aperture,omitempty"`
	Date     string            `json:"date,omitempty"`
	SizeUM   *float64          `json:"sizeMicrons,omitempty"`
	Channels []channelManifest `json:"channels"`
	Warnings []string          `json:"warnings,omitempty"`
}

func main() {
	flag.StringVar(&filePath, "file", "", "Container file to inspect")
	flag.StringVar(&masses, "masses", "", "Comma-separated masses to list, eg 89,115")
	flag.StringVar(&targets, "targets", "", "Comma-separated targets to list, eg dsDNA,CD45")

	flag.Parse()

	if len(filePath) <= 0 {
		log.Fatalf("Parameter: file was empty")
	}

	iLog := &logger.StdOutLogger{}
	iLog.SetLogLevel(logger.LogError)

	massFilter, err := parseMasses(masses)
	if err != nil {
		log.Fatalf("%v", err)
	}

	params := mibitiff.InfoParams{MassFilter: massFilter, TargetFilter: splitList(targets)}
	info, err := mibitiff.Info(filePath, params, iLog)
	if err != nil {
		log.Fatalf("Failed to read %v: %v", filePath, err)
	}

	channels := make([]channelManifest, len(info.Channels))
	for i, ch := range info.Channels {
		channels[i] = channelManifest{Mass: ch.Mass, Target: ch.Target}
	}

	out := manifest{
		File:     filePath,
		Run:      info.Metadata.Run,
		FOVID:    info.Metadata.FOVID(),
		FOVName:  info.Metadata.FOVName,
		Folder:   info.Metadata.Folder(),
		Aperture: info.Metadata.Aperture(),
		SizeUM:   info.Metadata.Size,
		Channels: channels,
		Warnings: info.Warnings,
	}
	if !info.Metadata.Date.IsZero() {
		out.Date = info.Metadata.Date.Format(mibiimage.DateFormat)
	}

	encoded, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		log.Fatalf("Failed to encode manifest: %v", err)
	}
	fmt.Println(string(encoded))
}

func parseMasses(list string) ([]int, error) {
	result := []int{}
	for _, m := range splitList(list) {
		mass, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("invalid mass %q: %v", m, err)
		}
		result = append(result, mass)
	}
	return result, nil
}

func splitList(list string) []string {
	if len(list) <= 0 {
		return nil
	}
	parts := strings.Split(list, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
