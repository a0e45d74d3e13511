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

// Builds browseable summaries of container collections. A run produces one
// container per field of view; the catalog walks a whole run directory (or
// S3 prefix), pulls the metadata out of each container without touching
// pixel data, and writes a single summary document.
package catalog

import (
	"sort"
	"strings"

	"github.com/ionpath/mibi-core/core/fileaccess"
	"github.com/ionpath/mibi-core/core/logger"
	"github.com/ionpath/mibi-core/core/timestamper"
	"github.com/ionpath/mibi-core/core/utils"
	"github.com/ionpath/mibi-core/mibitiff"
)

// ContainerEntry - one container in a catalog summary
type ContainerEntry struct {
	Path     string   `json:"path"`
	Run      string   `json:"run"`
	FOVID    string   `json:"fovId"`
	FOVName  string   `json:"fovName"`
	Channels []string `json:"channels"`
	Masses   []int    `json:"masses"`
	Warnings []string `json:"warnings,omitempty"`
}

// Summary - the catalog document for one scanned location
type Summary struct {
	Root          string           `json:"root"`
	Prefix        string           `json:"prefix"`
	GeneratedUnix int64            `json:"generatedUnixSec"`
	Containers    []ContainerEntry `json:"containers"`
	SkippedFiles  []string         `json:"skippedFiles,omitempty"`
}

// Scan - finds every container under root/prefix and summarizes it. Files
// that fail to parse are skipped and logged, not fatal, so one corrupt
// container can't hide a whole run.
func Scan(fs fileaccess.FileAccess, root string, prefix string,
	ts timestamper.ITimeStamper, log logger.ILogger) (Summary, error) {

	if log == nil {
		log = &logger.NullLogger{}
	}
	summary := Summary{
		Root:          root,
		Prefix:        prefix,
		GeneratedUnix: ts.GetTimeNowSec(),
		Containers:    []ContainerEntry{},
	}

	paths, err := fs.ListObjects(root, prefix)
	if err != nil {
		return summary, err
	}

	for _, path := range paths {
		if !strings.HasSuffix(path, ".tiff") {
			continue
		}
		data, err := fs.ReadObject(root, path)
		if err != nil {
			log.Errorf("failed to read %v: %v", path, err)
			summary.SkippedFiles = append(summary.SkippedFiles, path)
			continue
		}
		info, err := mibitiff.InfoBytes(data, mibitiff.InfoParams{}, log)
		if err != nil {
			log.Errorf("skipping %v: %v", path, err)
			summary.SkippedFiles = append(summary.SkippedFiles, path)
			continue
		}
		summary.Containers = append(summary.Containers, makeEntry(path, info))
	}

	sort.Slice(summary.Containers, func(i, j int) bool {
		return summary.Containers[i].Path < summary.Containers[j].Path
	})
	log.Infof("cataloged %v containers under %v/%v (%v skipped)",
		len(summary.Containers), root, prefix, len(summary.SkippedFiles))
	return summary, nil
}

func makeEntry(path string, info *mibitiff.ContainerInfo) ContainerEntry {
	entry := ContainerEntry{
		Path:     path,
		Run:      info.Metadata.Run,
		FOVID:    info.Metadata.FOVID(),
		FOVName:  info.Metadata.FOVName,
		Channels: []string{},
		Masses:   []int{},
		Warnings: info.Warnings,
	}
	for _, ch := range info.Channels {
		entry.Channels = append(entry.Channels, ch.Target)
		entry.Masses = append(entry.Masses, ch.Mass)
	}
	return entry
}

// WriteSummary - stores the summary document
func WriteSummary(fs fileaccess.FileAccess, root string, path string, summary *Summary) error {
	return fs.WriteJSON(root, path, summary)
}

// FindByTarget - the paths of cataloged containers carrying the given
// target channel
func FindByTarget(summary *Summary, target string) []string {
	paths := []string{}
	for _, entry := range summary.Containers {
		for _, ch := range entry.Channels {
			if ch == target {
				paths = append(paths, entry.Path)
				break
			}
		}
	}
	return paths
}

// FindByMass - the paths of cataloged containers carrying the given mass
func FindByMass(summary *Summary, mass int) []string {
	paths := []string{}
	for _, entry := range summary.Containers {
		for _, m := range entry.Masses {
			if m == mass {
				paths = append(paths, entry.Path)
				break
			}
		}
	}
	return paths
}

// TargetsOf - the canonical sorted union of targets across the catalog
func TargetsOf(summary *Summary) []string {
	seen := map[string]bool{}
	targets := []string{}
	for _, entry := range summary.Containers {
		for _, ch := range entry.Channels {
			if !seen[ch] {
				seen[ch] = true
				targets = append(targets, ch)
			}
		}
	}
	// Canonical channel ordering, same as container page order
	utils.SortChannelNames(targets)
	return targets
}
