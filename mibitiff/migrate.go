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
	"fmt"
	"strings"

	"github.com/ionpath/mibi-core/mibiimage"
)

// migrateDescription - upgrades a parsed page description written by an
// older software version to the current schema, in place. The rules run in
// a fixed order and are idempotent, so re-reading an already migrated
// description changes nothing. Returns a warning per field that was
// rewritten; an aperture value outside the known enumeration is a hard
// failure rather than something to carry forward verbatim.
func migrateDescription(desc map[string]interface{}) ([]string, error) {
	warnings := []string{}

	// Early versions stored the fov name under mibi.description. The key is
	// only consumed when it fills a missing fov_name; a description next to
	// an explicit fov_name is modern free text and stays put.
	if oldName, ok := desc["mibi.description"]; ok {
		if _, hasName := desc["mibi.fov_name"]; !hasName {
			desc["mibi.fov_name"] = oldName
			delete(desc, "mibi.description")
		}
	}

	folder, hasFolder := stringField(desc, "mibi.folder")
	fovID, hasFOVID := stringField(desc, "mibi.fov_id")

	if hasFolder && !hasFOVID {
		derived := strings.SplitN(folder, "/", 2)[0]
		desc["mibi.fov_id"] = derived
		warnings = append(warnings,
			fmt.Sprintf("fov_id was missing and has been set from folder: %v", derived))
	} else if hasFOVID && !hasFolder && strings.HasPrefix(fovID, "fov-") {
		desc["mibi.folder"] = fovID
		warnings = append(warnings,
			fmt.Sprintf("folder was missing and has been set from fov_id: %v", fovID))
	}

	if aperture, ok := stringField(desc, "mibi.aperture"); ok {
		code, err := mibiimage.NormalizeAperture(aperture)
		if err != nil {
			return warnings, err
		}
		if code != aperture {
			desc["mibi.aperture"] = code
			warnings = append(warnings,
				fmt.Sprintf("aperture %v has been normalized to %v", aperture, code))
		}
	}

	return warnings, nil
}

func stringField(desc map[string]interface{}, key string) (string, bool) {
	v, ok := desc[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || len(s) <= 0 {
		return "", false
	}
	return s, true
}
