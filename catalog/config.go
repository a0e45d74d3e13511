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

package catalog

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ionpath/mibi-core/core/errortypes"
)

// Config - where a catalog run reads containers from and writes its
// summary to. Root is a local directory, or a bucket name when S3Region is
// set.
type Config struct {
	Root        string `yaml:"root"`
	Prefix      string `yaml:"prefix"`
	SummaryPath string `yaml:"summaryPath"`
	S3Region    string `yaml:"s3Region"`
}

// LoadConfig - reads and validates a catalog config file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errortypes.MakeValidationError("failed to parse config %v: %v", path, err)
	}
	if len(cfg.Root) <= 0 {
		return nil, errortypes.MakeValidationError("config %v is missing root", path)
	}
	if len(cfg.SummaryPath) <= 0 {
		return nil, errortypes.MakeValidationError("config %v is missing summaryPath", path)
	}
	return cfg, nil
}
