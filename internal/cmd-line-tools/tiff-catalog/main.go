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

// Scans a directory or S3 prefix of containers and writes a catalog
// summary document next to them.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/ionpath/mibi-core/catalog"
	"github.com/ionpath/mibi-core/core/awsutil"
	"github.com/ionpath/mibi-core/core/fileaccess"
	"github.com/ionpath/mibi-core/core/logger"
	"github.com/ionpath/mibi-core/core/timestamper"
)

var t0 = time.Now().UnixMilli()

var configPath string

func main() {
	fmt.Printf("Started: %v\n", time.Now().String())

	flag.StringVar(&configPath, "config", "", "Catalog config YAML file")
	flag.Parse()

	if len(configPath) <= 0 {
		log.Fatalf("Parameter: config was empty")
	}

	cfg, err := catalog.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	iLog := &logger.StdOutLogger{}
	iLog.SetLogLevel(logger.LogInfo)

	fs, err := makeFileAccess(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	summary, err := catalog.Scan(fs, cfg.Root, cfg.Prefix, &timestamper.UnixTimeNowStamper{}, iLog)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	if err := catalog.WriteSummary(fs, cfg.Root, cfg.SummaryPath, &summary); err != nil {
		log.Fatalf("Failed to write summary: %v", err)
	}

	fmt.Printf("Wrote %v container entries to %v, took %vms\n",
		len(summary.Containers), cfg.SummaryPath, time.Now().UnixMilli()-t0)
}

// makeFileAccess - local file system unless the config names an S3 region,
// in which case Root is treated as a bucket
func makeFileAccess(cfg *catalog.Config) (fileaccess.FileAccess, error) {
	if len(cfg.S3Region) <= 0 {
		return &fileaccess.FSAccess{}, nil
	}

	sess, err := awsutil.GetSessionWithRegion(cfg.S3Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}
	s3svc, err := awsutil.GetS3(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS S3 service: %v", err)
	}
	s3Access := fileaccess.MakeS3Access(s3svc)
	return &s3Access, nil
}
