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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/getsentry/sentry-go"

	"github.com/lefoai/footprints/api/config"
	"github.com/lefoai/footprints/api/services"
	"github.com/lefoai/footprints/core/gpkg"
	"github.com/lefoai/footprints/core/imagestore"
	"github.com/lefoai/footprints/core/logger"
	"github.com/lefoai/footprints/core/runner"
)

func main() {
	fmt.Println("===================================")
	fmt.Println("=  Waypoint photo point builder   =")
	fmt.Println("===================================")

	cfg, err := config.InitPoints()
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	if err = os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Printf("Failed to create output directory %v: %v\n", cfg.OutputDir, err)
		os.Exit(1)
	}

	var log logger.ILogger
	runLog, err := logger.MakeRunFileLogger(cfg.OutputDir, "waypoint-points", cfg.ProjectQualifier)
	if err != nil {
		fmt.Printf("WARNING: Failed to create run log files, logging to stdout. Error was: \"%v\"\n", err)
		log = &logger.StdOutLogger{}
	} else {
		defer runLog.Close()
		log = runLog
	}

	if err = sentry.Init(sentry.ClientOptions{
		Dsn:     cfg.SentryEndpoint,
		Release: services.ToolVersion,
	}); err != nil {
		log.Errorf("Sentry initialization failed: %v", err)
	}

	godal.RegisterAll()

	svcs, err := services.InitServices(cfg, log)
	if err != nil {
		fatal(log, "Failed to initialise services: %v", err)
	}

	outPath := gpkg.EnsureGPKGExt(filepath.Join(cfg.OutputDir, cfg.OutputName))

	existing := []gpkg.PointRecord{}
	if gpkg.Exists(outPath) {
		existing, err = gpkg.ReadPoints(outPath, log)
		if err != nil {
			fatal(log, "%v", err)
		}
		log.Infof("Loaded %v existing points from %v", len(existing), outPath)
	} else {
		log.Infof("No existing points layer found. Will create a new one.")
	}

	job := runner.PointsJob{
		Svcs:       svcs,
		Store:      imagestore.NewImageStore(svcs.S3, cfg.ImageBucket, cfg.ImageEndpoint),
		Exif:       runner.ExifReader{},
		MaxWorkers: cfg.MaxWorkers,
	}

	fresh, err := job.Run(cfg.ProjectQualifier, existing)
	if err != nil {
		fatal(log, "Run failed: %v", err)
	}

	merged := runner.MergePoints(existing, fresh)
	if len(merged) == 0 {
		fatal(log, "No waypoint points were produced, not writing an output layer")
	}
	if len(fresh) == 0 {
		log.Infof("No new waypoints found, layer left unchanged at %v", outPath)
		sentry.Flush(2 * time.Second)
		return
	}

	// The whole merged set is rewritten, GDAL can't append in place here.
	// The atomic write keeps the accumulated layer if the rewrite fails
	if err = gpkg.WritePointsAtomic(outPath, merged); err != nil {
		fatal(log, "%v", err)
	}

	log.Infof("Wrote %v points (%v new) to %v", len(merged), len(fresh), outPath)
	sentry.Flush(2 * time.Second)
}

func fatal(log logger.ILogger, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Errorf("%v", msg)
	sentry.CaptureMessage(msg)
	sentry.Flush(2 * time.Second)
	os.Exit(1)
}
