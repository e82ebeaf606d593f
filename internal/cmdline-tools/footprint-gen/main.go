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
	"github.com/lefoai/footprints/core/dsm"
	"github.com/lefoai/footprints/core/footprint"
	"github.com/lefoai/footprints/core/gpkg"
	"github.com/lefoai/footprints/core/imagestore"
	"github.com/lefoai/footprints/core/logger"
	"github.com/lefoai/footprints/core/projection"
	"github.com/lefoai/footprints/core/runner"
)

func main() {
	fmt.Println("===================================")
	fmt.Println("=  Aerial footprint generator     =")
	fmt.Println("===================================")

	cfg, err := config.Init()
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	if err = os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Printf("Failed to create output directory %v: %v\n", cfg.OutputDir, err)
		os.Exit(1)
	}

	var log logger.ILogger
	runLog, err := logger.MakeRunFileLogger(cfg.OutputDir, "footprint-gen", cfg.ProjectQualifier)
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

	log.Infof("Project: %v, bucket: %v", cfg.ProjectQualifier, cfg.ImageBucket)
	log.Infof("Camera: sensor width %.2fmm, focal length %.2fmm", cfg.SensorWidthMM, cfg.FocalLengthMM)
	log.Infof("Output: EPSG:%v, %v, %v workers", cfg.OutputEPSG, cfg.CropDescription(), cfg.MaxWorkers)

	svcs, err := services.InitServices(cfg, log)
	if err != nil {
		fatal(log, "Failed to initialise services: %v", err)
	}

	catalog, err := dsm.ScanCatalog(cfg.DSMDir, log)
	if err != nil {
		fatal(log, "%v", err)
	}
	if len(catalog) == 0 {
		fatal(log, "No valid DSM files found in %v", cfg.DSMDir)
	}
	log.Infof("DSM catalog: %v rasters in %v", len(catalog), cfg.DSMDir)

	projector, err := projection.NewGodalProjector(cfg.OutputEPSG)
	if err != nil {
		fatal(log, "%v", err)
	}
	defer projector.Close()

	job := runner.FootprintJob{
		Svcs:       svcs,
		Store:      imagestore.NewImageStore(svcs.S3, cfg.ImageBucket, cfg.ImageEndpoint),
		Catalog:    catalog,
		Sampler:    dsm.GodalSampler{},
		Projector:  projector,
		Exif:       runner.ExifReader{},
		Camera:     footprint.CameraModel{SensorWidthMM: cfg.SensorWidthMM, FocalLengthMM: cfg.FocalLengthMM},
		Mode:       cfg.CropMode(),
		MaxWorkers: cfg.MaxWorkers,
	}

	records, summary, err := job.Run(cfg.ProjectQualifier)
	if err != nil {
		fatal(log, "Run failed: %v", err)
	}

	if len(records) == 0 {
		fatal(log, "No footprints were produced, not writing an output layer")
	}

	outPath := filepath.Join(cfg.OutputDir, cfg.OutputName)
	if fixed := gpkg.EnsureGPKGExt(outPath); fixed != outPath {
		log.Infof("Output file renamed to %v (.gpkg extension enforced)", filepath.Base(fixed))
		outPath = fixed
	}
	if err = gpkg.WriteFootprints(outPath, cfg.OutputEPSG, records); err != nil {
		fatal(log, "%v", err)
	}

	log.Infof("Wrote %v footprints from %v missions to %v", len(records), summary.Missions, outPath)
	sentry.Flush(2 * time.Second)
}

func fatal(log logger.ILogger, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Errorf("%v", msg)
	sentry.CaptureMessage(msg)
	sentry.Flush(2 * time.Second)
	os.Exit(1)
}
