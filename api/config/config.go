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

// Tool configuration, read from command line flags with env var overrides
package config

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/lefoai/footprints/core/footprint"
)

const DefaultMaxWorkers = 8
const DefaultImageEndpoint = "https://object-arbutus.cloud.computecanada.ca"

// Config for the footprint generation tools. Every field can be overridden
// with a FOOTPRINTS_CONFIG_<FieldName> env var, handy on cluster batch
// nodes where editing the submit script is easier than the command line
type Config struct {
	ProjectQualifier string
	ImageEndpoint    string
	ImageBucket      string
	AWSRegion        string

	DSMDir string

	SensorWidthMM float64
	FocalLengthMM float64

	OutputEPSG int
	OutputDir  string
	OutputName string

	CenterCropPx     int
	TileCropWidthPx  int
	TileCropHeightPx int

	MaxWorkers int

	SentryEndpoint string
}

// Init - parses command line flags for the footprint generator. Validation
// errors are returned rather than exiting so main controls the exit code
func Init() (Config, error) {
	projectQualifier := flag.String("project-qualifier", "", "Project name fragment used to select mission folders (required)")
	imageEndpoint := flag.String("endpoint", DefaultImageEndpoint, "S3-compatible endpoint holding mission imagery")
	imageBucket := flag.String("bucket", "", "Bucket holding mission folders (required)")
	awsRegion := flag.String("region", "us-east-1", "Region name to pass to the S3 client")
	dsmDir := flag.String("dsm-dir", "", "Directory of dated DSM GeoTIFFs (required)")
	sensorWidth := flag.Float64("sensor-width", 0, "Camera sensor width in mm (required)")
	focalLength := flag.Float64("focal-length", 0, "Camera focal length in mm (required)")
	crs := flag.String("crs", "", "Output CRS as EPSG code, eg EPSG:32618 (required)")
	outputDir := flag.String("output-dir", "", "Directory for output and log files (required)")
	output := flag.String("output", "", "Output GeoPackage file name (default <qualifier>_footprints.gpkg)")
	centerCrop := flag.Int("center-crop", 0, "Footprint covers only a centered square of this many pixels")
	tileCrop := flag.String("tile-crop", "", "Emit one footprint per WxH pixel tile, eg 1320x989")
	maxWorkers := flag.Int("max-workers", DefaultMaxWorkers, "Number of images processed in parallel")
	flag.Parse()

	cfg := Config{
		ProjectQualifier: *projectQualifier,
		ImageEndpoint:    *imageEndpoint,
		ImageBucket:      *imageBucket,
		AWSRegion:        *awsRegion,
		DSMDir:           *dsmDir,
		SensorWidthMM:    *sensorWidth,
		FocalLengthMM:    *focalLength,
		OutputDir:        *outputDir,
		OutputName:       *output,
		CenterCropPx:     *centerCrop,
		MaxWorkers:       *maxWorkers,
		SentryEndpoint:   os.Getenv("SENTRY_ENDPOINT"),
	}

	applyEnvOverrides(&cfg)

	if err := requireStrings(map[string]string{
		"project-qualifier": cfg.ProjectQualifier,
		"image-bucket":      cfg.ImageBucket,
		"dsm-dir":           cfg.DSMDir,
		"output-dir":        cfg.OutputDir,
	}); err != nil {
		return cfg, err
	}
	if cfg.SensorWidthMM <= 0 || cfg.FocalLengthMM <= 0 {
		return cfg, fmt.Errorf("sensor-width and focal-length must be positive")
	}

	epsg, err := ParseCRS(*crs)
	if err != nil {
		return cfg, err
	}
	cfg.OutputEPSG = epsg

	if len(*tileCrop) > 0 {
		w, h, err := ParseTileCrop(*tileCrop)
		if err != nil {
			return cfg, err
		}
		cfg.TileCropWidthPx = w
		cfg.TileCropHeightPx = h
	}

	if cfg.CenterCropPx > 0 && cfg.TileCropWidthPx > 0 {
		return cfg, fmt.Errorf("center-crop and tile-crop are mutually exclusive")
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if len(cfg.OutputName) == 0 {
		cfg.OutputName = fmt.Sprintf("%v_footprints.gpkg", cfg.ProjectQualifier)
	}

	return cfg, nil
}

// InitPoints - the points tool shares the image store flags but none of the
// camera/DSM ones
func InitPoints() (Config, error) {
	projectQualifier := flag.String("project-qualifier", "", "Project name fragment used to select mission folders (required)")
	imageEndpoint := flag.String("endpoint", DefaultImageEndpoint, "S3-compatible endpoint holding mission imagery")
	imageBucket := flag.String("bucket", "", "Bucket holding mission folders (required)")
	awsRegion := flag.String("region", "us-east-1", "Region name to pass to the S3 client")
	outputDir := flag.String("output-dir", "", "Directory for output and log files (required)")
	output := flag.String("points-layer", "", "Points GeoPackage file name (default <qualifier>_wpt.gpkg)")
	maxWorkers := flag.Int("max-workers", DefaultMaxWorkers, "Number of images processed in parallel")
	flag.Parse()

	cfg := Config{
		ProjectQualifier: *projectQualifier,
		ImageEndpoint:    *imageEndpoint,
		ImageBucket:      *imageBucket,
		AWSRegion:        *awsRegion,
		OutputDir:        *outputDir,
		OutputName:       *output,
		MaxWorkers:       *maxWorkers,
		SentryEndpoint:   os.Getenv("SENTRY_ENDPOINT"),
	}

	applyEnvOverrides(&cfg)

	if err := requireStrings(map[string]string{
		"project-qualifier": cfg.ProjectQualifier,
		"image-bucket":      cfg.ImageBucket,
		"output-dir":        cfg.OutputDir,
	}); err != nil {
		return cfg, err
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if len(cfg.OutputName) == 0 {
		cfg.OutputName = fmt.Sprintf("%v_wpt.gpkg", cfg.ProjectQualifier)
	}

	return cfg, nil
}

// CropDescription - human readable crop mode for the startup echo
func (c Config) CropDescription() string {
	switch mode := c.CropMode().(type) {
	case footprint.CropCenter:
		return fmt.Sprintf("center crop %vpx", mode.SizePx)
	case footprint.CropTiles:
		return fmt.Sprintf("tiles %vx%vpx", mode.TileWidthPx, mode.TileHeightPx)
	}
	return "full image"
}

// CropMode - the geometry mode the flags selected. Callers must have
// checked the mutual exclusion already (Init does)
func (c Config) CropMode() footprint.CropMode {
	if c.TileCropWidthPx > 0 && c.TileCropHeightPx > 0 {
		return footprint.CropTiles{TileWidthPx: c.TileCropWidthPx, TileHeightPx: c.TileCropHeightPx}
	}
	if c.CenterCropPx > 0 {
		return footprint.CropCenter{SizePx: c.CenterCropPx}
	}
	return footprint.CropFull{}
}

// ParseCRS - reads an EPSG code from strings like "EPSG:32618" or "32618"
func ParseCRS(crs string) (int, error) {
	trimmed := strings.TrimSpace(crs)
	if len(trimmed) == 0 {
		return 0, fmt.Errorf("crs is required, eg EPSG:32618")
	}

	numeric := trimmed
	if colonIdx := strings.Index(trimmed, ":"); colonIdx >= 0 {
		if !strings.EqualFold(trimmed[0:colonIdx], "EPSG") {
			return 0, fmt.Errorf("unsupported CRS authority in \"%v\", only EPSG codes are accepted", crs)
		}
		numeric = trimmed[colonIdx+1:]
	}

	code, err := strconv.Atoi(numeric)
	if err != nil || code <= 0 {
		return 0, fmt.Errorf("failed to parse EPSG code from \"%v\"", crs)
	}

	return code, nil
}

// ParseTileCrop - reads "WxH" pixel tile dimensions
func ParseTileCrop(tileCrop string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(tileCrop)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("tile-crop must be WIDTHxHEIGHT, eg 1320x989, got \"%v\"", tileCrop)
	}

	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("tile-crop dimensions must be positive integers, got \"%v\"", tileCrop)
	}

	return w, h, nil
}

func requireStrings(required map[string]string) error {
	// Deterministic order for the error message
	names := maps.Keys(required)
	slices.Sort(names)

	missing := []string{}
	for _, name := range names {
		if len(strings.TrimSpace(required[name])) == 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %v", strings.Join(missing, ", "))
	}
	return nil
}

// Env var overrides, eg FOOTPRINTS_CONFIG_MaxWorkers=16. Only string, int
// and float fields are supported, which covers everything in Config
func applyEnvOverrides(cfg *Config) {
	reflection := reflect.ValueOf(cfg).Elem()
	for i := 0; i < reflection.NumField(); i++ {
		fieldName := reflection.Type().Field(i).Name
		field := reflection.Field(i)

		val, present := os.LookupEnv(fmt.Sprintf("FOOTPRINTS_CONFIG_%s", fieldName))
		if !present {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(val)
		case reflect.Int:
			if parsed, err := strconv.Atoi(val); err == nil {
				field.SetInt(int64(parsed))
			} else {
				fmt.Printf("Could not cast value FOOTPRINTS_CONFIG_%s=%s to Int\n", fieldName, val)
			}
		case reflect.Float64:
			if parsed, err := strconv.ParseFloat(val, 64); err == nil {
				field.SetFloat(parsed)
			} else {
				fmt.Printf("Could not cast value FOOTPRINTS_CONFIG_%s=%s to Float\n", fieldName, val)
			}
		}
	}
}
