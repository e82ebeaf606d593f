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

// Digital Surface Model handling: a directory of dated GeoTIFFs forms the
// catalog, missions pick the most recent DSM acquired on or before their
// flight date, and ground elevation is sampled as the median of a small
// window around the photo position
package dsm

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lefoai/footprints/core/logger"
)

// Asset - one DSM raster and the acquisition date parsed from its file name
type Asset struct {
	Path string
	Date time.Time
}

// ErrNoDSM - no catalog entry exists on or before the mission date. This is
// a hard failure for the mission (we never sample a DSM captured after the
// flight, the canopy may have changed)
type ErrNoDSM struct {
	MissionDate time.Time
}

func (e ErrNoDSM) Error() string {
	return fmt.Sprintf("no DSM available on or before mission date %v", e.MissionDate.Format("2006-01-02"))
}

var dsmDateRegex = regexp.MustCompile(`\d{8}`)

func isRasterName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".tif" || ext == ".tiff"
}

// ScanCatalog - finds all .tif/.tiff files in a directory that carry a
// parseable YYYYMMDD date in their name. Files without one are skipped with
// a warning. Returns an error if the directory can't be read at all
func ScanCatalog(dsmDir string, log logger.ILogger) ([]Asset, error) {
	entries, err := os.ReadDir(dsmDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read DSM directory %v: %w", dsmDir, err)
	}

	catalog := []Asset{}
	for _, entry := range entries {
		if entry.IsDir() || !isRasterName(entry.Name()) {
			continue
		}

		dateStr := dsmDateRegex.FindString(entry.Name())
		if dateStr == "" {
			log.Warnf("Skipping %v: no YYYYMMDD date pattern found", entry.Name())
			continue
		}

		date, err := time.Parse("20060102", dateStr)
		if err != nil {
			log.Warnf("Skipping %v: could not parse date from \"%v\"", entry.Name(), dateStr)
			continue
		}

		catalog = append(catalog, Asset{Path: filepath.Join(dsmDir, entry.Name()), Date: date})
		log.Infof("  Found DSM: %v (date: %v)", entry.Name(), date.Format("2006-01-02"))
	}

	return catalog, nil
}

// SelectClosest - the catalog entry with the maximum date satisfying
// date <= missionDate. When several share that date the lexicographically
// first file name wins, so re-runs are deterministic regardless of
// directory iteration order
func SelectClosest(missionDate time.Time, catalog []Asset) (Asset, error) {
	valid := []Asset{}
	for _, asset := range catalog {
		if !asset.Date.After(missionDate) {
			valid = append(valid, asset)
		}
	}

	if len(valid) == 0 {
		return Asset{}, ErrNoDSM{MissionDate: missionDate}
	}

	sort.Slice(valid, func(i, j int) bool {
		if !valid[i].Date.Equal(valid[j].Date) {
			return valid[i].Date.After(valid[j].Date)
		}
		return filepath.Base(valid[i].Path) < filepath.Base(valid[j].Path)
	})

	return valid[0], nil
}
