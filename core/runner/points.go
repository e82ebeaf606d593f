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

package runner

import (
	"path"
	"sync"

	"github.com/lefoai/footprints/api/services"
	"github.com/lefoai/footprints/core/gpkg"
	"github.com/lefoai/footprints/core/imagestore"
)

// pointKey - identity of a waypoint point for dedup. A point is the same
// point if its mission, waypoint identifier and wide photo URL all match
type pointKey struct {
	missionId string
	pointId   string
	wideURL   string
}

func keyOf(rec gpkg.PointRecord) pointKey {
	return pointKey{missionId: rec.MissionId, pointId: rec.PointId, wideURL: rec.WideURL}
}

// PointsJob - builds the waypoint photo-position layer. Runs are
// idempotent: waypoints already present in the existing layer are not
// re-fetched, and merged output never contains duplicates
type PointsJob struct {
	Svcs       *services.Services
	Store      *imagestore.ImageStore
	Exif       IExifReader
	MaxWorkers int
}

// Run - collects photo positions for every mission waypoint not already in
// the existing layer. Returns only the NEW records, merge with
// MergePoints before writing
func (j *PointsJob) Run(projectQualifier string, existing []gpkg.PointRecord) ([]gpkg.PointRecord, error) {
	seen := map[pointKey]bool{}
	for _, rec := range existing {
		seen[keyOf(rec)] = true
	}

	folders, err := j.Store.ListMissionFolders(projectQualifier)
	if err != nil {
		return nil, err
	}
	j.Svcs.Log.Infof("Found %v mission folders matching \"%v\"", len(folders), projectQualifier)

	type pointItem struct {
		missionId string
		pointId   string
		zoomKey   string
		wideKey   string
	}

	items := []pointItem{}
	for _, folder := range folders {
		images, err := j.Store.ListMissionImages(folder)
		if err != nil {
			j.Svcs.Log.Errorf("Failed to list images for mission %v: %v", folder, err)
			continue
		}

		newInMission := 0
		for _, zoomKey := range images.Zoom {
			identifier := imagestore.PairIdentifier(zoomKey)
			wideKey, found := imagestore.FindWidePartner(images.Wide, identifier)
			if !found {
				j.Svcs.Log.Warnf("Could not find matching wide photo for %v with identifier %v", zoomKey, identifier)
				continue
			}

			key := pointKey{missionId: folder, pointId: identifier, wideURL: j.Store.ImageURL(wideKey)}
			if seen[key] {
				continue
			}

			items = append(items, pointItem{missionId: folder, pointId: identifier, zoomKey: zoomKey, wideKey: wideKey})
			newInMission++
		}

		if newInMission == 0 && len(images.Zoom) > 0 {
			j.Svcs.Log.Infof("Mission %v: all %v points already present, skipping", folder, len(images.Zoom))
		} else {
			j.Svcs.Log.Infof("Mission %v: %v new waypoints to process", folder, newInMission)
		}
	}

	workers := j.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	records := []gpkg.PointRecord{}

	queue := make(chan pointItem, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				wideURL := j.Store.ImageURL(item.wideKey)

				wideData, err := j.Svcs.Fetch.GetBytes(wideURL)
				if err != nil {
					j.Svcs.Log.Warnf("SKIP %v (failed to fetch wide image: %v)", path.Base(item.zoomKey), err)
					continue
				}

				pos, err := j.Exif.GeoPosition(wideData)
				if err != nil {
					j.Svcs.Log.Warnf("SKIP %v (no GPS data in wide image: %v)", path.Base(item.zoomKey), err)
					continue
				}

				rec := gpkg.PointRecord{
					MissionId: item.missionId,
					PointId:   item.pointId,
					WideURL:   wideURL,
					ZoomURL:   j.Store.ImageURL(item.zoomKey),
					Longitude: pos.Longitude,
					Latitude:  pos.Latitude,
				}

				mu.Lock()
				records = append(records, rec)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	j.Svcs.Log.Infof("Collected %v new waypoint points", len(records))
	return records, nil
}

// MergePoints - existing records first, then new ones, dropping anything
// whose (mission, point, wide URL) identity was already seen
func MergePoints(existing []gpkg.PointRecord, fresh []gpkg.PointRecord) []gpkg.PointRecord {
	seen := map[pointKey]bool{}
	merged := []gpkg.PointRecord{}

	for _, rec := range append(append([]gpkg.PointRecord{}, existing...), fresh...) {
		key := keyOf(rec)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, rec)
	}

	return merged
}
