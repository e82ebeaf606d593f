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

// Orchestration of a footprint generation run: list mission folders, match
// each mission to a DSM, then fan the per-image work (EXIF fetch, DSM
// sample, geometry) out across a bounded worker pool. Per-image failures
// are warnings, the run carries on
package runner

import (
	"path"
	"path/filepath"
	"sync"

	"github.com/lefoai/footprints/api/services"
	"github.com/lefoai/footprints/core/dsm"
	"github.com/lefoai/footprints/core/exifgeo"
	"github.com/lefoai/footprints/core/footprint"
	"github.com/lefoai/footprints/core/imagestore"
	"github.com/lefoai/footprints/core/mission"
	"github.com/lefoai/footprints/core/projection"
)

// DSMSampleBufferM - half-size in meters of the window the ground
// elevation median is taken over
const DSMSampleBufferM = 0.5

// IExifReader - EXIF decoding behind an interface so orchestration tests
// don't need to synthesize real JPEG bytes
type IExifReader interface {
	GeoPosition(imageData []byte) (exifgeo.GeoPosition, error)
	PixelSize(imageData []byte) (width int, height int, err error)
}

// ExifReader - the real decoder
type ExifReader struct {
}

func (ExifReader) GeoPosition(imageData []byte) (exifgeo.GeoPosition, error) {
	pos, err := exifgeo.ExtractGeoPosition(imageData)
	if err != nil {
		return exifgeo.GeoPosition{}, err
	}
	return *pos, nil
}

func (ExifReader) PixelSize(imageData []byte) (int, int, error) {
	return exifgeo.ExtractPixelSize(imageData)
}

// MissionSummary - per-mission counts reported at completion
type MissionSummary struct {
	MissionId         string
	ImagesFound       int
	FootprintsCreated int
	Skipped           int
	Errors            int
}

// RunSummary - whole-run counts and timing
type RunSummary struct {
	Missions          int
	ImagesFound       int
	FootprintsCreated int
	Skipped           int
	Errors            int
	StartUnixSec      int64
	EndUnixSec        int64

	PerMission []MissionSummary
}

// FootprintJob - one configured run of the footprint generator. All
// collaborators are interfaces (or carry them) so tests can drive the whole
// orchestration with mocks
type FootprintJob struct {
	Svcs      *services.Services
	Store     *imagestore.ImageStore
	Catalog   []dsm.Asset
	Sampler   dsm.ISampler
	Projector projection.IProjector
	Exif      IExifReader

	Camera     footprint.CameraModel
	Mode       footprint.CropMode
	MaxWorkers int
}

// workItem - one wide/zoom pair to process
type workItem struct {
	missionId string
	dsmAsset  dsm.Asset
	zoomKey   string
	wideKey   string
}

// Run - processes every matching mission and returns all footprint records
// produced. Only listing failures are returned as errors, per-image and
// per-mission problems are logged and counted
func (j *FootprintJob) Run(projectQualifier string) ([]footprint.Record, RunSummary, error) {
	summary := RunSummary{StartUnixSec: j.Svcs.TimeStamper.GetTimeNowSec()}

	folders, err := j.Store.ListMissionFolders(projectQualifier)
	if err != nil {
		return nil, summary, err
	}

	j.Svcs.Log.Infof("Found %v mission folders matching \"%v\"", len(folders), projectQualifier)

	allRecords := []footprint.Record{}
	for _, folder := range folders {
		records, missionSummary := j.processMission(folder)
		allRecords = append(allRecords, records...)

		summary.Missions++
		summary.ImagesFound += missionSummary.ImagesFound
		summary.FootprintsCreated += missionSummary.FootprintsCreated
		summary.Skipped += missionSummary.Skipped
		summary.Errors += missionSummary.Errors
		summary.PerMission = append(summary.PerMission, missionSummary)

		j.Svcs.Log.Infof("Mission %v: %v images, %v footprints, %v skipped, %v errors",
			folder, missionSummary.ImagesFound, missionSummary.FootprintsCreated, missionSummary.Skipped, missionSummary.Errors)
	}

	summary.EndUnixSec = j.Svcs.TimeStamper.GetTimeNowSec()
	j.Svcs.Log.Infof("Run complete in %vsec: %v missions, %v images, %v footprints, %v skipped, %v errors",
		summary.EndUnixSec-summary.StartUnixSec, summary.Missions, summary.ImagesFound,
		summary.FootprintsCreated, summary.Skipped, summary.Errors)

	return allRecords, summary, nil
}

func (j *FootprintJob) processMission(folder string) ([]footprint.Record, MissionSummary) {
	summary := MissionSummary{MissionId: folder}

	id, err := mission.ParseMissionId(folder)
	if err != nil {
		j.Svcs.Log.Warnf("SKIP mission %v: %v", folder, err)
		summary.Errors++
		return nil, summary
	}

	asset, err := dsm.SelectClosest(id.Date(), j.Catalog)
	if err != nil {
		j.Svcs.Log.Warnf("SKIP mission %v: %v", folder, err)
		summary.Errors++
		return nil, summary
	}
	daysBefore := int(id.Date().Sub(asset.Date).Hours() / 24)
	j.Svcs.Log.Infof("Mission %v using DSM %v (%v days before mission)", folder, filepath.Base(asset.Path), daysBefore)

	images, err := j.Store.ListMissionImages(folder)
	if err != nil {
		j.Svcs.Log.Errorf("Failed to list images for mission %v: %v", folder, err)
		summary.Errors++
		return nil, summary
	}
	summary.ImagesFound = len(images.Zoom)

	if len(images.Wide) != len(images.Zoom) {
		j.Svcs.Log.Warnf("Mission %v has %v wide but %v zoom photos", folder, len(images.Wide), len(images.Zoom))
	}

	items := []workItem{}
	for _, zoomKey := range images.Zoom {
		identifier := imagestore.PairIdentifier(zoomKey)
		wideKey, found := imagestore.FindWidePartner(images.Wide, identifier)
		if !found {
			j.Svcs.Log.Warnf("SKIP %v (no wide photo for identifier %v)", zoomKey, identifier)
			summary.Skipped++
			continue
		}
		items = append(items, workItem{missionId: folder, dsmAsset: asset, zoomKey: zoomKey, wideKey: wideKey})
	}

	records := j.processItems(items, &summary)
	return records, summary
}

// processItems - bounded worker pool over the wide/zoom pairs. Results and
// summary counts are appended under one mutex
func (j *FootprintJob) processItems(items []workItem, summary *MissionSummary) []footprint.Record {
	workers := j.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	records := []footprint.Record{}

	queue := make(chan workItem, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				recs, skipped := j.processItem(item)

				mu.Lock()
				records = append(records, recs...)
				summary.FootprintsCreated += len(recs)
				if skipped {
					summary.Skipped++
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return records
}

// processItem - the per-image pipeline. Returns the records produced and
// whether the image was skipped. Every skip is logged with a reason
func (j *FootprintJob) processItem(item workItem) ([]footprint.Record, bool) {
	wideURL := j.Store.ImageURL(item.wideKey)
	zoomURL := j.Store.ImageURL(item.zoomKey)

	wideData, err := j.Svcs.Fetch.GetBytes(wideURL)
	if err != nil {
		j.Svcs.Log.Warnf("SKIP %v (failed to fetch wide image: %v)", item.zoomKey, err)
		return nil, true
	}

	pos, err := j.Exif.GeoPosition(wideData)
	if err != nil {
		j.Svcs.Log.Warnf("SKIP %v (no GPS data in wide image: %v)", item.zoomKey, err)
		return nil, true
	}
	if pos.Altitude == nil {
		j.Svcs.Log.Warnf("SKIP %v (no altitude in wide image EXIF)", item.zoomKey)
		return nil, true
	}

	zoomData, err := j.Svcs.Fetch.GetBytes(zoomURL)
	if err != nil {
		j.Svcs.Log.Warnf("SKIP %v (failed to fetch zoom image: %v)", item.zoomKey, err)
		return nil, true
	}

	widthPx, heightPx, err := j.Exif.PixelSize(zoomData)
	if err != nil {
		j.Svcs.Log.Warnf("SKIP %v (no dimensions in EXIF: %v)", item.zoomKey, err)
		return nil, true
	}

	dsmMedian, err := j.Sampler.SampleMedian(item.dsmAsset.Path, pos.Longitude, pos.Latitude, DSMSampleBufferM)
	if err != nil {
		j.Svcs.Log.Warnf("SKIP %v (DSM sampling failed: %v)", item.zoomKey, err)
		return nil, true
	}

	centerX, centerY, err := j.Projector.Project(pos.Longitude, pos.Latitude)
	if err != nil {
		j.Svcs.Log.Warnf("SKIP %v (projection failed: %v)", item.zoomKey, err)
		return nil, true
	}

	photo := footprint.Photo{
		MissionId:     item.missionId,
		ImageName:     path.Base(item.zoomKey),
		ImageURL:      zoomURL,
		WideURL:       wideURL,
		Latitude:      pos.Latitude,
		Longitude:     pos.Longitude,
		AltitudeM:     *pos.Altitude,
		DSMFile:       filepath.Base(item.dsmAsset.Path),
		DSMMedianM:    dsmMedian,
		ImageWidthPx:  widthPx,
		ImageHeightPx: heightPx,
	}

	recs, err := footprint.BuildRecords(photo, j.Camera, j.Mode, centerX, centerY)
	if err != nil {
		j.Svcs.Log.Warnf("SKIP %v (%v)", item.zoomKey, err)
		return nil, true
	}

	// Tile dimensions larger than the image floor-divide to an empty grid
	if len(recs) == 0 {
		j.Svcs.Log.Warnf("SKIP %v (no footprints for %vx%vpx image with this crop mode)", item.zoomKey, widthPx, heightPx)
		return nil, true
	}

	j.Svcs.Log.Infof("OK %v (H=%.1fm, GSD=%.3fm, %v footprints)", item.zoomKey, recs[0].FlightHeightM, recs[0].GSDM, len(recs))
	return recs, false
}
