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
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/lefoai/footprints/core/awsutil"
	"github.com/lefoai/footprints/core/exifgeo"
	"github.com/lefoai/footprints/core/gpkg"
	"github.com/lefoai/footprints/core/imagestore"
)

func TestPointsJobSkipsExisting(t *testing.T) {
	var mockS3 awsutil.MockS3Client
	defer func() {
		if err := mockS3.FinishTest(); err != nil {
			t.Errorf("%v", err)
		}
	}()

	folder := "20240101_bci_wptn_m3e"

	mockS3.ExpListObjectsV2Input = []s3.ListObjectsV2Input{
		{Bucket: aws.String(testBucket), Delimiter: aws.String("/")},
		{Bucket: aws.String(testBucket), Prefix: aws.String(folder + "/")},
	}
	mockS3.QueuedListObjectsV2Output = []*s3.ListObjectsV2Output{
		{
			IsTruncated:    aws.Bool(false),
			CommonPrefixes: []*s3.CommonPrefix{{Prefix: aws.String(folder + "/")}},
		},
		{
			IsTruncated: aws.Bool(false),
			Contents: []*s3.Object{
				{Key: aws.String(folder + "/DJI_0001.JPG")},
				{Key: aws.String(folder + "/DJI_0001zoom.JPG")}, // already in layer
				{Key: aws.String(folder + "/DJI_0002.JPG")},
				{Key: aws.String(folder + "/DJI_0002zoom.JPG")}, // new
			},
		},
	}

	fetcher := &mockFetcher{}
	exif := &mockExif{
		geo: map[string]exifgeo.GeoPosition{
			url(folder + "/DJI_0002.JPG"): {Latitude: 9.15, Longitude: -79.85},
		},
	}

	existing := []gpkg.PointRecord{
		{
			MissionId: folder,
			PointId:   "0001",
			WideURL:   url(folder + "/DJI_0001.JPG"),
			ZoomURL:   url(folder + "/DJI_0001zoom.JPG"),
			Longitude: -79.85,
			Latitude:  9.15,
		},
	}

	job := PointsJob{
		Svcs:       makeServices(fetcher),
		Store:      imagestore.NewImageStore(&mockS3, testBucket, testBase),
		Exif:       exif,
		MaxWorkers: 2,
	}

	fresh, err := job.Run("bci", existing)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(fresh) != 1 {
		t.Fatalf("Expected 1 new point, got %v", len(fresh))
	}
	if fresh[0].PointId != "0002" {
		t.Errorf("Expected new point 0002, got %v", fresh[0].PointId)
	}
	if fresh[0].Longitude != -79.85 || fresh[0].Latitude != 9.15 {
		t.Errorf("Unexpected point position: %+v", fresh[0])
	}

	// Only the new waypoint's wide photo was fetched
	if len(fetcher.fetched) != 1 || fetcher.fetched[0] != url(folder+"/DJI_0002.JPG") {
		t.Errorf("Unexpected fetches: %v", fetcher.fetched)
	}

	merged := MergePoints(existing, fresh)
	if len(merged) != 2 {
		t.Errorf("Expected 2 merged points, got %v", len(merged))
	}
}

func TestMergePointsDropsDuplicates(t *testing.T) {
	a := gpkg.PointRecord{MissionId: "m1", PointId: "0001", WideURL: "https://x/a.jpg"}
	b := gpkg.PointRecord{MissionId: "m1", PointId: "0002", WideURL: "https://x/b.jpg"}
	aDupe := gpkg.PointRecord{MissionId: "m1", PointId: "0001", WideURL: "https://x/a.jpg", Latitude: 1}

	merged := MergePoints([]gpkg.PointRecord{a, b}, []gpkg.PointRecord{aDupe, b})
	if len(merged) != 2 {
		t.Fatalf("Expected 2 points after merge, got %v", len(merged))
	}

	// Existing record wins over an incoming duplicate
	if merged[0].Latitude != 0 {
		t.Errorf("Expected existing record to be kept, got %+v", merged[0])
	}
}
