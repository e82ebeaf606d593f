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

package footprint

import (
	"fmt"
	"math"
	"testing"

	"github.com/paulmach/orb/planar"
)

var testCamera = CameraModel{SensorWidthMM: 6.4, FocalLengthMM: 29.9}

func testPhoto() Photo {
	return Photo{
		MissionId:     "20240101_site_wptX",
		ImageName:     "DJI_20240101120000_0001zoom.JPG",
		ImageURL:      "https://store.example.org/bucket/20240101_site_wptX/DJI_20240101120000_0001zoom.JPG",
		WideURL:       "https://store.example.org/bucket/20240101_site_wptX/DJI_20240101115957_0001.JPG",
		Latitude:      45.0,
		Longitude:     -73.0,
		AltitudeM:     150,
		DSMFile:       "dsm_20231201.tif",
		DSMMedianM:    100,
		ImageWidthPx:  5280,
		ImageHeightPx: 3956,
	}
}

func Example_buildRecordsFull() {
	records, err := BuildRecords(testPhoto(), testCamera, CropFull{}, 612500, 4984000)

	fmt.Printf("%v, records: %v\n", err, len(records))
	rec := records[0]
	fmt.Printf("H=%.1fm GSD=%.6fm\n", rec.FlightHeightM, rec.GSDM)
	fmt.Printf("footprint: %.2fx%.2fm, area %.2fm2\n", rec.WidthM, rec.HeightM, rec.AreaM2)
	fmt.Printf("ring: %v points, closed: %v\n", len(rec.Polygon[0]), rec.Polygon[0][0] == rec.Polygon[0][4])

	b := Bounds(rec)
	fmt.Printf("center: %.2f %.2f\n", (b.Min[0]+b.Max[0])/2, (b.Min[1]+b.Max[1])/2)

	// Output:
	// <nil>, records: 1
	// H=50.0m GSD=0.002027m
	// footprint: 10.70x8.02m, area 85.82m2
	// ring: 5 points, closed: true
	// center: 612500.00 4984000.00
}

func TestFlightHeight(t *testing.T) {
	h, err := FlightHeight(150, 100)
	if err != nil || h != 50 {
		t.Errorf("Expected height 50, got %v, %v", h, err)
	}

	_, err = FlightHeight(90, 100)
	below, ok := err.(ErrBelowGround)
	if !ok {
		t.Errorf("Expected ErrBelowGround, got %v", err)
	} else if below.FlightHeightM != -10 {
		t.Errorf("Expected height -10 in error, got %v", below.FlightHeightM)
	}

	// Zero height is also invalid
	if _, err = FlightHeight(100, 100); err == nil {
		t.Errorf("Expected error for zero flight height")
	}
}

func TestGSDScaling(t *testing.T) {
	gsd := GSD(testCamera, 50, 5280)

	// Doubling flight height doubles GSD
	if v := GSD(testCamera, 100, 5280); math.Abs(v-2*gsd) > 1e-12 {
		t.Errorf("Expected GSD to double with height, got %v vs %v", v, gsd)
	}

	// Doubling focal length halves GSD
	longLens := CameraModel{SensorWidthMM: testCamera.SensorWidthMM, FocalLengthMM: testCamera.FocalLengthMM * 2}
	if v := GSD(longLens, 50, 5280); math.Abs(v-gsd/2) > 1e-12 {
		t.Errorf("Expected GSD to halve with focal length, got %v vs %v", v, gsd)
	}
}

func TestBuildRecordsBelowGround(t *testing.T) {
	photo := testPhoto()
	photo.AltitudeM = 90

	records, err := BuildRecords(photo, testCamera, CropFull{}, 0, 0)
	if len(records) != 0 {
		t.Errorf("Expected no records for below-ground altitude")
	}
	if _, ok := err.(ErrBelowGround); !ok {
		t.Errorf("Expected ErrBelowGround, got %v", err)
	}
}

func TestBuildRecordsCenterCrop(t *testing.T) {
	records, err := BuildRecords(testPhoto(), testCamera, CropCenter{SizePx: 1000}, 100, 200)
	if err != nil || len(records) != 1 {
		t.Fatalf("Expected 1 record, got %v, %v", len(records), err)
	}

	rec := records[0]
	if rec.Kind != KindCenterCrop {
		t.Errorf("Expected center crop kind, got %v", rec.Kind)
	}
	if rec.WidthM != rec.HeightM {
		t.Errorf("Center crop must be square, got %vx%v", rec.WidthM, rec.HeightM)
	}

	expected := rec.GSDM * 1000
	if math.Abs(rec.WidthM-expected) > 1e-9 {
		t.Errorf("Expected width %v, got %v", expected, rec.WidthM)
	}
}

func TestBuildRecordsTiled(t *testing.T) {
	photo := testPhoto()
	photo.ImageWidthPx = 5280
	photo.ImageHeightPx = 3956

	mode := CropTiles{TileWidthPx: 1320, TileHeightPx: 989}
	records, err := BuildRecords(photo, testCamera, mode, 612500, 4984000)
	if err != nil {
		t.Fatalf("BuildRecords failed: %v", err)
	}

	// floor(5280/1320) x floor(3956/989) = 4x4
	if len(records) != 16 {
		t.Fatalf("Expected 16 tiles, got %v", len(records))
	}

	gsd := records[0].GSDM
	tileW := gsd * 1320
	tileH := gsd * 989
	fullW := gsd * 5280

	// Area conservation: sum of tile areas = tilesX * tilesY * tileW * tileH
	areaSum := 0.0
	for _, rec := range records {
		if rec.Kind != KindTile {
			t.Errorf("Expected tile kind for %v", rec.TileName)
		}
		areaSum += rec.AreaM2

		shoelace := math.Abs(planar.Area(rec.Polygon))
		if math.Abs(shoelace-rec.AreaM2) > 1e-6 {
			t.Errorf("Tile %v polygon area %v disagrees with attribute %v", rec.TileName, shoelace, rec.AreaM2)
		}
	}
	if math.Abs(areaSum-16*tileW*tileH) > 1e-6 {
		t.Errorf("Tile areas don't sum: %v vs %v", areaSum, 16*tileW*tileH)
	}

	// No overflow: 4 tile widths fit inside the full footprint width
	if 4*tileW > fullW+1e-9 {
		t.Errorf("Tiles overflow full footprint width: %v > %v", 4*tileW, fullW)
	}

	// Grid layout: tile (0,0) is at the top-left of the full footprint
	first := records[0]
	if first.TileRow != 0 || first.TileCol != 0 {
		t.Fatalf("Expected first tile at (0,0), got (%v,%v)", first.TileRow, first.TileCol)
	}
	b := Bounds(first)
	expectedMinX := 612500 - fullW/2
	if math.Abs(b.Min[0]-expectedMinX) > 1e-9 {
		t.Errorf("Tile (0,0) min X %v, expected %v", b.Min[0], expectedMinX)
	}
	expectedMaxY := 4984000 + gsd*3956/2
	if math.Abs(b.Max[1]-expectedMaxY) > 1e-9 {
		t.Errorf("Tile (0,0) max Y %v, expected %v", b.Max[1], expectedMaxY)
	}

	if first.TileName != "DJI_20240101120000_0001zoom_tile_0_0" {
		t.Errorf("Unexpected tile name: %v", first.TileName)
	}
}

func TestBuildRecordsTiledFloorDivision(t *testing.T) {
	photo := testPhoto()
	photo.ImageWidthPx = 5000
	photo.ImageHeightPx = 3000

	// 5000/1500 = 3 (rem 500), 3000/1400 = 2 (rem 200)
	records, err := BuildRecords(photo, testCamera, CropTiles{TileWidthPx: 1500, TileHeightPx: 1400}, 0, 0)
	if err != nil {
		t.Fatalf("BuildRecords failed: %v", err)
	}
	if len(records) != 6 {
		t.Errorf("Expected 6 tiles from floor division, got %v", len(records))
	}

	last := records[len(records)-1]
	if last.TileRow != 1 || last.TileCol != 2 {
		t.Errorf("Expected last tile at (1,2), got (%v,%v)", last.TileRow, last.TileCol)
	}
}

// Tiles larger than the image floor-divide to a 0x0 grid. That is not an
// error, just zero records, callers decide whether that is a skip
func TestBuildRecordsTilesLargerThanImage(t *testing.T) {
	records, err := BuildRecords(testPhoto(), testCamera, CropTiles{TileWidthPx: 6000, TileHeightPx: 6000}, 0, 0)
	if err != nil {
		t.Fatalf("BuildRecords failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no tiles for oversized tile dimensions, got %v", len(records))
	}
}
