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

package gpkg

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lefoai/footprints/core/footprint"
)

func Example_ensureGPKGExt() {
	fmt.Println(EnsureGPKGExt("out/footprints.gpkg"))
	fmt.Println(EnsureGPKGExt("out/footprints.GPKG"))
	fmt.Println(EnsureGPKGExt("out/footprints.shp"))
	fmt.Println(EnsureGPKGExt("out/footprints"))

	// Output:
	// out/footprints.gpkg
	// out/footprints.GPKG
	// out/footprints.gpkg
	// out/footprints.gpkg
}

func TestHasTiles(t *testing.T) {
	full := footprint.Record{Kind: footprint.KindFull}
	crop := footprint.Record{Kind: footprint.KindCenterCrop}
	tile := footprint.Record{Kind: footprint.KindTile, TileRow: 1, TileCol: 2}

	if HasTiles([]footprint.Record{full, crop}) {
		t.Errorf("Expected no tile schema for full+crop records")
	}
	if !HasTiles([]footprint.Record{full, tile}) {
		t.Errorf("Expected tile schema when any record is a tile")
	}
	if HasTiles([]footprint.Record{}) {
		t.Errorf("Expected no tile schema for empty record set")
	}
}

func TestWriteFootprintsRejectsEmpty(t *testing.T) {
	err := WriteFootprints("/tmp/never-written.gpkg", 32618, []footprint.Record{})
	if err == nil {
		t.Errorf("Expected error for empty record set")
	}
}

func TestWritePointsRejectsEmpty(t *testing.T) {
	err := WritePoints("/tmp/never-written.gpkg", []PointRecord{})
	if err == nil {
		t.Errorf("Expected error for empty record set")
	}
}

// A failed atomic write must leave neither the target nor the temporary
// file behind
func TestWritePointsAtomicFailureLeavesNoFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.gpkg")

	err := WritePointsAtomic(path, []PointRecord{})
	if err == nil {
		t.Errorf("Expected error for empty record set")
	}
	if Exists(path) {
		t.Errorf("Expected no output file after failed write")
	}
	if Exists(path + ".tmp") {
		t.Errorf("Expected no temporary file after failed write")
	}
}

func TestPointCoords(t *testing.T) {
	lon, lat, err := pointCoords("POINT(-79.85 9.15)")
	if err != nil {
		t.Fatalf("pointCoords failed: %v", err)
	}
	if lon != -79.85 || lat != 9.15 {
		t.Errorf("Unexpected coordinates: %v, %v", lon, lat)
	}

	if _, _, err = pointCoords("LINESTRING(0 0, 1 1)"); err == nil {
		t.Errorf("Expected error for non-point geometry")
	}
	if _, _, err = pointCoords("not wkt at all"); err == nil {
		t.Errorf("Expected error for malformed geometry text")
	}
}
