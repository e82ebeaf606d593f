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

// Footprint geometry: given a photo's position, flight altitude and ground
// elevation, work out the ground sampling distance through the pinhole
// camera model and build the rectangle(s) of ground the photo covers.
//
// All rectangles are axis-aligned (north-up) in the target projected CRS.
// No orientation correction is applied, the drone flies its waypoint
// missions facing a fixed heading so the error is acceptable for locating
// photos on a map
package footprint

import (
	"fmt"
	"path"
	"strings"

	"github.com/paulmach/orb"
)

// CameraModel - the two camera intrinsics the GSD formula needs
type CameraModel struct {
	SensorWidthMM float64
	FocalLengthMM float64
}

// CropMode - which rectangle(s) a photo produces. One of CropFull,
// CropCenter or CropTiles
type CropMode interface {
	cropModeMarker()
}

// CropFull - one footprint covering the whole image
type CropFull struct {
}

// CropCenter - one square footprint of SizePx x SizePx image pixels,
// centred on the photo position
type CropCenter struct {
	SizePx int
}

// CropTiles - one footprint per tile of a floor-division grid over the
// image. Pixels beyond the last full tile are not covered
type CropTiles struct {
	TileWidthPx  int
	TileHeightPx int
}

func (CropFull) cropModeMarker()   {}
func (CropCenter) cropModeMarker() {}
func (CropTiles) cropModeMarker()  {}

type Kind int

const (
	KindFull Kind = iota
	KindCenterCrop
	KindTile
)

// Record - one output footprint with all its attributes. Built once,
// written to the vector layer, never mutated
type Record struct {
	Kind    Kind
	Polygon orb.Polygon

	MissionId string
	ImageName string
	ImageURL  string
	WideURL   string

	// Tile fields, only meaningful when Kind == KindTile
	TileName     string
	TileRow      int
	TileCol      int
	TileWidthPx  int
	TileHeightPx int

	Latitude  float64
	Longitude float64
	AltitudeM float64

	DSMFile       string
	DSMMedianM    float64
	FlightHeightM float64

	GSDM    float64
	WidthM  float64
	HeightM float64
	AreaM2  float64

	ImageWidthPx  int
	ImageHeightPx int
	Camera        CameraModel
}

// ErrBelowGround - EXIF altitude at or below the sampled ground elevation.
// Happens when the barometric altitude drifted or the DSM is newer growth,
// either way the height is meaningless so the image is skipped
type ErrBelowGround struct {
	FlightHeightM float64
}

func (e ErrBelowGround) Error() string {
	return fmt.Sprintf("invalid flight height: %.2fm", e.FlightHeightM)
}

// FlightHeight - height above ground in meters. Errors if not positive
func FlightHeight(altitudeM float64, dsmMedianM float64) (float64, error) {
	h := altitudeM - dsmMedianM
	if h <= 0 {
		return 0, ErrBelowGround{FlightHeightM: h}
	}
	return h, nil
}

// GSD - ground sampling distance in meters per pixel, from similar
// triangles between the sensor plane and the ground plane:
//
//	GSD = (Sw * H) / (FR * imW)
func GSD(camera CameraModel, flightHeightM float64, imageWidthPx int) float64 {
	return (camera.SensorWidthMM * flightHeightM) / (camera.FocalLengthMM * float64(imageWidthPx))
}

// Photo - everything known about one image pair before geometry runs
type Photo struct {
	MissionId string
	ImageName string
	ImageURL  string
	WideURL   string

	Latitude  float64
	Longitude float64
	AltitudeM float64

	DSMFile    string
	DSMMedianM float64

	ImageWidthPx  int
	ImageHeightPx int
}

// BuildRecords - computes flight height and GSD for a photo and emits its
// footprint record(s) per the crop mode. centerX/centerY is the photo
// position already projected into the output CRS, so this function stays
// pure geometry with no GDAL dependency.
//
// Returns ErrBelowGround when the flight height isn't positive
func BuildRecords(photo Photo, camera CameraModel, mode CropMode, centerX float64, centerY float64) ([]Record, error) {
	height, err := FlightHeight(photo.AltitudeM, photo.DSMMedianM)
	if err != nil {
		return nil, err
	}

	gsd := GSD(camera, height, photo.ImageWidthPx)

	base := Record{
		MissionId:     photo.MissionId,
		ImageName:     photo.ImageName,
		ImageURL:      photo.ImageURL,
		WideURL:       photo.WideURL,
		Latitude:      photo.Latitude,
		Longitude:     photo.Longitude,
		AltitudeM:     photo.AltitudeM,
		DSMFile:       photo.DSMFile,
		DSMMedianM:    photo.DSMMedianM,
		FlightHeightM: height,
		GSDM:          gsd,
		ImageWidthPx:  photo.ImageWidthPx,
		ImageHeightPx: photo.ImageHeightPx,
		Camera:        camera,
	}

	switch m := mode.(type) {
	case CropFull:
		rec := base
		rec.Kind = KindFull
		rec.WidthM = gsd * float64(photo.ImageWidthPx)
		rec.HeightM = gsd * float64(photo.ImageHeightPx)
		rec.AreaM2 = rec.WidthM * rec.HeightM
		rec.Polygon = rectangle(centerX, centerY, rec.WidthM, rec.HeightM)
		return []Record{rec}, nil

	case CropCenter:
		rec := base
		rec.Kind = KindCenterCrop
		rec.WidthM = gsd * float64(m.SizePx)
		rec.HeightM = rec.WidthM
		rec.AreaM2 = rec.WidthM * rec.HeightM
		rec.Polygon = rectangle(centerX, centerY, rec.WidthM, rec.HeightM)
		return []Record{rec}, nil

	case CropTiles:
		return buildTiles(base, m, gsd, centerX, centerY), nil
	}

	return nil, fmt.Errorf("unknown crop mode: %T", mode)
}

// buildTiles - floor-division grid over the image, positioned by walking
// right and down from the top-left corner of the full-image footprint
func buildTiles(base Record, mode CropTiles, gsd float64, centerX float64, centerY float64) []Record {
	tilesX := base.ImageWidthPx / mode.TileWidthPx
	tilesY := base.ImageHeightPx / mode.TileHeightPx

	tileWidthM := gsd * float64(mode.TileWidthPx)
	tileHeightM := gsd * float64(mode.TileHeightPx)

	fullWidthM := gsd * float64(base.ImageWidthPx)
	fullHeightM := gsd * float64(base.ImageHeightPx)

	startX := centerX - fullWidthM/2
	startY := centerY + fullHeightM/2

	stem := imageStem(base.ImageName)

	records := []Record{}
	for row := 0; row < tilesY; row++ {
		for col := 0; col < tilesX; col++ {
			tileCenterX := startX + float64(col)*tileWidthM + tileWidthM/2
			tileCenterY := startY - float64(row)*tileHeightM - tileHeightM/2

			rec := base
			rec.Kind = KindTile
			rec.TileName = fmt.Sprintf("%v_tile_%v_%v", stem, row, col)
			rec.TileRow = row
			rec.TileCol = col
			rec.TileWidthPx = mode.TileWidthPx
			rec.TileHeightPx = mode.TileHeightPx
			rec.WidthM = tileWidthM
			rec.HeightM = tileHeightM
			rec.AreaM2 = tileWidthM * tileHeightM
			rec.Polygon = rectangle(tileCenterX, tileCenterY, tileWidthM, tileHeightM)

			records = append(records, rec)
		}
	}

	return records
}

// rectangle - axis-aligned closed ring, wound SW -> SE -> NE -> NW -> SW
func rectangle(centerX float64, centerY float64, widthM float64, heightM float64) orb.Polygon {
	halfW := widthM / 2
	halfH := heightM / 2

	ring := orb.Ring{
		{centerX - halfW, centerY - halfH},
		{centerX + halfW, centerY - halfH},
		{centerX + halfW, centerY + halfH},
		{centerX - halfW, centerY + halfH},
		{centerX - halfW, centerY - halfH},
	}

	return orb.Polygon{ring}
}

// Bounds - min/max extent of a record's polygon
func Bounds(rec Record) orb.Bound {
	return rec.Polygon.Bound()
}

func imageStem(imageName string) string {
	base := path.Base(imageName)
	return strings.TrimSuffix(base, path.Ext(base))
}
