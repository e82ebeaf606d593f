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

// GeoPackage output through GDAL's GPKG driver. Two layer shapes are
// written by the tools: footprint polygons in a projected CRS, and waypoint
// photo positions as WGS84 points
package gpkg

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"

	"github.com/lefoai/footprints/core/footprint"
	"github.com/lefoai/footprints/core/logger"
)

const footprintLayerName = "footprints"
const pointLayerName = "points"

// PointRecord - one waypoint photo position for the points layer
type PointRecord struct {
	MissionId string
	PointId   string
	WideURL   string
	ZoomURL   string
	Longitude float64
	Latitude  float64
}

// EnsureGPKGExt - output paths always end in .gpkg regardless of what the
// user typed
func EnsureGPKGExt(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".gpkg") {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".gpkg"
}

// Exists - true if a layer file is already on disk
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// HasTiles - whether the record set needs the tile-aware schema. The tile
// columns only exist in the output when at least one record is a tile
func HasTiles(records []footprint.Record) bool {
	for _, rec := range records {
		if rec.Kind == footprint.KindTile {
			return true
		}
	}
	return false
}

// WriteFootprints - creates the output GeoPackage and writes every record
// as one polygon feature. The schema is derived from the record kinds
// present, see HasTiles. Refuses to write an empty layer
func WriteFootprints(path string, epsg int, records []footprint.Record) error {
	if len(records) == 0 {
		return errors.New("refusing to write empty footprint layer")
	}

	withTiles := HasTiles(records)

	srs, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		return errors.Wrapf(err, "failed to create spatial reference for EPSG:%v", epsg)
	}
	defer srs.Close()

	dataset, err := godal.CreateVector(godal.GeoPackage, path)
	if err != nil {
		return errors.Wrapf(err, "failed to create GeoPackage %v", path)
	}
	defer dataset.Close()

	fieldDefs := []godal.CreateLayerOption{
		godal.NewFieldDefinition("mission_id", godal.FTString),
		godal.NewFieldDefinition("image_name", godal.FTString),
		godal.NewFieldDefinition("image_url", godal.FTString),
		godal.NewFieldDefinition("wide_url", godal.FTString),
	}
	if withTiles {
		fieldDefs = append(fieldDefs,
			godal.NewFieldDefinition("tile_name", godal.FTString),
			godal.NewFieldDefinition("tile_row", godal.FTInt),
			godal.NewFieldDefinition("tile_col", godal.FTInt),
		)
	}
	fieldDefs = append(fieldDefs,
		godal.NewFieldDefinition("latitude", godal.FTReal),
		godal.NewFieldDefinition("longitude", godal.FTReal),
		godal.NewFieldDefinition("altitude_m", godal.FTReal),
		godal.NewFieldDefinition("dsm_file", godal.FTString),
		godal.NewFieldDefinition("dsm_median_m", godal.FTReal),
		godal.NewFieldDefinition("flight_height_m", godal.FTReal),
		godal.NewFieldDefinition("gsd_m", godal.FTReal),
		godal.NewFieldDefinition("footprint_width_m", godal.FTReal),
		godal.NewFieldDefinition("footprint_height_m", godal.FTReal),
		godal.NewFieldDefinition("footprint_area_m2", godal.FTReal),
		godal.NewFieldDefinition("image_width_px", godal.FTInt),
		godal.NewFieldDefinition("image_height_px", godal.FTInt),
	)
	if withTiles {
		fieldDefs = append(fieldDefs,
			godal.NewFieldDefinition("tile_width_px", godal.FTInt),
			godal.NewFieldDefinition("tile_height_px", godal.FTInt),
		)
	}
	fieldDefs = append(fieldDefs,
		godal.NewFieldDefinition("sensor_width_mm", godal.FTReal),
		godal.NewFieldDefinition("focal_length_mm", godal.FTReal),
	)

	layer, err := dataset.CreateLayer(footprintLayerName, srs, godal.GTPolygon, fieldDefs...)
	if err != nil {
		return errors.Wrapf(err, "failed to create layer in %v", path)
	}

	for _, rec := range records {
		if err = writeFootprintFeature(layer, srs, rec, withTiles); err != nil {
			return errors.Wrapf(err, "failed to write feature for %v", rec.ImageName)
		}
	}

	return nil
}

func writeFootprintFeature(layer godal.Layer, srs *godal.SpatialRef, rec footprint.Record, withTiles bool) error {
	geom, err := godal.NewGeometryFromWKT(wkt.MarshalString(rec.Polygon), srs)
	if err != nil {
		return errors.Wrap(err, "failed to build polygon geometry")
	}
	defer geom.Close()

	feature, err := layer.NewFeature(geom)
	if err != nil {
		return errors.Wrap(err, "failed to create feature")
	}

	fields := feature.Fields()
	values := map[string]interface{}{
		"mission_id":         rec.MissionId,
		"image_name":         rec.ImageName,
		"image_url":          rec.ImageURL,
		"wide_url":           rec.WideURL,
		"latitude":           rec.Latitude,
		"longitude":          rec.Longitude,
		"altitude_m":         rec.AltitudeM,
		"dsm_file":           rec.DSMFile,
		"dsm_median_m":       rec.DSMMedianM,
		"flight_height_m":    rec.FlightHeightM,
		"gsd_m":              rec.GSDM,
		"footprint_width_m":  rec.WidthM,
		"footprint_height_m": rec.HeightM,
		"footprint_area_m2":  rec.AreaM2,
		"image_width_px":     rec.ImageWidthPx,
		"image_height_px":    rec.ImageHeightPx,
		"sensor_width_mm":    rec.Camera.SensorWidthMM,
		"focal_length_mm":    rec.Camera.FocalLengthMM,
	}
	if withTiles && rec.Kind == footprint.KindTile {
		values["tile_name"] = rec.TileName
		values["tile_row"] = rec.TileRow
		values["tile_col"] = rec.TileCol
		values["tile_width_px"] = rec.TileWidthPx
		values["tile_height_px"] = rec.TileHeightPx
	}

	for name, value := range values {
		field, ok := fields[name]
		if !ok {
			return errors.Errorf("layer has no field %v", name)
		}
		if err = feature.SetFieldValue(field, value); err != nil {
			return errors.Wrapf(err, "failed to set field %v", name)
		}
	}

	return layer.UpdateFeature(feature)
}

// WritePoints - creates (or overwrites) a WGS84 points GeoPackage
func WritePoints(path string, records []PointRecord) error {
	if len(records) == 0 {
		return errors.New("refusing to write empty points layer")
	}

	srs, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return errors.Wrap(err, "failed to create WGS84 spatial reference")
	}
	defer srs.Close()

	dataset, err := godal.CreateVector(godal.GeoPackage, path)
	if err != nil {
		return errors.Wrapf(err, "failed to create GeoPackage %v", path)
	}
	defer dataset.Close()

	layer, err := dataset.CreateLayer(pointLayerName, srs, godal.GTPoint,
		godal.NewFieldDefinition("mission_id", godal.FTString),
		godal.NewFieldDefinition("point_id", godal.FTString),
		godal.NewFieldDefinition("wide_url", godal.FTString),
		godal.NewFieldDefinition("zoom_url", godal.FTString),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create layer in %v", path)
	}

	for _, rec := range records {
		geom, err := godal.NewGeometryFromWKT(wkt.MarshalString(orb.Point{rec.Longitude, rec.Latitude}), srs)
		if err != nil {
			return errors.Wrap(err, "failed to build point geometry")
		}

		feature, err := layer.NewFeature(geom)
		geom.Close()
		if err != nil {
			return errors.Wrap(err, "failed to create feature")
		}

		fields := feature.Fields()
		values := map[string]interface{}{
			"mission_id": rec.MissionId,
			"point_id":   rec.PointId,
			"wide_url":   rec.WideURL,
			"zoom_url":   rec.ZoomURL,
		}
		for name, value := range values {
			field, ok := fields[name]
			if !ok {
				return errors.Errorf("layer has no field %v", name)
			}
			if err = feature.SetFieldValue(field, value); err != nil {
				return errors.Wrapf(err, "failed to set field %v", name)
			}
		}

		if err = layer.UpdateFeature(feature); err != nil {
			return errors.Wrapf(err, "failed to write point for %v", rec.PointId)
		}
	}

	return nil
}

// WritePointsAtomic - replaces a points GeoPackage without ever losing the
// one already on disk. The new layer is written next to the target and only
// renamed over it once the write succeeded
func WritePointsAtomic(path string, records []PointRecord) error {
	tmpPath := path + ".tmp"
	if Exists(tmpPath) {
		if err := os.Remove(tmpPath); err != nil {
			return errors.Wrapf(err, "failed to remove stale temporary file %v", tmpPath)
		}
	}

	if err := WritePoints(tmpPath, records); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "failed to move %v into place", tmpPath)
	}
	return nil
}

// pointCoords - lon/lat out of a point WKT string
func pointCoords(wktStr string) (float64, float64, error) {
	pt, err := wkt.UnmarshalPoint(wktStr)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "failed to parse point from \"%v\"", wktStr)
	}
	return pt[0], pt[1], nil
}

// ReadPoints - loads an existing points layer so a new run can skip
// waypoints it has already recorded. Features whose geometry can't be read
// are kept (so their identity still dedups) but logged with a warning, their
// coordinates stay zero
func ReadPoints(path string, log logger.ILogger) ([]PointRecord, error) {
	dataset, err := godal.Open(path, godal.VectorOnly())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open points layer %v", path)
	}
	defer dataset.Close()

	layers := dataset.Layers()
	if len(layers) < 1 {
		return nil, errors.Errorf("points file %v has no layers", path)
	}
	layer := layers[0]
	layer.ResetReading()

	records := []PointRecord{}
	for {
		feature := layer.NextFeature()
		if feature == nil {
			break
		}

		fields := feature.Fields()
		rec := PointRecord{
			MissionId: fields["mission_id"].String(),
			PointId:   fields["point_id"].String(),
			WideURL:   fields["wide_url"].String(),
			ZoomURL:   fields["zoom_url"].String(),
		}

		geom := feature.Geometry()
		if geom == nil {
			log.Warnf("Point %v in %v has no geometry", rec.PointId, path)
		} else if wktStr, err := geom.WKT(); err != nil {
			log.Warnf("Failed to read geometry for point %v in %v: %v", rec.PointId, path, err)
		} else if lon, lat, err := pointCoords(wktStr); err != nil {
			log.Warnf("Bad geometry for point %v in %v: %v", rec.PointId, path, err)
		} else {
			rec.Longitude = lon
			rec.Latitude = lat
		}

		records = append(records, rec)
	}

	return records, nil
}
