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

package dsm

import (
	"math"
	"sort"

	"github.com/airbusgeo/godal"
	"github.com/pkg/errors"
)

// ErrNoCoverage - the sample position falls outside the DSM bounds, or every
// pixel in the sample window is nodata. Either way there's no usable ground
// elevation at this spot
var ErrNoCoverage = errors.New("position has no valid DSM coverage")

// ISampler - ground elevation lookup. Implemented by GodalSampler for real
// rasters, mocked in orchestration tests
type ISampler interface {
	SampleMedian(dsmPath string, lon float64, lat float64, bufferMeters float64) (float64, error)
}

// GodalSampler - samples DSM GeoTIFFs through GDAL. Positions come in as
// WGS84 lon/lat and are transformed into the raster's own CRS before the
// pixel window is read
type GodalSampler struct {
}

func (GodalSampler) SampleMedian(dsmPath string, lon float64, lat float64, bufferMeters float64) (float64, error) {
	dataset, err := godal.Open(dsmPath)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open DSM %v", dsmPath)
	}
	defer dataset.Close()

	rasterSRS := dataset.SpatialRef()
	if rasterSRS == nil {
		return 0, errors.Errorf("DSM %v has no spatial reference", dsmPath)
	}

	wgs84, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create WGS84 spatial reference")
	}
	defer wgs84.Close()

	transform, err := godal.NewTransform(wgs84, rasterSRS)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to create transform to DSM CRS for %v", dsmPath)
	}
	defer transform.Close()

	xs := []float64{lon}
	ys := []float64{lat}
	success := make([]bool, 1)
	if err = transform.TransformEx(xs, ys, nil, success); err != nil {
		return 0, errors.Wrapf(err, "failed to transform position into DSM CRS for %v", dsmPath)
	}
	if !success[0] {
		return 0, errors.Errorf("transform into DSM CRS failed for (%v, %v)", lon, lat)
	}

	gt, err := dataset.GeoTransform()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read geotransform of %v", dsmPath)
	}
	if gt[2] != 0 || gt[4] != 0 {
		return 0, errors.Errorf("DSM %v has a rotated geotransform, not supported", dsmPath)
	}

	structure := dataset.Structure()
	window, ok := pixelWindow(gt, structure.SizeX, structure.SizeY, xs[0], ys[0], bufferMeters)
	if !ok {
		return 0, ErrNoCoverage
	}

	bands := dataset.Bands()
	if len(bands) < 1 {
		return 0, errors.Errorf("DSM %v has no raster bands", dsmPath)
	}
	band := bands[0]

	buffer := make([]float64, window.width*window.height)
	if err = band.Read(window.col, window.row, buffer, window.width, window.height); err != nil {
		return 0, errors.Wrapf(err, "failed to read DSM window from %v", dsmPath)
	}

	nodata, hasNodata := band.NoData()

	valid := []float64{}
	for _, v := range buffer {
		if math.IsNaN(v) {
			continue
		}
		if hasNodata && v == nodata {
			continue
		}
		valid = append(valid, v)
	}

	if len(valid) == 0 {
		return 0, ErrNoCoverage
	}

	return Median(valid), nil
}

type rasterWindow struct {
	col    int
	row    int
	width  int
	height int
}

// pixelWindow - the pixel rectangle covering position +/- buffer in map
// units, clamped to the raster. Returns false when the whole window falls
// outside the raster
func pixelWindow(gt [6]float64, sizeX int, sizeY int, x float64, y float64, buffer float64) (rasterWindow, bool) {
	colOf := func(mapX float64) float64 {
		return (mapX - gt[0]) / gt[1]
	}
	rowOf := func(mapY float64) float64 {
		return (mapY - gt[3]) / gt[5]
	}

	colA := colOf(x - buffer)
	colB := colOf(x + buffer)
	rowA := rowOf(y - buffer)
	rowB := rowOf(y + buffer)

	col0 := int(math.Floor(math.Min(colA, colB)))
	col1 := int(math.Floor(math.Max(colA, colB)))
	row0 := int(math.Floor(math.Min(rowA, rowB)))
	row1 := int(math.Floor(math.Max(rowA, rowB)))

	if col1 < 0 || row1 < 0 || col0 >= sizeX || row0 >= sizeY {
		return rasterWindow{}, false
	}

	col0 = clampInt(col0, 0, sizeX-1)
	col1 = clampInt(col1, 0, sizeX-1)
	row0 = clampInt(row0, 0, sizeY-1)
	row1 = clampInt(row1, 0, sizeY-1)

	return rasterWindow{
		col:    col0,
		row:    row0,
		width:  col1 - col0 + 1,
		height: row1 - row0 + 1,
	}, true
}

func clampInt(v int, lo int, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Median - middle value of the samples, or the mean of the two middle values
// for an even count. Input is not modified
func Median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
