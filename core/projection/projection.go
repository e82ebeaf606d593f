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

// Coordinate projection from WGS84 lon/lat into a projected (metric) CRS.
// Footprint rectangles are built in metres so every photo centre gets
// projected into the output CRS before any geometry is computed
package projection

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/airbusgeo/godal"
)

// IProjector - lon/lat to projected coordinates. Mocked in orchestration
// tests so footprint geometry can be exercised without GDAL
type IProjector interface {
	Project(lon float64, lat float64) (x float64, y float64, err error)
}

// GodalProjector - projects through GDAL into a fixed target EPSG CRS.
// Create one per run and reuse it, the underlying transform is only built
// once. Safe for concurrent use: OGR coordinate transformations are not
// thread safe, so Project serialises access to the shared transform
type GodalProjector struct {
	epsg      int
	mu        sync.Mutex
	transform *godal.Transform
	sourceSRS *godal.SpatialRef
	targetSRS *godal.SpatialRef
}

func NewGodalProjector(targetEPSG int) (*GodalProjector, error) {
	sourceSRS, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create WGS84 spatial reference")
	}

	targetSRS, err := godal.NewSpatialRefFromEPSG(targetEPSG)
	if err != nil {
		sourceSRS.Close()
		return nil, errors.Wrapf(err, "failed to create spatial reference for EPSG:%v", targetEPSG)
	}

	transform, err := godal.NewTransform(sourceSRS, targetSRS)
	if err != nil {
		sourceSRS.Close()
		targetSRS.Close()
		return nil, errors.Wrapf(err, "failed to create transform to EPSG:%v", targetEPSG)
	}

	return &GodalProjector{
		epsg:      targetEPSG,
		transform: transform,
		sourceSRS: sourceSRS,
		targetSRS: targetSRS,
	}, nil
}

func (p *GodalProjector) EPSG() int {
	return p.epsg
}

func (p *GodalProjector) Project(lon float64, lat float64) (float64, float64, error) {
	xs := []float64{lon}
	ys := []float64{lat}
	success := make([]bool, 1)

	p.mu.Lock()
	err := p.transform.TransformEx(xs, ys, nil, success)
	p.mu.Unlock()

	if err != nil {
		return 0, 0, errors.Wrapf(err, "failed to project (%v, %v) to EPSG:%v", lon, lat, p.epsg)
	}
	if !success[0] {
		return 0, 0, errors.Errorf("projection of (%v, %v) to EPSG:%v failed", lon, lat, p.epsg)
	}

	return xs[0], ys[0], nil
}

func (p *GodalProjector) Close() {
	if p.transform != nil {
		p.transform.Close()
		p.transform = nil
	}
	if p.sourceSRS != nil {
		p.sourceSRS.Close()
		p.sourceSRS = nil
	}
	if p.targetSRS != nil {
		p.targetSRS.Close()
		p.targetSRS = nil
	}
}
