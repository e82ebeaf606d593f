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

// Reads the EXIF fields we care about out of aerial JPEGs: GPS position,
// GPS altitude and pixel dimensions. Purely functional per image, callers
// decide what a missing field means (usually: skip the image with a warning)
package exifgeo

import (
	"bytes"
	"fmt"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// GeoPosition - decimal degree WGS84 position from EXIF GPS tags.
// Altitude is nil when the image carries no GPS altitude tag; it is metres
// relative to the EXIF altitude reference datum, negative when the reference
// byte says "below sea level"
type GeoPosition struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64
}

// DecimalFromDMS - EXIF GPS coordinates are stored as degree/minute/second
// rationals plus an N/S/E/W reference letter. Decimal degrees are
// d + m/60 + s/3600, negated for the southern/western hemispheres
func DecimalFromDMS(degrees float64, minutes float64, seconds float64, ref string) float64 {
	decimal := degrees + minutes/60.0 + seconds/3600.0
	if ref == "S" || ref == "W" {
		decimal = -decimal
	}
	return decimal
}

// Reads one of the 3 rationals making up a DMS value
func ratValue(tag *tiff.Tag, idx int) (float64, error) {
	num, den, err := tag.Rat2(idx)
	if err != nil {
		return 0, err
	}
	if den == 0 {
		return 0, fmt.Errorf("zero denominator in GPS rational %v", idx)
	}
	return float64(num) / float64(den), nil
}

func decimalFromTag(tag *tiff.Tag, ref string) (float64, error) {
	// We've seen truncated EXIF blocks where a GPS coordinate has fewer
	// components, treat anything but d/m/s as malformed
	if tag.Count != 3 {
		return 0, fmt.Errorf("GPS coordinate does not contain exactly three rational components, got %v", tag.Count)
	}

	d, err := ratValue(tag, 0)
	if err != nil {
		return 0, err
	}
	m, err := ratValue(tag, 1)
	if err != nil {
		return 0, err
	}
	s, err := ratValue(tag, 2)
	if err != nil {
		return 0, err
	}

	return DecimalFromDMS(d, m, s, ref), nil
}

// ExtractGeoPosition - pulls GPS lat/lon (and altitude if present) out of
// raw JPEG bytes. Missing GPS tags are an error, missing altitude is not
func ExtractGeoPosition(imageData []byte) (*GeoPosition, error) {
	x, err := exif.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF: %w", err)
	}

	latTag, err := x.Get(exif.GPSLatitude)
	if err != nil {
		return nil, fmt.Errorf("no GPS latitude tag: %w", err)
	}
	latRefTag, err := x.Get(exif.GPSLatitudeRef)
	if err != nil {
		return nil, fmt.Errorf("no GPS latitude ref tag: %w", err)
	}
	lonTag, err := x.Get(exif.GPSLongitude)
	if err != nil {
		return nil, fmt.Errorf("no GPS longitude tag: %w", err)
	}
	lonRefTag, err := x.Get(exif.GPSLongitudeRef)
	if err != nil {
		return nil, fmt.Errorf("no GPS longitude ref tag: %w", err)
	}

	latRef, err := latRefTag.StringVal()
	if err != nil {
		return nil, err
	}
	lonRef, err := lonRefTag.StringVal()
	if err != nil {
		return nil, err
	}

	lat, err := decimalFromTag(latTag, latRef)
	if err != nil {
		return nil, err
	}
	lon, err := decimalFromTag(lonTag, lonRef)
	if err != nil {
		return nil, err
	}

	result := &GeoPosition{Latitude: lat, Longitude: lon}

	// Altitude is optional, footprint generation needs it but the points
	// layer does not
	if altTag, altErr := x.Get(exif.GPSAltitude); altErr == nil {
		alt, altErr := ratValue(altTag, 0)
		if altErr == nil {
			// Reference byte: 0=above sea level, 1=below
			if refTag, refErr := x.Get(exif.GPSAltitudeRef); refErr == nil {
				if refVal, refErr := refTag.Int(0); refErr == nil && refVal == 1 {
					alt = -alt
				}
			}
			result.Altitude = &alt
		}
	}

	return result, nil
}

// validPixelSize - dimension tags have to be positive to be usable, a zero
// width would end up dividing the ground sample distance
func validPixelSize(w int, h int) bool {
	return w > 0 && h > 0
}

// ExtractPixelSize - image width/height in pixels from EXIF. Prefers the
// Exif IFD pixel dimensions, falls back to the TIFF image width/length tags.
// Tags that are missing, unreadable or non-positive are passed over
func ExtractPixelSize(imageData []byte) (int, int, error) {
	x, err := exif.Decode(bytes.NewReader(imageData))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode EXIF: %w", err)
	}

	widthFields := []exif.FieldName{exif.PixelXDimension, exif.ImageWidth}
	heightFields := []exif.FieldName{exif.PixelYDimension, exif.ImageLength}

	for i := range widthFields {
		wTag, wErr := x.Get(widthFields[i])
		hTag, hErr := x.Get(heightFields[i])
		if wErr != nil || hErr != nil {
			continue
		}

		w, wErr := wTag.Int(0)
		h, hErr := hTag.Int(0)
		if wErr != nil || hErr != nil || !validPixelSize(w, h) {
			continue
		}

		return w, h, nil
	}

	return 0, 0, fmt.Errorf("no usable image dimension tags found in EXIF")
}
