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

// Access to the remote aerial image store: an S3-compatible bucket where
// each mission is a top level folder holding pairs of photos per waypoint,
// a "wide" context photo and a "zoom" detail photo distinguished by a zoom
// suffix in the file name, eg:
//
//	20240913_bcifairchild_wptse_m3e/DJI_20240913101502_0007.JPG
//	20240913_bcifairchild_wptse_m3e/DJI_20240913101505_0007zoom.JPG
//
// Images are fetched over plain HTTPS (the buckets are public), listing
// goes through the S3 API
package imagestore

import (
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// MissionImages - object keys for one mission, split by photo role
type MissionImages struct {
	Wide []string
	Zoom []string
}

type ImageStore struct {
	s3Api   s3iface.S3API
	bucket  string
	baseURL string
}

func NewImageStore(s3Api s3iface.S3API, bucket string, baseURL string) *ImageStore {
	return &ImageStore{
		s3Api:   s3Api,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// ListMissionFolders - lists top level folders in the bucket and keeps the
// ones matching the project qualifier that are waypoint missions (contain
// "wpt"). Matching is case-insensitive. Loops over continuation tokens in
// case there are more folders than one listing page returns
func (s *ImageStore) ListMissionFolders(projectQualifier string) ([]string, error) {
	result := []string{}
	continuationToken := ""

	params := s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Delimiter: aws.String("/"),
	}

	for {
		if len(continuationToken) > 0 {
			params.ContinuationToken = aws.String(continuationToken)
		}

		listing, err := s.s3Api.ListObjectsV2(&params)
		if err != nil {
			return nil, err
		}

		for _, prefix := range listing.CommonPrefixes {
			if prefix.Prefix == nil {
				continue
			}
			folder := strings.TrimSuffix(*prefix.Prefix, "/")
			lowered := strings.ToLower(folder)
			if strings.Contains(lowered, strings.ToLower(projectQualifier)) && strings.Contains(lowered, "wpt") {
				result = append(result, folder)
			}
		}

		if listing.IsTruncated != nil && *listing.IsTruncated && listing.NextContinuationToken != nil {
			continuationToken = *listing.NextContinuationToken
		} else {
			break
		}
	}

	return result, nil
}

// ListMissionImages - all JPEG keys under a mission folder, split into wide
// vs zoom by the "zoom" file name substring
func (s *ImageStore) ListMissionImages(missionFolder string) (MissionImages, error) {
	result := MissionImages{Wide: []string{}, Zoom: []string{}}
	continuationToken := ""

	params := s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(missionFolder + "/"),
	}

	for {
		if len(continuationToken) > 0 {
			params.ContinuationToken = aws.String(continuationToken)
		}

		listing, err := s.s3Api.ListObjectsV2(&params)
		if err != nil {
			return result, err
		}

		for _, obj := range listing.Contents {
			if obj.Key == nil {
				continue
			}
			key := *obj.Key
			if !IsJPEGName(key) {
				continue
			}
			if strings.Contains(strings.ToLower(path.Base(key)), "zoom") {
				result.Zoom = append(result.Zoom, key)
			} else {
				result.Wide = append(result.Wide, key)
			}
		}

		if listing.IsTruncated != nil && *listing.IsTruncated && listing.NextContinuationToken != nil {
			continuationToken = *listing.NextContinuationToken
		} else {
			break
		}
	}

	return result, nil
}

// ImageURL - public HTTPS URL for an object key (path style endpoint)
func (s *ImageStore) ImageURL(key string) string {
	return fmt.Sprintf("%v/%v/%v", s.baseURL, s.bucket, key)
}

func IsJPEGName(key string) bool {
	return strings.EqualFold(path.Ext(key), ".jpg")
}

// PairIdentifier - the waypoint identifier shared by a wide/zoom photo
// pair. It's the last "_" separated token of the zoom file name with the
// trailing "zoom.jpg" removed, eg "DJI_20240913101505_0007zoom.JPG" -> "0007"
func PairIdentifier(zoomKey string) string {
	base := strings.ToLower(path.Base(zoomKey))
	parts := strings.Split(base, "_")
	last := parts[len(parts)-1]
	return strings.TrimSuffix(last, "zoom.jpg")
}

// FindWidePartner - the wide photo whose name ends in _<identifier>.jpg
// (case-insensitive). Returns false if the mission has no matching wide
// photo, which the caller logs as a warning and skips
func FindWidePartner(wideKeys []string, identifier string) (string, bool) {
	suffix := "_" + strings.ToLower(identifier) + ".jpg"
	for _, wide := range wideKeys {
		if strings.HasSuffix(strings.ToLower(path.Base(wide)), suffix) {
			return wide, true
		}
	}
	return "", false
}
