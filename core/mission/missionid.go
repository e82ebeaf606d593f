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

// Mission id parser. Mission folders on the image store follow the naming
// convention <YYYYMMDD>_<site>_<waypoint set>_<drone>, eg
// "20240913_bcifairchild_wptse_m3e". We parse this once at construction and
// hand around the parsed value, so call sites never deal with raw strings
// that may or may not contain a date.
package mission

import (
	"fmt"
	"strings"
	"time"
)

// ErrBadMissionId - returned when an id does not start with a YYYYMMDD date
type ErrBadMissionId struct {
	Id     string
	Reason string
}

func (e ErrBadMissionId) Error() string {
	return fmt.Sprintf("invalid mission id \"%v\": %v", e.Id, e.Reason)
}

// MissionId - a validated mission identifier. Zero value is not valid,
// always construct through ParseMissionId
type MissionId struct {
	id   string
	date time.Time
	site string
}

func ParseMissionId(id string) (MissionId, error) {
	result := MissionId{}

	if len(id) < 8 {
		return result, ErrBadMissionId{Id: id, Reason: "too short to contain a YYYYMMDD date"}
	}

	date, err := time.Parse("20060102", id[0:8])
	if err != nil {
		return result, ErrBadMissionId{Id: id, Reason: "does not start with a YYYYMMDD date"}
	}

	site := ""
	parts := strings.Split(id, "_")
	if len(parts) > 1 {
		site = parts[1]
	}

	result.id = id
	result.date = date
	result.site = site
	return result, nil
}

func (m MissionId) String() string {
	return m.id
}

// Date - the acquisition date encoded in the first 8 characters
func (m MissionId) Date() time.Time {
	return m.date
}

// Site - the site keyword following the date, empty if the id had no "_" separated parts
func (m MissionId) Site() string {
	return m.site
}
