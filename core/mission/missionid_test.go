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

package mission

import "fmt"

func Example_parseMissionId() {
	ids := []string{
		"20240913_bcifairchild_wptse_m3e",
		"20240101_site_wptX",
		"20241301_badmonth_wpt",
		"notadate_site_wpt",
		"2024",
		"20240913",
	}

	for _, id := range ids {
		m, err := ParseMissionId(id)
		if err != nil {
			fmt.Printf("%v\n", err)
		} else {
			fmt.Printf("date=%v site=%v id=%v\n", m.Date().Format("2006-01-02"), m.Site(), m.String())
		}
	}

	// Output:
	// date=2024-09-13 site=bcifairchild id=20240913_bcifairchild_wptse_m3e
	// date=2024-01-01 site=site id=20240101_site_wptX
	// invalid mission id "20241301_badmonth_wpt": does not start with a YYYYMMDD date
	// invalid mission id "notadate_site_wpt": does not start with a YYYYMMDD date
	// invalid mission id "2024": too short to contain a YYYYMMDD date
	// date=2024-09-13 site= id=20240913
}
