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

package services

import (
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/lefoai/footprints/api/config"
	"github.com/lefoai/footprints/core/awsutil"
	"github.com/lefoai/footprints/core/fetch"
	"github.com/lefoai/footprints/core/logger"
	"github.com/lefoai/footprints/core/timestamper"
)

// Set during compilation in CI build (see Makefile)
var ToolVersion string
var GitHash string

// Instead of a bunch of global variables we pass this services object
// around, so code has access to a logger, S3, the HTTP fetcher etc. This
// comes in very useful when writing unit tests, since we can mock these
// interfaces

type Services struct {
	// Configuration read in on startup
	Config config.Config

	// Default logger
	Log logger.ILogger

	// Anything listing the image buckets should use this
	S3 s3iface.S3API

	// Anything downloading images should use this
	Fetch fetch.IFetcher

	// Time stamper, so tests can control summary timestamps
	TimeStamper timestamper.ITimeStamper
}

// InitServices - builds the services bundle for a real run: an anonymous
// S3 client against the configured endpoint and a retrying HTTP fetcher
func InitServices(cfg config.Config, log logger.ILogger) (*Services, error) {
	sess, err := awsutil.GetSessionForEndpoint(cfg.ImageEndpoint, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}

	s3Api, err := awsutil.GetS3(sess)
	if err != nil {
		return nil, err
	}

	return &Services{
		Config:      cfg,
		Log:         log,
		S3:          s3Api,
		Fetch:       fetch.NewClient(log),
		TimeStamper: &timestamper.UnixTimeNowStamper{},
	}, nil
}
