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

package awsutil

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// MockS3Client - mock S3 client for unit tests. Expected requests and queued
// responses are replayed in order. Don't forget to call FinishTest() at the
// end of your test to check that all expected calls to S3 were made and
// there were no unexpected ones!
type MockS3Client struct {
	mutex sync.Mutex

	s3iface.S3API

	// Expected requests
	ExpListObjectsV2Input []s3.ListObjectsV2Input
	ExpGetObjectInput     []s3.GetObjectInput

	// Responses replayed as each request comes in
	QueuedListObjectsV2Output []*s3.ListObjectsV2Output
	QueuedGetObjectOutput     []*s3.GetObjectOutput
}

// NOTE: This function MUST be called at the end of a unit test/example test.
// Use defer when declaring MockS3Client!
func (m *MockS3Client) FinishTest() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	err := m.getFinishTestResult()

	// If we found something unexpected, print an error so any example tests
	// get this in their output. Unit tests still get our return value
	if err != nil {
		fmt.Println(err)
	}

	return err
}

func (m *MockS3Client) getFinishTestResult() error {
	if len(m.ExpListObjectsV2Input) > 0 {
		return errors.New("Test expected more ListObjectsV2 calls to func")
	}
	if len(m.ExpGetObjectInput) > 0 {
		return errors.New("Test expected more GetObject calls to func")
	}

	if len(m.QueuedListObjectsV2Output) > 0 {
		return errors.New("Remaining output ListObjectsV2 for func")
	}
	if len(m.QueuedGetObjectOutput) > 0 {
		return errors.New("Remaining output GetObject for func")
	}

	return nil
}

func (m *MockS3Client) ListObjectsV2(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if len(m.ExpListObjectsV2Input) <= 0 {
		return nil, errors.New("unexpected ListObjectsV2 call")
	}

	exp := m.ExpListObjectsV2Input[0]
	m.ExpListObjectsV2Input = m.ExpListObjectsV2Input[1:]

	if !reflect.DeepEqual(*input, exp) {
		return nil, fmt.Errorf("ListObjectsV2 expected: %v, got: %v", exp, *input)
	}

	if len(m.QueuedListObjectsV2Output) <= 0 {
		return nil, errors.New("no queued output for ListObjectsV2 call")
	}

	result := m.QueuedListObjectsV2Output[0]
	m.QueuedListObjectsV2Output = m.QueuedListObjectsV2Output[1:]
	return result, nil
}

func (m *MockS3Client) GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if len(m.ExpGetObjectInput) <= 0 {
		return nil, errors.New("unexpected GetObject call")
	}

	exp := m.ExpGetObjectInput[0]
	m.ExpGetObjectInput = m.ExpGetObjectInput[1:]

	if !reflect.DeepEqual(*input, exp) {
		return nil, fmt.Errorf("GetObject expected: %v, got: %v", exp, *input)
	}

	if len(m.QueuedGetObjectOutput) <= 0 {
		return nil, errors.New("no queued output for GetObject call")
	}

	result := m.QueuedGetObjectOutput[0]
	m.QueuedGetObjectOutput = m.QueuedGetObjectOutput[1:]
	return result, nil
}
