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

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunFileLogger - the per-run logger used by the command line tools. Writes
// two log files under the output directory:
//
//	<tool>_<qualifier>_info.log  - INFO messages
//	<tool>_<qualifier>_error.log - WARNING and ERROR messages
//
// INFO also goes to stdout, WARNING/ERROR to stderr. Files are opened in
// append mode so repeated runs against the same output dir accumulate.
type RunFileLogger struct {
	logLevel LogLevel

	infoFile  *os.File
	errorFile *os.File

	mutex sync.Mutex
}

func MakeRunFileLogger(outputDir string, toolName string, qualifier string) (*RunFileLogger, error) {
	err := os.MkdirAll(outputDir, 0755)
	if err != nil {
		return nil, err
	}

	infoPath := filepath.Join(outputDir, fmt.Sprintf("%v_%v_info.log", toolName, qualifier))
	errorPath := filepath.Join(outputDir, fmt.Sprintf("%v_%v_error.log", toolName, qualifier))

	infoFile, err := os.OpenFile(infoPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	errorFile, err := os.OpenFile(errorPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		infoFile.Close()
		return nil, err
	}

	return &RunFileLogger{
		logLevel:  LogInfo,
		infoFile:  infoFile,
		errorFile: errorFile,
	}, nil
}

func (l *RunFileLogger) Printf(level LogLevel, format string, a ...interface{}) {
	if level < l.logLevel {
		return
	}

	txt := fmt.Sprintf("[%v] %v: %v\n", time.Now().Format("2006-01-02 15:04:05"), logLevelPrefix[level], fmt.Sprintf(format, a...))

	l.mutex.Lock()
	defer l.mutex.Unlock()

	// INFO (and below) to stdout+info file, WARNING/ERROR to stderr+error file
	if level <= LogInfo {
		fmt.Fprint(os.Stdout, txt)
		l.infoFile.WriteString(txt)
	} else {
		fmt.Fprint(os.Stderr, txt)
		l.errorFile.WriteString(txt)
	}
}
func (l *RunFileLogger) Debugf(format string, a ...interface{}) {
	l.Printf(LogDebug, format, a...)
}
func (l *RunFileLogger) Infof(format string, a ...interface{}) {
	l.Printf(LogInfo, format, a...)
}
func (l *RunFileLogger) Warnf(format string, a ...interface{}) {
	l.Printf(LogWarn, format, a...)
}
func (l *RunFileLogger) Errorf(format string, a ...interface{}) {
	l.Printf(LogError, format, a...)
}

func (l *RunFileLogger) SetLogLevel(level LogLevel) {
	l.logLevel = level
}

func (l *RunFileLogger) Close() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.infoFile.Close()
	l.errorFile.Close()
}
