/*
Copyright 2026 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the revision of the document format written by ToJSON
const Version = 1

// ErrUnsupportedVersion is returned when parsing a document written
// with a different format revision
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Snapshot is the persisted state of the build cache. It always holds
// the complete state, a snapshot is never a partial update.
type Snapshot struct {
	Version int      `json:"version"`
	Builds  []Record `json:"builds"`
}

// Record is a build tagged with the job and revision
// it was looked up with
type Record struct {
	JobName string       `json:"job_name"`
	SHA     string       `json:"sha"`
	ID      int64        `json:"id"`
	Status  *string      `json:"status,omitempty"`
	Tests   []TestRecord `json:"tests"`
}

type TestRecord struct {
	Name   string  `json:"name"`
	Status string  `json:"status"`
	Trace  *string `json:"trace,omitempty"`
}

// New returns an empty snapshot of the current version
func New() *Snapshot {
	return &Snapshot{
		Version: Version,
		Builds:  []Record{},
	}
}

// Add appends records to the snapshot
func (s *Snapshot) Add(records ...Record) {
	s.Builds = append(s.Builds, records...)
}

// ToJSON serializes the snapshot
func (s *Snapshot) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling snapshot: %w", err)
	}
	return data, nil
}

// Parse reads a snapshot document
func Parse(data []byte) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("unmarshalling snapshot json: %w", err)
	}
	if snap.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	if snap.Builds == nil {
		snap.Builds = []Record{}
	}
	return snap, nil
}
