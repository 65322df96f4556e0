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

package build

import (
	"fmt"
	"slices"

	"sigs.k8s.io/checkbuild/pkg/store/snapshot"
)

const (
	// SuccessStatus is the status tag a CI reports for a successful build
	SuccessStatus = "SUCCESS"

	// ShortRevisionLength is the length of the revision prefix used for display
	ShortRevisionLength = 10
)

// State is the lifecycle state of a build, derived from its status
type State int

const (
	StateRunning State = iota
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Remote is the data a build system returns for a single build. A nil
// Status means the build has not finished yet.
type Remote struct {
	ID     int64
	Status *string
	Tests  []TestResult
}

// Build is one execution of a CI job against a revision. Builds are
// never modified once created, a build that was running has to be
// fetched again to observe its result.
type Build struct {
	jobName  string
	id       int64
	revision string
	status   *string
	tests    []TestResult
	index    map[string]int
}

// FromRemote creates a build from a build system query result
func FromRemote(jobName, revision string, r Remote) *Build {
	return newBuild(jobName, r.ID, revision, r.Status, r.Tests)
}

// FromPersisted creates a build from a cache snapshot record
func FromPersisted(rec snapshot.Record) *Build {
	tests := make([]TestResult, 0, len(rec.Tests))
	for _, t := range rec.Tests {
		tr := TestResult{Name: t.Name, Status: t.Status}
		if t.Trace != nil {
			tr.Trace = *t.Trace
		}
		tests = append(tests, tr)
	}
	return newBuild(rec.JobName, rec.ID, rec.SHA, rec.Status, tests)
}

func newBuild(jobName string, id int64, revision string, status *string, tests []TestResult) *Build {
	b := &Build{
		jobName:  jobName,
		id:       id,
		revision: revision,
		tests:    make([]TestResult, 0, len(tests)),
		index:    make(map[string]int, len(tests)),
	}
	if status != nil {
		s := *status
		b.status = &s
	}
	// Test names are unique, a repeated name overwrites
	// the earlier result but keeps its position
	for _, t := range tests {
		if i, ok := b.index[t.Name]; ok {
			b.tests[i] = t
			continue
		}
		b.index[t.Name] = len(b.tests)
		b.tests = append(b.tests, t)
	}
	return b
}

func (b *Build) JobName() string { return b.jobName }

func (b *Build) ID() int64 { return b.id }

// Revision returns the full revision hash the build ran against
func (b *Build) Revision() string { return b.revision }

// ShortRevision returns the revision truncated for display
func (b *Build) ShortRevision() string {
	if len(b.revision) <= ShortRevisionLength {
		return b.revision
	}
	return b.revision[:ShortRevisionLength]
}

// Status returns the raw status reported by the CI and false
// if the build has no status yet
func (b *Build) Status() (string, bool) {
	if b.status == nil {
		return "", false
	}
	return *b.status, true
}

// State collapses the raw status into the build lifecycle state
func (b *Build) State() State {
	switch {
	case b.status == nil:
		return StateRunning
	case *b.status == SuccessStatus:
		return StateSucceeded
	default:
		return StateFailed
	}
}

func (b *Build) Running() bool { return b.State() == StateRunning }

func (b *Build) Succeeded() bool { return b.State() == StateSucceeded }

func (b *Build) Failed() bool { return b.State() == StateFailed }

// Tests returns the test results in the order they were recorded
func (b *Build) Tests() []TestResult {
	return slices.Clone(b.tests)
}

// Test looks up a single test result by name
func (b *Build) Test(name string) (TestResult, bool) {
	i, ok := b.index[name]
	if !ok {
		return TestResult{}, false
	}
	return b.tests[i], true
}

// FailedTests returns the tests that did not pass, in recorded order.
// Running builds have no results so the list is empty for them.
func (b *Build) FailedTests() []TestResult {
	failed := []TestResult{}
	for _, t := range b.tests {
		if t.Failed() {
			failed = append(failed, t)
		}
	}
	return failed
}

// Record returns the build in its persisted form
func (b *Build) Record() snapshot.Record {
	rec := snapshot.Record{
		JobName: b.jobName,
		SHA:     b.revision,
		ID:      b.id,
		Tests:   make([]snapshot.TestRecord, 0, len(b.tests)),
	}
	if b.status != nil {
		s := *b.status
		rec.Status = &s
	}
	for _, t := range b.tests {
		tr := snapshot.TestRecord{Name: t.Name, Status: t.Status}
		// Empty and absent traces are the same
		if t.Trace != "" {
			trace := t.Trace
			tr.Trace = &trace
		}
		rec.Tests = append(rec.Tests, tr)
	}
	return rec
}

func (b *Build) String() string {
	return fmt.Sprintf("%s#%d@%s", b.jobName, b.id, b.ShortRevision())
}
