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

// Test statuses that do not count as a failure
const (
	TestPassed  = "PASSED"
	TestSkipped = "SKIPPED"
	TestFixed   = "FIXED"
)

// TestResult is the outcome of a single test in a build
type TestResult struct {
	Name   string
	Status string
	// Trace holds the error stack trace when the CI captured one.
	// An empty trace means there is none, it is stored as absent.
	Trace string
}

// Failed returns true if the test status is not one of the passing ones
func (t TestResult) Failed() bool {
	switch t.Status {
	case TestPassed, TestSkipped, TestFixed:
		return false
	default:
		return true
	}
}
