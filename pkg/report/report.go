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

package report

import (
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/fatih/color"

	"sigs.k8s.io/checkbuild/pkg/build"
)

// Options control what the reporter prints
type Options struct {
	// Trace prints the stack trace under each failed test
	Trace bool
}

// Reporter prints build results. Status lines go to Err,
// failed tests go to Out so they can be piped.
type Reporter struct {
	Options Options
	Out     io.Writer
	Err     io.Writer
}

// New returns a reporter writing to the standard streams
func New(opts Options) *Reporter {
	return &Reporter{
		Options: opts,
		Out:     os.Stdout,
		Err:     color.Error,
	}
}

// StatusMessage returns the label for the state of a build
func StatusMessage(b *build.Build) string {
	switch b.State() {
	case build.StateRunning:
		return "is still running"
	case build.StateSucceeded:
		return "succeeded"
	default:
		return "failed"
	}
}

// StatusColor returns the color builds are printed in
func StatusColor(b *build.Build) *color.Color {
	switch b.State() {
	case build.StateRunning:
		return color.New(color.FgBlue)
	case build.StateSucceeded:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgRed)
	}
}

// StatusLine is the line printed for each build
func StatusLine(b *build.Build) string {
	return fmt.Sprintf(
		"Build %d (%s) for %s %s.", b.ID(), b.JobName(), b.ShortRevision(), StatusMessage(b),
	)
}

// Report prints the builds in the sequence until it finds the first
// one that is not running. If that build failed, its failed tests
// are printed too. Builds after it are not consumed. Report returns
// the number of builds printed and the first error from the sequence.
func (r *Reporter) Report(builds iter.Seq2[*build.Build, error]) (int, error) {
	printed := 0
	for b, err := range builds {
		if err != nil {
			return printed, err
		}
		if _, err := StatusColor(b).Fprintln(r.Err, StatusLine(b)); err != nil {
			return printed, fmt.Errorf("writing build status: %w", err)
		}
		printed++

		if b.Running() {
			continue
		}
		if b.Failed() {
			if err := r.printFailedTests(b); err != nil {
				return printed, err
			}
		}
		break
	}
	return printed, nil
}

func (r *Reporter) printFailedTests(b *build.Build) error {
	for _, t := range b.FailedTests() {
		if _, err := fmt.Fprintln(r.Out, t.Name); err != nil {
			return fmt.Errorf("writing failed test: %w", err)
		}
		if r.Options.Trace && t.Trace != "" {
			if _, err := fmt.Fprintln(r.Out, t.Trace); err != nil {
				return fmt.Errorf("writing test trace: %w", err)
			}
		}
	}
	return nil
}
