/*
Copyright 2022 The Kubernetes Authors.

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

package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"sigs.k8s.io/checkbuild/pkg/build"
	"sigs.k8s.io/checkbuild/pkg/builder/driver"
)

// DefaultTimeout bounds every call made to the build system
const DefaultTimeout = 5 * time.Minute

type Options struct {
	// Timeout applies to each remote call, zero disables it
	Timeout time.Duration
	User    string
	Token   string
}

// Builder is the handle to the build system the cache queries
type Builder struct {
	SpecURL string
	Options Options
	driver  driver.BuildSystem
}

// New returns a new builder loaded with the driver derived from
// the spec URL
func New(specURL string, opts Options) (*Builder, error) {
	d, err := driver.NewFromSpecURL(specURL, driver.Options{
		User:  opts.User,
		Token: opts.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("getting driver: %w", err)
	}
	return NewWithDriver(specURL, opts, d), nil
}

// NewWithDriver returns a builder wrapping an existing driver
func NewWithDriver(specURL string, opts Options, d driver.BuildSystem) *Builder {
	return &Builder{
		SpecURL: specURL,
		Options: opts,
		driver:  d,
	}
}

func (b *Builder) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.Options.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.Options.Timeout)
}

// BuildNumbersForRevision returns the builds of job that ran for revision
func (b *Builder) BuildNumbersForRevision(ctx context.Context, job, revision string) ([]int64, error) {
	ctx, cancel := b.callContext(ctx)
	defer cancel()

	start := time.Now()
	ids, err := b.driver.BuildNumbersForRevision(ctx, job, revision)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("Found builds %v of %s in %s", ids, job, time.Since(start).Round(time.Millisecond))
	return ids, nil
}

// GetBuild reads the status and test results of a build
func (b *Builder) GetBuild(ctx context.Context, job string, id int64) (build.Remote, error) {
	ctx, cancel := b.callContext(ctx)
	defer cancel()

	start := time.Now()
	r, err := b.driver.GetBuild(ctx, job, id)
	if err != nil {
		return build.Remote{}, err
	}
	logrus.Debugf(
		"Read build %d of %s (%d tests) in %s", id, job, len(r.Tests), time.Since(start).Round(time.Millisecond),
	)
	return r, nil
}
