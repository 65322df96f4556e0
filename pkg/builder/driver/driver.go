/*
Copyright 2022 Adolfo García Veytia

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

package driver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"sigs.k8s.io/checkbuild/pkg/build"
)

// ErrNotFound is returned when the build system has no such resource
var ErrNotFound = errors.New("not found")

// BuildSystem is an interface to a type that can query a build system
// for the builds of a job and their results
type BuildSystem interface {
	BuildNumbersForRevision(ctx context.Context, job, revision string) ([]int64, error)
	GetBuild(ctx context.Context, job string, id int64) (build.Remote, error)
}

// Options are passed to the drivers when creating them
type Options struct {
	// User and Token authenticate against the build system,
	// drivers that do not support them ignore them
	User  string
	Token string

	HTTPClient *http.Client
}

func (o *Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{}
}

// NewFromSpecURL returns the driver for the build system at specURL
func NewFromSpecURL(specURL string, opts Options) (BuildSystem, error) {
	u, err := url.Parse(specURL)
	if err != nil {
		return nil, fmt.Errorf("parsing build system URL: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return NewJenkins(specURL, opts)
	case "github":
		return NewGitHubWorkflow(specURL, opts)
	default:
		return nil, fmt.Errorf("unable to get driver from moniker %q", u.Scheme)
	}
}
