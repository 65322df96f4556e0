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

package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"sigs.k8s.io/checkbuild/pkg/build"
)

const (
	jenkinsJobTree       = "builds[number,actions[lastBuiltRevision[SHA1]]],firstBuild[number]"
	jenkinsAllBuildsTree = "allBuilds[number,actions[lastBuiltRevision[SHA1]]]"
	jenkinsBuildTree     = "number,result,building"
	jenkinsReportTree = "suites[cases[className,name,status,errorStackTrace]]," +
		"childReports[result[suites[cases[className,name,status,errorStackTrace]]]]"
)

// Jenkins queries the JSON API of a jenkins server
type Jenkins struct {
	URL    string
	User   string
	Token  string
	client *http.Client
}

type jenkinsBuildRef struct {
	Number  int64 `json:"number"`
	Actions []struct {
		LastBuiltRevision *struct {
			SHA1 string `json:"SHA1"`
		} `json:"lastBuiltRevision"`
	} `json:"actions"`
}

// Jenkins lists only the latest 100 builds in builds,
// the full history is in allBuilds
type jenkinsJob struct {
	Builds     []jenkinsBuildRef `json:"builds"`
	AllBuilds  []jenkinsBuildRef `json:"allBuilds"`
	FirstBuild *struct {
		Number int64 `json:"number"`
	} `json:"firstBuild"`
}

// truncated reports whether the first build of the job is
// missing from the builds page
func (job *jenkinsJob) truncated() bool {
	if job.FirstBuild == nil {
		return false
	}
	for _, b := range job.Builds {
		if b.Number == job.FirstBuild.Number {
			return false
		}
	}
	return true
}

type jenkinsBuild struct {
	Number   int64   `json:"number"`
	Result   *string `json:"result"`
	Building bool    `json:"building"`
}

type jenkinsSuite struct {
	Cases []struct {
		ClassName       string `json:"className"`
		Name            string `json:"name"`
		Status          string `json:"status"`
		ErrorStackTrace string `json:"errorStackTrace"`
	} `json:"cases"`
}

// Aggregated reports (matrix or maven builds) hold
// their suites in child reports
type jenkinsTestReport struct {
	Suites       []jenkinsSuite `json:"suites"`
	ChildReports []struct {
		Result struct {
			Suites []jenkinsSuite `json:"suites"`
		} `json:"result"`
	} `json:"childReports"`
}

func NewJenkins(specURL string, opts Options) (*Jenkins, error) {
	u, err := url.Parse(specURL)
	if err != nil {
		return nil, fmt.Errorf("parsing jenkins URL: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("jenkins URL %q has no host", specURL)
	}
	return &Jenkins{
		URL:    strings.TrimSuffix(u.String(), "/"),
		User:   opts.User,
		Token:  opts.Token,
		client: opts.httpClient(),
	}, nil
}

// jobURL returns the URL of a job, supporting jobs in folders
func (j *Jenkins) jobURL(job string) string {
	var sb strings.Builder
	sb.WriteString(j.URL)
	for _, part := range strings.Split(strings.Trim(job, "/"), "/") {
		sb.WriteString("/job/")
		sb.WriteString(url.PathEscape(part))
	}
	return sb.String()
}

func (j *Jenkins) getJSON(ctx context.Context, endpoint, tree string, v any) error {
	u := endpoint + "/api/json?tree=" + url.QueryEscape(tree)
	logrus.WithField("driver", "jenkins").Debugf("JenkinsAPI[GET]: %s", u)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if j.User != "" {
		req.SetBasicAuth(j.User, j.Token)
	}

	res, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing http request to jenkins: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", endpoint, ErrNotFound)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("http error %d from jenkins API at %s", res.StatusCode, endpoint)
	}

	rawData, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading api response data: %w", err)
	}
	if err := json.Unmarshal(rawData, v); err != nil {
		return fmt.Errorf("unmarshalling jenkins response: %w", err)
	}
	return nil
}

// BuildNumbersForRevision returns the numbers of the builds of job
// whose last built git revision is revision
func (j *Jenkins) BuildNumbersForRevision(ctx context.Context, job, revision string) ([]int64, error) {
	data := &jenkinsJob{}
	if err := j.getJSON(ctx, j.jobURL(job), jenkinsJobTree, data); err != nil {
		return nil, fmt.Errorf("querying job %s: %w", job, err)
	}

	builds := data.Builds
	if data.truncated() {
		logrus.WithField("driver", "jenkins").Debugf(
			"Job %s has more than %d builds, reading the full history", job, len(data.Builds),
		)
		all := &jenkinsJob{}
		if err := j.getJSON(ctx, j.jobURL(job), jenkinsAllBuildsTree, all); err != nil {
			return nil, fmt.Errorf("querying build history of %s: %w", job, err)
		}
		builds = all.AllBuilds
	}

	numbers := []int64{}
	for _, b := range builds {
		for _, a := range b.Actions {
			if a.LastBuiltRevision == nil || !strings.EqualFold(a.LastBuiltRevision.SHA1, revision) {
				continue
			}
			if !slices.Contains(numbers, b.Number) {
				numbers = append(numbers, b.Number)
			}
		}
	}
	logrus.WithField("driver", "jenkins").Debugf(
		"Job %s has %d builds for %s", job, len(numbers), revision,
	)
	return numbers, nil
}

// GetBuild returns the result of a build. Test results are only
// read once the build has finished.
func (j *Jenkins) GetBuild(ctx context.Context, job string, id int64) (build.Remote, error) {
	r := build.Remote{ID: id, Tests: []build.TestResult{}}
	buildURL := fmt.Sprintf("%s/%d", j.jobURL(job), id)

	data := &jenkinsBuild{}
	if err := j.getJSON(ctx, buildURL, jenkinsBuildTree, data); err != nil {
		return r, fmt.Errorf("querying build %d of %s: %w", id, job, err)
	}

	// Jenkins sets the result before post build steps are done
	if data.Building || data.Result == nil {
		return r, nil
	}
	r.Status = data.Result

	report := &jenkinsTestReport{}
	if err := j.getJSON(ctx, buildURL+"/testReport", jenkinsReportTree, report); err != nil {
		if errors.Is(err, ErrNotFound) {
			logrus.WithField("driver", "jenkins").Debugf("Build %d of %s has no test report", id, job)
			return r, nil
		}
		return r, fmt.Errorf("reading test report of build %d: %w", id, err)
	}

	suites := slices.Clone(report.Suites)
	for _, child := range report.ChildReports {
		suites = append(suites, child.Result.Suites...)
	}
	for _, s := range suites {
		for _, c := range s.Cases {
			name := c.Name
			if c.ClassName != "" {
				name = c.ClassName + "." + c.Name
			}
			r.Tests = append(r.Tests, build.TestResult{
				Name:   name,
				Status: c.Status,
				Trace:  c.ErrorStackTrace,
			})
		}
	}
	return r, nil
}
