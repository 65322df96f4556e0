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

package driver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"sigs.k8s.io/checkbuild/pkg/build"
	"sigs.k8s.io/checkbuild/pkg/github"
)

const (
	ghWorkflowRunsPath = "repos/%s/%s/actions/workflows/%s/runs?head_sha=%s&per_page=100"
	ghRunPath          = "repos/%s/%s/actions/runs/%d"
	ghRunJobsPath      = "repos/%s/%s/actions/runs/%d/jobs?per_page=100"
)

// GitHubWorkflow reads the runs of GitHub actions workflows. Jobs
// are workflow file names and the jobs of a run are reported as its
// test results.
type GitHubWorkflow struct {
	Organization string
	Repository   string
	client       *github.Client
}

// NewGitHubWorkflow returns a driver for a spec URL
// of the form github://org/repo
func NewGitHubWorkflow(specURL string, opts Options) (*GitHubWorkflow, error) {
	org, repo, err := parseGitHubURL(specURL)
	if err != nil {
		return nil, err
	}
	client := github.NewClient()
	client.HTTPClient = opts.httpClient()
	if opts.Token != "" {
		client.Token = opts.Token
	}
	return &GitHubWorkflow{
		Organization: org,
		Repository:   repo,
		client:       client,
	}, nil
}

func parseGitHubURL(specURL string) (org, repo string, err error) {
	u, err := url.Parse(specURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing spec url: %w", err)
	}
	if u.Scheme != "github" {
		return "", "", errors.New("URL is not a github URL")
	}
	repo = strings.Trim(u.Path, "/")
	if u.Hostname() == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("github URL %q is not of the form github://org/repo", specURL)
	}
	return u.Hostname(), repo, nil
}

// BuildNumbersForRevision lists the runs of the workflow
// triggered for the revision
func (ghw *GitHubWorkflow) BuildNumbersForRevision(ctx context.Context, workflow, revision string) ([]int64, error) {
	runs := &github.RunList{}
	if err := ghw.client.GetJSON(ctx, fmt.Sprintf(
		ghWorkflowRunsPath, ghw.Organization, ghw.Repository,
		url.PathEscape(workflow), url.QueryEscape(revision),
	), runs); err != nil {
		return nil, fmt.Errorf("listing runs of workflow %s: %w", workflow, err)
	}

	ids := make([]int64, 0, len(runs.WorkflowRuns))
	for _, r := range runs.WorkflowRuns {
		if !strings.EqualFold(r.HeadSHA, revision) {
			continue
		}
		ids = append(ids, r.ID)
	}
	logrus.WithField("driver", "github").Debugf(
		"Workflow %s has %d runs for %s", workflow, len(ids), revision,
	)
	return ids, nil
}

// GetBuild queries the GitHub API to get the run status and its jobs
func (ghw *GitHubWorkflow) GetBuild(ctx context.Context, workflow string, id int64) (build.Remote, error) {
	r := build.Remote{ID: id, Tests: []build.TestResult{}}

	runData := &github.Run{}
	if err := ghw.client.GetJSON(ctx, fmt.Sprintf(
		ghRunPath, ghw.Organization, ghw.Repository, id,
	), runData); err != nil {
		return r, fmt.Errorf("querying run %d of %s: %w", id, workflow, err)
	}

	if runData.Status != github.StatusCompleted {
		return r, nil
	}
	status := runStatus(runData.Conclusion)
	r.Status = &status

	jobs := &github.JobList{}
	if err := ghw.client.GetJSON(ctx, fmt.Sprintf(
		ghRunJobsPath, ghw.Organization, ghw.Repository, id,
	), jobs); err != nil {
		return r, fmt.Errorf("listing jobs of run %d: %w", id, err)
	}
	for _, j := range jobs.Jobs {
		r.Tests = append(r.Tests, build.TestResult{
			Name:   j.Name,
			Status: jobStatus(j),
		})
	}
	return r, nil
}

// runStatus maps a run conclusion to a build status
func runStatus(conclusion string) string {
	switch conclusion {
	case github.ConclusionSuccess:
		return build.SuccessStatus
	case "":
		return "UNKNOWN"
	default:
		return strings.ToUpper(conclusion)
	}
}

// jobStatus maps the conclusion of a job to a test status
func jobStatus(j github.Job) string {
	switch j.Conclusion {
	case github.ConclusionSuccess, github.ConclusionNeutral:
		return build.TestPassed
	case github.ConclusionSkipped:
		return build.TestSkipped
	case "":
		return strings.ToUpper(j.Status)
	default:
		return strings.ToUpper(j.Conclusion)
	}
}
