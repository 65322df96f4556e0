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
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	revision = "0123456789abcdef0123456789abcdef01234567"
	otherRev = "fedcba9876543210fedcba9876543210fedcba98"
)

func newJenkinsServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.NotEmpty(t, r.URL.Query().Get("tree"))
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJenkinsJobURL(t *testing.T) {
	j, err := NewJenkins("http://jenkins.example.com/ci/", Options{})
	require.NoError(t, err)
	require.Equal(t, "http://jenkins.example.com/ci/job/unit", j.jobURL("unit"))
	require.Equal(t, "http://jenkins.example.com/ci/job/team/job/unit%20tests", j.jobURL("team/unit tests"))

	_, err = NewJenkins("http://", Options{})
	require.Error(t, err)
}

func TestJenkinsBuildNumbersForRevision(t *testing.T) {
	srv := newJenkinsServer(t, map[string]string{
		"/job/unit/api/json": fmt.Sprintf(`{"builds": [
			{"number": 12, "actions": [{}, {"lastBuiltRevision": {"SHA1": %q}}]},
			{"number": 11, "actions": [{"lastBuiltRevision": {"SHA1": %q}}]},
			{"number": 10, "actions": [
				{"lastBuiltRevision": {"SHA1": %q}},
				{"lastBuiltRevision": {"SHA1": %q}}
			]},
			{"number": 9, "actions": []}
		]}`, revision, otherRev, revision, revision),
	})
	j, err := NewJenkins(srv.URL, Options{})
	require.NoError(t, err)

	ids, err := j.BuildNumbersForRevision(context.Background(), "unit", revision)
	require.NoError(t, err)
	require.Equal(t, []int64{12, 10}, ids)

	ids, err = j.BuildNumbersForRevision(context.Background(), "unit", "1111111111111111111111111111111111111111")
	require.NoError(t, err)
	require.Empty(t, ids)

	_, err = j.BuildNumbersForRevision(context.Background(), "missing", revision)
	require.ErrorIs(t, err, ErrNotFound)
}

func jenkinsBuildRefs(from, to int64) string {
	refs := []string{}
	for n := from; n >= to; n-- {
		sha := otherRev
		if n == 10 {
			sha = revision
		}
		refs = append(refs, fmt.Sprintf(`{"number": %d, "actions": [{"lastBuiltRevision": {"SHA1": %q}}]}`, n, sha))
	}
	return "[" + strings.Join(refs, ",") + "]"
}

func TestJenkinsBuildHistoryBeyondFirstPage(t *testing.T) {
	var mu sync.Mutex
	trees := []string{}
	firstBuild := 1
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, "/job/ci/api/json", r.URL.Path)
		tree := r.URL.Query().Get("tree")
		trees = append(trees, tree)
		if strings.HasPrefix(tree, "allBuilds") {
			fmt.Fprintf(w, `{"allBuilds": %s}`, jenkinsBuildRefs(150, 1))
			return
		}
		fmt.Fprintf(w, `{"builds": %s, "firstBuild": {"number": %d}}`, jenkinsBuildRefs(150, 51), firstBuild)
	}))
	defer srv.Close()

	j, err := NewJenkins(srv.URL, Options{})
	require.NoError(t, err)
	ids, err := j.BuildNumbersForRevision(context.Background(), "ci", revision)
	require.NoError(t, err)
	require.Equal(t, []int64{10}, ids)
	mu.Lock()
	require.Equal(t, []string{jenkinsJobTree, jenkinsAllBuildsTree}, trees)
	mu.Unlock()

	ids, err = j.BuildNumbersForRevision(context.Background(), "ci", otherRev)
	require.NoError(t, err)
	require.Len(t, ids, 149)

	// When the first build is on the page the history is complete
	mu.Lock()
	firstBuild = 51
	trees = trees[:0]
	mu.Unlock()
	ids, err = j.BuildNumbersForRevision(context.Background(), "ci", revision)
	require.NoError(t, err)
	require.Empty(t, ids)
	mu.Lock()
	require.Equal(t, []string{jenkinsJobTree}, trees)
	mu.Unlock()
}

func TestJenkinsGetBuild(t *testing.T) {
	srv := newJenkinsServer(t, map[string]string{
		"/job/unit/12/api/json": `{"number": 12, "result": "UNSTABLE", "building": false}`,
		"/job/unit/12/testReport/api/json": `{"suites": [{"cases": [
			{"className": "pkg.Suite", "name": "TestA", "status": "PASSED"},
			{"className": "pkg.Suite", "name": "TestB", "status": "FAILED", "errorStackTrace": "assert failed"}
		]}], "childReports": [{"result": {"suites": [{"cases": [
			{"className": "", "name": "TestC", "status": "SKIPPED"}
		]}]}}]}`,
		"/job/unit/13/api/json": `{"number": 13, "result": null, "building": true}`,
		"/job/unit/14/api/json": `{"number": 14, "result": "SUCCESS", "building": false}`,
		"/job/unit/15/api/json": `{"number": 15, "result": "FAILURE", "building": true}`,
	})
	j, err := NewJenkins(srv.URL, Options{})
	require.NoError(t, err)
	ctx := context.Background()

	r, err := j.GetBuild(ctx, "unit", 12)
	require.NoError(t, err)
	require.Equal(t, int64(12), r.ID)
	require.NotNil(t, r.Status)
	require.Equal(t, "UNSTABLE", *r.Status)
	require.Len(t, r.Tests, 3)
	require.Equal(t, "pkg.Suite.TestA", r.Tests[0].Name)
	require.Equal(t, "pkg.Suite.TestB", r.Tests[1].Name)
	require.Equal(t, "assert failed", r.Tests[1].Trace)
	require.Equal(t, "TestC", r.Tests[2].Name)
	require.Equal(t, "SKIPPED", r.Tests[2].Status)

	// Running builds have no status
	r, err = j.GetBuild(ctx, "unit", 13)
	require.NoError(t, err)
	require.Nil(t, r.Status)
	require.Empty(t, r.Tests)

	r, err = j.GetBuild(ctx, "unit", 15)
	require.NoError(t, err)
	require.Nil(t, r.Status)

	// No test report published
	r, err = j.GetBuild(ctx, "unit", 14)
	require.NoError(t, err)
	require.Equal(t, "SUCCESS", *r.Status)
	require.Empty(t, r.Tests)

	_, err = j.GetBuild(ctx, "unit", 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestJenkinsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/job/garbage/api/json" {
			fmt.Fprint(w, "<html>")
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	j, err := NewJenkins(srv.URL, Options{})
	require.NoError(t, err)
	_, err = j.BuildNumbersForRevision(context.Background(), "unit", revision)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "500")

	_, err = j.BuildNumbersForRevision(context.Background(), "garbage", revision)
	require.Error(t, err)
}

func TestJenkinsBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "robot" || pass != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"builds": []}`)
	}))
	defer srv.Close()

	j, err := NewJenkins(srv.URL, Options{User: "robot", Token: "s3cret"})
	require.NoError(t, err)
	ids, err := j.BuildNumbersForRevision(context.Background(), "unit", revision)
	require.NoError(t, err)
	require.Empty(t, ids)

	j, err = NewJenkins(srv.URL, Options{})
	require.NoError(t, err)
	_, err = j.BuildNumbersForRevision(context.Background(), "unit", revision)
	require.Error(t, err)
}
