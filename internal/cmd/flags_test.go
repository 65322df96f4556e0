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

package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"sigs.k8s.io/checkbuild/pkg/builder"
)

func parseOptions(t *testing.T, configFile string, args ...string) *checkOptions {
	t.Helper()
	opts := &checkOptions{}
	cmd := &cobra.Command{Use: "checkbuild", RunE: func(*cobra.Command, []string) error { return nil }}
	addCheckFlags(cmd, opts)
	require.NoError(t, cmd.ParseFlags(args))
	v, err := newViper(cmd.Flags(), configFile)
	require.NoError(t, err)
	opts.load(v)
	return opts
}

func TestDefaults(t *testing.T) {
	opts := parseOptions(t, "")
	require.Equal(t, defaultJenkinsURL, opts.JenkinsURL)
	require.Empty(t, opts.Jobs)
	require.False(t, opts.Trace)
	require.Zero(t, opts.Verbose)
	require.Equal(t, builder.DefaultTimeout, opts.Timeout)
	require.Equal(t, defaultCachePath, opts.CachePath)
	require.Equal(t, "info", opts.LogLevel)
	require.NoError(t, opts.Validate())
}

func TestFlags(t *testing.T) {
	opts := parseOptions(t, "",
		"-u", "http://ci.example.com", "-j", "unit", "--jobs", "e2e", "-s", "-vv",
		"--timeout", "30s", "--cache", "", "--user", "robot", "--token", "abc",
	)
	require.Equal(t, "http://ci.example.com", opts.JenkinsURL)
	require.Equal(t, []string{"unit", "e2e"}, opts.Jobs)
	require.True(t, opts.Trace)
	require.Equal(t, 2, opts.Verbose)
	require.Equal(t, 30*time.Second, opts.Timeout)
	require.Empty(t, opts.CachePath)
	require.Equal(t, "robot", opts.User)
	require.Equal(t, "abc", opts.Token)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("JENKINS_JENKINS_URL", "github://org/repo")
	t.Setenv("JENKINS_JOBS", "unit e2e")
	t.Setenv("JENKINS_TRACE", "true")
	t.Setenv("JENKINS_TIMEOUT", "1m")

	opts := parseOptions(t, "")
	require.Equal(t, "github://org/repo", opts.JenkinsURL)
	require.Equal(t, []string{"unit", "e2e"}, opts.Jobs)
	require.True(t, opts.Trace)
	require.Equal(t, time.Minute, opts.Timeout)

	// Flags win over the environment
	opts = parseOptions(t, "", "-u", "http://ci.example.com", "-j", "lint")
	require.Equal(t, "http://ci.example.com", opts.JenkinsURL)
	require.Equal(t, []string{"lint"}, opts.Jobs)
}

func TestConfigFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "checkbuild.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`jenkins-url: http://config.example.com/
jobs:
  - unit
  - integration
timeout: 45s
`), os.FileMode(0o644)))

	opts := parseOptions(t, configFile)
	require.Equal(t, "http://config.example.com/", opts.JenkinsURL)
	require.Equal(t, []string{"unit", "integration"}, opts.Jobs)
	require.Equal(t, 45*time.Second, opts.Timeout)

	// The environment wins over the config file
	t.Setenv("JENKINS_JENKINS_URL", "http://env.example.com/")
	opts = parseOptions(t, configFile)
	require.Equal(t, "http://env.example.com/", opts.JenkinsURL)

	_, err := newViper(pflag.NewFlagSet("empty", pflag.ContinueOnError), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		opts checkOptions
		ok   bool
	}{
		{checkOptions{JenkinsURL: "http://ci"}, true},
		{checkOptions{JenkinsURL: "http://ci", User: "robot", Token: "abc"}, true},
		{checkOptions{JenkinsURL: "github://org/repo", Token: "abc"}, true},
		{checkOptions{JenkinsURL: "http://ci", Token: "abc"}, false},
		{checkOptions{JenkinsURL: ""}, false},
		{checkOptions{JenkinsURL: "http://ci", Timeout: -time.Second}, false},
	} {
		err := tc.opts.Validate()
		if tc.ok {
			require.NoError(t, err)
		} else {
			require.Error(t, err)
		}
	}
}

func TestFinalSnapshotPath(t *testing.T) {
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)

	co := cacheOptions{CachePath: defaultCachePath}
	path, err := co.FinalSnapshotPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cacheHome, "checkbuild", "builds.json"), path)

	co.CachePath = ""
	path, err = co.FinalSnapshotPath()
	require.NoError(t, err)
	require.Empty(t, path)

	co.CachePath = "gs://bucket/builds.json"
	path, err = co.FinalSnapshotPath()
	require.NoError(t, err)
	require.Equal(t, "gs://bucket/builds.json", path)
}
