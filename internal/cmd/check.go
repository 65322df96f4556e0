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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/apko/pkg/vcs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"
	"sigs.k8s.io/release-utils/version"

	"sigs.k8s.io/checkbuild/pkg/build"
	"sigs.k8s.io/checkbuild/pkg/builder"
	"sigs.k8s.io/checkbuild/pkg/cache"
	"sigs.k8s.io/checkbuild/pkg/git"
	"sigs.k8s.io/checkbuild/pkg/report"
	"sigs.k8s.io/checkbuild/pkg/store"
)

const noCommitMessage = "No commit found with that name"

// errNoCommit is returned when the commit reference does not resolve
var errNoCommit = errors.New("no commit found with that name")

func newReporter(cmd *cobra.Command, opts *checkOptions) *report.Reporter {
	r := report.New(report.Options{Trace: opts.Trace})
	r.Out = cmd.OutOrStdout()
	return r
}

// openStore returns the snapshot store or nil if caching is disabled
func openStore(ctx context.Context, opts *cacheOptions) (*store.Store, error) {
	path, err := opts.FinalSnapshotPath()
	if err != nil {
		return nil, err
	}
	if path == "" {
		logrus.Debug("Build cache disabled")
		return nil, nil
	}
	s, err := store.New(
		ctx, path, option.WithUserAgent("checkbuild/"+version.GetVersionInfo().GitVersion),
	)
	if err != nil {
		return nil, fmt.Errorf("opening build cache: %w", err)
	}
	return s, nil
}

// ciName returns the name of the CI system a URL points to
func ciName(specURL string) string {
	if strings.HasPrefix(specURL, "github://") {
		return "GitHub Actions"
	}
	return "jenkins"
}

// runCheck resolves the revision, reports the builds of the
// configured jobs and saves the build cache
func runCheck(ctx context.Context, opts *checkOptions, ref string, rep *report.Reporter) error {
	repo := git.NewRepository(opts.workDir)
	sha, err := repo.Resolve(ref)
	if err != nil {
		if errors.Is(err, git.ErrRevisionNotFound) {
			logrus.Debug(err)
			return errNoCommit
		}
		return fmt.Errorf("resolving commit: %w", err)
	}
	short := sha[:build.ShortRevisionLength]

	if len(opts.Jobs) == 0 {
		logrus.Warn("No jobs defined, use --jobs or JENKINS_JOBS to set the jobs to check")
		return nil
	}

	bldr, err := builder.New(opts.JenkinsURL, builder.Options{
		Timeout: opts.Timeout,
		User:    opts.User,
		Token:   opts.Token,
	})
	if err != nil {
		return fmt.Errorf("creating CI client: %w", err)
	}

	if opts.Verbose > 0 {
		fmt.Fprintf(rep.Err, "Connected to %s on %s\n", ciName(opts.JenkinsURL), opts.JenkinsURL)
		vcsURL, err := vcs.ProbeDirForVCSUrl(opts.workDir, opts.workDir)
		if err != nil {
			logrus.Debugf("Unable to probe VCS url: %v", err)
			if vcsURL, err = repo.SourceURL(); err != nil {
				logrus.Debugf("Unable to read repository remote: %v", err)
			}
		}
		if vcsURL != "" {
			logrus.Infof("Checking builds of %s at %s", vcsURL, short)
		}
	}

	st, err := openStore(ctx, &opts.cacheOptions)
	if err != nil {
		return err
	}

	c := cache.New(bldr)
	if st != nil {
		c.Load(ctx, st)
	}

	printed, err := rep.Report(c.GetBuildsForJobs(ctx, sha, opts.Jobs))
	if err != nil {
		return fmt.Errorf("checking builds: %w", err)
	}
	if printed == 0 {
		fmt.Fprintf(rep.Err, "No builds found for %s\n", short)
	}

	if st == nil {
		return nil
	}
	if err := c.Save(ctx, st); err != nil {
		return err
	}
	return nil
}
