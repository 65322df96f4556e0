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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sigs.k8s.io/release-utils/log"
	"sigs.k8s.io/release-utils/version"
)

func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	return run(ctx, newRootCommand(), os.Stderr)
}

// run executes the command tree. Errors are reported here, the
// caller only has to set the exit code.
func run(ctx context.Context, rootCmd *cobra.Command, stderr io.Writer) error {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, errNoCommit) {
		fmt.Fprintln(stderr, noCommitMessage)
		return err
	}
	logrus.Error(err)
	return err
}

func newRootCommand() *cobra.Command {
	opts := &checkOptions{}
	rootCmd := &cobra.Command{
		Short: "Check the CI builds of a git revision",
		Long: `checkbuild [COMMIT_REF]

checkbuild looks up the builds that CI jobs ran for a git
revision and prints their status. When a build failed, the
names of the failed tests are printed to STDOUT, status lines
go to STDERR.

The commit reference can be anything git understands: a branch,
a tag or a (short) hash. When omitted, the current checkout
is checked:

	checkbuild -j unit -j e2e main

Finished builds are kept in a local cache so checking the same
revision again does not query the CI server. Builds still running
are never cached.

Every flag can be set in the environment with the JENKINS_ prefix,
for example JENKINS_JENKINS_URL or JENKINS_JOBS="unit e2e".
	`,
		Use:               "checkbuild [COMMIT_REF]",
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.initialize,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) > 0 {
				ref = args[0]
			}
			if opts.workDir == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("reading working directory: %w", err)
				}
				opts.workDir = cwd
			}
			return runCheck(cmd.Context(), opts, ref, newReporter(cmd, opts))
		},
	}

	addCheckFlags(rootCmd, opts)
	addCache(rootCmd, &opts.cacheOptions)
	rootCmd.AddCommand(version.WithFont("larry3d"))
	return rootCmd
}

// setupLogging applies the log level, -vv raises it to debug
func setupLogging(level string, verbose int) error {
	if verbose > 1 {
		level = logrus.DebugLevel.String()
	}
	if err := log.SetupGlobalLogger(level); err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}
	return nil
}
