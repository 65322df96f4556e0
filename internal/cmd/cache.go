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
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sigs.k8s.io/checkbuild/pkg/cache"
)

func addCache(parentCmd *cobra.Command, opts *cacheOptions) {
	// Noun
	cacheCmd := &cobra.Command{
		Short:        "Inspect or reset the build cache",
		Use:          "cache",
		SilenceUsage: true,
	}

	listCmd := &cobra.Command{
		Short: "List the builds stored in the cache",
		Long: `checkbuild cache list

Prints every job and revision stored in the build cache with the
builds recorded for it. Only finished builds are ever stored.
	`,
		Use:          "list",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if st == nil {
				return errors.New("build cache is disabled")
			}
			c := cache.New(nil)
			c.Load(cmd.Context(), st)
			return listCache(cmd.OutOrStdout(), c)
		},
	}

	clearCmd := &cobra.Command{
		Short:        "Remove all builds from the cache",
		Use:          "clear",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if st == nil {
				return errors.New("build cache is disabled")
			}
			if err := cache.New(nil).Save(cmd.Context(), st); err != nil {
				return err
			}
			logrus.Infof("Cleared build cache at %s", st.SpecURL)
			return nil
		},
	}

	cacheCmd.AddCommand(listCmd, clearCmd)
	parentCmd.AddCommand(cacheCmd)
}

func listCache(w io.Writer, c *cache.Cache) error {
	if c.Len() == 0 {
		_, err := fmt.Fprintln(w, "Build cache is empty")
		return err
	}
	for key, builds := range c.Entries() {
		summary := []string{}
		for _, b := range builds {
			status, _ := b.Status()
			summary = append(summary, fmt.Sprintf("#%d %s", b.ID(), status))
		}
		if len(summary) == 0 {
			summary = append(summary, "no finished builds")
		}
		if _, err := fmt.Fprintf(
			w, "%s %s: %s\n", key.Job, key.Revision, strings.Join(summary, ", "),
		); err != nil {
			return err
		}
	}
	return nil
}
