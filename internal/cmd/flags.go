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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sigs.k8s.io/release-utils/log"

	"sigs.k8s.io/checkbuild/pkg/builder"
)

const (
	envPrefix         = "JENKINS"
	defaultJenkinsURL = "http://jenkins.maykin.nl/"
	defaultCachePath  = "default"
	cacheFileName     = "builds.json"
)

type cacheOptions struct {
	CachePath  string
	ConfigFile string
	LogLevel   string
}

// FinalSnapshotPath returns the path to store/read the cache snapshot.
// The default is builds.json in the user cache directory. A blank
// path means do not store the builds.
func (co *cacheOptions) FinalSnapshotPath() (string, error) {
	if co.CachePath != defaultCachePath {
		return co.CachePath, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating user cache directory: %w", err)
	}
	return filepath.Join(dir, "checkbuild", cacheFileName), nil
}

type checkOptions struct {
	cacheOptions
	Verbose    int
	JenkinsURL string
	Jobs       []string
	Trace      bool
	Timeout    time.Duration
	User       string
	Token      string

	workDir string
}

func (opts *checkOptions) Validate() error {
	errs := []error{}
	if opts.JenkinsURL == "" {
		errs = append(errs, errors.New("CI URL is empty"))
	}
	if opts.Timeout < 0 {
		errs = append(errs, errors.New("timeout cannot be negative"))
	}
	if opts.Token != "" && opts.User == "" && !strings.HasPrefix(opts.JenkinsURL, "github://") {
		errs = append(errs, errors.New("jenkins API token set without a user"))
	}
	return errors.Join(errs...)
}

func addCheckFlags(command *cobra.Command, opts *checkOptions) {
	command.PersistentFlags().StringVar(
		&opts.LogLevel,
		"log-level",
		"info",
		fmt.Sprintf("the logging verbosity, either %s", log.LevelNames()),
	)

	command.PersistentFlags().StringVar(
		&opts.CachePath,
		"cache",
		defaultCachePath,
		"location of the build cache: a path, file:// or gs:// URL, empty disables it",
	)

	command.PersistentFlags().StringVar(
		&opts.ConfigFile,
		"config",
		"",
		"configuration file (yaml or json) with flag values",
	)

	command.Flags().CountVarP(
		&opts.Verbose,
		"verbose",
		"v",
		"verbose output, repeat for debug logs",
	)

	command.Flags().StringVarP(
		&opts.JenkinsURL,
		"jenkins-url",
		"u",
		defaultJenkinsURL,
		"URL of the CI server (http(s):// for jenkins, github://org/repo for GitHub actions)",
	)

	command.Flags().StringSliceVarP(
		&opts.Jobs,
		"jobs",
		"j",
		[]string{},
		"jobs to check, can be repeated",
	)

	command.Flags().BoolVarP(
		&opts.Trace,
		"trace",
		"s",
		false,
		"print the stack traces of failed tests",
	)

	command.Flags().DurationVar(
		&opts.Timeout,
		"timeout",
		builder.DefaultTimeout,
		"timeout for each request to the CI server, 0 disables it",
	)

	command.Flags().StringVar(
		&opts.User,
		"user",
		"",
		"user to authenticate to jenkins",
	)

	command.Flags().StringVar(
		&opts.Token,
		"token",
		"",
		"API token to authenticate to the CI server",
	)
}

// newViper returns a viper instance resolving the flags of a command,
// their JENKINS_ environment variables and the config file, in that order
func newViper(flags *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// initialize fills the options from flags, environment and config file
// and sets up logging for every command
func (opts *checkOptions) initialize(cmd *cobra.Command, _ []string) error {
	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = os.Getenv(envPrefix + "_CONFIG")
	}
	v, err := newViper(cmd.Flags(), configFile)
	if err != nil {
		return err
	}
	opts.load(v)
	if err := setupLogging(opts.LogLevel, opts.Verbose); err != nil {
		return err
	}
	// Only the check itself talks to the CI server
	if cmd == cmd.Root() {
		if err := opts.Validate(); err != nil {
			return fmt.Errorf("validating options: %w", err)
		}
	}
	return nil
}

func (opts *checkOptions) load(v *viper.Viper) {
	opts.LogLevel = v.GetString("log-level")
	opts.CachePath = v.GetString("cache")
	opts.Verbose = v.GetInt("verbose")
	opts.JenkinsURL = v.GetString("jenkins-url")
	opts.Jobs = v.GetStringSlice("jobs")
	opts.Trace = v.GetBool("trace")
	opts.Timeout = v.GetDuration("timeout")
	opts.User = v.GetString("user")
	opts.Token = v.GetString("token")
}
