//go:build mage

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

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const versionPkg = "sigs.k8s.io/release-utils/version"

// Default target to run when none is specified
var Default = Verify

// Verify runs the linters and the tests
func Verify() error {
	mg.Deps(Vet)
	return Test()
}

// Vet runs go vet on all packages
func Vet() error {
	fmt.Println("Running go vet...")
	return sh.RunV("go", "vet", "./...")
}

// Test runs the unit tests
func Test() error {
	fmt.Println("Running tests...")
	return sh.RunV("go", "test", "-race", "-cover", "./...")
}

// Build compiles the checkbuild binary into ./output
func Build() error {
	fmt.Println("Building checkbuild...")
	ldflags, err := ldFlags()
	if err != nil {
		return err
	}
	if err := os.MkdirAll("output", os.FileMode(0o755)); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return sh.RunWithV(
		map[string]string{"CGO_ENABLED": "0"},
		"go", "build", "-trimpath", "-ldflags", ldflags, "-o", "output/checkbuild", ".",
	)
}

// Clean removes the build output
func Clean() error {
	return sh.Rm("output")
}

func ldFlags() (string, error) {
	gitVersion, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		return "", fmt.Errorf("getting git version: %w", err)
	}
	gitCommit, err := sh.Output("git", "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("getting git commit: %w", err)
	}
	return strings.Join([]string{
		"-s", "-w",
		fmt.Sprintf("-X %s.gitVersion=%s", versionPkg, gitVersion),
		fmt.Sprintf("-X %s.gitCommit=%s", versionPkg, gitCommit),
	}, " "), nil
}
