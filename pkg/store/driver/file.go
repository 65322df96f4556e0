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
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/release-utils/helpers"
)

// NewFile returns a file driver for a path or a file:// URL. The
// path after the scheme is used as is, it is not URL decoded.
func NewFile(specURL string) (*File, error) {
	path, _ := strings.CutPrefix(specURL, "file://")
	if path == "" {
		return nil, errors.New("file store has no path defined")
	}
	return &File{
		Path: filepath.Clean(path),
	}, nil
}

// File stores the snapshot in a local file
type File struct {
	Path string
}

// Read returns the file contents
func (f *File) Read(context.Context) ([]byte, error) {
	if !helpers.Exists(f.Path) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}
	return data, nil
}

// Write replaces the file. Data is written to a temporary file next
// to the destination which is then renamed over it, readers never
// see a partially written snapshot.
func (f *File) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, os.FileMode(0o755)); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+"-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), os.FileMode(0o644)); err != nil {
		return fmt.Errorf("setting snapshot permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("replacing %s: %w", f.Path, err)
	}
	return nil
}
