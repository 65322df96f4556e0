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

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"sigs.k8s.io/checkbuild/pkg/store/driver"
	"sigs.k8s.io/checkbuild/pkg/store/snapshot"
)

// ErrNotFound is returned when the store has no snapshot written yet
var ErrNotFound = driver.ErrNotFound

// Store reads and writes the cache snapshot at the location
// defined in its spec URL
type Store struct {
	SpecURL string
	Driver  Implementation
}

// Implementation is the interface storage drivers implement
type Implementation interface {
	Read(context.Context) ([]byte, error)
	Write(context.Context, []byte) error
}

// New returns a store with the driver derived from the spec URL.
// Plain paths are treated as local files. Client options are passed
// to the drivers talking to cloud storage.
func New(ctx context.Context, specURL string, opts ...option.ClientOption) (s *Store, err error) {
	if specURL == "" {
		return nil, errors.New("snapshot store location is empty")
	}
	// Anything without a scheme is a path, even if it
	// has characters with a meaning in URLs
	scheme, _, found := strings.Cut(specURL, "://")
	if !found {
		scheme = "file"
	}
	var impl Implementation
	switch scheme {
	case "file":
		impl, err = driver.NewFile(specURL)
		if err != nil {
			return nil, fmt.Errorf("creating file store: %w", err)
		}
	case "gs":
		impl, err = driver.NewGCS(ctx, specURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating gcs store: %w", err)
		}
	default:
		return nil, fmt.Errorf("%s is not a storage URL", specURL)
	}
	return &Store{SpecURL: specURL, Driver: impl}, nil
}

// ReadSnapshot reads and parses the stored snapshot
func (s *Store) ReadSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	data, err := s.Driver.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot from %s: %w", s.SpecURL, err)
	}
	snap, err := snapshot.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot from %s: %w", s.SpecURL, err)
	}
	return snap, nil
}

// WriteSnapshot replaces the stored snapshot
func (s *Store) WriteSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	data, err := snap.ToJSON()
	if err != nil {
		return fmt.Errorf("serializing snapshot: %w", err)
	}
	if err := s.Driver.Write(ctx, data); err != nil {
		return fmt.Errorf("writing snapshot to %s: %w", s.SpecURL, err)
	}
	logrus.Debugf("Wrote %d build records to %s", len(snap.Builds), s.SpecURL)
	return nil
}
