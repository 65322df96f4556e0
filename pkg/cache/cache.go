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

package cache

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/sirupsen/logrus"

	"sigs.k8s.io/checkbuild/pkg/build"
	"sigs.k8s.io/checkbuild/pkg/store"
	"sigs.k8s.io/checkbuild/pkg/store/snapshot"
)

// Client is the build system the cache falls through to on a miss
type Client interface {
	// BuildNumbersForRevision returns the identifiers of the builds
	// of job that ran against revision
	BuildNumbersForRevision(ctx context.Context, job, revision string) ([]int64, error)

	// GetBuild returns the status and test results of a build
	GetBuild(ctx context.Context, job string, id int64) (build.Remote, error)
}

// Source is where a cache loads its snapshot from
type Source interface {
	ReadSnapshot(context.Context) (*snapshot.Snapshot, error)
}

// Sink is where a cache saves its snapshot to
type Sink interface {
	WriteSnapshot(context.Context, *snapshot.Snapshot) error
}

// Key identifies the builds of a job for a revision
type Key struct {
	Job      string
	Revision string
}

// Cache maps (job, revision) pairs to the finished builds the CI
// reported for them. It is not safe for concurrent use.
type Cache struct {
	client  Client
	entries map[Key][]*build.Build
	// keys records insertion order, snapshots are written in it
	keys []Key
}

// New returns an empty cache backed by client
func New(client Client) *Cache {
	return &Cache{
		client:  client,
		entries: map[Key][]*build.Build{},
		keys:    []Key{},
	}
}

// Load fills the cache from a snapshot. A missing or unreadable
// snapshot leaves the cache as it is, that is treated as a cold start.
func (c *Cache) Load(ctx context.Context, src Source) {
	snap, err := src.ReadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logrus.Debug("No build cache snapshot found, starting empty")
		} else {
			logrus.Warnf("Ignoring build cache snapshot: %v", err)
		}
		return
	}

	loaded := 0
	for _, rec := range snap.Builds {
		// Running builds are never written, skip any found
		if rec.Status == nil {
			logrus.Debugf("Skipping unfinished build %s#%d in snapshot", rec.JobName, rec.ID)
			continue
		}
		key := Key{Job: rec.JobName, Revision: rec.SHA}
		c.set(key, append(c.entries[key], build.FromPersisted(rec)))
		loaded++
	}
	logrus.Debugf("Loaded %d builds for %d keys from cache snapshot", loaded, len(c.keys))
}

// GetBuilds returns the builds of job for revision. Cached lists are
// returned as stored. On a miss the builds are fetched from the client
// and returned in full, but only the finished ones are stored: a later
// lookup of the same key does not see running builds and does not
// query the client again, even when nothing was finished.
func (c *Cache) GetBuilds(ctx context.Context, job, revision string) ([]*build.Build, error) {
	key := Key{Job: job, Revision: revision}
	if builds, ok := c.entries[key]; ok {
		logrus.Debugf("Cache hit for %s at %s (%d builds)", job, revision, len(builds))
		return builds, nil
	}

	logrus.Debugf("Cache miss for %s at %s", job, revision)
	builds, err := c.fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	finished := make([]*build.Build, 0, len(builds))
	for _, b := range builds {
		if b.Running() {
			continue
		}
		finished = append(finished, b)
	}
	c.set(key, finished)
	return builds, nil
}

func (c *Cache) fetch(ctx context.Context, key Key) ([]*build.Build, error) {
	ids, err := c.client.BuildNumbersForRevision(ctx, key.Job, key.Revision)
	if err != nil {
		return nil, fmt.Errorf("listing builds of %s for %s: %w", key.Job, key.Revision, err)
	}

	builds := make([]*build.Build, 0, len(ids))
	for _, id := range ids {
		r, err := c.client.GetBuild(ctx, key.Job, id)
		if err != nil {
			return nil, fmt.Errorf("getting build %d of %s: %w", id, key.Job, err)
		}
		// The build number passed in wins over whatever the remote returned
		r.ID = id
		builds = append(builds, build.FromRemote(key.Job, key.Revision, r))
	}
	return builds, nil
}

// GetBuildsForJobs returns a sequence of the builds of every job for
// revision, in job order. Lookups happen as the sequence is consumed
// and are redone on every iteration. A lookup error is yielded once and
// ends the sequence.
func (c *Cache) GetBuildsForJobs(ctx context.Context, revision string, jobs []string) iter.Seq2[*build.Build, error] {
	return func(yield func(*build.Build, error) bool) {
		for _, job := range jobs {
			builds, err := c.GetBuilds(ctx, job, revision)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, b := range builds {
				if !yield(b, nil) {
					return
				}
			}
		}
	}
}

// Lookup returns the stored builds for a key without querying the
// client. The boolean reports whether the key has been observed at all,
// so an empty observed list can be told apart from a key never fetched.
func (c *Cache) Lookup(job, revision string) ([]*build.Build, bool) {
	builds, ok := c.entries[Key{Job: job, Revision: revision}]
	return builds, ok
}

// Len returns the number of cached keys
func (c *Cache) Len() int {
	return len(c.keys)
}

// Entries returns the cached keys and their builds in insertion order
func (c *Cache) Entries() iter.Seq2[Key, []*build.Build] {
	return func(yield func(Key, []*build.Build) bool) {
		for _, k := range c.keys {
			if !yield(k, c.entries[k]) {
				return
			}
		}
	}
}

// Snapshot returns the full cache state in its persisted form
func (c *Cache) Snapshot() *snapshot.Snapshot {
	snap := snapshot.New()
	for _, k := range c.keys {
		for _, b := range c.entries[k] {
			snap.Add(b.Record())
		}
	}
	return snap
}

// Save writes the full cache state to dst, replacing what was there
func (c *Cache) Save(ctx context.Context, dst Sink) error {
	snap := c.Snapshot()
	if err := dst.WriteSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("saving build cache: %w", err)
	}
	logrus.Debugf("Saved %d builds for %d keys to cache snapshot", len(snap.Builds), len(c.keys))
	return nil
}

func (c *Cache) set(key Key, builds []*build.Build) {
	if _, ok := c.entries[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.entries[key] = builds
}
