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

package git

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sirupsen/logrus"
)

const defaultRemote = "origin"

// ErrRevisionNotFound is returned when a reference does not
// resolve to a commit
var ErrRevisionNotFound = errors.New("revision not found")

type Repository struct {
	Options Options
}

func NewRepository(dir string) *Repository {
	return &Repository{
		Options: Options{
			CWD: dir,
		},
	}
}

type Options struct {
	CWD string
}

// open looks for the repository in the working directory or its parents
func (r *Repository) open() (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(r.Options.CWD, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening git repo at %s: %w", r.Options.CWD, err)
	}
	return repo, nil
}

// Resolve returns the full commit hash a reference points to. The
// reference can be a branch, a tag, a full or short hash or any
// other revision expression git understands. An empty reference
// resolves the current checkout.
func (r *Repository) Resolve(ref string) (string, error) {
	repo, err := r.open()
	if err != nil {
		return "", err
	}

	rev := ref
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrRevisionNotFound, rev, err)
	}
	logrus.Debugf("Resolved %s to %s", rev, hash)
	return hash.String(), nil
}

// SourceURL returns the repository URL
func (r *Repository) SourceURL() (string, error) {
	repo, err := r.open()
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			logrus.Debugf("Directory %s is not a git repository", r.Options.CWD)
			return "", nil
		}
		return "", err
	}

	remote, err := repo.Remote(defaultRemote)
	if err != nil {
		return "", fmt.Errorf("getting repository remote: %w", err)
	}

	if len(remote.Config().URLs) == 0 {
		return "", errors.New("repo remote does not have URLs")
	}

	return remote.Config().URLs[0], nil
}
