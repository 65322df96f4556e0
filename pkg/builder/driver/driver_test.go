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

package driver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFromSpecURL(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	d, err := NewFromSpecURL("http://jenkins.example.com/", Options{})
	require.NoError(t, err)
	require.IsType(t, &Jenkins{}, d)

	d, err = NewFromSpecURL("https://jenkins.example.com", Options{})
	require.NoError(t, err)
	require.IsType(t, &Jenkins{}, d)

	d, err = NewFromSpecURL("github://org/repo", Options{})
	require.NoError(t, err)
	require.IsType(t, &GitHubWorkflow{}, d)

	for _, u := range []string{"gcb://project", "jenkins.example.com", "://"} {
		_, err := NewFromSpecURL(u, Options{})
		require.Error(t, err, u)
	}
}
