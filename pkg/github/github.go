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

package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultAPIURL is the endpoint of the public GitHub REST API
const DefaultAPIURL = "https://api.github.com"

// Client makes requests to the GitHub REST API
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient returns a client for the public API authenticated
// with the token in $GITHUB_TOKEN, if set
func NewClient() *Client {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		logrus.Warn("GITHUB_TOKEN not set, requests to github will be unauthenticated")
	}
	return &Client{
		BaseURL:    DefaultAPIURL,
		Token:      token,
		HTTPClient: &http.Client{},
	}
}

// APIGetRequest performs a GET request to an API path. Any response
// other than 200 is returned as an error.
func (c *Client) APIGetRequest(ctx context.Context, path string) (*http.Response, error) {
	url := strings.TrimSuffix(c.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	logrus.Debugf("GitHubAPI[GET]: %s", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating http request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("token %s", c.Token))
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing http request to GitHub API: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf(
			"http error %d making request to GitHub API", res.StatusCode,
		)
	}
	return res, nil
}

// GetJSON requests an API path and decodes the response into v
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	res, err := c.APIGetRequest(ctx, path)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	rawData, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading api response data: %w", err)
	}
	if err := json.Unmarshal(rawData, v); err != nil {
		return fmt.Errorf("unmarshalling GitHub response: %w", err)
	}
	return nil
}
