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

package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

func NewGCS(ctx context.Context, specURL string, opts ...option.ClientOption) (*GCS, error) {
	bucket, object, err := parseGCSURL(specURL)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	logrus.WithField("driver", "gcs").Debugf("GCS driver init: Bucket: %s Path: %s", bucket, object)
	return &GCS{
		Bucket: bucket,
		Path:   object,
		client: client,
	}, nil
}

// GCS stores the snapshot as an object in a Google Cloud Storage bucket
type GCS struct {
	Bucket string
	Path   string
	client *storage.Client
}

func parseGCSURL(specURL string) (bucket, object string, err error) {
	u, err := url.Parse(specURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing SpecURL %s: %w", specURL, err)
	}
	if u.Scheme != "gs" {
		return "", "", fmt.Errorf("%s is not a gs:// URL", specURL)
	}
	if u.Hostname() == "" {
		return "", "", errors.New("gcs store has no bucket defined")
	}
	object = strings.TrimPrefix(u.Path, "/")
	if object == "" || strings.HasSuffix(object, "/") {
		return "", "", errors.New("gcs store has no object path defined")
	}
	return u.Hostname(), object, nil
}

// Read downloads the snapshot object
func (gcs *GCS) Read(ctx context.Context) ([]byte, error) {
	r, err := gcs.client.Bucket(gcs.Bucket).Object(gcs.Path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("opening gs://%s/%s: %w", gcs.Bucket, gcs.Path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("downloading gs://%s/%s: %w", gcs.Bucket, gcs.Path, err)
	}
	logrus.WithField("driver", "gcs").Debugf("Read %d bytes from gs://%s/%s", len(data), gcs.Bucket, gcs.Path)
	return data, nil
}

// Write uploads the snapshot, replacing the object. GCS only makes
// the new object visible once the upload completes.
func (gcs *GCS) Write(ctx context.Context, data []byte) error {
	w := gcs.client.Bucket(gcs.Bucket).Object(gcs.Path).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("uploading gs://%s/%s: %w", gcs.Bucket, gcs.Path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finishing upload to gs://%s/%s: %w", gcs.Bucket, gcs.Path, err)
	}
	return nil
}
