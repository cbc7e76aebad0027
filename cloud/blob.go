/*
Copyright © 2024 the fesom authors.
This file is part of fesom.

fesom is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

fesom is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with fesom.  If not, see <http://www.gnu.org/licenses/>.
*/

package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Store reads and writes blobs under a key prefix of a bucket.
type Store struct {
	bucket *blob.Bucket
	prefix string

	// Log receives retry messages. If nil, the standard logger is used.
	Log logrus.FieldLogger

	// MaxRetries is the number of times a failed write is retried.
	MaxRetries uint64
}

// OpenStore opens the store at bucketURL. See OpenBucket for the URL format.
func OpenStore(ctx context.Context, bucketURL string) (*Store, error) {
	b, prefix, err := OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &Store{bucket: b, prefix: prefix, MaxRetries: 3}, nil
}

// Close releases the resources held by the store.
func (s *Store) Close() error { return s.bucket.Close() }

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Read returns the contents of the named blob. Use IsNotExist to check
// whether the returned error means the blob is missing.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	key := s.key(name)
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("cloud: reading blob %s: %w", key, err)
	}
	defer r.Close()
	var b bytes.Buffer
	if _, err = io.Copy(&b, r); err != nil {
		return nil, fmt.Errorf("cloud: reading blob %s: %w", key, err)
	}
	return b.Bytes(), nil
}

// Write stores data in the named blob, replacing any existing contents.
// Failed writes are retried with exponential backoff.
func (s *Store) Write(ctx context.Context, name string, data []byte) error {
	key := s.key(name)
	var log logrus.FieldLogger = logrus.StandardLogger()
	if s.Log != nil {
		log = s.Log
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.MaxRetries), ctx)
	return backoff.RetryNotify(
		func() error { return writeBlob(ctx, s.bucket, key, data) },
		b,
		func(err error, d time.Duration) {
			log.WithFields(logrus.Fields{"blob": key, "retry_in": d}).WithError(err).Warn("blob write failed")
		},
	)
}

// writeBlob writes the given data to the given bucket. The blob is only
// committed if every step succeeds.
func writeBlob(ctx context.Context, bucket *blob.Bucket, key string, data []byte) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %w", key, err)
	}
	if _, err = io.Copy(w, bytes.NewReader(data)); err != nil {
		cancel()
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %w", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %w", key, err)
	}
	return nil
}

// IsNotExist reports whether err means that a blob does not exist.
func IsNotExist(err error) bool {
	return err != nil && gcerrors.Code(err) == gcerrors.NotFound
}
