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

package fesomutil

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/fesom"
	"github.com/spatialmodel/fesom/cloud"
	"github.com/spatialmodel/fesom/internal/hash"
)

// Loader loads meshes, keeping recently used meshes in memory and
// optionally keeping snapshots of them in blob storage. A Loader is
// safe for concurrent use; concurrent requests for the same mesh are
// only processed once.
type Loader struct {
	// Log receives progress messages. If nil, the standard logger is used.
	Log logrus.FieldLogger

	cache *requestcache.Cache
}

// NewLoader returns a loader that keeps up to memory meshes in memory.
func NewLoader(memory int, log logrus.FieldLogger) *Loader {
	l := &Loader{Log: log}
	l.cache = requestcache.NewCache(l.load, runtime.GOMAXPROCS(-1),
		requestcache.Deduplicate(), requestcache.Memory(memory))
	return l
}

var (
	defaultLoader     *Loader
	defaultLoaderOnce sync.Once
)

// LoadMesh loads the mesh specified by c using a shared Loader. If
// useCache is true, a snapshot of the mesh is read from cacheDir if one
// exists and is written there otherwise. cacheDir may be a local
// directory or a blob storage URL (see cloud.OpenBucket); if it is
// empty the mesh directory is used.
// The returned mesh may be shared with other callers.
func LoadMesh(ctx context.Context, c *fesom.MeshConfig, useCache bool, cacheDir string) (*fesom.Mesh, error) {
	defaultLoaderOnce.Do(func() {
		defaultLoader = NewLoader(4, nil)
	})
	return defaultLoader.Load(ctx, c, useCache, cacheDir)
}

type loadRequest struct {
	cfg      *fesom.MeshConfig
	meshPath string
	useCache bool
	cacheURL string
	snapshot string
}

// Load loads the mesh specified by c. See LoadMesh for the meaning of
// the arguments.
func (l *Loader) Load(ctx context.Context, c *fesom.MeshConfig, useCache bool, cacheDir string) (*fesom.Mesh, error) {
	path, err := filepath.Abs(c.Path)
	if err != nil {
		return nil, fmt.Errorf("fesomutil: mesh path: %w", err)
	}
	cacheURL, err := CacheURL(cacheDir, path)
	if err != nil {
		return nil, err
	}
	req := loadRequest{
		cfg:      c,
		meshPath: path,
		useCache: useCache,
		cacheURL: cacheURL,
		snapshot: SnapshotName(c),
	}
	key := req.snapshot
	if useCache {
		key += "@" + cacheURL
	}
	r, err := l.cache.NewRequest(ctx, req, key).Result()
	if err != nil {
		return nil, err
	}
	return r.(*fesom.Mesh), nil
}

func (l *Loader) logger() logrus.FieldLogger {
	if l.Log != nil {
		return l.Log
	}
	return logrus.StandardLogger()
}

func (l *Loader) load(ctx context.Context, payload interface{}) (interface{}, error) {
	req := payload.(loadRequest)
	if !req.useCache {
		return l.build(req.cfg)
	}
	// Opening a local store creates its directory, which may be the mesh
	// directory itself.
	if err := fesom.CheckMeshDir(req.meshPath); err != nil {
		return nil, err
	}
	log := l.logger().WithFields(logrus.Fields{"cache": req.cacheURL, "snapshot": req.snapshot})

	store, err := cloud.OpenStore(ctx, req.cacheURL)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	store.Log = log

	data, err := store.Read(ctx, req.snapshot)
	switch {
	case err == nil:
		m, err := fesom.LoadSnapshot(bytes.NewReader(data))
		if err == nil {
			log.Info("loaded mesh from snapshot")
			return m, nil
		}
		log.WithError(err).Warn("ignoring unreadable mesh snapshot")
	case !cloud.IsNotExist(err):
		log.WithError(err).Warn("could not read mesh snapshot")
	}

	m, err := l.build(req.cfg)
	if err != nil {
		return nil, err
	}
	if err := writeSnapshot(ctx, store, req.snapshot, m); err != nil {
		// The mesh is still usable without a snapshot.
		log.WithError(err).Warn("could not store mesh snapshot")
	} else {
		log.Info("stored mesh snapshot")
	}
	return m, nil
}

func (l *Loader) build(c *fesom.MeshConfig) (*fesom.Mesh, error) {
	cc := *c
	if cc.Log == nil {
		cc.Log = l.logger()
	}
	return cc.Build()
}

// StoreSnapshot writes a snapshot of m, which must have been built with
// configuration c, to cacheDir, replacing any existing snapshot.
func StoreSnapshot(ctx context.Context, c *fesom.MeshConfig, m *fesom.Mesh, cacheDir string) (string, error) {
	cacheURL, err := CacheURL(cacheDir, m.Path())
	if err != nil {
		return "", err
	}
	store, err := cloud.OpenStore(ctx, cacheURL)
	if err != nil {
		return "", err
	}
	defer store.Close()
	name := SnapshotName(c)
	if err := writeSnapshot(ctx, store, name, m); err != nil {
		return "", err
	}
	return strings.TrimSuffix(cacheURL, "/") + "/" + name, nil
}

func writeSnapshot(ctx context.Context, store *cloud.Store, name string, m *fesom.Mesh) error {
	var b bytes.Buffer
	if err := m.Save(&b); err != nil {
		return err
	}
	return store.Write(ctx, name, b.Bytes())
}

// SnapshotName returns the name of the snapshot of the mesh built with c.
// Configurations that can produce different meshes have different names.
func SnapshotName(c *fesom.MeshConfig) string {
	path, err := filepath.Abs(c.Path)
	if err != nil {
		path = c.Path
	}
	threshold := c.CyclicThreshold
	if threshold == 0 {
		threshold = fesom.DefaultCyclicThreshold
	}
	key := hash.Key(path, c.Euler, threshold, c.MeanCosineScaling, fesom.SnapshotVersion)
	return fmt.Sprintf("fesom_mesh_%s.snapshot", key)
}

// CacheURL returns the blob storage URL for snapshot directory cacheDir.
// If cacheDir is empty, the mesh directory meshPath is used. Local
// directories are converted to "file://" URLs.
func CacheURL(cacheDir, meshPath string) (string, error) {
	if cacheDir == "" {
		cacheDir = meshPath
	}
	if strings.Contains(cacheDir, "://") {
		return cacheDir, nil
	}
	dir, err := filepath.Abs(cacheDir)
	if err != nil {
		return "", fmt.Errorf("fesomutil: cache directory: %w", err)
	}
	return "file://" + filepath.ToSlash(dir), nil
}
