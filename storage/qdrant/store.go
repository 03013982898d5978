// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/shelfvec/core"
	"github.com/poiesic/shelfvec/storage"
	"golang.org/x/sync/singleflight"
)

const (
	defaultUpsertTimeout  = 60 * time.Second
	defaultScrollPageSize = 256
	defaultSegmentNumber  = 2
	defaultReplication    = 1
)

// Config configures a Store.
type Config struct {
	// URL is the Qdrant REST endpoint, e.g. "http://localhost:6333".
	URL string

	// APIKey is sent in the api-key header when set.
	APIKey string

	// Collection is the shape every ensured collection is created with.
	Collection storage.CollectionConfig

	// UpsertTimeout bounds each Upsert call and each shared Ensure request.
	// Default: 60s
	UpsertTimeout time.Duration

	// ScrollPageSize is the page size used when enumerating points, and
	// the chunk size for deletes. Default: 256
	ScrollPageSize int

	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client
}

// Store implements storage.CollectionStore using Qdrant's REST API.
type Store struct {
	baseURL       string
	apiKey        string
	collection    storage.CollectionConfig
	upsertTimeout time.Duration
	pageSize      int
	client        *http.Client
	ensures       singleflight.Group
	closed        atomic.Bool
	logger        *slog.Logger
}

var (
	_ storage.CollectionStore = (*Store)(nil)
	_ storage.PointLister     = (*Store)(nil)
)

// NewStore creates a Qdrant store. No request is made until the first call.
func NewStore(config Config) (*Store, error) {
	if config.URL == "" {
		return nil, errors.New("qdrant: URL is required")
	}
	if _, err := url.Parse(config.URL); err != nil {
		return nil, fmt.Errorf("qdrant: invalid URL: %w", err)
	}
	if err := config.Collection.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		baseURL:       strings.TrimSuffix(config.URL, "/"),
		apiKey:        config.APIKey,
		collection:    config.Collection,
		upsertTimeout: config.UpsertTimeout,
		pageSize:      config.ScrollPageSize,
		client:        config.HTTPClient,
		logger:        slog.Default().With("component", "qdrant-store"),
	}
	if s.upsertTimeout <= 0 {
		s.upsertTimeout = defaultUpsertTimeout
	}
	if s.pageSize <= 0 {
		s.pageSize = defaultScrollPageSize
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	return s, nil
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

func (s *Store) check(name string) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	if name == "" {
		return fmt.Errorf("%w: empty collection name", storage.ErrInvalidCollection)
	}
	return nil
}

// Ping lists collections to confirm the server answers.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	_, err := s.do(ctx, http.MethodGet, "/collections", nil)
	return err
}

// Ensure creates the collection if it does not exist. Concurrent callers in
// this process share one request; a create that loses a race with another
// process is treated as success. The shared request is detached from any
// single caller's context and bounded by the upsert timeout; each caller
// stops waiting when its own context ends.
func (s *Store) Ensure(ctx context.Context, name string) (bool, error) {
	if err := s.check(name); err != nil {
		return false, err
	}

	ch := s.ensures.DoChan(name, func() (any, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.upsertTimeout)
		defer cancel()
		return s.ensure(sharedCtx, name)
	})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

func (s *Store) ensure(ctx context.Context, name string) (bool, error) {
	_, err := s.do(ctx, http.MethodGet, collectionPath(name), nil)
	if err == nil {
		s.logger.Debug("collection exists", "collection", name)
		return false, nil
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		return false, fmt.Errorf("describe collection %s: %w", name, err)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.collection.VectorSize,
			"distance": string(s.collection.Distance),
		},
		"optimizers_config": map[string]any{
			"default_segment_number": defaultSegmentNumber,
		},
		"replication_factor": defaultReplication,
	}
	if _, err := s.do(ctx, http.MethodPut, collectionPath(name), body); err != nil {
		if alreadyExists(err) {
			s.logger.Debug("collection created concurrently", "collection", name)
			return false, nil
		}
		return false, fmt.Errorf("create collection %s: %w", name, err)
	}

	s.logger.Info("collection created", "collection", name,
		"size", s.collection.VectorSize, "distance", s.collection.Distance)
	return true, nil
}

func alreadyExists(err error) bool {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Status == http.StatusConflict {
		return true
	}
	return apiErr.Status == http.StatusBadRequest && strings.Contains(apiErr.Body, "already exists")
}

type scrollResult struct {
	Points []struct {
		ID json.RawMessage `json:"id"`
	} `json:"points"`
	NextPageOffset json.RawMessage `json:"next_page_offset"`
}

// scroll walks every page of the collection and calls fn with each page's
// raw point ids.
func (s *Store) scroll(ctx context.Context, name string, fn func(ids []json.RawMessage) error) error {
	var offset json.RawMessage
	for {
		body := map[string]any{
			"limit":        s.pageSize,
			"with_payload": false,
			"with_vector":  false,
		}
		if offset != nil {
			body["offset"] = offset
		}

		env, err := s.do(ctx, http.MethodPost, collectionPath(name)+"/points/scroll", body)
		if err != nil {
			return translateNotFound(name, err)
		}
		var page scrollResult
		if err := json.Unmarshal(env.Result, &page); err != nil {
			return fmt.Errorf("scroll %s decode: %w", name, err)
		}

		ids := make([]json.RawMessage, 0, len(page.Points))
		for _, p := range page.Points {
			ids = append(ids, p.ID)
		}
		if len(ids) > 0 {
			if err := fn(ids); err != nil {
				return err
			}
		}

		if len(page.NextPageOffset) == 0 || string(page.NextPageOffset) == "null" {
			return nil
		}
		offset = page.NextPageOffset
	}
}

// Clear enumerates every point id and deletes them in page-sized chunks.
// Ids are collected first so deletes never disturb the scroll cursor.
func (s *Store) Clear(ctx context.Context, name string) error {
	if err := s.check(name); err != nil {
		return err
	}

	var all []json.RawMessage
	err := s.scroll(ctx, name, func(ids []json.RawMessage) error {
		all = append(all, ids...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enumerate %s: %w", name, err)
	}
	if len(all) == 0 {
		s.logger.Info("collection already empty", "collection", name)
		return nil
	}

	for start := 0; start < len(all); start += s.pageSize {
		end := min(start+s.pageSize, len(all))
		body := map[string]any{"points": all[start:end]}
		env, err := s.do(ctx, http.MethodPost, collectionPath(name)+"/points/delete?wait=true", body)
		if err != nil {
			return fmt.Errorf("delete from %s: %w", name, err)
		}
		if !env.statusOK() {
			return fmt.Errorf("delete from %s: status %s", name, env.statusText())
		}
	}

	s.logger.Info("collection cleared", "collection", name, "deleted", len(all))
	return nil
}

type wirePoint struct {
	ID      string       `json:"id"`
	Vector  []float32    `json:"vector"`
	Payload core.Payload `json:"payload"`
}

// Upsert writes points with wait=true. Any non-ok answer fails the whole
// call; Qdrant gives no per-point result.
func (s *Store) Upsert(ctx context.Context, name string, points []core.PointRecord) error {
	if err := s.check(name); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	wire := make([]wirePoint, len(points))
	for i := range points {
		if err := core.ValidatePoint(&points[i], s.collection.VectorSize); err != nil {
			return fmt.Errorf("%w: %w", storage.ErrUpsertRejected, err)
		}
		wire[i] = wirePoint{
			ID:      points[i].ID.String(),
			Vector:  points[i].Vector,
			Payload: points[i].Payload,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.upsertTimeout)
	defer cancel()

	env, err := s.do(ctx, http.MethodPut, collectionPath(name)+"/points?wait=true", map[string]any{"points": wire})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", storage.ErrUpsertRejected, name, err)
	}
	if !env.statusOK() {
		return fmt.Errorf("%w: %s: status %s", storage.ErrUpsertRejected, name, env.statusText())
	}
	return nil
}

type collectionInfo struct {
	Status       string  `json:"status"`
	PointsCount  *uint64 `json:"points_count"`
	VectorsCount *uint64 `json:"vectors_count"`
	Config       struct {
		Params struct {
			Vectors struct {
				Size     int           `json:"size"`
				Distance core.Distance `json:"distance"`
			} `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

// Stats describes the collection. Newer Qdrant versions omit
// vectors_count; it then falls back to the point count.
func (s *Store) Stats(ctx context.Context, name string) (*core.CollectionState, error) {
	if err := s.check(name); err != nil {
		return nil, err
	}

	env, err := s.do(ctx, http.MethodGet, collectionPath(name), nil)
	if err != nil {
		return nil, translateNotFound(name, err)
	}
	var info collectionInfo
	if err := json.Unmarshal(env.Result, &info); err != nil {
		return nil, fmt.Errorf("describe %s decode: %w", name, err)
	}

	state := &core.CollectionState{
		Name:       name,
		VectorSize: info.Config.Params.Vectors.Size,
		Distance:   info.Config.Params.Vectors.Distance,
		Status:     info.Status,
	}
	if info.PointsCount != nil {
		state.PointsCount = *info.PointsCount
	}
	if info.VectorsCount != nil {
		state.VectorsCount = *info.VectorsCount
	} else {
		state.VectorsCount = state.PointsCount
	}
	return state, nil
}

// PointIDs returns every point id in the collection.
func (s *Store) PointIDs(ctx context.Context, name string) ([]core.PointID, error) {
	if err := s.check(name); err != nil {
		return nil, err
	}

	var ids []core.PointID
	err := s.scroll(ctx, name, func(page []json.RawMessage) error {
		for _, raw := range page {
			var str string
			if err := json.Unmarshal(raw, &str); err != nil {
				return fmt.Errorf("point id %s is not a uuid", raw)
			}
			id, err := uuid.Parse(str)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

// Close marks the store closed. Idle connections are released.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.client.CloseIdleConnections()
	return nil
}

func translateNotFound(name string, err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
	}
	return err
}
