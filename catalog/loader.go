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

package catalog

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
	"github.com/poiesic/shelfvec/core"
)

const digestSize = 32

// Catalog is a fully loaded input record set.
type Catalog struct {
	// Source is the path or URL the records were read from.
	Source string

	// Books holds the records in input order, defaults applied.
	Books []core.BookRecord

	// Digest is the hex blake2b-256 digest of the decompressed content.
	Digest string

	// Warnings lists records that loaded but look suspect.
	Warnings []string
}

// Loader reads catalogs from local files or S3-compatible storage.
type Loader struct {
	s3     *S3Config
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithS3 enables s3:// sources.
func WithS3(config S3Config) Option {
	return func(l *Loader) {
		l.s3 = &config
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		logger: slog.Default().With("component", "catalog"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads a local catalog. s3:// sources need a Loader built WithS3.
func Load(ctx context.Context, source string) (*Catalog, error) {
	return NewLoader().Load(ctx, source)
}

// Load reads and parses the whole source into memory.
func (l *Loader) Load(ctx context.Context, source string) (*Catalog, error) {
	rc, err := l.open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if strings.HasSuffix(source, ".zst") {
		dec, err := zstd.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, source, err)
		}
		defer dec.Close()
		r = dec
	}

	hasher, err := blake2b.New(digestSize, nil)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.TeeReader(r, hasher))
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, source)
		}
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	books, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, source, err)
	}

	cat := &Catalog{
		Source: source,
		Books:  books,
		Digest: hex.EncodeToString(hasher.Sum(nil)),
	}
	for i := range cat.Books {
		cat.Books[i].ApplyDefaults()
		if err := core.ValidateBook(&cat.Books[i]); err != nil {
			cat.Warnings = append(cat.Warnings, fmt.Sprintf("record %d (%s): %v", i, cat.Books[i].Key(i), err))
		}
	}
	for _, w := range cat.Warnings {
		l.logger.Warn("suspect record", "detail", w)
	}

	l.logger.Info("catalog loaded", "source", source, "records", len(cat.Books), "digest", cat.Digest[:12])
	return cat, nil
}

func parse(data []byte) ([]core.BookRecord, error) {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, errors.New("expected a JSON array of records")
	}
	var books []core.BookRecord
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, err
	}
	if books == nil {
		books = []core.BookRecord{}
	}
	return books, nil
}

func (l *Loader) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if bucket, key, ok := ParseS3URL(source); ok {
		if l.s3 == nil {
			return nil, fmt.Errorf("%w: %s", ErrS3NotConfigured, source)
		}
		return openS3(ctx, *l.s3, bucket, key)
	}

	f, err := os.Open(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, source)
		}
		return nil, err
	}
	return f, nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket" || code == "NotFound"
}
