// Package artifact stores build output: pages, props, the SSR manifest and
// the page shell. The build writes to a directory; publish copies that
// directory to S3; the production server reads from either.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
)

// Store errors.
var (
	ErrNotFound   = errors.New("artifact not found")
	ErrInvalidKey = errors.New("invalid artifact key")
)

// Store is a flat key/value view of an artifact tree. Keys are
// slash-separated paths relative to the tree root, e.g. "about/_props.json".
type Store interface {
	// Get returns the artifact body or an error wrapping ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes an artifact, replacing any existing one.
	Put(ctx context.Context, key string, data []byte) error

	// List returns every key in lexical order.
	List(ctx context.Context) ([]string, error)
}

// CleanKey validates key and strips a leading slash.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || key == "." {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.Contains(key, "\\") || strings.Contains(key, "\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if path.Clean(key) != key {
		return "", fmt.Errorf("%w: %q is not clean", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q escapes the root", ErrInvalidKey, key)
		}
	}
	return key, nil
}

// ContentType guesses the MIME type of an artifact from its extension.
func ContentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Copy transfers every artifact of src into dst and returns the number of
// artifacts copied.
func Copy(ctx context.Context, dst, src Store) (int, error) {
	keys, err := src.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list source: %w", err)
	}
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		data, err := src.Get(ctx, key)
		if err != nil {
			return i, fmt.Errorf("read %s: %w", key, err)
		}
		if err := dst.Put(ctx, key, data); err != nil {
			return i, fmt.Errorf("write %s: %w", key, err)
		}
	}
	return len(keys), nil
}

// Open resolves a location to a store: "s3://bucket/prefix" opens an
// S3Store with the default AWS credential chain, anything else is a
// directory.
func Open(ctx context.Context, location string, cfg S3Config) (Store, error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return NewDirStore(location), nil
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("%w: %q has no bucket", ErrInvalidKey, location)
	}
	cfg.Bucket = bucket
	if prefix != "" {
		cfg.Prefix = prefix
	}
	return NewS3Store(ctx, cfg)
}
