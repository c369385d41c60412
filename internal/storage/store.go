package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/mfenderov/outliner/internal/config"
	"github.com/spf13/afero"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Store reads and writes documents by slash-separated name.
type Store interface {
	Read(ctx context.Context, name string) (string, error)
	Write(ctx context.Context, name, content string) error
	List(ctx context.Context, ext string) ([]string, error)
}

// NewFromConfig creates the configured store. S3 buckets are created if missing.
func NewFromConfig(ctx context.Context, cfg config.Storage) (Store, error) {
	switch cfg.Backend {
	case "fs":
		return NewFS(afero.NewOsFs(), cfg.Root), nil
	case "s3":
		client, err := New(Config{
			Endpoint:        cfg.Endpoint,
			Bucket:          cfg.Bucket,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			UseSSL:          cfg.UseSSL,
			Prefix:          cfg.Prefix,
		})
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		slog.Debug("using s3 document store", "bucket", client.Bucket(), "prefix", cfg.Prefix)
		return client, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// cleanName normalizes a document name and rejects names escaping the store root.
func cleanName(name string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	if name != clean && strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	return clean, nil
}
