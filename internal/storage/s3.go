package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds S3/MinIO client configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string // "outliner"
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string // Optional key prefix for all documents
}

// Client stores documents as objects in an S3/MinIO bucket.
type Client struct {
	minioClient *minio.Client
	bucket      string
	prefix      string
}

// New creates a new S3/MinIO client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{
		minioClient: minioClient,
		bucket:      config.Bucket,
		prefix:      strings.Trim(config.Prefix, "/"),
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	err = c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func (c *Client) objectName(name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if c.prefix == "" {
		return clean, nil
	}
	return path.Join(c.prefix, clean), nil
}

// Read returns a document's content.
func (c *Client) Read(ctx context.Context, name string) (string, error) {
	objectName, err := c.objectName(name)
	if err != nil {
		return "", err
	}

	object, err := c.minioClient.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", objectName, err)
	}
	defer object.Close()

	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := object.Stat(); err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%s: %w", objectName, ErrNotFound)
		}
		return "", fmt.Errorf("failed to stat %s: %w", objectName, err)
	}

	data, err := io.ReadAll(object)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", objectName, err)
	}
	return string(data), nil
}

// Write replaces a document.
func (c *Client) Write(ctx context.Context, name, content string) error {
	objectName, err := c.objectName(name)
	if err != nil {
		return err
	}

	_, err = c.minioClient.PutObject(ctx, c.bucket, objectName, strings.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "text/markdown",
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", objectName, err)
	}
	return nil
}

// List returns the names (relative to the prefix) of documents ending in ext.
func (c *Client) List(ctx context.Context, ext string) ([]string, error) {
	listPrefix := ""
	if c.prefix != "" {
		listPrefix = c.prefix + "/"
	}

	var names []string
	objectCh := c.minioClient.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    listPrefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, ext) {
			names = append(names, strings.TrimPrefix(object.Key, listPrefix))
		}
	}

	sort.Strings(names)
	return names, nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}
