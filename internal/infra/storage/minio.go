package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"license_notification_bot/internal/domain/license"
	"license_notification_bot/internal/infra/loader"
)

// objectStore is the part of a bucket client the license source needs.
type objectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Client struct {
	mc     *minio.Client
	bucket string
}

func NewMinIO(endpoint, access, secret string, useTLS bool, bucket string) (*Client, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: useTLS,
	})
	if err != nil {
		return nil, err
	}
	return &Client{mc: mc, bucket: bucket}, nil
}

// List returns the keys directly under prefix. Nested "directories" are not descended.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Size == 0 && len(obj.Key) > 0 && obj.Key[len(obj.Key)-1] == '/' {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
}

// ObjectSource loads every YAML and CSV object under a bucket prefix, the
// bucket counterpart of the local license directory.
type ObjectSource struct {
	store  objectStore
	bucket string
	prefix string
	logger *logrus.Entry
}

func NewObjectSource(client *Client, prefix string, logger *logrus.Entry) *ObjectSource {
	return &ObjectSource{store: client, bucket: client.bucket, prefix: prefix, logger: logger}
}

func (s *ObjectSource) Name() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}

// Load fails as a whole only when the bucket cannot be listed; objects that
// cannot be read or parsed are logged and skipped.
func (s *ObjectSource) Load(ctx context.Context) ([]license.Record, error) {
	keys, err := s.store.List(ctx, s.prefix)
	if err != nil {
		return nil, &license.RemoteLoadError{Source: s.Name(), Err: err}
	}

	records := []license.Record{}
	for _, key := range keys {
		logCtx := s.logger.WithField("object", key)
		if _, err := loader.FormatOf(key); err != nil {
			logCtx.Debug("Skipping object with unsupported extension")
			continue
		}

		objRecords, err := s.loadObject(ctx, key)
		if err != nil {
			logCtx.WithError(err).Warn("Failed to load license object, skipping it")
			continue
		}
		records = append(records, objRecords...)
	}
	return records, nil
}

func (s *ObjectSource) loadObject(ctx context.Context, key string) ([]license.Record, error) {
	body, err := s.store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	recs, err := loader.Load(key, body)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		recs[i].Source = "s3://" + path.Join(s.bucket, key)
	}
	return recs, nil
}
