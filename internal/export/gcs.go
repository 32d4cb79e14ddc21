package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ObjectStore is the slice of Cloud Storage the GCS exporter needs.
type ObjectStore interface {
	NewWriter(ctx context.Context, bucket, object string) io.WriteCloser
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

// GCSStore implements ObjectStore on a storage.Client.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a storage client. With no options it uses Application
// Default Credentials.
func NewGCSStore(ctx context.Context, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) NewWriter(ctx context.Context, bucket, object string) io.WriteCloser {
	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "text/csv"
	return w
}

// List returns object names under prefix.
func (s *GCSStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var names []string
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", bucket, prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

// BucketExists reports whether bucket is reachable with the client's credentials.
func (s *GCSStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.client.Bucket(bucket).Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bucket gs://%s: %w", bucket, err)
	}
	return true, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

// GCSExporter uploads the CSV statement to
// gs://<Bucket>/<Prefix>/<customerID>/<timestamp>.csv.
type GCSExporter struct {
	Store  ObjectStore
	Bucket string
	Prefix string
	// Timeout bounds a single upload. Zero means two minutes.
	Timeout time.Duration
}

// ObjectName returns the object path for b.
func (e *GCSExporter) ObjectName(b Batch) string {
	return path.Join(strings.Trim(e.Prefix, "/"), b.CustomerID, stamp(b.GeneratedAt)+".csv")
}

func (e *GCSExporter) Export(ctx context.Context, b Batch) (Result, error) {
	if e.Bucket == "" {
		return Result{}, errors.New("gcs export: bucket is not configured")
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	object := e.ObjectName(b)
	w := e.Store.NewWriter(ctx, e.Bucket, object)
	n, err := WriteCSV(w, b)
	if err != nil {
		// Cancelling the context aborts the upload; closing would commit it.
		cancel()
		_ = w.Close()
		return Result{}, fmt.Errorf("gcs export: %w", err)
	}
	if err := w.Close(); err != nil {
		return Result{}, fmt.Errorf("gcs export: finalize upload: %w", err)
	}
	return Result{Sink: SinkGCS, Location: "gs://" + e.Bucket + "/" + object, Rows: n}, nil
}

// Previous lists earlier uploads for customerID, newest last.
func (e *GCSExporter) Previous(ctx context.Context, customerID string) ([]string, error) {
	prefix := path.Join(strings.Trim(e.Prefix, "/"), customerID) + "/"
	names, err := e.Store.List(ctx, e.Bucket, prefix)
	if err != nil {
		return nil, err
	}
	uris := make([]string, len(names))
	for i, n := range names {
		uris[i] = "gs://" + e.Bucket + "/" + n
	}
	return uris, nil
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}
