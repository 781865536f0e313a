package tracker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"

	"manhole-tracker/core/dataset"
	"manhole-tracker/core/record"
	"manhole-tracker/core/storage"

	"github.com/minio/minio-go/v7"
)

// Mirror publishes the active records of a dataset somewhere else.
type Mirror interface {
	Name() string
	Publish(ctx context.Context, ds *record.Dataset) error
}

// FileMirror writes the active records to a local file.
type FileMirror struct {
	Path   string
	Format dataset.Format
}

func (m *FileMirror) Name() string {
	return "file:" + m.Path
}

func (m *FileMirror) Publish(_ context.Context, ds *record.Dataset) error {
	return dataset.SaveActive(m.Path, ds, m.Format)
}

// ObjectMirror uploads the active records to an object storage bucket,
// creating the bucket when it does not exist.
type ObjectMirror struct {
	client storage.Client
	bucket string
	object string
	format dataset.Format
}

// NewObjectMirror creates a mirror that writes to bucket/object.
func NewObjectMirror(client storage.Client, bucket, object string, format dataset.Format) *ObjectMirror {
	return &ObjectMirror{client: client, bucket: bucket, object: object, format: format}
}

func (m *ObjectMirror) Name() string {
	return "s3://" + m.bucket + "/" + m.object
}

func (m *ObjectMirror) Publish(ctx context.Context, ds *record.Dataset) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", m.bucket, err)
		}
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := dataset.Encode(w, ds.Active(), m.format); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	contentType := "application/x-ndjson"
	if m.format == dataset.FormatArray {
		contentType = "application/json"
	}
	_, err = m.client.PutObject(ctx, m.bucket, m.object, bytes.NewReader(buf.Bytes()), int64(buf.Len()),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload %s: %w", m.object, err)
	}
	return nil
}
