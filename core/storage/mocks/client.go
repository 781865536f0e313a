package mocks

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of storage.Client
type Client struct {
	mock.Mock

	// Uploaded holds the body of every PutObject call.
	Uploaded [][]byte
}

func (m *Client) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *Client) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

// PutObject drains reader into Uploaded so tests can assert on the payload.
func (m *Client) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, _ := io.ReadAll(reader)
	m.Uploaded = append(m.Uploaded, data)
	args := m.Called(ctx, bucketName, objectName, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}
