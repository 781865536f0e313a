package checks

import (
	"context"
	"fmt"

	"manhole-tracker/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// MirrorReport is the result of a mirror bucket check.
type MirrorReport struct {
	Bucket string `json:"bucket"`
	Exists bool   `json:"exists"`
	Fixed  bool   `json:"fixed"`
}

// CheckMirror reports whether the mirror bucket is reachable and exists.
func CheckMirror(ctx context.Context, client storage.Client, bucket string) (*MirrorReport, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is nil")
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	return &MirrorReport{Bucket: bucket, Exists: exists}, nil
}

// FixMirror creates the mirror bucket when it is missing.
func FixMirror(ctx context.Context, client storage.Client, bucket string, logger *zap.Logger) (*MirrorReport, error) {
	report, err := CheckMirror(ctx, client, bucket)
	if err != nil {
		return nil, err
	}
	if report.Exists {
		return report, nil
	}
	logger.Info("Creating mirror bucket", zap.String("bucket", bucket))
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	report.Exists = true
	report.Fixed = true
	return report, nil
}
