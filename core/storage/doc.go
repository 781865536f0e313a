// Package storage provides the object storage client used by dataset mirrors.
//
// It wraps the MinIO Go client behind a small interface, which supports both AWS S3
// and self-hosted MinIO instances.
//
// # Client Interface
//
// The Client interface holds only what a mirror upload needs, so it can be mocked
// for unit tests (see core/storage/mocks).
//
//   - BucketExists: Verifies access to the target bucket.
//   - MakeBucket: Creates the bucket on first upload.
//   - PutObject: Uploads the encoded dataset.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	exists, err := client.BucketExists(ctx, cfg.Storage.Bucket)
package storage
