package integrity

import (
	"context"

	"manhole-tracker/core/storage"
	"manhole-tracker/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles integrity checks.
type Service struct {
	datasetPath string
	client      storage.Client
	bucket      string
	db          *gorm.DB
	logger      *zap.Logger
}

// NewService creates a new integrity service. client and db may be nil when
// mirrors or the run history are not configured.
func NewService(datasetPath string, client storage.Client, bucket string, db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		datasetPath: datasetPath,
		client:      client,
		bucket:      bucket,
		db:          db,
		logger:      logger,
	}
}

// CheckDataset validates the dataset file.
func (s *Service) CheckDataset() (*checks.DatasetReport, error) {
	return checks.CheckDataset(s.datasetPath, s.logger)
}

// CheckHistory validates the run history schema.
func (s *Service) CheckHistory() (*checks.HistoryReport, error) {
	return checks.CheckRunHistory(s.db)
}

// CheckMirror reports whether the mirror bucket exists.
func (s *Service) CheckMirror(ctx context.Context) (*checks.MirrorReport, error) {
	return checks.CheckMirror(ctx, s.client, s.bucket)
}

// FixMirror creates the mirror bucket when it is missing.
func (s *Service) FixMirror(ctx context.Context) (*checks.MirrorReport, error) {
	return checks.FixMirror(ctx, s.client, s.bucket, s.logger)
}
