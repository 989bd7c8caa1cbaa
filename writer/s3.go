package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "floatflow/config"
	"floatflow/logger"
)

// ArtifactUploader copies finished report artifacts to S3 so scheduled runs
// leave a history behind. Uploads are a post-report convenience: callers
// treat failures as warnings, never as run failures.
type ArtifactUploader struct {
	config   *appconfig.Config
	s3Client *s3.Client
	runID    string
	log      *logger.Log
}

// NewArtifactUploader configures the AWS SDK and initializes the S3 client
// used for uploads. The runID scopes this run's artifacts under one key
// prefix.
func NewArtifactUploader(cfg *appconfig.Config, runID string) (*ArtifactUploader, error) {
	log := logger.GetLogger()
	ctx := context.Background()

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Storage.S3.Region)}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
			o.UsePathStyle = true
		}
	})

	uploader := &ArtifactUploader{
		config:   cfg,
		s3Client: s3Client,
		runID:    runID,
		log:      log,
	}

	log.WithComponent("s3_uploader").WithFields(logger.Fields{
		"bucket": cfg.Storage.S3.Bucket,
		"region": cfg.Storage.S3.Region,
		"run_id": runID,
	}).Debug("s3 uploader initialized")

	return uploader, nil
}

// Upload reads the artifact at path and puts it under the run-scoped key.
func (u *ArtifactUploader) Upload(ctx context.Context, path string) error {
	log := u.log.WithComponent("s3_uploader").WithFields(logger.Fields{
		"path":   path,
		"run_id": u.runID,
	})

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	key := u.artifactKey(filepath.Base(path), time.Now().UTC())

	start := time.Now()
	_, err = u.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeFor(path)),
	})
	if err != nil {
		return fmt.Errorf("upload artifact: %w", err)
	}

	logger.LogPerformanceEntry(log, "s3_uploader", "put_object", time.Since(start), logger.Fields{
		"key":        key,
		"size_bytes": len(data),
	})
	log.WithFields(logger.Fields{"key": key, "size_bytes": len(data)}).Info("artifact uploaded")

	return nil
}

// artifactKey builds the run-scoped object key: <prefix>/<date>/<run>/<file>.
func (u *ArtifactUploader) artifactKey(name string, now time.Time) string {
	parts := []string{}
	if prefix := strings.Trim(u.config.Storage.S3.Prefix, "/"); prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, now.Format("2006/01/02"), u.runID, name)
	return strings.Join(parts, "/")
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".csv":
		return "text/csv"
	case ".parquet":
		return "application/octet-stream"
	default:
		return "application/octet-stream"
	}
}
