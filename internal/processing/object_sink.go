package processing

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectSink stores rendered documents in an S3-compatible object
// store, one object per artifact per job.
type ObjectSink struct {
	client *minio.Client
	bucket string
}

// ObjectSinkConfig configures the MinIO client.
type ObjectSinkConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UseSSL       bool
	CreateBucket bool
}

// NewObjectSink creates a sink backed by the given MinIO endpoint.
func NewObjectSink(cfg ObjectSinkConfig) (*ObjectSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("processing: creating object store client: %w", err)
	}

	sink := &ObjectSink{client: client, bucket: cfg.Bucket}

	if cfg.CreateBucket {
		if err := sink.ensureBucket(context.Background()); err != nil {
			return nil, err
		}
	}
	return sink, nil
}

func (s *ObjectSink) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("processing: checking bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("processing: creating bucket: %w", err)
	}
	return nil
}

// ObjectKeys names the artifacts Store uploaded for a job.
type ObjectKeys struct {
	PDFKey string `json:"pdfKey"`
	PNGKey string `json:"pngKey"`
}

// Store uploads both rendered artifacts under keys derived from jobID
// and the current date, and returns the keys a caller can later use
// to fetch or presign them.
func (s *ObjectSink) Store(jobID string, rendered Rendered) (ObjectKeys, error) {
	ctx := context.Background()
	datePrefix := time.Now().UTC().Format("2006/01/02")

	pdfKey := fmt.Sprintf("documents/%s/%s.pdf", datePrefix, jobID)
	if _, err := s.client.PutObject(ctx, s.bucket, pdfKey, bytes.NewReader(rendered.PDF), int64(len(rendered.PDF)), minio.PutObjectOptions{
		ContentType: "application/pdf",
	}); err != nil {
		return ObjectKeys{}, fmt.Errorf("processing: uploading pdf: %w", err)
	}

	pngKey := fmt.Sprintf("documents/%s/%s.png", datePrefix, jobID)
	if _, err := s.client.PutObject(ctx, s.bucket, pngKey, bytes.NewReader(rendered.PNG), int64(len(rendered.PNG)), minio.PutObjectOptions{
		ContentType: "image/png",
	}); err != nil {
		return ObjectKeys{}, fmt.Errorf("processing: uploading png: %w", err)
	}

	return ObjectKeys{PDFKey: pdfKey, PNGKey: pngKey}, nil
}

// PresignGET returns a time-limited URL for downloading an uploaded
// object.
func (s *ObjectSink) PresignGET(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	url, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("processing: presigning object: %w", err)
	}
	return url.String(), nil
}
