package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mossi_registry/utils/logging"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/go-chi/chi/v5"
)

type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string

	// Base url that objects are publicly readable from. Defaults to the
	// virtual hosted url of the bucket, or endpoint/bucket for custom endpoints.
	PublicUrl string
}

type S3Store struct {
	client    s3iface.S3API
	bucket    string
	prefix    string
	publicUrl string
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket must be specified for s3 blob storage")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	awsCfg := aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(&awsCfg)
	if err != nil {
		slog.Error("error creating aws session", "error", err, "code", logging.BLOB_STORE)
		return nil, fmt.Errorf("error creating aws session: %w", err)
	}

	publicUrl := cfg.PublicUrl
	if publicUrl == "" {
		if cfg.Endpoint != "" {
			publicUrl = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicUrl = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	slog.Info("using s3 blob storage", "bucket", cfg.Bucket, "prefix", cfg.Prefix, "region", cfg.Region, "code", logging.BLOB_STORE)

	return newS3StoreWithClient(s3.New(sess), cfg.Bucket, cfg.Prefix, publicUrl), nil
}

func newS3StoreWithClient(client s3iface.S3API, bucket, prefix, publicUrl string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		publicUrl: strings.TrimSuffix(publicUrl, "/"),
	}
}

func (s *S3Store) objectKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3Store) Put(ctx context.Context, blob Blob) (string, error) {
	if err := ValidateUpload(blob); err != nil {
		return "", err
	}

	key := s.objectKey(blobName(blob))

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(blob.Data),
		ContentType: aws.String(blob.ContentType),
	})
	if err != nil {
		slog.Error("error uploading object to s3", "bucket", s.bucket, "key", key, "error", err, "code", logging.BLOB_STORE)
		return "", fmt.Errorf("error uploading object to s3: %w", err)
	}

	return s.publicUrl + "/" + key, nil
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, s.publicUrl+"/")
	if !ok || key == "" {
		return nil
	}

	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("error deleting object from s3", "bucket", s.bucket, "key", key, "error", err, "code", logging.BLOB_STORE)
		return fmt.Errorf("error deleting object from s3: %w", err)
	}
	return nil
}

// Objects are read directly from the bucket.
func (s *S3Store) Routes() chi.Router {
	return nil
}

func (s *S3Store) Type() string {
	return "s3"
}
