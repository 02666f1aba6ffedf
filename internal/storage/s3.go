// Package storage abstracts the external object store holding binary assets.
// The gateway is not transactional; callers upload before opening a relational
// transaction and issue compensating deletes when the transaction fails.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Object identifies a stored asset and where it can be fetched.
type Object struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Gateway is the object-store contract the mutation coordinators consume.
// Put with a non-empty overwriteKey replaces that object in place instead of
// minting a new identifier.
type Gateway interface {
	Put(ctx context.Context, data []byte, contentType, folder, overwriteKey string) (Object, error)
	Delete(ctx context.Context, key string) error
}

const opTimeout = 30 * time.Second

// S3Gateway implements Gateway on S3.
type S3Gateway struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	region   string
}

// NewS3Gateway builds a gateway from the ambient AWS configuration.
func NewS3Gateway(ctx context.Context, region, bucket string) (*S3Gateway, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Gateway{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		region:   region,
	}, nil
}

// Put uploads the bytes under folder, reusing overwriteKey when given.
func (g *S3Gateway) Put(ctx context.Context, data []byte, contentType, folder, overwriteKey string) (Object, error) {
	key := overwriteKey
	if key == "" {
		key = folder + "/" + uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := g.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("upload object: %w", err)
	}
	return Object{Key: key, URL: g.objectURL(key)}, nil
}

// Delete removes the object. Missing keys are not an error on S3.
func (g *S3Gateway) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (g *S3Gateway) objectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", g.bucket, g.region, url.PathEscape(key))
}
