package cloud

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the subset of the S3 API used to publish exports.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Client uploads lookup exports to a bucket.
type S3Client struct {
	client ObjectPutter
	bucket string
}

// NewS3Client creates an S3 client for the given bucket.
func NewS3Client(ctx context.Context, bucket, region string) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return NewS3ClientWith(s3.NewFromConfig(cfg), bucket), nil
}

// NewS3ClientWith wraps an existing S3 API implementation.
func NewS3ClientWith(client ObjectPutter, bucket string) *S3Client {
	return &S3Client{client: client, bucket: bucket}
}

// UploadCSV stores a CSV export under key.
func (c *S3Client) UploadCSV(ctx context.Context, key string, data []byte) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("uploading s3://%s/%s: %w", c.bucket, key, err)
	}
	return nil
}
