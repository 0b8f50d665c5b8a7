package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// S3 allows at most 1000 keys per DeleteObjects call
const maxDeleteBatch = 1000

// MediaStore removes picture objects from the S3 bucket pictures are uploaded to
type MediaStore struct {
	s3Client *s3.Client
	s3Bucket string
}

// NewMediaStore creates a media store. Static credentials are used when
// accessKey is set, otherwise the default AWS credential chain. A custom
// endpoint switches to path-style addressing for S3-compatible storage.
func NewMediaStore(ctx context.Context, region, bucket, accessKey, secretKey, endpoint string) (*MediaStore, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &MediaStore{
		s3Client: s3Client,
		s3Bucket: bucket,
	}, nil
}

// DeleteObjects deletes keys from the bucket in batches
func (m *MediaStore) DeleteObjects(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := start + maxDeleteBatch
		if end > len(keys) {
			end = len(keys)
		}

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := m.s3Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(m.s3Bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects: %w", err)
		}
		for _, e := range out.Errors {
			log.Warn().
				Str("key", aws.ToString(e.Key)).
				Str("code", aws.ToString(e.Code)).
				Msg("Object not deleted")
		}
	}
	return nil
}
