package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/OFFIS-RIT/factgraph/internal/util"
	"github.com/OFFIS-RIT/factgraph/pkg/logger"
	"github.com/OFFIS-RIT/factgraph/pkg/vocab"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the subset of the S3 client used for reading files.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func NewS3Client(ctx context.Context) *s3.Client {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		logger.Error("[Storage] Failed to load AWS config", "err", err)
		return nil
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client
}

func GetFile(ctx context.Context, client ObjectGetter, bucket, key string) ([]byte, error) {
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get file from S3: %w", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadVocabulary reads a vocabulary YAML file from the bucket, retrying
// transient failures.
func LoadVocabulary(ctx context.Context, client ObjectGetter, bucket, key string) (*vocab.Vocabulary, error) {
	data, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) ([]byte, error) {
		return GetFile(ctx, client, bucket, key)
	})
	if err != nil {
		return nil, err
	}

	v, err := vocab.Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", key, err)
	}
	logger.Info("[Storage] Loaded vocabulary from S3", "bucket", bucket, "key", key)
	return v, nil
}
