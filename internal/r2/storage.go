package r2

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	conf "github.com/Yoonyonggeun/mostarle-kr/internal/config"
)

type S3 struct {
	AccountID          string
	Bucket             string
	Region             string // usually "auto" for R2
	AwsAccessKeyId     string
	AwsSecretAccessKey string
	PublicBaseURL      string

	MaxRetries     int
	RetryBaseDelay time.Duration

	S3Client *s3.Client
	Uploader *manager.Uploader
}

func NewStorage(cfg *conf.R2Config) (*S3, error) {
	r2c := &S3{
		AccountID:          cfg.AccountID,
		Bucket:             cfg.BucketName,
		Region:             "auto",
		AwsAccessKeyId:     cfg.AccessKeyID,
		AwsSecretAccessKey: cfg.SecretKey,
		PublicBaseURL:      strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		MaxRetries:         3,
		RetryBaseDelay:     300 * time.Millisecond,
	}
	if err := r2c.Run(); err != nil {
		return nil, err
	}
	return r2c, nil
}

func (s *S3) Run() error {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.AwsAccessKeyId, s.AwsSecretAccessKey, "",
		)),
		config.WithRegion(s.Region),
	)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	s.S3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", s.AccountID))
		o.UsePathStyle = true
	})
	s.Uploader = manager.NewUploader(s.S3Client)

	return nil
}

// Upload puts one object and blocks until it is stored or retries are
// exhausted. Mutations need the outcome inline to decide compensation, so
// there is no queueing here.
func (s *S3) Upload(ctx context.Context, key string, contentType string, payload []byte) error {
	var err error
	for attempt := 1; ; attempt++ {
		_, err = s.Uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(payload),
			ContentType: aws.String(contentType),
		})
		if err == nil {
			return nil
		}
		if attempt > s.MaxRetries || ctx.Err() != nil {
			break
		}

		// backoff with jitter
		backoff := s.backoffDelay(attempt)
		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return fmt.Errorf("failed to upload %q: %w", key, err)
}

func (s *S3) backoffDelay(attempt int) time.Duration {
	delay := s.RetryBaseDelay << (attempt - 1)
	jitter := time.Duration(int64(delay) / 10)
	return delay - (jitter / 2) + time.Duration(int64(jitter)*time.Now().UnixNano()%2)
}

// PublicURL resolves an object key to its publicly retrievable URL.
func (s *S3) PublicURL(key string) string {
	return s.PublicBaseURL + "/" + key
}

// KeyFromURL is the inverse of PublicURL. It reports false for URLs outside
// this bucket's public domain.
func (s *S3) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, s.PublicBaseURL+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Remove deletes the given keys in one call. A partial failure is reported
// as an error naming the first key the store refused.
func (s *S3) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
	}

	out, err := s.S3Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.Bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to delete %d objects: %w", len(keys), err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("failed to delete %d of %d objects, first %q: %s",
			len(out.Errors), len(keys), aws.ToString(first.Key), aws.ToString(first.Message))
	}
	return nil
}

// List returns every object key under prefix, following pagination.
func (s *S3) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var token *string

	for {
		out, err := s.S3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.Bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if !aws.ToBool(out.IsTruncated) {
			return keys, nil
		}
		token = out.NextContinuationToken
	}
}

// RemovePrefix deletes everything under prefix: list-and-delete first, then a
// direct removal of the bare prefix path as a second attempt, since listing
// is not guaranteed to see every object.
func (s *S3) RemovePrefix(ctx context.Context, prefix string) error {
	keys, err := s.List(ctx, prefix)
	if err == nil && len(keys) > 0 {
		err = s.Remove(ctx, keys...)
	}

	_ = s.Remove(ctx, strings.TrimSuffix(prefix, "/"))

	return err
}
