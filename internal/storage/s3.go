// Package storage publishes files to the S3-compatible bucket behind the CDN.
package storage

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"cattube/internal/config"
	"cattube/internal/logger"
)

const (
	StaticLocation = "static"
	CacheControl   = "max-age=86400"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type Bucket struct {
	name     string
	uploader uploader
}

// NewBucket connects to the bucket through its S3-compatible endpoint.
func NewBucket(cfg *config.Config) *Bucket {
	creds := credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")
	client := s3.New(s3.Options{
		Region:       cfg.AWSRegion,
		Credentials:  creds,
		BaseEndpoint: aws.String(cfg.S3Endpoint()),
	})

	return &Bucket{
		name:     cfg.AWSBucket,
		uploader: manager.NewUploader(client),
	}
}

// PublishStatic uploads every file in fsys under the static/ prefix and
// returns the number of objects written.
func (b *Bucket) PublishStatic(ctx context.Context, fsys fs.FS) (int, error) {
	n := 0
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		f, err := fsys.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()

		key := path.Join(StaticLocation, name)
		input := &s3.PutObjectInput{
			Bucket:       aws.String(b.name),
			Key:          aws.String(key),
			Body:         f,
			CacheControl: aws.String(CacheControl),
		}
		if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
			input.ContentType = aws.String(ct)
		}

		if _, err := b.uploader.Upload(ctx, input); err != nil {
			return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, b.name, err)
		}
		logger.Infof("Uploaded '%s' to bucket '%s'", key, b.name)
		n++
		return nil
	})
	return n, err
}
