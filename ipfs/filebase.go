// ipfs/filebase.go
package ipfs

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"voisss-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const filebaseEndpoint = "https://s3.filebase.com"

// objectAPI is the slice of the S3 client the provider needs.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// FilebaseProvider pins by writing to an IPFS-backed Filebase bucket.
// Filebase reports the CID as the "cid" object metadata entry.
type FilebaseProvider struct {
	client  objectAPI
	bucket  string
	gateway string
}

func NewFilebaseProvider(ctx context.Context, accessKeyID, secretAccessKey, bucket, gateway string) (*FilebaseProvider, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, secretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load Filebase config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(filebaseEndpoint)
		o.UsePathStyle = true
	})
	return &FilebaseProvider{client: client, bucket: bucket, gateway: gateway}, nil
}

func (p *FilebaseProvider) Name() string { return "filebase" }

func (p *FilebaseProvider) Upload(ctx context.Context, data []byte, meta models.AudioMetadata) (*models.UploadResult, error) {
	key := objectKey(meta, time.Now())

	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to Filebase: %w", err)
	}

	head, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read Filebase object %s: %w", key, err)
	}
	cid := head.Metadata["cid"]
	if cid == "" {
		return nil, fmt.Errorf("filebase object %s has no cid metadata", key)
	}

	return &models.UploadResult{
		Hash:     cid,
		Size:     int64(len(data)),
		URL:      GatewayURL(p.gateway, cid),
		Provider: p.Name(),
	}, nil
}

// objectKey is "recordings/<yyyy>/<mm>/<uuid>-<filename>".
func objectKey(meta models.AudioMetadata, now time.Time) string {
	name := path.Base(meta.Filename)
	if name == "." || name == "/" || name == "" {
		name = "recording"
	}
	return fmt.Sprintf("recordings/%04d/%02d/%s-%s", now.Year(), int(now.Month()), uuid.NewString(), name)
}
