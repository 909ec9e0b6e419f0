// Package archive stores rendered transcripts in S3-compatible object
// storage and hands out presigned download links.
package archive

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// PresignTTL is how long download links stay valid.
const PresignTTL = 15 * time.Minute

// Settings selects the bucket and the endpoint to talk to.
type Settings struct {
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type getPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Archive struct {
	bucket    string
	putter    objectPutter
	presigner getPresigner
	now       func() time.Time
}

// New builds an Archive with static credentials and path-style addressing,
// which MinIO and most self-hosted S3 servers expect.
func New(ctx context.Context, s Settings) (*Archive, error) {
	if s.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket is required")
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &Archive{
		bucket:    s.Bucket,
		putter:    client,
		presigner: s3.NewPresignClient(client),
		now:       time.Now,
	}, nil
}

// Key returns a fresh object key for a transcript of sessionID owned by
// userID: users/<uid>/sessions/<sid>/<yyyy>/<mm>/<dd>/<uuid>.<ext>.
func (a *Archive) Key(userID, sessionID, ext string) string {
	d := a.now().UTC()
	return fmt.Sprintf("users/%s/sessions/%s/%04d/%02d/%02d/%s.%s",
		userID, sessionID, d.Year(), int(d.Month()), d.Day(), uuid.NewString(), ext)
}

// Put uploads body under a new key and returns the key.
func (a *Archive) Put(ctx context.Context, userID, sessionID, ext, contentType string, body io.ReadSeeker) (string, error) {
	key := a.Key(userID, sessionID, ext)
	_, err := a.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("archive put: %w", err)
	}
	return key, nil
}

// PresignGet returns a download URL for key valid for PresignTTL.
func (a *Archive) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignTTL))
	if err != nil {
		return "", fmt.Errorf("archive presign: %w", err)
	}
	return req.URL, nil
}
