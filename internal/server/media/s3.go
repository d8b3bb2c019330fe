package media

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// objectPutter is the slice of *s3.Client used by S3Uploader.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
	// PublicURL is the base for returned URLs; BaseEndpoint is used when empty.
	PublicURL string
}

type S3Uploader struct {
	cfg    S3Config
	client objectPutter
	now    func() time.Time
}

func NewS3Uploader(ctx context.Context, c S3Config) (*S3Uploader, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey, // MINIO_ROOT_USER
			c.SecretKey, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Uploader{cfg: c, client: client, now: time.Now}, nil
}

// StorageKey builds users/<yyyy>/<m>/<d>/<uuid><ext> for the given file name.
func StorageKey(now time.Time, name string) string {
	ext := strings.ToLower(path.Ext(name))
	return fmt.Sprintf("users/%d/%d/%d/%v%s", now.Year(), now.Month(), now.Day(), uuid.New(), ext)
}

func (u *S3Uploader) Upload(ctx context.Context, f File) (*Uploaded, error) {
	if f.Body == nil {
		return nil, fmt.Errorf("%w: empty body", ErrUpload)
	}

	key := StorageKey(u.now(), f.Name)

	in := &s3.PutObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f.Body,
	}
	if f.ContentType != "" {
		in.ContentType = aws.String(f.ContentType)
	}
	if f.Size > 0 {
		in.ContentLength = aws.Int64(f.Size)
	}

	if _, err := u.client.PutObject(ctx, in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	return &Uploaded{URL: u.objectURL(key), Key: key}, nil
}

func (u *S3Uploader) objectURL(key string) string {
	base := u.cfg.PublicURL
	if base == "" {
		base = u.cfg.BaseEndpoint
	}
	return strings.TrimRight(base, "/") + "/" + u.cfg.Bucket + "/" + key
}
