// Package s3mirror keeps copies of exported backup files in an
// S3-compatible bucket (AWS, MinIO, R2, iDrive e2). It only moves files;
// restoring a pulled file still goes through backup.Coordinator.Import.
package s3mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/rustyeddy/ftjournal/config"
	"github.com/rustyeddy/ftjournal/errs"
)

// partSize is the S3 multipart minimum.
const partSize int64 = 5 * 1024 * 1024

// defaultRegion is used for custom endpoints that ignore the region.
const defaultRegion = "us-east-1"

// API is the subset of *s3.Client the mirror uses.
type API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Object describes one mirrored backup.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Mirror pushes and pulls backup files under Prefix in Bucket.
type Mirror struct {
	api    API
	bucket string
	prefix string
	log    *slog.Logger
}

// New builds a Mirror from the backup.s3 config section using static
// credentials when given and the default AWS chain otherwise.
func New(ctx context.Context, cfg config.S3Config, log *slog.Logger) (*Mirror, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: backup.s3.bucket is not set", errs.ErrConfiguration)
	}
	region := cfg.Region
	if region == "" {
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("%w: backup.s3.region is required", errs.ErrConfiguration)
		}
		region = defaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3mirror: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewWithClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, cfg.Prefix, log), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(api API, bucket, prefix string, log *slog.Logger) *Mirror {
	if log == nil {
		log = slog.Default()
	}
	return &Mirror{
		api:    api,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		log:    log.With("component", "s3mirror", "bucket", bucket),
	}
}

// Key returns the object key a local file is pushed to.
func (m *Mirror) Key(localPath string) string {
	name := filepath.Base(localPath)
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

// Push uploads the file at localPath and returns its object key. Large
// files go up as a multipart upload.
func (m *Mirror) Push(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", errs.ErrIO, localPath, err)
	}
	defer f.Close()

	key := m.Key(localPath)
	uploader := manager.NewUploader(m.api, func(u *manager.Uploader) {
		u.PartSize = partSize
	})
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/vnd.sqlite3"),
	})
	if err != nil {
		return "", fmt.Errorf("s3mirror: upload %s: %w", key, err)
	}

	m.log.Info("backup pushed", "key", key)
	return key, nil
}

// Pull downloads key to localPath. The file is written beside localPath
// and renamed into place, so a failed download never leaves a truncated
// backup behind.
func (m *Mirror) Pull(ctx context.Context, key, localPath string) error {
	out, err := m.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("s3mirror: get %s: %w", key, errs.ErrNotFound)
		}
		return fmt.Errorf("s3mirror: get %s: %w", key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %v", errs.ErrIO, err)
	}
	tmp := localPath + ".part"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", errs.ErrIO, tmp, err)
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: download %s: %v", errs.ErrIO, key, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: close %s: %v", errs.ErrIO, tmp, err)
	}
	if err := os.Rename(tmp, localPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %v", errs.ErrIO, tmp, err)
	}

	m.log.Info("backup pulled", "key", key, "path", localPath)
	return nil
}

// List returns the mirrored backups under the prefix, newest first.
func (m *Mirror) List(ctx context.Context) ([]Object, error) {
	prefix := m.prefix
	if prefix != "" {
		prefix += "/"
	}

	out := make([]Object, 0)
	paginator := s3.NewListObjectsV2Paginator(m.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(m.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3mirror: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			o := Object{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			out = append(out, o)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].LastModified.After(out[j].LastModified)
		}
		return out[i].Key > out[j].Key
	})
	return out, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	type httpResponseError interface {
		HTTPStatusCode() int
	}
	var httpErr httpResponseError
	return errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == 404
}

// normaliseEndpoint defaults a scheme-less endpoint to https.
func normaliseEndpoint(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" && parsed.Host != "" {
		return endpoint
	}
	return "https://" + endpoint
}
