package s3mirror

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ftjournal/config"
	"github.com/rustyeddy/ftjournal/errs"
)

type fakeObject struct {
	data     []byte
	modified time.Time
}

// fakeS3 is an in-memory bucket. Listing returns two keys per page so the
// paginator has to follow continuation tokens.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]fakeObject
	clock   time.Time
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{
		bucket:  bucket,
		objects: map[string]fakeObject{},
		clock:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if aws.ToString(in.Bucket) != f.bucket {
		return nil, errors.New("wrong bucket")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Minute)
	f.objects[aws.ToString(in.Key)] = fakeObject{data: data, modified: f.clock}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		start, _ = strconv.Atoi(tok)
	}
	end := start + 2
	if end > len(keys) {
		end = len(keys)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		obj := f.objects[k]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.modified),
		})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestPushPull(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	fake := newFakeS3("journal")
	m := NewWithClient(fake, "journal", "/desk/", nil)

	src := writeFile(t, dir, "ftjournal-20240603-130507.db", "SQLite format 3\x00payload")
	key, err := m.Push(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "desk/ftjournal-20240603-130507.db", key)
	assert.Equal(t, key, m.Key(src))

	dest := filepath.Join(dir, "restore", "pulled.db")
	require.NoError(t, m.Pull(ctx, key, dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "SQLite format 3\x00payload", string(got))
	_, err = os.Stat(dest + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestPullMissing(t *testing.T) {
	t.Parallel()

	m := NewWithClient(newFakeS3("journal"), "journal", "", nil)
	err := m.Pull(context.Background(), "nope.db", filepath.Join(t.TempDir(), "x.db"))
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPushMissingFile(t *testing.T) {
	t.Parallel()

	m := NewWithClient(newFakeS3("journal"), "journal", "", nil)
	_, err := m.Push(context.Background(), filepath.Join(t.TempDir(), "gone.db"))
	assert.ErrorIs(t, err, errs.ErrIO)
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	fake := newFakeS3("journal")
	m := NewWithClient(fake, "journal", "desk", nil)
	other := NewWithClient(fake, "journal", "laptop", nil)

	for _, name := range []string{"a.db", "b.db", "c.db", "d.db", "e.db"} {
		_, err := m.Push(ctx, writeFile(t, dir, name, name))
		require.NoError(t, err)
	}
	_, err := other.Push(ctx, writeFile(t, dir, "z.db", "z"))
	require.NoError(t, err)

	objs, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, objs, 5)
	var keys []string
	for _, o := range objs {
		keys = append(keys, o.Key)
		assert.Equal(t, int64(4), o.Size)
	}
	assert.Equal(t, []string{"desk/e.db", "desk/d.db", "desk/c.db", "desk/b.db", "desk/a.db"}, keys)
}

func TestNewRequiresBucketAndRegion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := New(ctx, config.S3Config{}, nil)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, err = New(ctx, config.S3Config{Bucket: "journal"}, nil)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	m, err := New(ctx, config.S3Config{
		Bucket: "journal", Endpoint: "localhost:9000", ForcePathStyle: true,
		AccessKey: "minio", SecretKey: "minio123",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "journal", m.bucket)
	assert.Equal(t, "x.db", m.Key("/tmp/x.db"))
}

func TestNormaliseEndpoint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://localhost:9000", normaliseEndpoint("localhost:9000"))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("http://minio:9000"))
	assert.Equal(t, "https://s3.example.com", normaliseEndpoint("s3.example.com"))
}
