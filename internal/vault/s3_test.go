package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	data     []byte
	metadata map[string]string
}

// fakeS3 is an in-memory bucket implementing s3API and snapshotUploader.
type fakeS3 struct {
	mu        sync.Mutex
	bucket    string
	objects   map[string]fakeObject
	headError error
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{bucket: bucket, objects: make(map[string]fakeObject)}
}

func (f *fakeS3) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(input.Key)] = fakeObject{data: data, metadata: input.Metadata}
	return &manager.UploadOutput{Key: input.Key}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{Metadata: obj.metadata}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headError != nil {
		return nil, f.headError
	}
	if aws.ToString(params.Bucket) != f.bucket {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func newTestS3Vault(prefix string) (*S3Vault, *fakeS3) {
	fake := newFakeS3("blog-snapshots")
	return newS3Vault("test-s3", "blog-snapshots", prefix, fake, fake), fake
}

func TestS3Vault_PutAndGetSnapshot(t *testing.T) {
	v, fake := newTestS3Vault("sites")

	data := "sqlite bytes"
	if err := v.PutSnapshot("blog", strings.NewReader(data), int64(len(data)), 1700000000); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}

	obj, ok := fake.objects["sites/snapshots/blog.db"]
	if !ok {
		t.Fatalf("object not stored under expected key, have %v", fake.objects)
	}
	if got := obj.metadata[versionMetadataKey]; got != "1700000000" {
		t.Errorf("version metadata = %q, want %q", got, "1700000000")
	}

	var buf bytes.Buffer
	if err := v.GetSnapshot("blog", &buf); err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("GetSnapshot() = %q, want %q", buf.String(), data)
	}

	version, err := v.SnapshotVersion("blog")
	if err != nil {
		t.Fatalf("SnapshotVersion() error = %v", err)
	}
	if version != 1700000000 {
		t.Errorf("SnapshotVersion() = %d, want 1700000000", version)
	}
}

func TestS3Vault_Missing(t *testing.T) {
	v, _ := newTestS3Vault("")

	version, err := v.SnapshotVersion("blog")
	if err != nil {
		t.Fatalf("SnapshotVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("SnapshotVersion() = %d, want 0", version)
	}

	var buf bytes.Buffer
	err = v.GetSnapshot("blog", &buf)
	if err == nil || !strings.Contains(err.Error(), "snapshot not found") {
		t.Errorf("GetSnapshot() error = %v, want error containing 'snapshot not found'", err)
	}
}

func TestS3Vault_SizeMismatch(t *testing.T) {
	v, _ := newTestS3Vault("")

	if err := v.PutSnapshot("blog", strings.NewReader("hello"), 100, 1); err == nil {
		t.Error("PutSnapshot() expected error for size mismatch")
	}
}

func TestS3Vault_MissingVersionMetadata(t *testing.T) {
	v, fake := newTestS3Vault("")
	fake.objects["snapshots/blog.db"] = fakeObject{data: []byte("x")}

	if _, err := v.SnapshotVersion("blog"); err == nil {
		t.Error("SnapshotVersion() expected error for object without version metadata")
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	t.Run("bucket reachable", func(t *testing.T) {
		v, _ := newTestS3Vault("")
		if err := v.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("access denied", func(t *testing.T) {
		v, fake := newTestS3Vault("")
		fake.headError = errors.New("forbidden")
		if err := v.ValidateSetup(); err == nil {
			t.Error("ValidateSetup() expected error")
		}
	})
}
