package s3

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/kbukum/transcribe/errors"
)

// fakeAPI keeps objects in memory and answers like S3 for missing keys.
type fakeAPI struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeAPI) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &awss3.PutObjectOutput{}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *awss3.DeleteObjectInput, _ ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	if _, ok := f.objects[key]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "missing"}
	}
	delete(f.objects, key)
	return &awss3.DeleteObjectOutput{}, nil
}

func (f *fakeAPI) HeadObject(_ context.Context, in *awss3.HeadObjectInput, _ ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	if _, ok := f.objects[key]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	}
	return &awss3.HeadObjectOutput{}, nil
}

func TestStorageRoundTrip(t *testing.T) {
	api := newFakeAPI()
	s := NewWithClient(api, "staging", "")
	ctx := context.Background()
	key := "req-1/audio.flac"

	if ok, err := s.Exists(ctx, key); err != nil || ok {
		t.Fatalf("Exists before upload = %v, %v", ok, err)
	}
	if err := s.Upload(ctx, key, []byte("fLaC"), "audio/flac"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got := string(api.objects["staging/"+key]); got != "fLaC" {
		t.Errorf("stored body = %q", got)
	}
	if got := api.types["staging/"+key]; got != "audio/flac" {
		t.Errorf("content type = %q", got)
	}
	if ok, err := s.Exists(ctx, key); err != nil || !ok {
		t.Fatalf("Exists after upload = %v, %v", ok, err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("Delete of a missing key should succeed, got %v", err)
	}
}

func TestUploadErrorIsClassified(t *testing.T) {
	api := newFakeAPI()
	api.putErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "no write access"}
	s := NewWithClient(api, "staging", SchemeS3)

	err := s.Upload(context.Background(), "r/audio.wav", []byte("x"), "")
	if !errors.HasCode(err, errors.ErrCodeAccessDenied) {
		t.Errorf("Upload error = %v, want ACCESS_DENIED", err)
	}
}

func TestMediaURI(t *testing.T) {
	tests := []struct {
		scheme string
		want   string
	}{
		{"", "s3://bucket/req-1/audio.wav"},
		{SchemeS3, "s3://bucket/req-1/audio.wav"},
		{SchemeGCS, "gs://bucket/req-1/audio.wav"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			s := NewWithClient(newFakeAPI(), "bucket", tt.scheme)
			if got := s.MediaURI("req-1/audio.wav"); got != tt.want {
				t.Errorf("MediaURI = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfig(t *testing.T) {
	gcs := GCSConfig("media", "GOOG1", "secret")
	gcs.ApplyDefaults()
	if err := gcs.Validate(); err != nil {
		t.Fatalf("GCSConfig invalid: %v", err)
	}
	if gcs.Scheme != SchemeGCS || gcs.Endpoint != GCSEndpoint {
		t.Errorf("GCSConfig = %+v", gcs)
	}

	var c Config
	c.ApplyDefaults()
	if c.Scheme != SchemeS3 {
		t.Errorf("default scheme = %q", c.Scheme)
	}
	if err := c.Validate(); err == nil {
		t.Error("expected error for missing bucket")
	}

	c = Config{Bucket: "b", Scheme: "ftp"}
	c.ApplyDefaults()
	if err := c.Validate(); err == nil {
		t.Error("expected error for unknown scheme")
	}
}

func TestNewStorageWithEndpoint(t *testing.T) {
	cfg := GCSConfig("media", "GOOG1", "secret")
	cfg.ApplyDefaults()
	s, err := NewStorage(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	if got := s.MediaURI("k"); got != "gs://media/k" {
		t.Errorf("MediaURI = %q", got)
	}
}
