package s3util

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePut struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakePut) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(params.Bucket)
	f.key = aws.ToString(params.Key)
	f.contentType = aws.ToString(params.ContentType)
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestResultKey(t *testing.T) {
	tests := []struct {
		prefix, runID, file, want string
	}{
		{"", "run-1", "asset_classification_results.json", "run-1/asset_classification_results.json"},
		{"runs", "run-1", "out/results.json", "runs/run-1/results.json"},
		{"/a/b/", "run-2", "r.json", "a/b/run-2/r.json"},
	}
	for _, tt := range tests {
		if got := ResultKey(tt.prefix, tt.runID, tt.file); got != tt.want {
			t.Errorf("ResultKey(%q, %q, %q) = %q, want %q", tt.prefix, tt.runID, tt.file, got, tt.want)
		}
	}
}

func TestPublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset_classification_results.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := &fakePut{}
	p := NewPublisherWithClient(fake, "results-bucket", "/classifier/")
	uri, err := p.Publish(context.Background(), "run-9", path)
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	if uri != "s3://results-bucket/classifier/run-9/asset_classification_results.json" {
		t.Errorf("uri = %q", uri)
	}
	if fake.bucket != "results-bucket" || fake.key != "classifier/run-9/asset_classification_results.json" {
		t.Errorf("put bucket=%q key=%q", fake.bucket, fake.key)
	}
	if string(fake.body) != "[]" {
		t.Errorf("body = %q", fake.body)
	}
	if fake.contentType != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", fake.contentType)
	}
}

func TestUploadResultsErrors(t *testing.T) {
	ctx := context.Background()
	if err := UploadResults(ctx, &fakePut{}, "b", "k", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "r.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("access denied")
	if err := UploadResults(ctx, &fakePut{err: boom}, "b", "k", path); !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped put error", err)
	}
}
