package storage

import "testing"

func TestS3Params(t *testing.T) {
	t.Setenv("AWS_BUCKET", "")
	t.Setenv("AWS_ENDPOINT", "")
	if Enabled() {
		t.Fatal("expected S3 to be disabled")
	}

	t.Setenv("AWS_BUCKET", "docs")
	t.Setenv("AWS_ENDPOINT", "http://minio:9000")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_ACCESS_KEY", "key")
	t.Setenv("AWS_SECRET_KEY", "secret")

	if !Enabled() {
		t.Fatal("expected S3 to be enabled")
	}
	p := S3Params()
	if p.Bucket != "docs" || p.Endpoint != "http://minio:9000" || p.Region != "us-east-1" || p.AccessKey != "key" || p.SecretKey != "secret" {
		t.Fatalf("params = %+v", p)
	}
}

func TestNewS3Loader(t *testing.T) {
	t.Setenv("AWS_BUCKET", "docs")
	t.Setenv("AWS_ENDPOINT", "http://127.0.0.1:1")
	t.Setenv("AWS_ACCESS_KEY", "key")
	t.Setenv("AWS_SECRET_KEY", "secret")

	l, err := NewS3Loader(t.Context())
	if err != nil {
		t.Fatalf("NewS3Loader: %v", err)
	}
	if l == nil {
		t.Fatal("expected loader")
	}
}
