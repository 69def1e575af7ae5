package s3

import (
	"context"
	"strings"
	"testing"
)

func TestNewAttachmentBucketValidation(t *testing.T) {
	t.Parallel()
	if _, err := NewAttachmentBucket("", false, "k", "s", "attachments", "", nil); err == nil {
		t.Fatal("empty endpoint should be rejected")
	}
	if _, err := NewAttachmentBucket("minio:9000", false, "k", "s", "  ", "", nil); err == nil {
		t.Fatal("blank bucket should be rejected")
	}
}

func TestAttachmentBucketPublicURLTrimsSlash(t *testing.T) {
	t.Parallel()
	bucket, err := NewAttachmentBucket("minio:9000", false, "k", "s", "attachments", "https://cdn.example.com/", nil)
	if err != nil {
		t.Fatalf("new bucket: %v", err)
	}
	if bucket.publicURL != "https://cdn.example.com" {
		t.Fatalf("public url = %q", bucket.publicURL)
	}
}

func TestUploadRejectsEmptyKey(t *testing.T) {
	t.Parallel()
	bucket, err := NewAttachmentBucket("minio:9000", false, "k", "s", "attachments", "", nil)
	if err != nil {
		t.Fatalf("new bucket: %v", err)
	}
	if _, err := bucket.Upload(context.Background(), "  / ", strings.NewReader("x"), ""); err == nil {
		t.Fatal("blank key should be rejected before any network call")
	}
	if _, err := bucket.Upload(context.Background(), "chat/u1/a.png", nil, ""); err == nil {
		t.Fatal("nil reader should be rejected")
	}
}

func TestHostOf(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"https://minio.example.com":      "minio.example.com",
		"http://localhost:9000":          "localhost:9000",
		"minio:9000":                     "minio:9000",
		"https://minio.example.com/path": "minio.example.com",
	}
	for in, want := range cases {
		if got := hostOf(in); got != want {
			t.Fatalf("hostOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNoopUploaderFails(t *testing.T) {
	t.Parallel()
	if _, err := (NoopUploader{}).Upload(context.Background(), "k", strings.NewReader("x"), ""); err == nil {
		t.Fatal("noop uploader must fail")
	}
}
