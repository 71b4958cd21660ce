package artifact

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"about/_props.json", "about/_props.json", false},
		{"/index.html", "index.html", false},
		{"", "", true},
		{"/", "", true},
		{"../etc/passwd", "", true},
		{"a/../b", "", true},
		{"a//b", "", true},
		{"a\\b", "", true},
	}
	for _, tt := range tests {
		got, err := CleanKey(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("CleanKey(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidKey) {
			t.Errorf("CleanKey(%q) error = %v, want ErrInvalidKey", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("CleanKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"index.html":            "text/html; charset=utf-8",
		"about/_props.json":     "application/json",
		"server/ssr-manifest.x": "application/octet-stream",
	}
	for key, want := range tests {
		if got := ContentType(key); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	src := NewDirStore(t.TempDir())
	dst := newMemS3()
	store, err := NewS3Store(ctx, S3Config{Bucket: "site", Prefix: "prod", Client: dst})
	if err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		"index.html":        "<html></html>",
		"_props.json":       "{}",
		"about/_props.json": `{"blog":"hello"}`,
	}
	for k, v := range files {
		if err := src.Put(ctx, k, []byte(v)); err != nil {
			t.Fatal(err)
		}
	}

	n, err := Copy(ctx, store, src)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(files) {
		t.Errorf("Copy = %d, want %d", n, len(files))
	}

	keys, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"_props.json", "about/_props.json", "index.html"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("List = %v, want %v", keys, want)
	}
	if _, ok := dst.objects["prod/about/_props.json"]; !ok {
		t.Error("object should be stored under the prefix")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, t.TempDir(), S3Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*DirStore); !ok {
		t.Errorf("Open(dir) = %T, want *DirStore", s)
	}

	s, err = Open(ctx, "s3://bucket/sites/docs", S3Config{Client: newMemS3()})
	if err != nil {
		t.Fatal(err)
	}
	s3s, ok := s.(*S3Store)
	if !ok {
		t.Fatalf("Open(s3://) = %T, want *S3Store", s)
	}
	if s3s.bucket != "bucket" || s3s.prefix != "sites/docs" {
		t.Errorf("bucket/prefix = %q/%q", s3s.bucket, s3s.prefix)
	}

	if _, err := Open(ctx, "s3:///nobucket", S3Config{Client: newMemS3()}); err == nil {
		t.Error("expected error for a location without a bucket")
	}
}
