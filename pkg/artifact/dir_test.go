package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDirStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewDirStore(root)

	if err := s.Put(ctx, "about/_props.json", []byte(`{"blog":"hello"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "/index.html", []byte("<html></html>")); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(root, "about", "_props.json")); err != nil {
		t.Errorf("file not written: %v", err)
	}

	data, err := s.Get(ctx, "about/_props.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"blog":"hello"}` {
		t.Errorf("Get = %s", data)
	}

	keys, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"about/_props.json", "index.html"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("List = %v, want %v", keys, want)
	}
}

func TestDirStore_NotFound(t *testing.T) {
	s := NewDirStore(t.TempDir())
	_, err := s.Get(context.Background(), "missing/_props.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDirStore_RejectsEscapes(t *testing.T) {
	s := NewDirStore(t.TempDir())
	if err := s.Put(context.Background(), "../outside", []byte("x")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Put error = %v, want ErrInvalidKey", err)
	}
	if _, err := s.Get(context.Background(), "a/../../b"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Get error = %v, want ErrInvalidKey", err)
	}
}

func TestDirStore_MissingRoot(t *testing.T) {
	s := NewDirStore(filepath.Join(t.TempDir(), "never-created"))
	keys, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Errorf("List = %v, want empty", keys)
	}
}
