package resources

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestEnsureWritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")

	paths, err := Ensure(dir)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if paths.Dir != dir {
		t.Errorf("Dir = %q, want %q", paths.Dir, dir)
	}

	got, err := os.ReadFile(paths.Stopwords)
	if err != nil {
		t.Fatalf("read stopwords: %v", err)
	}
	if !bytes.Equal(got, Stopwords()) {
		t.Error("materialized stopwords differ from embedded copy")
	}
	if _, err := os.Stat(paths.Lemmas); err != nil {
		t.Errorf("lemmas file missing: %v", err)
	}
}

func TestEnsureKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	custom := []byte("terms:\n  - flood\n")
	if err := os.WriteFile(filepath.Join(dir, StopwordsFile), custom, 0644); err != nil {
		t.Fatal(err)
	}

	paths, err := Ensure(dir)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	got, err := os.ReadFile(paths.Stopwords)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, custom) {
		t.Error("Ensure should not overwrite an existing file")
	}
}

func TestEnsureConcurrent(t *testing.T) {
	dir := t.TempDir()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Ensure(dir); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Ensure: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected exactly 2 files, got %d", len(entries))
	}
}

func TestEnsureDefaultDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	paths, err := Ensure("")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if filepath.Base(paths.Dir) != "relief" {
		t.Errorf("default dir should end in relief, got %q", paths.Dir)
	}
}
