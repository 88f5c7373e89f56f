// Package resources ships the linguistic data the tokenizer needs and
// materializes it into a cache directory on demand.
//
// The cache directory defaults to <os.UserCacheDir()>/relief, e.g.
// ~/.cache/relief on Linux. Files that already exist there are never
// overwritten, so an operator can edit them in place.
package resources

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	// StopwordsFile is the English stopword list (YAML, "terms:" list).
	StopwordsFile = "stopwords-en.yaml"
	// LemmasFile is the English lemma table (YAML, "lemmas:" list).
	LemmasFile = "lemmas-en.yaml"

	cacheSubdir = "relief"
)

//go:embed stopwords-en.yaml lemmas-en.yaml
var embedded embed.FS

// Paths locates the materialized resource files.
type Paths struct {
	Dir       string
	Stopwords string
	Lemmas    string
}

var ensureMu sync.Mutex

// DefaultCacheDir returns the per-user cache location for resources.
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache dir: %w", err)
	}
	return filepath.Join(base, cacheSubdir), nil
}

// Ensure writes any missing resource files into dir and returns their paths.
// It is idempotent and safe to call concurrently; an empty dir selects
// DefaultCacheDir.
func Ensure(dir string) (Paths, error) {
	if dir == "" {
		d, err := DefaultCacheDir()
		if err != nil {
			return Paths{}, err
		}
		dir = d
	}

	ensureMu.Lock()
	defer ensureMu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create cache dir: %w", err)
	}

	paths := Paths{
		Dir:       dir,
		Stopwords: filepath.Join(dir, StopwordsFile),
		Lemmas:    filepath.Join(dir, LemmasFile),
	}
	for name, dst := range map[string]string{StopwordsFile: paths.Stopwords, LemmasFile: paths.Lemmas} {
		if err := materialize(name, dst); err != nil {
			return Paths{}, err
		}
	}
	return paths, nil
}

func materialize(name, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", dst, err)
	}

	data, err := embedded.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read embedded %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("install %s: %w", name, err)
	}
	return nil
}

// Stopwords returns the embedded stopword YAML.
func Stopwords() []byte {
	data, _ := embedded.ReadFile(StopwordsFile)
	return data
}

// Lemmas returns the embedded lemma YAML.
func Lemmas() []byte {
	data, _ := embedded.ReadFile(LemmasFile)
	return data
}
