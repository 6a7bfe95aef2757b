package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

// IndexName is the file written into every target directory.
const IndexName = "index.json"

// tempPrefix names in-progress manifests; a killed run can leave one behind.
const tempPrefix = "." + IndexName + ".tmp."

// Manifest is the document written to IndexName
type Manifest struct {
	Files []string `json:"files"`
}

// ErrInvalidName is returned for a matching file whose name is not valid UTF-8
var ErrInvalidName = errors.New("file name is not valid UTF-8")

// FilesystemError reports a failed filesystem operation on a target
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// ValidatePattern checks that pattern is a usable glob for base filenames
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return errors.New("empty pattern")
	}
	if strings.ContainsRune(pattern, '/') || strings.ContainsRune(pattern, filepath.Separator) {
		return fmt.Errorf("pattern %q must not contain a path separator", pattern)
	}
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid pattern %q", pattern)
	}
	return nil
}

// Generate writes dir/index.json listing the regular files in dir whose
// names match pattern. The directory is created if it does not exist.
func Generate(dir, pattern string) error {
	_, err := generate(dir, pattern)
	return err
}

func generate(dir, pattern string) (*Manifest, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &FilesystemError{Op: "create directory", Path: dir, Err: err}
	}

	files, err := List(dir, pattern)
	if err != nil {
		return nil, err
	}

	m := &Manifest{Files: files}
	data, err := m.Encode()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, IndexName)
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return nil, &FilesystemError{Op: "write manifest", Path: path, Err: err}
	}
	return m, nil
}

// List returns the sorted names of regular files directly inside dir that
// match pattern, leaving out IndexName and leftover temp files. Hidden files
// are skipped unless pattern starts with a dot. The result is never nil.
func List(dir, pattern string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &FilesystemError{Op: "list directory", Path: dir, Err: err}
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if name == IndexName || strings.HasPrefix(name, tempPrefix) {
			continue
		}
		// hidden files only match patterns that start with a dot
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(pattern, ".") {
			continue
		}
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", pattern, err)
		}
		if !ok {
			continue
		}
		regular, err := isRegular(dir, entry)
		if err != nil {
			return nil, &FilesystemError{Op: "list directory", Path: filepath.Join(dir, name), Err: err}
		}
		if !regular {
			continue
		}
		// JSON strings cannot carry the name byte for byte
		if !utf8.ValidString(name) {
			return nil, &FilesystemError{Op: "list directory", Path: filepath.Join(dir, name), Err: ErrInvalidName}
		}
		files = append(files, name)
	}

	slices.Sort(files)
	return files, nil
}

// isRegular follows symlinks; dangling links are not regular files.
func isRegular(dir string, entry os.DirEntry) (bool, error) {
	mode := entry.Type()
	if mode.IsRegular() {
		return true, nil
	}
	if mode&os.ModeSymlink == 0 {
		return false, nil
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Encode renders the manifest as indented JSON with a trailing newline
func (m *Manifest) Encode() ([]byte, error) {
	files := m.Files
	if files == nil {
		files = []string{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(Manifest{Files: files}); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory, so readers see either the old file or the complete new one.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
