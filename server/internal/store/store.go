package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/painless-params/painless/pkg/param"
)

var (
	// ErrNotFound is returned when the named parameter has no file.
	ErrNotFound = errors.New("parameter not found")

	// ErrInvalidName is returned for names that cannot be used as a plain
	// file name inside the base directory. It is the same rule the
	// parameter client applies.
	ErrInvalidName = param.ErrInvalidName
)

// Parameter is one name/value pair backed by a single file.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Store reads and writes parameter files in a single base directory.
// It holds no state besides the directory path, so it is safe for
// concurrent use; concurrent writers to the same file race at the OS level.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is not created; call
// EnsureDir for that.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the base directory.
func (s *Store) Dir() string {
	return s.dir
}

// EnsureDir creates the base directory if it does not exist yet.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o777); err != nil {
		return fmt.Errorf("store: create %q: %w", s.dir, err)
	}
	return nil
}

// List returns all parameters sorted by name. Only regular files count;
// directories, symlinks and other special files are skipped.
//
// A file that disappears between the directory read and the file read is
// left out. Any other read failure fails the whole listing.
func (s *Store) List() ([]Parameter, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("store: read dir %q: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	// os.ReadDir already sorts, but the ordering is part of the contract.
	sort.Strings(names)

	out := make([]Parameter, 0, len(names))
	for _, name := range names {
		value, err := readFirstLine(filepath.Join(s.dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store: read %q: %w", name, err)
		}
		out = append(out, Parameter{Name: name, Value: value})
	}
	return out, nil
}

// Get returns a single parameter.
func (s *Store) Get(name string) (Parameter, error) {
	if err := ValidName(name); err != nil {
		return Parameter{}, err
	}
	path := s.path(name)

	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Parameter{}, fmt.Errorf("store: get %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Parameter{}, fmt.Errorf("store: get %q: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return Parameter{}, fmt.Errorf("store: get %q: %w", name, ErrNotFound)
	}

	value, err := readFirstLine(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Parameter{}, fmt.Errorf("store: get %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Parameter{}, fmt.Errorf("store: get %q: %w", name, err)
	}
	return Parameter{Name: name, Value: value}, nil
}

// Set overwrites (or creates) the file for name with exactly value.
// No trailing newline is added. An existing entry that is not a regular
// file (directory, symlink, device) is refused with ErrInvalidName.
func (s *Store) Set(name, value string) error {
	if err := ValidName(name); err != nil {
		return err
	}
	path := s.path(name)

	info, err := os.Lstat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("store: set %q: %w", name, err)
	case !info.Mode().IsRegular():
		return fmt.Errorf("store: set %q: %w: not a regular file", name, ErrInvalidName)
	}

	if err := os.WriteFile(path, []byte(value), 0o666); err != nil {
		return fmt.Errorf("store: set %q: %w", name, err)
	}
	return nil
}

// Remove deletes the file for name. It returns ErrNotFound if there is no
// regular file of that name, so entries List never shows stay untouched.
func (s *Store) Remove(name string) error {
	if err := ValidName(name); err != nil {
		return err
	}
	path := s.path(name)

	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
		return fmt.Errorf("store: remove %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("store: remove %q: %w", name, err)
	}

	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: remove %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("store: remove %q: %w", name, err)
	}
	return nil
}

// Count returns the number of parameters currently present.
func (s *Store) Count() (int, error) {
	params, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(params), nil
}

// ValidName reports whether name can be used as a parameter name: a single
// path element, hidden names included, so every file List shows can be
// updated and removed.
func ValidName(name string) error {
	return param.ValidName(name)
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readFirstLine returns the first line of the file with surrounding
// whitespace stripped. An empty file yields "".
func readFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
