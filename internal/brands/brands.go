package brands

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// MissingFileError reports that the brand list does not exist.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("required file not found: %s", e.Path)
}

func (e *MissingFileError) Is(target error) bool {
	return target == fs.ErrNotExist
}

// ReadError reports any other failure while reading the brand list.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("error reading file %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Load reads filename inside baseDir and returns one brand per non-blank
// line, trimmed, in file order. Lines may end in \n, \r\n or \r.
// Duplicates are kept.
func Load(fsys afero.Fs, baseDir, filename string) ([]string, error) {
	path := filepath.Join(baseDir, filename)

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingFileError{Path: path}
		}
		return nil, &ReadError{Path: path, Err: err}
	}

	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))

	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	return out, nil
}

// BuildQueries appends suffix to every brand, keeping order.
func BuildQueries(brands []string, suffix string) []string {
	queries := make([]string, len(brands))
	for i, b := range brands {
		queries[i] = b + suffix
	}
	return queries
}
