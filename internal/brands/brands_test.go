package brands

import (
	"errors"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()
	content := "Nike\n  Adidas  \r\n\n\t\nPuma\nNike\n"
	if err := afero.WriteFile(fsys, "/work/brands.txt", []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Load(fsys, "/work", "brands.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Nike", "Adidas", "Puma", "Nike"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestLoad_LineEndings(t *testing.T) {
	tests := map[string]string{
		"cr":    "Nike\rAdidas\r",
		"crlf":  "Nike\r\nAdidas\r\n",
		"mixed": "Nike\rAdidas\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			_ = afero.WriteFile(fsys, "/work/brands.txt", []byte(content), 0o644)

			got, err := Load(fsys, "/work", "brands.txt")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := []string{"Nike", "Adidas"}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("expected %v, got %q", want, got)
			}
		})
	}
}

func TestLoad_Empty(t *testing.T) {
	fsys := afero.NewMemMapFs()
	_ = afero.WriteFile(fsys, "/work/brands.txt", []byte("\n  \n"), 0o644)

	got, err := Load(fsys, "/work", "brands.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no brands, got %v", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	fsys := afero.NewMemMapFs()

	_, err := Load(fsys, "/work", "brands.txt")
	if err == nil {
		t.Fatal("expected error")
	}

	var missing *MissingFileError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFileError, got %T", err)
	}
	if missing.Path != filepath.Join("/work", "brands.txt") {
		t.Errorf("unexpected path %q", missing.Path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("expected errors.Is(err, fs.ErrNotExist)")
	}
	if !strings.Contains(err.Error(), "brands.txt") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestLoad_ReadError(t *testing.T) {
	dir := t.TempDir()
	fsys := afero.NewOsFs()
	// A directory where the file should be cannot be read as a file.
	if err := fsys.Mkdir(filepath.Join(dir, "brands.txt"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, err := Load(fsys, dir, "brands.txt")
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected ReadError, got %T (%v)", err, err)
	}
	if readErr.Path != filepath.Join(dir, "brands.txt") {
		t.Errorf("unexpected path %q", readErr.Path)
	}
}

func TestBuildQueries(t *testing.T) {
	in := []string{"Nike", "Adidas", "Nike"}
	got := BuildQueries(in, " Stockists")

	if len(got) != len(in) {
		t.Fatalf("expected %d queries, got %d", len(in), len(got))
	}
	for i, q := range got {
		if !strings.HasSuffix(q, " Stockists") {
			t.Errorf("query %q missing suffix", q)
		}
		if q != in[i]+" Stockists" {
			t.Errorf("query %d: expected %q, got %q", i, in[i]+" Stockists", q)
		}
	}

	if out := BuildQueries(nil, " Stockists"); len(out) != 0 {
		t.Errorf("expected empty output, got %v", out)
	}
}
