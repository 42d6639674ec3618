package csvbackend

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/spf13/afero"

	"github.com/FranksOps/stockists/internal/results"
	"github.com/FranksOps/stockists/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

// bom is the UTF-8 byte order mark spreadsheet tools use to detect encoding.
var bom = []byte{0xEF, 0xBB, 0xBF}

type csvBackend struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// New creates a CSV-backed storage.Backend writing to path. Each Save
// replaces the file.
func New(fsys afero.Fs, path string) storage.Backend {
	return &csvBackend{fs: fsys, path: path}
}

func (b *csvBackend) Save(ctx context.Context, batch storage.Batch) error {
	if err := ctx.Err(); err != nil {
		return &storage.WriteError{Path: b.path, Err: err}
	}

	var buf bytes.Buffer
	buf.Write(bom)

	w := csv.NewWriter(&buf)
	if err := w.Write(results.Columns); err != nil {
		return &storage.WriteError{Path: b.path, Err: err}
	}
	for _, r := range batch.Records {
		if err := w.Write(r.Row()); err != nil {
			return &storage.WriteError{Path: b.path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &storage.WriteError{Path: b.path, Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := storage.WriteFileAtomic(b.fs, b.path, buf.Bytes()); err != nil {
		return &storage.WriteError{Path: b.path, Err: err}
	}
	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]results.CleanedRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []results.CleanedRecord{}, nil
		}
		return nil, fmt.Errorf("csvbackend: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, bom)))

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return []results.CleanedRecord{}, nil
		}
		return nil, fmt.Errorf("csvbackend: %w", err)
	}
	if len(header) != len(results.Columns) {
		return nil, fmt.Errorf("csvbackend: unexpected header %v", header)
	}

	var out []results.CleanedRecord
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvbackend: %w", err)
		}

		rec := results.CleanedRecord{
			Query:       record[0],
			URL:         record[1],
			Title:       record[2],
			Description: record[3],
		}
		if filter.Matches(rec) {
			out = append(out, rec)
		}
	}

	return filter.Page(out), nil
}

func (b *csvBackend) Close() error {
	return nil
}
