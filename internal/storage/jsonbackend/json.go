package jsonbackend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/FranksOps/stockists/internal/results"
	"github.com/FranksOps/stockists/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// line is the NDJSON shape of one stored record.
type line struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	results.CleanedRecord
}

// New creates an NDJSON-backed storage.Backend writing to path. Each Save
// replaces the file.
func New(fsys afero.Fs, path string) storage.Backend {
	return &jsonBackend{fs: fsys, path: path}
}

func (b *jsonBackend) Save(ctx context.Context, batch storage.Batch) error {
	if err := ctx.Err(); err != nil {
		return &storage.WriteError{Path: b.path, Err: err}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, r := range batch.Records {
		if err := enc.Encode(line{RunID: batch.RunID, CreatedAt: batch.CreatedAt, CleanedRecord: r}); err != nil {
			return &storage.WriteError{Path: b.path, Err: err}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := storage.WriteFileAtomic(b.fs, b.path, buf.Bytes()); err != nil {
		return &storage.WriteError{Path: b.path, Err: err}
	}
	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]results.CleanedRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []results.CleanedRecord{}, nil
		}
		return nil, fmt.Errorf("jsonbackend: %w", err)
	}

	var out []results.CleanedRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("jsonbackend: %w", err)
		}
		if filter.Matches(l.CleanedRecord) {
			out = append(out, l.CleanedRecord)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonbackend: %w", err)
	}

	return filter.Page(out), nil
}

func (b *jsonBackend) Close() error {
	return nil
}
