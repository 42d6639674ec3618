package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/stockists/internal/results"
)

// Batch is the cleaned output of one run.
type Batch struct {
	RunID     string
	CreatedAt time.Time
	Records   []results.CleanedRecord
}

// Filter allows querying for specific stored records.
type Filter struct {
	Query  string
	URL    string
	Limit  int
	Offset int
}

// Matches reports whether r passes the equality conditions of f.
func (f Filter) Matches(r results.CleanedRecord) bool {
	if f.Query != "" && r.Query != f.Query {
		return false
	}
	if f.URL != "" && r.URL != f.URL {
		return false
	}
	return true
}

// Page applies Offset and Limit to records already in output order.
func (f Filter) Page(records []results.CleanedRecord) []results.CleanedRecord {
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []results.CleanedRecord{}
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}

// Backend defines the interface for persisting and reading cleaned records.
// Save is all-or-nothing: either the whole batch is stored or an error is
// returned and earlier output is left untouched.
type Backend interface {
	Save(ctx context.Context, batch Batch) error
	Query(ctx context.Context, filter Filter) ([]results.CleanedRecord, error)
	Close() error
}

// WriteError reports a failure to persist a batch.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("error saving results to %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
