package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/FranksOps/stockists/internal/serp"
)

// ExtractionFault reports an organic entry that could not be read. Position
// is 0 when the organic list itself had an unexpected shape.
type ExtractionFault struct {
	Query    string
	Position int
	Err      error
}

func (e *ExtractionFault) Error() string {
	if e.Position == 0 {
		return fmt.Sprintf("error extracting results for '%s': %v", e.Query, e.Err)
	}
	return fmt.Sprintf("error extracting result %d for '%s': %v", e.Position, e.Query, e.Err)
}

func (e *ExtractionFault) Unwrap() error { return e.Err }

var errNotObject = errors.New("entry is not a JSON object")

// Extract converts the organic results of resp into records, one per entry
// in list order. A response without organic results yields nothing. Entries
// that cannot be read are skipped and reported as faults; the remaining
// entries keep their original rank.
func Extract(resp serp.Response, query string) ([]ResultRecord, []error) {
	raw, ok := resp[serp.OrganicKey]
	if !ok || isNull(raw) {
		return nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, []error{&ExtractionFault{Query: query, Err: fmt.Errorf("%s: %w", serp.OrganicKey, err)}}
	}

	var (
		out    = make([]ResultRecord, 0, len(entries))
		faults []error
	)
	for i, entry := range entries {
		position := i + 1
		rec, err := extractEntry(entry, query, position)
		if err != nil {
			faults = append(faults, &ExtractionFault{Query: query, Position: position, Err: err})
			continue
		}
		out = append(out, rec)
	}
	return out, faults
}

func extractEntry(entry json.RawMessage, query string, position int) (ResultRecord, error) {
	if isNull(entry) {
		return ResultRecord{}, errNotObject
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return ResultRecord{}, errNotObject
	}

	url, err := stringField(fields, "link")
	if err != nil {
		return ResultRecord{}, err
	}
	title, err := stringField(fields, "title")
	if err != nil {
		return ResultRecord{}, err
	}
	description, err := stringField(fields, "snippet")
	if err != nil {
		return ResultRecord{}, err
	}

	return ResultRecord{
		Query:       query,
		URL:         url,
		Title:       title,
		Description: description,
		Position:    position,
	}, nil
}

// stringField returns fields[key] as a string, or Missing when the key is
// absent or null.
func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return Missing, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field %q is not a string", key)
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
