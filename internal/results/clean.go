package results

import "strings"

// Drop reasons reported in CleanStats.
const (
	DropPosition  = "position"
	DropMissing   = "missing_field"
	DropHomepage  = "homepage"
	DropDuplicate = "duplicate_url"
)

// Rules are the business rules the cleaner applies.
type Rules struct {
	// TargetPosition is the only rank kept (1 = top result).
	TargetPosition int
	// HomepageDepth is the URLDepth treated as a bare domain and dropped.
	HomepageDepth int
}

// CleanStats counts how many records each rule removed.
type CleanStats struct {
	In      int
	Out     int
	Dropped map[string]int
}

// URLDepth counts the slashes in url once trailing slashes are removed.
// "https://example.com/" has depth 2. The Missing sentinel has depth 0.
func URLDepth(url string) int {
	if url == Missing {
		return 0
	}
	return strings.Count(strings.TrimRight(url, "/"), "/")
}

// Clean keeps records at the target rank with every field present and a
// URL deeper than a homepage, then drops repeated URLs keeping the first.
// Output order follows input order.
func Clean(records []ResultRecord, rules Rules) ([]CleanedRecord, CleanStats) {
	stats := CleanStats{
		In: len(records),
		Dropped: map[string]int{
			DropPosition:  0,
			DropMissing:   0,
			DropHomepage:  0,
			DropDuplicate: 0,
		},
	}

	out := make([]CleanedRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for _, r := range records {
		if r.Position != rules.TargetPosition {
			stats.Dropped[DropPosition]++
			continue
		}
		if r.URL == Missing || r.Title == Missing || r.Description == Missing {
			stats.Dropped[DropMissing]++
			continue
		}
		if URLDepth(r.URL) == rules.HomepageDepth {
			stats.Dropped[DropHomepage]++
			continue
		}
		if _, dup := seen[r.URL]; dup {
			stats.Dropped[DropDuplicate]++
			continue
		}
		seen[r.URL] = struct{}{}

		out = append(out, CleanedRecord{
			Query:       r.Query,
			URL:         r.URL,
			Title:       r.Title,
			Description: r.Description,
		})
	}

	stats.Out = len(out)
	return out, stats
}

// Recheck runs already cleaned records back through Clean at the target
// rank. For any output of Clean it returns the same records.
func Recheck(cleaned []CleanedRecord, rules Rules) []CleanedRecord {
	records := make([]ResultRecord, len(cleaned))
	for i, c := range cleaned {
		records[i] = ResultRecord{
			Query:       c.Query,
			URL:         c.URL,
			Title:       c.Title,
			Description: c.Description,
			Position:    rules.TargetPosition,
		}
	}
	out, _ := Clean(records, rules)
	return out
}
