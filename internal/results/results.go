// Package results turns raw search responses into ranked records and
// reduces them to the deduplicated brand-to-stockist mapping.
package results

// Missing stands in for a field the search API did not return.
const Missing = "MISSING"

// ResultRecord is one organic entry of one query's response.
type ResultRecord struct {
	Query       string
	URL         string
	Title       string
	Description string
	// Position is the 1-based rank within the response.
	Position int
}

// CleanedRecord is a ResultRecord that survived every filter.
type CleanedRecord struct {
	Query       string `json:"query"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Columns is the fixed output column order.
var Columns = []string{"query", "url", "title", "description"}

// Row returns the record's fields in Columns order.
func (r CleanedRecord) Row() []string {
	return []string{r.Query, r.URL, r.Title, r.Description}
}
