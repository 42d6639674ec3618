package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"
)

// Summary describes one pipeline run.
type Summary struct {
	RunID            string         `json:"run_id"`
	Brands           int            `json:"brands"`
	Queries          int            `json:"queries"`
	FailedRequests   int            `json:"failed_requests"`
	ExtractionFaults int            `json:"extraction_faults"`
	Extracted        int            `json:"extracted"`
	Saved            int            `json:"saved"`
	Dropped          map[string]int `json:"dropped"`
	Output           string         `json:"output,omitempty"`
	SaveError        string         `json:"save_error,omitempty"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	Elapsed          time.Duration  `json:"elapsed_ns"`
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

var textReport = template.Must(template.New("textReport").Funcs(template.FuncMap{
	"seconds": func(d time.Duration) string { return fmt.Sprintf("%.2f", d.Seconds()) },
}).Parse(`
{{- if .Output}}Results saved to: {{.Output}}
{{else if .SaveError}}Save failed: {{.SaveError}}
{{else}}No valid results to save.
{{end -}}
Total records: {{.Saved}}

Run:               {{.RunID}}
Brands:            {{.Brands}}
Queries:           {{.Queries}}
Failed requests:   {{.FailedRequests}}
Extraction faults: {{.ExtractionFaults}}
Extracted records: {{.Extracted}}
Dropped:
{{- range $reason, $count := .Dropped}}
  {{$reason}}: {{$count}}
{{- else}}
  None
{{- end}}

Completed in {{seconds .Elapsed}} seconds
`))

// WriteText writes a human-readable summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	if err := textReport.Execute(w, summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// Write renders summary in the named format ("text" or "json").
func Write(w io.Writer, format string, summary Summary) error {
	switch format {
	case "", "text":
		return WriteText(w, summary)
	case "json":
		return WriteJSON(w, summary)
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}
