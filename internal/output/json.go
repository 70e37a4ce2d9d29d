package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/dotcommander/viralscore/internal/baseline"
	"github.com/dotcommander/viralscore/internal/batch"
	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/scoring"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	indent bool
}

// NewJSONFormatter creates a new JSONFormatter
func NewJSONFormatter(indent bool) *JSONFormatter {
	return &JSONFormatter{indent: indent}
}

// JSONBatchReport is the batch document.
type JSONBatchReport struct {
	Header   JSONHeader        `json:"header"`
	Summary  JSONSummary       `json:"summary"`
	Results  []*scoring.Output `json:"results"`
	Errors   []JSONItemError   `json:"errors"`
	Drift    *baseline.Drift   `json:"drift,omitempty"`
	Baseline string            `json:"baseline_created,omitempty"`
}

// JSONHeader identifies the run.
type JSONHeader struct {
	Tool      string `json:"tool"`
	RunID     string `json:"run_id"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// JSONSummary counts the batch outcome.
type JSONSummary struct {
	Files    int    `json:"files"`
	Scored   int    `json:"scored"`
	Failed   int    `json:"failed"`
	Stored   int    `json:"stored"`
	Duration string `json:"duration"`
}

// JSONItemError is a failed document with its location.
type JSONItemError struct {
	Path string `json:"path"`
	Line int    `json:"line,omitempty"`
	schema.ErrorBody
}

// JSONRankEntry is one ranked row.
type JSONRankEntry struct {
	Rank       int     `json:"rank"`
	VideoID    string  `json:"video_id"`
	Version    string  `json:"version"`
	Overall    float64 `json:"overall"`
	Confidence string  `json:"confidence"`
	ScoredAt   string  `json:"scored_at"`
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if f.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// Format writes one ScoreOutput document.
func (f *JSONFormatter) Format(w io.Writer, out *scoring.Output) error {
	return f.encode(w, out)
}

// FormatError writes the structured failure document for err.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, errorBody(err))
}

// FormatBatch writes the batch report.
func (f *JSONFormatter) FormatBatch(w io.Writer, res *batch.Result) error {
	report := JSONBatchReport{
		Header: JSONHeader{
			Tool:      "viralscore",
			RunID:     res.RunID,
			Version:   res.Version,
			Timestamp: res.StartedAt.UTC().Format(time.RFC3339),
		},
		Summary: JSONSummary{
			Files:    res.Files,
			Scored:   res.Scored,
			Failed:   res.Failed,
			Stored:   res.Stored,
			Duration: res.Duration.Round(time.Millisecond).String(),
		},
		Results:  res.Outputs(),
		Errors:   []JSONItemError{},
		Drift:    res.Drift,
		Baseline: res.BaselineCreated,
	}

	for _, it := range res.Items {
		if it.Failed() {
			report.Errors = append(report.Errors, JSONItemError{Path: it.Path, Line: it.Line, ErrorBody: errorBody(it.Err)})
		}
	}

	return f.encode(w, report)
}

// FormatRank writes the ranking as a JSON array.
func (f *JSONFormatter) FormatRank(w io.Writer, rows []RankRow) error {
	entries := make([]JSONRankEntry, len(rows))
	for i, r := range rows {
		entries[i] = JSONRankEntry{
			Rank:       r.Rank,
			VideoID:    r.VideoID,
			Version:    r.Version,
			Overall:    r.Overall,
			Confidence: r.Confidence,
			ScoredAt:   r.ScoredAt.UTC().Format(time.RFC3339),
		}
	}
	return f.encode(w, entries)
}
