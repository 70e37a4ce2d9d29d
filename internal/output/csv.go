package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/dotcommander/viralscore/internal/batch"
	"github.com/dotcommander/viralscore/internal/scoring"
	"github.com/dotcommander/viralscore/internal/types"
)

// CSVFormatter writes one row per scored video. Failed documents are not
// rows; they are logged by the caller.
type CSVFormatter struct{}

// NewCSVFormatter creates a new CSVFormatter
func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

// CSVHeader returns the column names shared by every CSV report.
func CSVHeader() []string {
	header := []string{"source", "video_id", "version", "overall", "penalties", "confidence", "completeness_pct"}
	for _, f := range types.Facets {
		header = append(header, string(f))
	}
	return header
}

func csvRecord(source string, out *scoring.Output) []string {
	rec := []string{
		source,
		out.VideoID,
		out.Version,
		formatFloat(out.Overall),
		formatFloat(out.Penalties),
		out.Diagnostics.Confidence,
		formatFloat(out.Diagnostics.CompletenessPct),
	}
	for _, f := range types.Facets {
		if s := out.Subscores[f]; s != nil {
			rec = append(rec, formatFloat(*s))
		} else {
			rec = append(rec, "")
		}
	}
	return rec
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (f *CSVFormatter) write(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader()); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

// Format writes a single row.
func (f *CSVFormatter) Format(w io.Writer, out *scoring.Output) error {
	return f.write(w, [][]string{csvRecord("", out)})
}

// FormatBatch writes every scored document in item order.
func (f *CSVFormatter) FormatBatch(w io.Writer, res *batch.Result) error {
	var records [][]string
	for _, it := range res.Items {
		if it.Output != nil {
			records = append(records, csvRecord(location(it), it.Output))
		}
	}
	return f.write(w, records)
}

// FormatRank writes the ranking with the scored-at time as source.
func (f *CSVFormatter) FormatRank(w io.Writer, rows []RankRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		if r.Output != nil {
			records = append(records, csvRecord(r.ScoredAt.UTC().Format(time.RFC3339), r.Output))
			continue
		}
		rec := make([]string, len(CSVHeader()))
		rec[0] = r.ScoredAt.UTC().Format(time.RFC3339)
		rec[1] = r.VideoID
		rec[2] = r.Version
		rec[3] = formatFloat(r.Overall)
		rec[5] = r.Confidence
		records = append(records, rec)
	}
	return f.write(w, records)
}
