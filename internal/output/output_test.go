package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dotcommander/viralscore/internal/baseline"
	"github.com/dotcommander/viralscore/internal/batch"
	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/scoring"
	"github.com/dotcommander/viralscore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func sampleOutput(id string, overall float64, confidence string) *scoring.Output {
	return &scoring.Output{
		VideoID: id,
		Version: "1.0.0",
		Subscores: scoring.Subscores{
			types.FacetHook:  f64(overall),
			types.FacetStory: f64(50),
		},
		Penalties: -4,
		Overall:   overall,
		Weights:   map[types.Facet]float64{types.FacetHook: 0.6, types.FacetStory: 0.4},
		Diagnostics: scoring.Diagnostics{
			CompletenessPct: 25,
			Confidence:      confidence,
			Clamped:         []schema.Clamp{{Field: "measures.hook_content.stakes_clarity", Value: 1.4, ClampedTo: 1}},
		},
		ScoreDetails: scoring.ScoreDetails{
			Penalties: []scoring.PenaltyDetail{{Rule: scoring.RuleEngagementBait, Amount: -4, Note: `caption: "like if"`}},
			HookAttribution: &scoring.HookAttribution{
				TopMotifs: []scoring.Motif{{Label: types.HookResultFirst, Probability: 0.8}},
			},
			Facets: map[types.Facet][]scoring.SignalDetail{
				types.FacetStory: {{Signal: "has_payoff", Value: 1, Normalized: 1, Weight: 0.5, Points: 50}},
			},
		},
	}
}

func sampleResult() *batch.Result {
	ve := &schema.ValidationError{VideoID: "bad", Field: "measures.engagement.views", Message: "invalid value -1", Issues: []schema.Issue{{Field: "measures.engagement.views", Message: "invalid value -1"}}}
	return &batch.Result{
		RunID:     "run-1",
		Version:   "1.0.0",
		StartedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Files:     3,
		Scored:    2,
		Failed:    2,
		Items: []batch.Item{
			{Path: "a.json", Output: sampleOutput("a", 81.5, types.ConfidenceHigh)},
			{Path: "b.ndjson", Line: 2, Err: ve},
			{Path: "b.ndjson", Line: 3, Output: sampleOutput("c", 22, types.ConfidenceLow)},
			{Path: "gone.json", Err: errors.New("read gone.json: permission denied")},
		},
		Drift: &baseline.Drift{
			Changed:   []baseline.Change{{VideoID: "a", Before: 80, After: 81.5, Delta: 1.5}},
			Added:     []string{"c"},
			Unchanged: 0,
		},
	}
}

func sampleRank() []RankRow {
	at := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	return []RankRow{
		{Rank: 1, VideoID: "a", Version: "1.0.0", Overall: 81.5, Confidence: types.ConfidenceHigh, ScoredAt: at, Output: sampleOutput("a", 81.5, types.ConfidenceHigh)},
		{Rank: 2, VideoID: "c", Version: "1.0.0", Overall: 22, Confidence: types.ConfidenceLow, ScoredAt: at},
	}
}

func TestTier(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, TierStrong},
		{70, TierStrong},
		{69.9, TierFair},
		{40, TierFair},
		{39.9, TierWeak},
		{0, TierWeak},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tier(tt.score), "score %v", tt.score)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestTruncateLeft(t *testing.T) {
	assert.Equal(t, "short", truncateLeft("short", 10))
	assert.Equal(t, "...6789", truncateLeft("0123456789", 7))
}

func TestJSONFormatter(t *testing.T) {
	f := NewJSONFormatter(false)

	t.Run("single", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.Format(&buf, sampleOutput("a", 81.5, types.ConfidenceHigh)))

		var doc map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
		assert.Equal(t, "a", doc["video_id"])
		assert.Equal(t, 81.5, doc["overall"])
		subscores := doc["subscores"].(map[string]any)
		assert.Equal(t, 50.0, subscores["story"])
		assert.Contains(t, buf.String(), `caption: \"like if\"`)
		assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	})

	t.Run("error", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatError(&buf, &schema.ValidationError{Field: "meta.video_id", Message: "required", Issues: []schema.Issue{{Field: "meta.video_id", Message: "required"}}}))
		assert.JSONEq(t, `{"error":"validation_error","field":"meta.video_id","message":"required","issues":[{"field":"meta.video_id","message":"required"}]}`, buf.String())
	})

	t.Run("batch", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewJSONFormatter(true).FormatBatch(&buf, sampleResult()))

		var report JSONBatchReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
		assert.Equal(t, "viralscore", report.Header.Tool)
		assert.Equal(t, "run-1", report.Header.RunID)
		assert.Equal(t, "2024-05-01T12:00:00Z", report.Header.Timestamp)
		assert.Equal(t, "1.5s", report.Summary.Duration)
		assert.Equal(t, 2, report.Summary.Failed)
		require.Len(t, report.Results, 2)
		assert.Equal(t, "c", report.Results[1].VideoID)
		require.Len(t, report.Errors, 2)
		assert.Equal(t, "b.ndjson", report.Errors[0].Path)
		assert.Equal(t, 2, report.Errors[0].Line)
		assert.Equal(t, "validation_error", report.Errors[0].Error)
		assert.Equal(t, "bad", report.Errors[0].VideoID)
		assert.Equal(t, "io_error", report.Errors[1].Error)
		require.NotNil(t, report.Drift)
		assert.Equal(t, 1.5, report.Drift.Changed[0].Delta)
	})

	t.Run("batch without failures has empty errors array", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatBatch(&buf, &batch.Result{RunID: "r"}))
		assert.Contains(t, buf.String(), `"errors":[]`)
		assert.NotContains(t, buf.String(), `"drift"`)
	})

	t.Run("rank", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatRank(&buf, sampleRank()))
		var entries []JSONRankEntry
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, 1, entries[0].Rank)
		assert.Equal(t, "2024-05-02T08:30:00Z", entries[1].ScoredAt)
	})
}

func TestConsoleFormatter(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewConsoleFormatter(false, false).Format(&buf, sampleOutput("vid-1", 81.5, types.ConfidenceHigh)))
		out := buf.String()

		for _, want := range []string{
			"vid-1", "ruleset 1.0.0", "overall", "81.5", "confidence high (25.0% complete)",
			"story", "50.0", "w 0.400", "no data", "penalties", "engagement_bait",
			"result_first 0.80", "clamped measures.hook_content.stakes_clarity: 1.4 -> 1",
		} {
			assert.Contains(t, out, want)
		}
		assert.NotContains(t, out, "has_payoff")
	})

	t.Run("verbose shows signals", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewConsoleFormatter(true, false).Format(&buf, sampleOutput("vid-1", 81.5, types.ConfidenceHigh)))
		assert.Contains(t, buf.String(), "has_payoff")
	})

	t.Run("batch", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewConsoleFormatter(false, false).FormatBatch(&buf, sampleResult()))
		out := buf.String()

		for _, want := range []string{
			"VIRALITY BATCH SUMMARY", "run-1", "Scored: 2", "Failed: 2",
			"CONFIDENCE DISTRIBUTION", "TOP SCORING", "LOWEST SCORING", "FAILURES",
			"b.ndjson:2", "measures.engagement.views", "gone.json",
			"Drift:", "1 changed, 1 added",
		} {
			assert.Contains(t, out, want)
		}
		assert.Less(t, strings.Index(out, "1. a"), strings.Index(out, "LOWEST SCORING"))
	})

	t.Run("rank", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewConsoleFormatter(false, false)
		require.NoError(t, f.FormatRank(&buf, sampleRank()))
		assert.Contains(t, buf.String(), "2024-05-02 08:30")

		buf.Reset()
		require.NoError(t, f.FormatRank(&buf, nil))
		assert.Contains(t, buf.String(), "No stored scores.")
	})
}

func TestMarkdownFormatter(t *testing.T) {
	f := NewMarkdownFormatter(true)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleOutput("vid-1", 81.5, types.ConfidenceHigh)))
	for _, want := range []string{
		"# Virality Report: vid-1",
		"**Overall:** 81.5 (strong)",
		"| hook | 81.5 | 0.600 |",
		"| algo | - | - |",
		"### story signals",
		"## Penalties",
		"## Hook Motifs",
		"- `measures.hook_content.stakes_clarity`: 1.4 -> 1",
	} {
		assert.Contains(t, buf.String(), want)
	}

	buf.Reset()
	require.NoError(t, f.FormatBatch(&buf, sampleResult()))
	for _, want := range []string{
		"# Virality Batch Report",
		"| Scored | 2 |",
		"| b.ndjson:3 | c | 22.0 | low |",
		"## Failures",
		"- **b.ndjson:2** `measures.engagement.views`",
		"- a: 80.0 -> 81.5 (+1.5)",
		"- c: added",
	} {
		assert.Contains(t, buf.String(), want)
	}

	buf.Reset()
	require.NoError(t, f.FormatBatch(&buf, &batch.Result{}))
	assert.Contains(t, buf.String(), "*No documents scored.*")

	buf.Reset()
	require.NoError(t, f.FormatRank(&buf, sampleRank()))
	assert.Contains(t, buf.String(), "| 2 | c | 22.0 | low | 2024-05-02T08:30:00Z |")
}

func TestCSVFormatter(t *testing.T) {
	f := NewCSVFormatter()

	parse := func(t *testing.T, data string) [][]string {
		t.Helper()
		records, err := csv.NewReader(strings.NewReader(data)).ReadAll()
		require.NoError(t, err)
		return records
	}

	t.Run("batch", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatBatch(&buf, sampleResult()))
		records := parse(t, buf.String())

		require.Len(t, records, 3)
		assert.Equal(t, CSVHeader(), records[0])
		assert.Equal(t, []string{"a.json", "a", "1.0.0", "81.5", "-4", "high", "25", "81.5", "50", "", "", "", "", "", ""}, records[1])
		assert.Equal(t, "b.ndjson:3", records[2][0])
	})

	t.Run("single", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.Format(&buf, sampleOutput("x", 10, types.ConfidenceLow)))
		records := parse(t, buf.String())
		require.Len(t, records, 2)
		assert.Equal(t, "", records[1][0])
		assert.Equal(t, "x", records[1][1])
	})

	t.Run("rank", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.FormatRank(&buf, sampleRank()))
		records := parse(t, buf.String())
		require.Len(t, records, 3)
		assert.Equal(t, "81.5", records[1][7])
		assert.Equal(t, []string{"2024-05-02T08:30:00Z", "c", "1.0.0", "22", "", "low", "", "", "", "", "", "", "", "", ""}, records[2])
	})
}
