package outputters

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dotcommander/viralscore/internal/batch"
	"github.com/dotcommander/viralscore/internal/config"
	"github.com/dotcommander/viralscore/internal/output"
	"github.com/dotcommander/viralscore/internal/scoring"
	"github.com/dotcommander/viralscore/internal/types"
)

// =============================================================================
// Mock Formatter for testing
// =============================================================================

type mockFormatter struct {
	calls []string
	err   error
}

func (m *mockFormatter) Format(w io.Writer, out *scoring.Output) error {
	m.calls = append(m.calls, "format:"+out.VideoID)
	io.WriteString(w, "single")
	return m.err
}

func (m *mockFormatter) FormatBatch(w io.Writer, res *batch.Result) error {
	m.calls = append(m.calls, "batch:"+res.RunID)
	io.WriteString(w, "batch")
	return m.err
}

func (m *mockFormatter) FormatRank(w io.Writer, rows []output.RankRow) error {
	m.calls = append(m.calls, "rank")
	io.WriteString(w, "rank")
	return m.err
}

type mockFormatterFactory struct {
	requestedFormat string
	formatter       output.Formatter
	createError     error
}

func (m *mockFormatterFactory) CreateFormatter(format string) (output.Formatter, error) {
	m.requestedFormat = format
	if m.createError != nil {
		return nil, m.createError
	}
	return m.formatter, nil
}

func TestNewOutputter(t *testing.T) {
	cfg := &config.Config{Format: "console", Verbose: true}
	var buf bytes.Buffer

	o := NewOutputter(cfg, &buf)
	if o.config != cfg {
		t.Errorf("NewOutputter() config = %v, want %v", o.config, cfg)
	}
	factory, ok := o.factory.(*DefaultFormatterFactory)
	if !ok {
		t.Fatalf("NewOutputter() factory type = %T, want *DefaultFormatterFactory", o.factory)
	}
	if !factory.Verbose {
		t.Error("expected verbose to carry into the factory")
	}
	if factory.Colorize {
		t.Error("expected no colors when writing to a buffer")
	}
}

func TestDefaultFormatterFactory(t *testing.T) {
	f := &DefaultFormatterFactory{}
	tests := []struct {
		format string
		want   string
	}{
		{types.FormatConsole, "*output.ConsoleFormatter"},
		{types.FormatJSON, "*output.JSONFormatter"},
		{types.FormatMarkdown, "*output.MarkdownFormatter"},
		{types.FormatCSV, "*output.CSVFormatter"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := f.CreateFormatter(tt.format)
			if err != nil {
				t.Fatalf("CreateFormatter(%q) error = %v", tt.format, err)
			}
			if typeName(got) != tt.want {
				t.Errorf("CreateFormatter(%q) = %s, want %s", tt.format, typeName(got), tt.want)
			}
		})
	}

	if _, err := f.CreateFormatter("xml"); err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

func TestOutputterDispatch(t *testing.T) {
	mock := &mockFormatter{}
	factory := &mockFormatterFactory{formatter: mock}
	var buf bytes.Buffer

	o := NewOutputterWithFactory(&config.Config{Format: "json"}, &buf, factory)

	if err := o.Score(&scoring.Output{VideoID: "v1"}); err != nil {
		t.Fatal(err)
	}
	if err := o.Batch(&batch.Result{RunID: "r1"}); err != nil {
		t.Fatal(err)
	}
	if err := o.Rank(nil); err != nil {
		t.Fatal(err)
	}

	if factory.requestedFormat != "json" {
		t.Errorf("requested format = %q, want json", factory.requestedFormat)
	}
	if got := strings.Join(mock.calls, ","); got != "format:v1,batch:r1,rank" {
		t.Errorf("calls = %s", got)
	}
	if buf.String() != "singlebatchrank" {
		t.Errorf("stdout = %q", buf.String())
	}
}

func TestOutputterErrors(t *testing.T) {
	var buf bytes.Buffer

	o := NewOutputterWithFactory(&config.Config{Format: "json"}, &buf, &mockFormatterFactory{createError: errors.New("no such format")})
	if err := o.Score(&scoring.Output{}); err == nil || err.Error() != "no such format" {
		t.Errorf("expected factory error, got %v", err)
	}

	o = NewOutputterWithFactory(&config.Config{Format: "json"}, &buf, &mockFormatterFactory{formatter: &mockFormatter{err: errors.New("boom")}})
	err := o.Score(&scoring.Output{})
	if err == nil || !strings.Contains(err.Error(), "error formatting output: boom") {
		t.Errorf("expected wrapped formatter error, got %v", err)
	}
}

func TestOutputterWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reports", "out.csv")
	var buf bytes.Buffer

	o := NewOutputterWithFactory(&config.Config{Format: "csv", Output: path}, &buf, &mockFormatterFactory{formatter: &mockFormatter{}})
	if err := o.Batch(&batch.Result{RunID: "r"}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected nothing on stdout, got %q", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "batch" {
		t.Errorf("file content = %q", data)
	}

	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	o = NewOutputterWithFactory(&config.Config{Format: "csv", Output: filepath.Join(blocker, "x.csv")}, &buf, &mockFormatterFactory{formatter: &mockFormatter{}})
	if err := o.Rank(nil); err == nil {
		t.Error("expected error when output directory cannot be created")
	}
}
