package outputters

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dotcommander/viralscore/internal/batch"
	"github.com/dotcommander/viralscore/internal/config"
	"github.com/dotcommander/viralscore/internal/output"
	"github.com/dotcommander/viralscore/internal/scoring"
	"github.com/dotcommander/viralscore/internal/types"
)

// FormatterFactory creates formatters by format name.
type FormatterFactory interface {
	CreateFormatter(format string) (output.Formatter, error)
}

// DefaultFormatterFactory builds the formatters shipped in internal/output.
type DefaultFormatterFactory struct {
	Verbose  bool
	Colorize bool
}

// CreateFormatter returns the formatter for format.
func (f *DefaultFormatterFactory) CreateFormatter(format string) (output.Formatter, error) {
	switch format {
	case types.FormatConsole:
		return output.NewConsoleFormatter(f.Verbose, f.Colorize), nil
	case types.FormatJSON:
		return output.NewJSONFormatter(false), nil
	case types.FormatMarkdown:
		return output.NewMarkdownFormatter(f.Verbose), nil
	case types.FormatCSV:
		return output.NewCSVFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Outputter handles output formatting
type Outputter struct {
	config  *config.Config
	factory FormatterFactory
	stdout  io.Writer
}

// NewOutputter creates a new Outputter writing to stdout unless the config
// names an output file. Colors are used only on an interactive terminal.
func NewOutputter(cfg *config.Config, stdout io.Writer) *Outputter {
	return NewOutputterWithFactory(cfg, stdout, &DefaultFormatterFactory{
		Verbose:  cfg.Verbose,
		Colorize: cfg.Output == "" && output.IsTerminal(stdout),
	})
}

// NewOutputterWithFactory creates an Outputter with a custom factory.
func NewOutputterWithFactory(cfg *config.Config, stdout io.Writer, factory FormatterFactory) *Outputter {
	return &Outputter{
		config:  cfg,
		factory: factory,
		stdout:  stdout,
	}
}

// Score writes one score output.
func (o *Outputter) Score(out *scoring.Output) error {
	return o.emit(func(f output.Formatter, w io.Writer) error { return f.Format(w, out) })
}

// Batch writes a batch report.
func (o *Outputter) Batch(res *batch.Result) error {
	return o.emit(func(f output.Formatter, w io.Writer) error { return f.FormatBatch(w, res) })
}

// Rank writes a ranking.
func (o *Outputter) Rank(rows []output.RankRow) error {
	return o.emit(func(f output.Formatter, w io.Writer) error { return f.FormatRank(w, rows) })
}

func (o *Outputter) emit(render func(output.Formatter, io.Writer) error) error {
	formatter, err := o.factory.CreateFormatter(o.config.Format)
	if err != nil {
		return err
	}

	if o.config.Output == "" {
		if err := render(formatter, o.stdout); err != nil {
			return fmt.Errorf("error formatting output: %w", err)
		}
		return nil
	}

	if dir := filepath.Dir(o.config.Output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}
	file, err := os.Create(o.config.Output)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	if err := render(formatter, file); err != nil {
		file.Close()
		return fmt.Errorf("error formatting output: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("error writing output file: %w", err)
	}
	return nil
}
