// Package schema validates raw ScoreInput documents and decodes them into the
// typed model consumed by the scoring engine.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schemas/*.cue
var schemaFS embed.FS

// inputDefinition is the CUE definition every document is unified with.
const inputDefinition = "#ScoreInput"

// Validator checks ScoreInput documents against the embedded CUE schema.
// CUE contexts are not goroutine safe, so unification is serialized.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	v := &Validator{ctx: cuecontext.New()}
	if err := v.loadSchema(); err != nil {
		return nil, err
	}
	return v, nil
}

// loadSchema compiles every embedded .cue file into a single value.
func (v *Validator) loadSchema() error {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return fmt.Errorf("read embedded schemas: %w", err)
	}

	var loaded bool
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".cue" {
			continue
		}
		content, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		inst := v.ctx.CompileBytes(content, cue.Filename(entry.Name()))
		if err := inst.Err(); err != nil {
			return fmt.Errorf("compile schema %s: %w", entry.Name(), err)
		}
		if !loaded {
			v.schema = inst
			loaded = true
			continue
		}
		v.schema = v.schema.Unify(inst)
	}

	if !loaded {
		return fmt.Errorf("no CUE schemas embedded")
	}
	if !v.schema.LookupPath(cue.ParsePath(inputDefinition)).Exists() {
		return fmt.Errorf("schema does not define %s", inputDefinition)
	}
	return nil
}

// Parse validates a raw JSON document and returns the typed input.
// Structural violations return a *ValidationError. Values that are well
// typed but outside their expected range are clamped and recorded in
// ScoreInput.Clamped.
func (v *Validator) Parse(data []byte) (*ScoreInput, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, newValidationError(RootField, fmt.Sprintf("malformed JSON: %v", err))
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, newValidationError(RootField, "document must be a JSON object")
	}

	if issues := v.check(dropNulls(obj).(map[string]any)); len(issues) > 0 {
		return nil, &ValidationError{Field: issues[0].Field, Message: issues[0].Message, Issues: issues}
	}

	var in ScoreInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, newValidationError(RootField, fmt.Sprintf("decode: %v", err))
	}
	if string(in.Raw) == "null" {
		in.Raw = nil
	}
	if len(in.Raw) > 0 {
		if err := json.Unmarshal(in.Raw, &in.RawPayload); err != nil {
			return nil, newValidationError("raw", fmt.Sprintf("decode: %v", err))
		}
	}

	if in.Meta.PostTime != nil {
		t, err := time.Parse(time.RFC3339, *in.Meta.PostTime)
		if err != nil {
			return nil, newValidationError("meta.post_time", fmt.Sprintf("not an RFC3339 timestamp: %q", *in.Meta.PostTime))
		}
		in.PostTime = &t
	}

	in.Clamped = clampInput(&in)
	return &in, nil
}

// check unifies data with the input definition and converts CUE errors into issues.
func (v *Validator) check(data map[string]any) []Issue {
	v.mu.Lock()
	defer v.mu.Unlock()

	dataValue := v.ctx.Encode(data)
	if err := dataValue.Err(); err != nil {
		return []Issue{{Field: RootField, Message: fmt.Sprintf("encode: %v", err)}}
	}

	def := v.schema.LookupPath(cue.ParsePath(inputDefinition))
	unified := def.Unify(dataValue)
	// cue.All keeps walking after the first conflict so every field is reported.
	if err := unified.Validate(cue.Concrete(true), cue.All()); err != nil {
		return issuesFromCUE(err)
	}
	if err := unified.Err(); err != nil {
		return issuesFromCUE(err)
	}
	return nil
}

// issuesFromCUE flattens a CUE error into sorted, de-duplicated issues.
func issuesFromCUE(err error) []Issue {
	seen := make(map[Issue]bool)
	var issues []Issue
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		issue := Issue{
			Field:   fieldPath(e.Path()),
			Message: fmt.Sprintf(format, args...),
		}
		if seen[issue] {
			continue
		}
		seen[issue] = true
		issues = append(issues, issue)
	}
	if len(issues) == 0 {
		issues = append(issues, Issue{Field: RootField, Message: err.Error()})
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Field != issues[j].Field {
			return issues[i].Field < issues[j].Field
		}
		return issues[i].Message < issues[j].Message
	})
	return issues
}

// fieldPath renders a CUE path as measures.hook.windows[0].t_end.
func fieldPath(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		if strings.HasPrefix(p, "#") {
			continue
		}
		if isIndex(p) {
			b.WriteString("[" + p + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	if b.Len() == 0 {
		return RootField
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// dropNulls removes null object members recursively. A null field carries
// the same meaning as an absent one.
func dropNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = dropNulls(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = dropNulls(val)
		}
		return out
	default:
		return v
	}
}
