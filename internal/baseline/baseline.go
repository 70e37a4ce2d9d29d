// Package baseline snapshots score outputs so a later re-scoring run can be
// checked for drift.
package baseline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/dotcommander/viralscore/internal/scoring"
)

// FormatVersion is the on-disk baseline format.
const FormatVersion = "1.0"

// Entry is the baselined state of one video.
type Entry struct {
	Fingerprint string  `json:"fingerprint"`
	Overall     float64 `json:"overall"`
	Version     string  `json:"version"`
}

// Baseline represents a snapshot of scores keyed by video id.
type Baseline struct {
	Version   string           `json:"version"`
	CreatedAt string           `json:"created_at"`
	Entries   map[string]Entry `json:"entries"`
}

// Change is a video whose output differs from the baseline.
type Change struct {
	VideoID string  `json:"video_id"`
	Before  float64 `json:"before"`
	After   float64 `json:"after"`
	Delta   float64 `json:"delta"`
}

// Drift is the result of comparing a run against a baseline.
type Drift struct {
	Changed   []Change `json:"changed"`
	Added     []string `json:"added"`
	Missing   []string `json:"missing"`
	Unchanged int      `json:"unchanged"`
}

// Empty reports whether nothing changed.
func (d Drift) Empty() bool {
	return len(d.Changed) == 0 && len(d.Added) == 0 && len(d.Missing) == 0
}

// CreateBaseline creates a new baseline from a set of outputs. When a video
// id repeats, the first output wins.
func CreateBaseline(outputs []*scoring.Output, createdAt time.Time) (*Baseline, error) {
	b := &Baseline{
		Version:   FormatVersion,
		CreatedAt: createdAt.UTC().Format(time.RFC3339),
		Entries:   make(map[string]Entry, len(outputs)),
	}

	for _, out := range outputs {
		if _, ok := b.Entries[out.VideoID]; ok {
			continue
		}
		fp, err := Fingerprint(out)
		if err != nil {
			return nil, err
		}
		b.Entries[out.VideoID] = Entry{Fingerprint: fp, Overall: out.Overall, Version: out.Version}
	}

	return b, nil
}

// LoadBaseline loads a baseline from a JSON file
func LoadBaseline(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline file: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse baseline file: %w", err)
	}
	if b.Entries == nil {
		b.Entries = make(map[string]Entry)
	}

	return &b, nil
}

// SaveBaseline saves the baseline to a JSON file
func (b *Baseline) SaveBaseline(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal baseline: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write baseline file: %w", err)
	}

	return nil
}

// IsKnown reports whether out matches its baselined fingerprint exactly.
func (b *Baseline) IsKnown(out *scoring.Output) bool {
	entry, ok := b.Entries[out.VideoID]
	if !ok {
		return false
	}
	fp, err := Fingerprint(out)
	return err == nil && fp == entry.Fingerprint
}

// Compare checks outputs against the baseline. All lists are sorted by video id.
func (b *Baseline) Compare(outputs []*scoring.Output) (Drift, error) {
	var drift Drift
	seen := make(map[string]bool, len(outputs))

	for _, out := range outputs {
		if seen[out.VideoID] {
			continue
		}
		seen[out.VideoID] = true

		entry, ok := b.Entries[out.VideoID]
		if !ok {
			drift.Added = append(drift.Added, out.VideoID)
			continue
		}
		fp, err := Fingerprint(out)
		if err != nil {
			return Drift{}, err
		}
		if fp == entry.Fingerprint {
			drift.Unchanged++
			continue
		}
		drift.Changed = append(drift.Changed, Change{
			VideoID: out.VideoID,
			Before:  entry.Overall,
			After:   out.Overall,
			Delta:   math.Round((out.Overall-entry.Overall)*10) / 10,
		})
	}

	for id := range b.Entries {
		if !seen[id] {
			drift.Missing = append(drift.Missing, id)
		}
	}

	sort.Slice(drift.Changed, func(i, j int) bool { return drift.Changed[i].VideoID < drift.Changed[j].VideoID })
	sort.Strings(drift.Added)
	sort.Strings(drift.Missing)

	return drift, nil
}

// Fingerprint hashes the scored part of an output. The raw echo is excluded
// so re-sent inputs with extra upstream fields do not register as drift.
func Fingerprint(out *scoring.Output) (string, error) {
	scored := *out
	scored.ScoreDetails.Raw = nil

	data, err := json.Marshal(&scored)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", out.VideoID, err)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}
