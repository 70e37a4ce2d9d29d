package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/scoring"
	"github.com/dotcommander/viralscore/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunScoreFile(t *testing.T) {
	cfg := testConfig(t)
	path := writeFile(t, cfg.Root, "a.json", docLegacy)

	var stdout bytes.Buffer
	require.NoError(t, runScore(context.Background(), cfg, []string{path}, strings.NewReader(""), &stdout))

	var out scoring.Output
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "a", out.VideoID)
	assert.Equal(t, "1.0.0", out.Version)
	assert.Equal(t, 67.5, out.Overall)
}

func TestRunScoreStdin(t *testing.T) {
	for _, args := range [][]string{nil, {"-"}} {
		cfg := testConfig(t)
		var stdout bytes.Buffer
		require.NoError(t, runScore(context.Background(), cfg, args, strings.NewReader(docContent), &stdout))

		var out scoring.Output
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
		assert.Equal(t, "b", out.VideoID)
		assert.Equal(t, 12.0, out.Overall)
	}
}

func TestRunScoreValidationError(t *testing.T) {
	cfg := testConfig(t)
	var stdout bytes.Buffer

	err := runScore(context.Background(), cfg, []string{"-"}, strings.NewReader(docInvalid), &stdout)
	require.Error(t, err)
	var ve *schema.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, exitValidation, exitCode(err))

	var body schema.ErrorBody
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error)
	assert.Equal(t, "bad", body.VideoID)
	assert.Equal(t, "measures.engagement.views", body.Field)
	assert.NotEmpty(t, body.Issues)
}

func TestRunScoreMalformedJSON(t *testing.T) {
	cfg := testConfig(t)
	var stdout bytes.Buffer

	err := runScore(context.Background(), cfg, nil, strings.NewReader("{not json"), &stdout)
	assert.Equal(t, exitValidation, exitCode(err))
	assert.Contains(t, stdout.String(), `"field":"$"`)
}

func TestRunScoreIOErrors(t *testing.T) {
	cfg := testConfig(t)
	var stdout bytes.Buffer

	err := runScore(context.Background(), cfg, []string{filepath.Join(cfg.Root, "missing.json")}, nil, &stdout)
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Contains(t, err.Error(), "file not found")
	assert.Empty(t, stdout.String())

	err = runScore(context.Background(), cfg, []string{cfg.Root}, nil, &stdout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory")
}

func TestRunScoreStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = filepath.Join(cfg.Root, "scores.db")

	var stdout bytes.Buffer
	require.NoError(t, runScore(context.Background(), cfg, nil, strings.NewReader(docLegacy), &stdout))

	st, err := store.Open(cfg.Store)
	require.NoError(t, err)
	defer st.Close()

	rec, err := st.Get(context.Background(), "a", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 67.5, rec.Overall)
	assert.NotEmpty(t, rec.RunID)
}

func TestRunScoreOutputFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Format = "markdown"
	cfg.Output = filepath.Join(cfg.Root, "report.md")

	var stdout bytes.Buffer
	require.NoError(t, runScore(context.Background(), cfg, nil, strings.NewReader(docLegacy), &stdout))
	assert.Empty(t, stdout.String())
	assert.FileExists(t, cfg.Output)
}
