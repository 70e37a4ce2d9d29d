package schema

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	return v
}

func TestNewValidator(t *testing.T) {
	v := newTestValidator(t)
	assert.True(t, v.schema.Exists())
}

func TestParseValid(t *testing.T) {
	v := newTestValidator(t)

	in, err := v.Parse([]byte(`{
		"meta": {"video_id": "v1", "post_time": "2024-03-01T18:15:00Z", "follower_count": 1200},
		"measures": {
			"hook": {"time_to_value_sec": 0.7, "windows": [{"t_start": 0, "t_end": 1, "face_present_frac": 0.9}]},
			"hook_content": {"hook_type_probabilities": {"result_first": 0.6, "confession_secret": 0.2}},
			"algo": {"hashtags": ["#a", "#b"]},
			"risk": {"moderation_flags": ["hate"]},
			"future_facet": {"anything": true}
		},
		"raw": {"transcript": "hello", "hook_span": {"t_start": 0, "t_end": 2.1}, "extra": [1, 2]}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "v1", in.Meta.VideoID)
	require.NotNil(t, in.PostTime)
	assert.Equal(t, 18, in.PostTime.Hour())
	require.NotNil(t, in.Measures.Hook)
	require.Len(t, in.Measures.Hook.Windows, 1)
	assert.Equal(t, 1.0, in.Measures.Hook.Windows[0].TEnd)
	assert.Equal(t, 0.6, in.Measures.HookContent.HookTypeProbabilities["result_first"])
	assert.Equal(t, []string{"#a", "#b"}, in.Measures.Algo.Hashtags)
	assert.Nil(t, in.Measures.Story)
	assert.Empty(t, in.Clamped)

	end, ok := in.DeclaredHookEnd()
	require.True(t, ok)
	assert.Equal(t, 2.1, end)
	require.NotNil(t, in.RawPayload.Transcript)
	assert.Equal(t, "hello", *in.RawPayload.Transcript)
	assert.Contains(t, string(in.Raw), `"extra"`)
}

func TestParseStructuralErrors(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name      string
		doc       string
		wantField string
	}{
		{
			name:      "malformed JSON",
			doc:       `{"meta": `,
			wantField: RootField,
		},
		{
			name:      "not an object",
			doc:       `[1, 2, 3]`,
			wantField: RootField,
		},
		{
			name:      "missing video id",
			doc:       `{"meta": {}}`,
			wantField: "meta.video_id",
		},
		{
			name:      "empty video id",
			doc:       `{"meta": {"video_id": ""}}`,
			wantField: "meta.video_id",
		},
		{
			name:      "wrong type",
			doc:       `{"meta": {"video_id": "v"}, "measures": {"story": {"beat_count": "four"}}}`,
			wantField: "measures.story.beat_count",
		},
		{
			name:      "negative duration",
			doc:       `{"meta": {"video_id": "v"}, "measures": {"hook": {"windows": [{"t_end": -1}]}}}`,
			wantField: "measures.hook.windows[0].t_end",
		},
		{
			name:      "missing window end",
			doc:       `{"meta": {"video_id": "v"}, "measures": {"hook": {"windows": [{"t_start": 0}]}}}`,
			wantField: "measures.hook.windows[0].t_end",
		},
		{
			name:      "negative count",
			doc:       `{"meta": {"video_id": "v"}, "measures": {"engagement": {"views": -5}}}`,
			wantField: "measures.engagement.views",
		},
		{
			name:      "probability above one",
			doc:       `{"meta": {"video_id": "v"}, "measures": {"hook_content": {"hook_type_probabilities": {"open_question": 1.3}}}}`,
			wantField: "measures.hook_content.hook_type_probabilities.open_question",
		},
		{
			name:      "unknown hook type",
			doc:       `{"meta": {"video_id": "v"}, "measures": {"hook_content": {"hook_type_probabilities": {"cliffhanger": 0.5}}}}`,
			wantField: "measures.hook_content.hook_type_probabilities.cliffhanger",
		},
		{
			name:      "unknown moderation flag",
			doc:       `{"meta": {"video_id": "v"}, "measures": {"risk": {"moderation_flags": ["spicy"]}}}`,
			wantField: "measures.risk.moderation_flags[0]",
		},
		{
			name:      "bad post time",
			doc:       `{"meta": {"video_id": "v", "post_time": "yesterday"}}`,
			wantField: "meta.post_time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := v.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Nil(t, in)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "want *ValidationError, got %T", err)
			assert.NotEmpty(t, verr.Issues)
			assert.NotEmpty(t, verr.Message)

			var fields []string
			for _, issue := range verr.Issues {
				fields = append(fields, issue.Field)
			}
			assert.Contains(t, fields, tt.wantField)
			assert.Contains(t, err.Error(), "invalid input at ")
		})
	}
}

func TestParseIssuesAreSorted(t *testing.T) {
	v := newTestValidator(t)

	_, err := v.Parse([]byte(`{
		"meta": {"video_id": "v", "follower_count": -1},
		"measures": {"engagement": {"views": -5}, "audio": {"music_present": "yes"}}
	}`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.GreaterOrEqual(t, len(verr.Issues), 2)

	for i := 1; i < len(verr.Issues); i++ {
		assert.LessOrEqual(t, verr.Issues[i-1].Field, verr.Issues[i].Field)
	}
	assert.Equal(t, verr.Issues[0].Field, verr.Field)
	assert.True(t, strings.HasPrefix(verr.Field, "me"))
}

func TestParseReportsEveryInvalidField(t *testing.T) {
	v := newTestValidator(t)

	_, err := v.Parse([]byte(`{
		"meta": {"video_id": "v", "follower_count": -1},
		"measures": {"engagement": {"views": -5}, "audio": {"music_present": "yes"}}
	}`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	fields := make([]string, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		fields = append(fields, issue.Field)
	}
	assert.Contains(t, fields, "meta.follower_count")
	assert.Contains(t, fields, "measures.engagement.views")
	assert.Contains(t, fields, "measures.audio.music_present")
}

func TestParseClampsOutOfRangeLevels(t *testing.T) {
	v := newTestValidator(t)

	in, err := v.Parse([]byte(`{
		"meta": {"video_id": "v"},
		"measures": {
			"hook": {"first_frame_face_present_pct": 120, "windows": [{"t_end": 1, "motion_intensity": 1.3}]},
			"hook_content": {"stakes_clarity": -0.2, "modality_attribution": {"visual": 1.1}},
			"watchtime": {"completion_rate": 1.05},
			"shareability": {"caption_sentiment": -1.5}
		}
	}`))
	require.NoError(t, err)

	want := []Clamp{
		{Field: "measures.hook.first_frame_face_present_pct", Value: 120, ClampedTo: 100},
		{Field: "measures.hook.windows[0].motion_intensity", Value: 1.3, ClampedTo: 1},
		{Field: "measures.hook_content.stakes_clarity", Value: -0.2, ClampedTo: 0},
		{Field: "measures.hook_content.modality_attribution.visual", Value: 1.1, ClampedTo: 1},
		{Field: "measures.watchtime.completion_rate", Value: 1.05, ClampedTo: 1},
		{Field: "measures.shareability.caption_sentiment", Value: -1.5, ClampedTo: -1},
	}
	assert.Equal(t, want, in.Clamped)

	assert.Equal(t, 100.0, *in.Measures.Hook.FirstFrameFacePresentPct)
	assert.Equal(t, 1.0, *in.Measures.Hook.Windows[0].MotionIntensity)
	assert.Equal(t, 0.0, *in.Measures.HookContent.StakesClarity)
}

func TestParseNullsAreAbsent(t *testing.T) {
	v := newTestValidator(t)

	in, err := v.Parse([]byte(`{
		"meta": {"video_id": "v", "post_time": null, "follower_count": null},
		"measures": {"hook": null, "story": {"beat_count": null, "has_payoff": true}},
		"raw": null
	}`))
	require.NoError(t, err)

	assert.Nil(t, in.PostTime)
	assert.Nil(t, in.Meta.FollowerCount)
	assert.Nil(t, in.Measures.Hook)
	require.NotNil(t, in.Measures.Story)
	assert.Nil(t, in.Measures.Story.BeatCount)
	assert.True(t, *in.Measures.Story.HasPayoff)
	assert.Nil(t, in.RawPayload.HookSpan)
}

func TestParseConcurrent(t *testing.T) {
	v := newTestValidator(t)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := v.Parse([]byte(`{"meta": {"video_id": "v"}, "measures": {"audio": {"music_present": true}}}`))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestValidationErrorBody(t *testing.T) {
	err := newValidationError("meta.video_id", "field is required")
	body := err.Body()

	assert.Equal(t, "validation_error", body.Error)
	assert.Equal(t, "meta.video_id", body.Field)
	assert.Equal(t, "field is required", body.Message)
	assert.Len(t, body.Issues, 1)
	assert.Equal(t, "invalid input at meta.video_id: field is required", err.Error())

	multi := &ValidationError{Field: "a", Message: "bad", Issues: []Issue{{"a", "bad"}, {"b", "worse"}}}
	assert.Equal(t, "invalid input at a: bad (and 1 more)", multi.Error())

	multi.VideoID = "v9"
	assert.Equal(t, "v9", multi.Body().VideoID)
}

func TestPeekVideoID(t *testing.T) {
	tests := []struct {
		doc  string
		want string
	}{
		{`{"meta":{"video_id":"abc"}}`, "abc"},
		{`{"meta":{"video_id":42}}`, ""},
		{`{"meta":{}}`, ""},
		{`{"meta":"nope"}`, ""},
		{`not json`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			assert.Equal(t, tt.want, PeekVideoID([]byte(tt.doc)))
		})
	}
}

func TestFieldPath(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{nil, RootField},
		{[]string{"#ScoreInput"}, RootField},
		{[]string{"#ScoreInput", "meta", "video_id"}, "meta.video_id"},
		{[]string{"measures", "hook", "windows", "2", "t_end"}, "measures.hook.windows[2].t_end"},
	}

	for _, tt := range tests {
		if got := fieldPath(tt.parts); got != tt.want {
			t.Errorf("fieldPath(%v) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}

func TestScoreInputAccessors(t *testing.T) {
	two, three := 2.0, 3.0
	in := &ScoreInput{
		Meta: Meta{VideoID: "v"},
		Measures: Measures{
			Hook:      &HookMeasures{TimeToValueSec: &two},
			Watchtime: &WatchtimeMeasures{LengthSeconds: &three},
		},
	}

	payoff, ok := in.PayoffTime()
	require.True(t, ok)
	assert.Equal(t, 2.0, payoff)

	length, ok := in.LengthSeconds()
	require.True(t, ok)
	assert.Equal(t, 3.0, length)

	_, ok = in.DeclaredHookEnd()
	assert.False(t, ok)
	_, ok = in.Caption()
	assert.False(t, ok)

	in.Measures.Hook.PayoffTimeSec = &three
	payoff, _ = in.PayoffTime()
	assert.Equal(t, 3.0, payoff)
}
