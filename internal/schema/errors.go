package schema

import (
	"encoding/json"
	"fmt"
)

// RootField names the document itself in field paths.
const RootField = "$"

// Issue is a single structural problem at a field path.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports a structural violation of the input contract.
// Field and Message describe the first issue; Issues lists all of them.
// VideoID is filled in by callers that could still read meta.video_id.
type ValidationError struct {
	VideoID string
	Field   string
	Message string
	Issues  []Issue
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Issues:  []Issue{{Field: field, Message: message}},
	}
}

func (e *ValidationError) Error() string {
	if len(e.Issues) > 1 {
		return fmt.Sprintf("invalid input at %s: %s (and %d more)", e.Field, e.Message, len(e.Issues)-1)
	}
	return fmt.Sprintf("invalid input at %s: %s", e.Field, e.Message)
}

// ErrorBody is the structured failure document written in place of a ScoreOutput.
type ErrorBody struct {
	Error   string  `json:"error"`
	VideoID string  `json:"video_id,omitempty"`
	Field   string  `json:"field"`
	Message string  `json:"message"`
	Issues  []Issue `json:"issues"`
}

// Body converts the error into its wire form.
func (e *ValidationError) Body() ErrorBody {
	return ErrorBody{
		Error:   "validation_error",
		VideoID: e.VideoID,
		Field:   e.Field,
		Message: e.Message,
		Issues:  e.Issues,
	}
}

// PeekVideoID extracts meta.video_id from a document that may be invalid.
// It returns "" when the id cannot be read.
func PeekVideoID(data []byte) string {
	var doc struct {
		Meta struct {
			VideoID any `json:"video_id"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return ""
	}
	id, _ := doc.Meta.VideoID.(string)
	return id
}
