package batch

import (
	"errors"

	"github.com/dotcommander/viralscore/internal/schema"
	"github.com/dotcommander/viralscore/internal/scoring"
)

// Scorer validates and scores single documents. It is safe for concurrent use.
type Scorer struct {
	engine    *scoring.Engine
	validator *schema.Validator
}

// NewScorer pairs an engine with a validator.
func NewScorer(engine *scoring.Engine, validator *schema.Validator) *Scorer {
	return &Scorer{engine: engine, validator: validator}
}

// Engine returns the scoring engine.
func (s *Scorer) Engine() *scoring.Engine {
	return s.engine
}

// Score parses one ScoreInput document and scores it. Structural failures
// return a *schema.ValidationError carrying the video id when readable.
func (s *Scorer) Score(data []byte) (*scoring.Output, error) {
	in, err := s.validator.Parse(data)
	if err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) && ve.VideoID == "" {
			ve.VideoID = schema.PeekVideoID(data)
		}
		return nil, err
	}
	return s.engine.Score(in), nil
}
