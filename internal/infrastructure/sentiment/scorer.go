// Package sentiment scores text polarity through the inference model.
package sentiment

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

const maxInputRunes = 4000

// Scorer never fails: anything unusable becomes neutral/0.
type Scorer struct {
	model  ports.SentimentModel
	logger *slog.Logger
}

var _ ports.SentimentScorer = (*Scorer)(nil)

// NewScorer wraps the inference model; a nil model always yields neutral.
func NewScorer(model ports.SentimentModel, log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Scorer{model: model, logger: log.With("component", "sentiment")}
}

// Score returns the model's label with the score clamped to [-1, 1]. Model
// errors, unknown labels and non-finite scores all fall back to neutral.
func (s *Scorer) Score(ctx context.Context, url, text string) domain.Sentiment {
	text = strings.TrimSpace(text)
	if text == "" || s.model == nil {
		return domain.NeutralSentiment()
	}
	if utf8.RuneCountInString(text) > maxInputRunes {
		text = string([]rune(text)[:maxInputRunes])
	}

	res, err := s.model.Sentiment(ctx, text)
	if err != nil {
		s.logger.Warn("sentiment model unavailable", "url", url, "error", err)
		return domain.NeutralSentiment()
	}

	label := strings.ToLower(strings.TrimSpace(res.Label))
	switch label {
	case domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral:
	default:
		return domain.NeutralSentiment()
	}
	if math.IsNaN(res.Score) || math.IsInf(res.Score, 0) {
		return domain.NeutralSentiment()
	}

	return domain.Sentiment{Label: label, Score: math.Max(-1, math.Min(1, res.Score))}
}
