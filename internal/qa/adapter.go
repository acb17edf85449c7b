package qa

import (
	"context"
	"fmt"
	"log/slog"
)

// NoAnswerMessage is surfaced when the model's confidence is at or below
// the minimum score.
const NoAnswerMessage = "Sorry, I couldn't find an answer to your question."

// DefaultMinScore is the confidence threshold an answer must strictly
// exceed to be surfaced.
const DefaultMinScore = 0.3

// Answerer is the external model boundary.
type Answerer interface {
	Answer(ctx context.Context, question, contextDoc string) (string, float64, error)
}

// Result is what the caller displays. Answered is false both for
// low-confidence answers and model failures; Answer always holds the text
// to show.
type Result struct {
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
	Answered bool    `json:"answered"`
}

// Adapter applies the confidence policy over an Answerer. Model failures
// never escape: they come back as a displayable Result.
type Adapter struct {
	model    Answerer
	minScore float64
	logger   *slog.Logger
}

func NewAdapter(model Answerer, minScore float64, logger *slog.Logger) *Adapter {
	return &Adapter{model: model, minScore: minScore, logger: logger}
}

// Ask forwards the question and grounding context to the model.
func (a *Adapter) Ask(ctx context.Context, question, contextDoc string) Result {
	answer, score, err := a.model.Answer(ctx, question, contextDoc)
	if err != nil {
		a.logger.Error("qa model failed", "error", err)
		return Result{Answer: fmt.Sprintf("Error processing your request: %v", err)}
	}

	if score <= a.minScore {
		a.logger.Info("answer below confidence threshold", "score", score, "threshold", a.minScore)
		return Result{Answer: NoAnswerMessage, Score: score}
	}

	return Result{Answer: answer, Score: score, Answered: true}
}
