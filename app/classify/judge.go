package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/dino-relay/app/budget"
	"github.com/lysyi3m/dino-relay/app/llm"
)

// ErrNoVerdict means the judge could not give a definite answer. The cascade
// treats it as "fall back", never as a failure of the item.
var ErrNoVerdict = errors.New("remote judge gave no verdict")

// Judge is the costly external relevance oracle.
type Judge interface {
	Judge(ctx context.Context, title, summary string) (bool, error)
}

const judgeMaxTokens = 10

const DefaultJudgePrompt = `You are a dinosaur and paleontology expert classifier.
Judge whether the following text is related to dinosaurs, fossils, and paleontology.

RELEVANT:
- Dinosaurs, prehistoric reptiles, pterosaurs
- Fossils from the Mesozoic Era (Triassic, Jurassic, Cretaceous)
- Paleontology research and discoveries
- Ancient extinct reptiles and their evolution

IRRELEVANT:
- Space exploration, astronomy, planets, stars, galaxies
- Rockets, satellites, NASA missions
- Modern medicine, vaccines, clinical trials
- Human evolution, anthropology
- Technology, AI, engineering
- Politics, economics, business
- Modern animals and marine biology

Answer ONLY one word: RELEVANT or IRRELEVANT`

type LLMJudge struct {
	completer llm.Completer
	budget    *budget.Counter
	prompt    string
}

func NewLLMJudge(completer llm.Completer, counter *budget.Counter, prompt string) *LLMJudge {
	if prompt == "" {
		prompt = DefaultJudgePrompt
	}
	return &LLMJudge{
		completer: completer,
		budget:    counter,
		prompt:    prompt,
	}
}

func (j *LLMJudge) Judge(ctx context.Context, title, summary string) (bool, error) {
	if j.budget != nil && !j.budget.Allow() {
		slog.Warn("Remote judge budget exhausted, skipping", "counter", j.budget.Name())
		return false, fmt.Errorf("%w: %w", ErrNoVerdict, budget.ErrBudgetExhausted)
	}

	resp, err := j.completer.Complete(ctx, llm.Request{
		System:      j.prompt,
		User:        title + "\n" + summary,
		MaxTokens:   judgeMaxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrNoVerdict, err)
	}

	if j.budget != nil {
		j.budget.Record(resp.Cost())
	}

	relevant, ok := ParseVerdict(resp.Text)
	if !ok {
		slog.Warn("Remote judge answer ambiguous", "answer", resp.Text)
		return false, ErrNoVerdict
	}
	return relevant, nil
}

// ParseVerdict accepts only an exact, case-insensitive RELEVANT or IRRELEVANT.
func ParseVerdict(answer string) (relevant bool, ok bool) {
	answer = strings.TrimSpace(answer)
	switch {
	case strings.EqualFold(answer, "RELEVANT"):
		return true, true
	case strings.EqualFold(answer, "IRRELEVANT"):
		return false, true
	default:
		return false, false
	}
}
