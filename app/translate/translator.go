package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lysyi3m/dino-relay/app/llm"
)

// ErrUnusableTranslation is returned for empty or suspiciously short answers.
var ErrUnusableTranslation = errors.New("unusable translation")

const (
	translateMaxTokens  = 300
	minTranslationRunes = 4
)

const DefaultTranslatePrompt = "You are a dinosaur and paleontology expert translator. " +
	"Translate English text into natural and accurate Korean. " +
	"Translate academic terms precisely but make them easy to read. " +
	"Provide only the translation."

// LLMTranslator translates through a remote language model and post-corrects
// domain terms with the glossary.
type LLMTranslator struct {
	completer llm.Completer
	glossary  *Glossary
	prompt    string
	maxRunes  int
}

func NewLLMTranslator(completer llm.Completer, glossary *Glossary, prompt string, maxRunes int) *LLMTranslator {
	if prompt == "" {
		prompt = DefaultTranslatePrompt
	}
	if maxRunes <= 0 {
		maxRunes = DefaultKeyRunes
	}
	return &LLMTranslator{
		completer: completer,
		glossary:  glossary,
		prompt:    prompt,
		maxRunes:  maxRunes,
	}
}

// Translate implements TranslateFunc.
func (t *LLMTranslator) Translate(ctx context.Context, text string) (Translation, error) {
	resp, err := t.completer.Complete(ctx, llm.Request{
		System:    t.prompt,
		User:      "Please translate the following English text into Korean:\n\n" + truncateRunes(text, t.maxRunes),
		MaxTokens: translateMaxTokens,
	})
	if err != nil {
		return Translation{}, fmt.Errorf("failed to translate: %w", err)
	}

	translated := t.glossary.Apply(strings.TrimSpace(resp.Text))
	if utf8.RuneCountInString(translated) < minTranslationRunes {
		return Translation{Cost: resp.Cost()}, fmt.Errorf("%w: %q", ErrUnusableTranslation, translated)
	}

	return Translation{Text: translated, Cost: resp.Cost()}, nil
}

func truncateRunes(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n])
}
