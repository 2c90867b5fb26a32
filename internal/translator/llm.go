package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/MimeLyc/media-subtitle-translator/internal/llm"
	"github.com/MimeLyc/media-subtitle-translator/pkg/log"
)

// chatClient is the subset of *llm.Client the translator needs.
type chatClient interface {
	ChatCompletion(ctx context.Context, messages []llm.Message, opts *llm.ChatCompletionOptions) (*llm.ChatResponse, error)
}

type llmTranslator struct {
	client chatClient
}

// NewLLMTranslator returns a Translator backed by a chat completion client.
func NewLLMTranslator(client chatClient) Translator {
	return &llmTranslator{client: client}
}

func (t *llmTranslator) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	if strings.TrimSpace(targetLanguage) == "" {
		return "", fmt.Errorf("target language is required")
	}

	opts := llm.NewChatCompletionOptions().WithSystemPrompt(buildPrompt(targetLanguage))
	resp, err := t.client.ChatCompletion(ctx, []llm.Message{
		{Role: "user", Content: text},
	}, opts)
	if err != nil {
		return "", fmt.Errorf("translate to %s: %w", targetLanguage, err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("translate to %s: %w: no choices", targetLanguage, ErrNotText)
	}
	choice := resp.Choices[0]
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", fmt.Errorf("translate to %s: %w: empty content (finish reason %q)", targetLanguage, ErrNotText, choice.FinishReason)
	}

	log.Debug("Translated %d chars to %s (%d tokens)", len(text), targetLanguage, resp.Usage.TotalTokens)
	return strings.TrimSpace(choice.Message.Content), nil
}

func buildPrompt(targetLanguage string) string {
	var prompt strings.Builder
	prompt.WriteString("Translate the following text to " + targetLanguage + ".\n")
	prompt.WriteString("Keep the line structure of the input: one output line per input line.\n")
	prompt.WriteString("Return ONLY the translated text without explanations, notes, or quotes.\n")
	return prompt.String()
}
