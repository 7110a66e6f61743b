package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/websearch/internal/llm"
	"github.com/hyperifyio/websearch/internal/search"
)

// DefaultSystemPrompt instructs the model to ground answers in the results.
const DefaultSystemPrompt = "You are a concise assistant. When web search results are provided, base your answer on them and cite the URLs you used. If no results are provided, answer from general knowledge and say that no web results were available."

// Searcher is the search surface the assistant needs. *search.Service
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// Assistant answers questions using web search results as context.
type Assistant struct {
	Searcher     Searcher
	LLM          llm.Client
	Model        string
	SystemPrompt string // defaults to DefaultSystemPrompt
	Temperature  float32
}

// ErrEmptyQuestion is returned for blank questions.
var ErrEmptyQuestion = errors.New("question is empty")

// Answer searches for question and asks the model to answer it. A failed
// search does not fail the answer; the model is told no results exist.
func (a *Assistant) Answer(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	if a.LLM == nil || a.Model == "" {
		return "", errors.New("assistant not configured")
	}

	var webResults string
	if a.Searcher != nil {
		results, err := a.Searcher.Search(ctx, question)
		if err != nil {
			log.Warn().Err(err).Str("question", question).Msg("web search unavailable; answering without results")
		} else {
			webResults = search.Format(results)
		}
	}

	system := a.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = DefaultSystemPrompt
	}
	log.Debug().Str("model", a.Model).Int("system_len", len(system)).Int("results_len", len(webResults)).Msg("assistant prompt")
	resp, err := a.LLM.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(question, webResults)},
		},
		Temperature: a.Temperature,
		N:           1,
	})
	if err != nil {
		return "", fmt.Errorf("assistant call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildUserPrompt(question, results string) string {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\n")
	if results == "" {
		sb.WriteString("No web search results are available.")
		return sb.String()
	}
	sb.WriteString("Web search results:\n")
	sb.WriteString(results)
	return sb.String()
}
