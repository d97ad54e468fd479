package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"live-docs/errors"
)

type IAssistService interface {
	CheckGrammar(ctx context.Context, text string) (string, error)
	Enhance(ctx context.Context, text, tone string) (string, error)
	Summarize(ctx context.Context, text string) (string, error)
	Complete(ctx context.Context, partial, prefix, context string) (string, error)
}

// AssistService backs the writing-assistant endpoints with the Anthropic
// API. It is stateless request/response glue: a failed call surfaces as an
// HTTP error and never touches collaboration state.
type AssistService struct {
	client anthropic.Client
	model  string
}

func NewAssistService(apiKey, model string) *AssistService {
	return &AssistService{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (s *AssistService) CheckGrammar(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf("Please correct the grammar and spelling of the following text. "+
		"Only return the corrected text, without any explanation or preamble:\n\n%q", text)
	return s.complete(ctx, text, prompt)
}

func (s *AssistService) Enhance(ctx context.Context, text, tone string) (string, error) {
	if tone == "" {
		tone = "professional"
	}
	prompt := fmt.Sprintf("Rewrite the following text to be more clear, concise, and engaging, "+
		"adopting a %s tone. Only return the enhanced text:\n\n%q", tone, text)
	return s.complete(ctx, text, prompt)
}

func (s *AssistService) Summarize(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf("Summarize the following text into a few key points. "+
		"Return only the summary:\n\n%q", text)
	return s.complete(ctx, text, prompt)
}

// Complete continues a partially typed word given the preceding text. The
// response must merge with the partial word, so the prompt forbids
// repeating it.
func (s *AssistService) Complete(ctx context.Context, partial, prefix, surrounding string) (string, error) {
	prompt := fmt.Sprintf(`Complete this partial text naturally, maintaining the same style and context.

Previous text: %q
Broader context: %q
Partial word/text to complete: %q

Provide ONLY the completion that would naturally follow the partial text, nothing else.
Do not repeat the partial text in your response.`, prefix, surrounding, partial)
	return s.complete(ctx, partial, prompt)
}

func (s *AssistService) complete(ctx context.Context, text, prompt string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.ErrEmptyText
	}

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("assistant call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
