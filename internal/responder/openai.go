package responder

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"murmur/agent/internal/config"
)

type OpenAI struct {
	client       *openai.Client
	model        string
	systemPrompt string
	maxTokens    int
}

func NewOpenAI(cfg config.Config) *OpenAI {
	return &OpenAI{
		client:       openai.NewClient(cfg.OpenAI.APIKey),
		model:        cfg.OpenAI.Model,
		systemPrompt: cfg.OpenAI.SystemPrompt,
		maxTokens:    cfg.OpenAI.MaxTokens,
	}
}

func (o *OpenAI) Reply(ctx context.Context, userText string) (string, error) {
	msgs := []openai.ChatCompletionMessage{}
	if o.systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: o.systemPrompt})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userText})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  msgs,
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
