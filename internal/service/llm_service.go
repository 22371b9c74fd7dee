package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"koins/pkg/config"

	"github.com/Role1776/gigago"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"
)

var ErrEmptyCompletion = errors.New("no response from LLM")

// JSONRequest asks a model for a document matching Schema.
type JSONRequest struct {
	Name   string
	System string
	Prompt string
	Schema jsonschema.Definition
}

// LLMClient is a remote language model that can answer with JSON.
type LLMClient interface {
	GenerateJSON(ctx context.Context, req JSONRequest) (string, error)
	Close() error
}

// NewLLMClient builds the client for the configured provider.
func NewLLMClient(cfg *config.Config, logger *zap.Logger) (LLMClient, error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini, config.ProviderOpenAI:
		return NewOpenAIClient(&cfg.LLM, logger), nil
	case config.ProviderGigaChat:
		return NewGigaChatClient(&cfg.GigaChat, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLM.Provider)
	}
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint,
// Gemini's included, using structured JSON schema output.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIClient(cfg *config.LLMConfig, logger *zap.Logger) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	logger.Info("LLM client configured",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
	)

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger,
	}
}

func (c *OpenAIClient) GenerateJSON(ctx context.Context, req JSONRequest) (string, error) {
	schema := req.Schema
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Name,
				Schema: &schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Close() error {
	return nil
}

// GigaChatClient uses GigaChat, which has no structured output mode; the
// schema is spelled out in the prompt instead.
type GigaChatClient struct {
	client *gigago.Client
	model  *gigago.GenerativeModel
	logger *zap.Logger
}

func NewGigaChatClient(cfg *config.GigaChatConfig, logger *zap.Logger) (*GigaChatClient, error) {
	ctx := context.Background()

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = "Eres un asistente que responde únicamente con JSON válido."
	model.Temperature = 0.1

	logger.Info("LLM client configured", zap.String("provider", config.ProviderGigaChat), zap.String("model", cfg.Model))

	return &GigaChatClient{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (c *GigaChatClient) GenerateJSON(ctx context.Context, req JSONRequest) (string, error) {
	schema, err := json.Marshal(&req.Schema)
	if err != nil {
		return "", fmt.Errorf("failed to encode schema: %w", err)
	}

	var prompt strings.Builder
	if req.System != "" {
		prompt.WriteString(req.System)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString(req.Prompt)
	prompt.WriteString("\n\nResponde SOLO con JSON que cumpla este JSON Schema, sin markdown ni comentarios:\n")
	prompt.Write(schema)

	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt.String()},
	}

	resp, err := c.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *GigaChatClient) Close() error {
	c.client.Close()
	return nil
}
