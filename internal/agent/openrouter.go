package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// defaultOpenRouterBaseURL is the default OpenRouter API base URL.
const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// HTTPDoer abstracts HTTP clients used by providers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OpenRouterProvider implements Provider for the OpenRouter chat completions API.
// Any OpenAI-compatible endpoint works through BaseURL.
type OpenRouterProvider struct {
	APIKey  string
	BaseURL string
	Client  HTTPDoer
}

// openRouterRequest is the JSON payload sent to OpenRouter.
type openRouterRequest struct {
	Model          string                    `json:"model"`
	Stream         bool                      `json:"stream"`
	Messages       []openRouterMessage       `json:"messages"`
	Temperature    *float64                  `json:"temperature,omitempty"`
	ResponseFormat *openRouterResponseFormat `json:"response_format,omitempty"`
	StreamOptions  *openRouterStreamOptions  `json:"stream_options,omitempty"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponseFormat struct {
	Type       string                `json:"type"`
	JSONSchema *openRouterJSONSchema `json:"json_schema,omitempty"`
}

type openRouterJSONSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type openRouterStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// NewOpenRouterProvider constructs an OpenRouter provider with explicit settings.
func NewOpenRouterProvider(apiKey, baseURL string, client HTTPDoer) (*OpenRouterProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenRouterProvider{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}, nil
}

// Complete streams a completion and returns the accumulated text.
func (p *OpenRouterProvider) Complete(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Model) == "" {
		return Response{}, fmt.Errorf("model is required")
	}
	payload, err := json.Marshal(buildOpenRouterRequest(req))
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := p.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Response{}, &StatusError{Provider: "openrouter", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	result, err := parseOpenRouterStream(resp.Body)
	if err != nil {
		return Response{}, err
	}
	if strings.TrimSpace(result.Text) == "" {
		return Response{}, ErrEmptyResponse
	}
	return result, nil
}

func buildOpenRouterRequest(req Request) openRouterRequest {
	messages := make([]openRouterMessage, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openRouterMessage{Role: RoleSystem, Content: req.System})
	}
	for _, message := range req.Messages {
		messages = append(messages, openRouterMessage{Role: message.Role, Content: message.Content})
	}
	body := openRouterRequest{
		Model:         req.Model,
		Stream:        true,
		Messages:      messages,
		Temperature:   req.Temperature,
		StreamOptions: &openRouterStreamOptions{IncludeUsage: true},
	}
	if req.ResponseSchema != nil {
		body.ResponseFormat = &openRouterResponseFormat{
			Type: "json_schema",
			JSONSchema: &openRouterJSONSchema{
				Name:   req.ResponseSchema.Name,
				Strict: true,
				Schema: json.RawMessage(req.ResponseSchema.Schema),
			},
		}
	}
	return body
}
