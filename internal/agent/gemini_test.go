package agent

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
)

type fakeGeminiModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeGeminiModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

// TestGeminiCompleteMapsRequest verifies roles, system instruction, and usage mapping.
func TestGeminiCompleteMapsRequest(t *testing.T) {
	models := &fakeGeminiModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "a"}, {Text: "b"}}}}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     11,
			CandidatesTokenCount: 3,
		},
	}}
	temperature := 0.5
	resp, err := NewGeminiProvider(models).Complete(context.Background(), Request{
		Model:  "gemini-2.5-flash",
		System: "be terse",
		Messages: []Message{
			{Role: RoleUser, Content: "q"},
			{Role: RoleAssistant, Content: "a"},
		},
		Temperature:    &temperature,
		ResponseSchema: &ResponseSchema{Name: "x", Schema: []byte(`{}`)},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Text != "ab" || resp.Usage.PromptTokens != 11 || resp.Usage.CompletionTokens != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if models.model != "gemini-2.5-flash" || models.contents[1].Role != "model" {
		t.Fatalf("unexpected request model=%q contents=%+v", models.model, models.contents)
	}
	if models.config.SystemInstruction == nil || models.config.SystemInstruction.Parts[0].Text != "be terse" {
		t.Fatalf("expected system instruction")
	}
	if models.config.ResponseMIMEType != "application/json" || *models.config.Temperature != 0.5 {
		t.Fatalf("unexpected config %+v", models.config)
	}
}

// TestGeminiCompleteErrors verifies empty candidates and transport errors.
func TestGeminiCompleteErrors(t *testing.T) {
	empty := &fakeGeminiModels{resp: &genai.GenerateContentResponse{}}
	if _, err := NewGeminiProvider(empty).Complete(context.Background(), Request{Model: "m"}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}
	failing := &fakeGeminiModels{err: errors.New("quota")}
	if _, err := NewGeminiProvider(failing).Complete(context.Background(), Request{Model: "m"}); err == nil {
		t.Fatalf("expected transport error")
	}
	if _, err := NewGeminiProvider(empty).Complete(context.Background(), Request{}); err == nil {
		t.Fatalf("expected model error")
	}
}
