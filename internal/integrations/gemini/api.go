package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type apiModel struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewAPI builds a Transcriber backed by the Gemini API with an API key.
func NewAPI(ctx context.Context, apiKey, modelName string) (*Transcriber, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create api client: %w", err)
	}
	return newTranscriber(&apiModel{client: client, model: client.GenerativeModel(modelName)}), nil
}

func (m *apiModel) generate(ctx context.Context, mimeType string, audio []byte, prompt string) ([]string, error) {
	resp, err := m.model.GenerateContent(ctx, genai.Blob{MIMEType: mimeType, Data: audio}, genai.Text(prompt))
	if err != nil {
		return nil, err
	}
	return apiTextParts(resp)
}

func (m *apiModel) Close() error {
	return m.client.Close()
}

func apiTextParts(resp *genai.GenerateContentResponse) ([]string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("no response from Google")
	}
	var out []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if text, ok := p.(genai.Text); ok {
			out = append(out, string(text))
		}
	}
	return out, nil
}
