package gemini

import (
	"context"
	"errors"
	"fmt"

	vertex "cloud.google.com/go/vertexai/genai"
)

type vertexModel struct {
	client *vertex.Client
	model  *vertex.GenerativeModel
}

// NewVertex builds a Transcriber backed by Vertex AI in the given project and location.
func NewVertex(ctx context.Context, projectID, location, modelName string) (*Transcriber, error) {
	client, err := vertex.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("gemini: create vertex client: %w", err)
	}
	return newTranscriber(&vertexModel{client: client, model: client.GenerativeModel(modelName)}), nil
}

func (m *vertexModel) generate(ctx context.Context, mimeType string, audio []byte, prompt string) ([]string, error) {
	resp, err := m.model.GenerateContent(ctx, vertex.Blob{MIMEType: mimeType, Data: audio}, vertex.Text(prompt))
	if err != nil {
		return nil, err
	}
	return vertexTextParts(resp)
}

func (m *vertexModel) Close() error {
	return m.client.Close()
}

func vertexTextParts(resp *vertex.GenerateContentResponse) ([]string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("no candidate in response")
	}
	var out []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if text, ok := p.(vertex.Text); ok {
			out = append(out, string(text))
		}
	}
	return out, nil
}
