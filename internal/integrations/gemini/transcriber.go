// Package gemini transcribes audio with a generative model, served either by
// Vertex AI or by the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const DefaultPrompt = "Please transcribe this audio file and return only the spoken text."

// ErrEmptyTranscript is returned when the model answered without any text.
var ErrEmptyTranscript = errors.New("gemini: empty transcript")

// model sends one inline audio blob plus an instruction and returns the text
// parts of the first candidate.
type model interface {
	generate(ctx context.Context, mimeType string, audio []byte, prompt string) ([]string, error)
	Close() error
}

type Transcriber struct {
	model  model
	prompt string
}

func newTranscriber(m model) *Transcriber {
	return &Transcriber{model: m, prompt: DefaultPrompt}
}

func (t *Transcriber) Transcribe(ctx context.Context, mimeType string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("gemini: audio must not be empty")
	}
	if mimeType == "" {
		mimeType = "audio/ogg"
	}
	parts, err := t.model.generate(ctx, mimeType, audio, t.prompt)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	text := strings.TrimSpace(strings.Join(parts, ""))
	if text == "" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

func (t *Transcriber) Close() error {
	return t.model.Close()
}
