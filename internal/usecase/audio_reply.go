package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"channel-relay/internal/domain"
	"channel-relay/internal/integrations/gemini"
)

const defaultAudioMimeType = "audio/ogg"

type AudioReplyService struct {
	transcriber Transcriber
	agent       Agent
	language    string
}

type AudioInput struct {
	Audio    []byte
	MimeType string
}

type AudioOutput struct {
	Transcript string
	Response   string
	SessionID  string
}

func NewAudioReplyService(t Transcriber, agent Agent, languageCode string) (*AudioReplyService, error) {
	if t == nil {
		return nil, errors.New("usecase: transcriber must not be nil")
	}
	if agent == nil {
		return nil, errors.New("usecase: agent must not be nil")
	}
	return &AudioReplyService{transcriber: t, agent: agent, language: languageCode}, nil
}

// Reply transcribes a voice note and asks the agent in a fresh session.
func (s *AudioReplyService) Reply(ctx context.Context, in AudioInput) (AudioOutput, error) {
	if len(in.Audio) == 0 {
		return AudioOutput{}, newError(ErrorInvalidInput, "empty_audio", "Audio buffer is empty or invalid", nil)
	}
	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = defaultAudioMimeType
	}
	if !domain.IsAudioContentType(mimeType) {
		return AudioOutput{}, newError(ErrorInvalidInput, "unsupported_audio_type", "Only audio files are allowed", nil)
	}

	mimeType, _, _ = strings.Cut(mimeType, ";")

	transcript, err := s.transcriber.Transcribe(ctx, strings.TrimSpace(mimeType), in.Audio)
	if errors.Is(err, gemini.ErrEmptyTranscript) {
		return AudioOutput{}, newError(ErrorInvalidInput, "empty_transcript", "Could not transcribe audio", err)
	}
	if err != nil {
		return AudioOutput{}, newError(ErrorUpstream, "transcription_error", "Failed to process audio: "+err.Error(), err)
	}

	sessionID := fmt.Sprintf("audio_session_%d", now().UnixMilli())
	slog.InfoContext(ctx, "audio transcribed", "session_id", sessionID, "transcript_len", len(transcript))

	turn, err := s.agent.SendMessage(ctx, transcript, sessionID, s.language)
	if err != nil {
		return AudioOutput{}, newError(ErrorUpstream, "agent_error", "Failed to process audio: "+err.Error(), err)
	}

	response := turn.FirstMessage()
	if response == "" {
		response = NoResponseText
	}
	return AudioOutput{Transcript: transcript, Response: response, SessionID: sessionID}, nil
}
