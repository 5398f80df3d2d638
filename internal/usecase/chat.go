package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"channel-relay/internal/domain"
	"channel-relay/internal/integrations/dialogflow"
)

var newSessionID = dialogflow.NewSessionID

type ChatService struct {
	agent Agent
}

type ChatInput struct {
	Message      string
	SessionID    string
	LanguageCode string
}

type ChatOutput struct {
	Result    domain.TurnResult
	SessionID string
}

func NewChatService(agent Agent) (*ChatService, error) {
	if agent == nil {
		return nil, errors.New("usecase: agent must not be nil")
	}
	return &ChatService{agent: agent}, nil
}

// Chat forwards one message to the agent. The session id is echoed when given
// and generated otherwise.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "message_required", "Message is required", nil)
	}
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = newSessionID("")
	}

	slog.InfoContext(ctx, "chat message", "session_id", sessionID)
	result, err := s.agent.SendMessage(ctx, message, sessionID, in.LanguageCode)
	if err != nil {
		return ChatOutput{}, newError(ErrorUpstream, "agent_error", "", err)
	}
	return ChatOutput{Result: result, SessionID: sessionID}, nil
}
