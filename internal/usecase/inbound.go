package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"channel-relay/internal/domain"
	"channel-relay/internal/integrations/gemini"
	"channel-relay/internal/repository"
)

const (
	DefaultSessionPrefix = "whatsapp-"
	inboundFailure       = "Failed to process WhatsApp message"
	channelWhatsApp      = "whatsapp"
)

// InboundDeps are the collaborators of InboundService. Sessions and Ledger
// are optional; a nil value disables bookkeeping and de-duplication.
type InboundDeps struct {
	Agent       Agent
	Messenger   Messenger
	Media       MediaFetcher
	Transcriber Transcriber
	Annotator   Annotator
	Sessions    SessionStore
	Ledger      InboundLedger
}

type InboundConfig struct {
	SessionPrefix     string
	LanguageCode      string
	ReplyAllFragments bool
}

type InboundService struct {
	deps InboundDeps
	cfg  InboundConfig
}

type InboundResult struct {
	SessionID string
	Text      string
	Reply     string
	ReplySID  string
	Duplicate bool
	// LedgerStatus is the ledger state of a duplicate: processing while the
	// first delivery is still in flight, complete once it replied.
	LedgerStatus string
}

func NewInboundService(deps InboundDeps, cfg InboundConfig) (*InboundService, error) {
	switch {
	case deps.Agent == nil:
		return nil, errors.New("usecase: agent must not be nil")
	case deps.Messenger == nil:
		return nil, errors.New("usecase: messenger must not be nil")
	case deps.Media == nil:
		return nil, errors.New("usecase: media fetcher must not be nil")
	case deps.Transcriber == nil:
		return nil, errors.New("usecase: transcriber must not be nil")
	case deps.Annotator == nil:
		return nil, errors.New("usecase: annotator must not be nil")
	}
	if cfg.SessionPrefix == "" {
		cfg.SessionPrefix = DefaultSessionPrefix
	}
	return &InboundService{deps: deps, cfg: cfg}, nil
}

// HandleInbound turns one carrier webhook message into exactly one reply to
// the sender. A redelivered message id that is already claimed is reported
// as a duplicate without side effects.
func (s *InboundService) HandleInbound(ctx context.Context, msg domain.InboundMessage) (InboundResult, error) {
	claimed, err := s.claim(ctx, msg.MessageID)
	if errors.Is(err, repository.ErrAlreadyClaimed) {
		status, serr := s.deps.Ledger.Status(ctx, msg.MessageID)
		if serr != nil {
			slog.WarnContext(ctx, "inbound ledger status lookup failed", "message_sid", msg.MessageID, "err", serr)
		}
		slog.InfoContext(ctx, "duplicate inbound message", "message_sid", msg.MessageID, "ledger_status", status)
		return InboundResult{Duplicate: true, LedgerStatus: status}, nil
	}

	s.ensureSession(ctx, msg)

	res, err := s.process(ctx, msg)
	if err != nil {
		slog.ErrorContext(ctx, "inbound message failed", "message_sid", msg.MessageID, "err", err)
		s.recordFailure(ctx, msg, claimed)
		return InboundResult{}, err
	}

	s.recordSuccess(ctx, msg, claimed, res.ReplySID)
	return res, nil
}

func (s *InboundService) process(ctx context.Context, msg domain.InboundMessage) (InboundResult, error) {
	sessionID := s.sessionID(msg)

	text, err := s.resolveText(ctx, msg.Media)
	if err != nil {
		return InboundResult{}, err
	}

	lang := msg.LanguageCode
	if lang == "" {
		lang = s.cfg.LanguageCode
	}
	turn, err := s.deps.Agent.SendMessage(ctx, text, sessionID, lang)
	if err != nil {
		return InboundResult{}, newError(ErrorUpstream, "agent_error", inboundFailure, err)
	}

	reply := s.replyText(ctx, turn.Messages)
	receipt, err := s.deps.Messenger.SendText(ctx, reply, msg.To, msg.From)
	if err != nil {
		return InboundResult{}, newError(ErrorUpstream, "send_reply_error", inboundFailure, err)
	}

	return InboundResult{
		SessionID: sessionID,
		Text:      text,
		Reply:     reply,
		ReplySID:  receipt.SID,
	}, nil
}

func (s *InboundService) sessionID(msg domain.InboundMessage) string {
	if id := strings.TrimSpace(msg.SenderID); id != "" {
		return s.cfg.SessionPrefix + id
	}
	return newSessionID("")
}

func (s *InboundService) resolveText(ctx context.Context, media domain.Media) (string, error) {
	switch m := media.(type) {
	case domain.AudioMedia:
		audio, err := s.deps.Media.Fetch(ctx, m.URL)
		if err != nil {
			return "", newError(ErrorUpstream, "media_fetch_error", inboundFailure, err)
		}
		text, err := s.deps.Transcriber.Transcribe(ctx, m.ContentType, audio)
		if errors.Is(err, gemini.ErrEmptyTranscript) {
			return "", newError(ErrorInternal, "empty_transcript", inboundFailure, err)
		}
		if err != nil {
			return "", newError(ErrorUpstream, "transcription_error", inboundFailure, err)
		}
		return text, nil

	case domain.ImageMedia:
		image, err := s.deps.Media.Fetch(ctx, m.URL)
		if err != nil {
			return "", newError(ErrorUpstream, "media_fetch_error", inboundFailure, err)
		}
		ann, err := s.deps.Annotator.Annotate(ctx, image)
		if err != nil {
			return "", newError(ErrorUpstream, "annotation_error", inboundFailure, err)
		}
		return ann.Text, nil

	case domain.TextMedia:
		return m.Body, nil
	}
	return "", newError(ErrorInternal, "unknown_media", inboundFailure, fmt.Errorf("unsupported media %T", media))
}

func (s *InboundService) replyText(ctx context.Context, fragments []string) string {
	if len(fragments) == 0 {
		return NoResponseText
	}
	if s.cfg.ReplyAllFragments {
		return strings.Join(fragments, "\n\n")
	}
	if len(fragments) > 1 {
		slog.WarnContext(ctx, "agent returned several reply fragments, sending the first", "dropped", len(fragments)-1)
	}
	return fragments[0]
}

func (s *InboundService) claim(ctx context.Context, messageID string) (bool, error) {
	if s.deps.Ledger == nil || strings.TrimSpace(messageID) == "" {
		return false, nil
	}
	err := s.deps.Ledger.Claim(ctx, messageID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrAlreadyClaimed):
		return false, err
	default:
		slog.WarnContext(ctx, "inbound ledger claim failed, processing without de-duplication", "message_sid", messageID, "err", err)
		return false, nil
	}
}

func (s *InboundService) bookkeepingID(msg domain.InboundMessage) string {
	if id := strings.TrimSpace(msg.SenderID); id != "" {
		return s.cfg.SessionPrefix + id
	}
	return ""
}

func (s *InboundService) ensureSession(ctx context.Context, msg domain.InboundMessage) {
	id := s.bookkeepingID(msg)
	if s.deps.Sessions == nil || id == "" {
		return
	}
	exists, err := s.deps.Sessions.Exists(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "session lookup failed", "session_id", id, "err", err)
		return
	}
	if exists {
		return
	}
	err = s.deps.Sessions.CreateOrUpdate(ctx, id, map[string]any{
		"channel":       channelWhatsApp,
		"address":       msg.From,
		"profileName":   msg.ProfileName,
		"lastSessionId": id,
	})
	if err != nil {
		slog.WarnContext(ctx, "session create failed", "session_id", id, "err", err)
	}
}

func (s *InboundService) recordFailure(ctx context.Context, msg domain.InboundMessage, claimed bool) {
	if claimed {
		if err := s.deps.Ledger.Release(ctx, msg.MessageID); err != nil {
			slog.WarnContext(ctx, "inbound ledger release failed", "message_sid", msg.MessageID, "err", err)
		}
	}
	if id := s.bookkeepingID(msg); s.deps.Sessions != nil && id != "" {
		if err := s.deps.Sessions.IncrementErrorCount(ctx, id); err != nil {
			slog.WarnContext(ctx, "session error count update failed", "session_id", id, "err", err)
		}
	}
}

func (s *InboundService) recordSuccess(ctx context.Context, msg domain.InboundMessage, claimed bool, replySID string) {
	if claimed {
		if err := s.deps.Ledger.Complete(ctx, msg.MessageID, replySID); err != nil {
			slog.WarnContext(ctx, "inbound ledger complete failed", "message_sid", msg.MessageID, "err", err)
		}
	}
	if id := s.bookkeepingID(msg); s.deps.Sessions != nil && id != "" {
		if err := s.deps.Sessions.ResetErrorCount(ctx, id); err != nil {
			slog.WarnContext(ctx, "session error count reset failed", "session_id", id, "err", err)
		}
	}
}
