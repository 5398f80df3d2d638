package usecase

import (
	"context"
	"errors"
	"strings"

	"channel-relay/internal/domain"
)

const whatsappScheme = "whatsapp:"

type OutboundService struct {
	messenger Messenger
	from      string
}

// NewOutboundService sends WhatsApp messages from the given sender address
// (for example "whatsapp:+14155238886") and SMS from the credential's number.
func NewOutboundService(m Messenger, whatsappFrom string) (*OutboundService, error) {
	if m == nil {
		return nil, errors.New("usecase: messenger must not be nil")
	}
	if strings.TrimSpace(whatsappFrom) == "" {
		return nil, errors.New("usecase: whatsapp sender must not be empty")
	}
	return &OutboundService{messenger: m, from: whatsappAddress(whatsappFrom)}, nil
}

func whatsappAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, whatsappScheme) {
		return number
	}
	return whatsappScheme + number
}

func (s *OutboundService) SendWhatsApp(ctx context.Context, message, to string) (domain.Receipt, error) {
	if strings.TrimSpace(message) == "" || strings.TrimSpace(to) == "" {
		return domain.Receipt{}, newError(ErrorInvalidInput, "missing_fields", "message and to are required", nil)
	}
	r, err := s.messenger.SendText(ctx, message, s.from, whatsappAddress(to))
	if err != nil {
		return domain.Receipt{}, newError(ErrorUpstream, "send_whatsapp_error", "", err)
	}
	return r, nil
}

func (s *OutboundService) SendSMS(ctx context.Context, to, message string) (domain.Receipt, error) {
	if strings.TrimSpace(message) == "" || strings.TrimSpace(to) == "" {
		return domain.Receipt{}, newError(ErrorInvalidInput, "missing_fields", "to and message are required", nil)
	}
	r, err := s.messenger.SendSMS(ctx, strings.TrimSpace(to), message)
	if err != nil {
		return domain.Receipt{}, newError(ErrorUpstream, "send_sms_error", "", err)
	}
	return r, nil
}
