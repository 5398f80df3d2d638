package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"channel-relay/internal/domain"
)

const signatureHeader = "X-Twilio-Signature"

var (
	errMissingSender = errors.New("handler: webhook has no From address")
	errInvalidBody   = errors.New("handler: webhook body is not a form or JSON object")
)

// WebhookVerifier authenticates a carrier webhook from the URL it was posted
// to, its parameters and the signature header.
type WebhookVerifier interface {
	Verify(ctx context.Context, webhookURL string, params url.Values, signature string) error
}

// UnverifiedWebhooks accepts every webhook. Use it only where signature
// checks are disabled on purpose, such as local development.
type UnverifiedWebhooks struct{}

func (UnverifiedWebhooks) Verify(context.Context, string, url.Values, string) error { return nil }

// webhookURL is the URL the carrier signed: the configured public URL, or one
// rebuilt from the forwarded scheme and host.
func (h *Handler) webhookURL(r *http.Request) string {
	if h.opts.WebhookURL != "" {
		return h.opts.WebhookURL
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
	}
	host := r.Header.Get("Host")
	if host == "" {
		host = r.Host
	}
	return scheme + "://" + host + r.URL.RequestURI()
}

// toInbound maps Twilio messaging webhook fields onto an InboundMessage. The
// first media item is used whenever its URL is present; NumMedia only
// reports how many were attached.
func toInbound(ctx context.Context, fields url.Values) (domain.InboundMessage, error) {
	msg := domain.InboundMessage{
		MessageID:    fields.Get("MessageSid"),
		SenderID:     fields.Get("WaId"),
		From:         fields.Get("From"),
		To:           fields.Get("To"),
		ProfileName:  fields.Get("ProfileName"),
		LanguageCode: fields.Get("languageCode"),
	}
	if msg.From == "" {
		return domain.InboundMessage{}, errMissingSender
	}
	if msg.MessageID == "" {
		msg.MessageID = fields.Get("SmsMessageSid")
	}
	if n := fields.Get("NumMedia"); n != "" && n != "0" && n != "1" {
		logger(ctx).Info("only the first media item is processed", "num_media", n, "message_sid", msg.MessageID)
	}
	msg.Media = domain.ResolveMedia(fields.Get("Body"), fields.Get("MediaUrl0"), fields.Get("MediaContentType0"))
	return msg, nil
}

// readFields reads a Twilio webhook body. Twilio posts form-encoded fields;
// a JSON object with the same keys is also accepted.
func readFields(r *http.Request) (url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		r.Body = io.NopCloser(io.LimitReader(r.Body, maxJSONBytes))
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		return r.PostForm, nil
	}

	var raw map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	values := url.Values{}
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
		case string:
			values.Set(k, t)
		default:
			values.Set(k, strings.TrimSpace(fmt.Sprint(t)))
		}
	}
	return values, nil
}
