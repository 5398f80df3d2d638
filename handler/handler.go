// Package handler exposes the relay's HTTP endpoints, both as a plain
// http.Handler and as an API Gateway Lambda proxy handler.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"channel-relay/internal/domain"
	"channel-relay/internal/usecase"
)

const (
	correlationHeader    = "X-Correlation-Id"
	defaultMaxAudioBytes = 10 << 20
	maxJSONBytes         = 16 << 20
)

type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type InboundUseCase interface {
	HandleInbound(ctx context.Context, msg domain.InboundMessage) (usecase.InboundResult, error)
}

type OutboundUseCase interface {
	SendWhatsApp(ctx context.Context, message, to string) (domain.Receipt, error)
	SendSMS(ctx context.Context, to, message string) (domain.Receipt, error)
}

type AudioReplyUseCase interface {
	Reply(ctx context.Context, in usecase.AudioInput) (usecase.AudioOutput, error)
}

type SpeechUseCase interface {
	TextToAudio(ctx context.Context, in usecase.SpeechInput) (usecase.SpeechResult, error)
	GetAudio(ctx context.Context, id string) (domain.AudioFile, error)
	RecordAccess(ctx context.Context, id, counter string) error
}

type Services struct {
	Chat       ChatUseCase
	Inbound    InboundUseCase
	Outbound   OutboundUseCase
	AudioReply AudioReplyUseCase
	Speech     SpeechUseCase
	Webhooks   WebhookVerifier
}

type Options struct {
	ProjectID     string
	Location      string
	AllowedOrigin string
	MaxAudioBytes int64
	// WebhookURL is the public URL Twilio signs for /whatsapp-callback.
	WebhookURL string
}

type Handler struct {
	svc    Services
	opts   Options
	router http.Handler
	proxy  *httpadapter.HandlerAdapter
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func NewHandler(svc Services, opts Options) (*Handler, error) {
	switch {
	case svc.Chat == nil:
		return nil, errors.New("handler: chat use case must not be nil")
	case svc.Inbound == nil:
		return nil, errors.New("handler: inbound use case must not be nil")
	case svc.Outbound == nil:
		return nil, errors.New("handler: outbound use case must not be nil")
	case svc.AudioReply == nil:
		return nil, errors.New("handler: audio reply use case must not be nil")
	case svc.Speech == nil:
		return nil, errors.New("handler: speech use case must not be nil")
	case svc.Webhooks == nil:
		return nil, errors.New("handler: webhook verifier must not be nil")
	}
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	if opts.MaxAudioBytes <= 0 {
		opts.MaxAudioBytes = defaultMaxAudioBytes
	}

	h := &Handler{svc: svc, opts: opts}
	h.router = withCorrelationID(cors.New(cors.Options{
		AllowedOrigins: []string{opts.AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", correlationHeader},
		ExposedHeaders: []string{correlationHeader},
	}).Handler(h.routes()))
	h.proxy = httpadapter.New(h.router)
	return h, nil
}

func (h *Handler) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ping", h.ping).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/chat", h.chat).Methods(http.MethodPost)
	r.HandleFunc("/whatsapp-callback", h.whatsappCallback).Methods(http.MethodPost)
	r.HandleFunc("/send-whatsapp-message", h.sendWhatsApp).Methods(http.MethodPost)
	r.HandleFunc("/send-sms", h.sendSMS).Methods(http.MethodPost)
	r.HandleFunc("/get-audio-response", h.audioResponse).Methods(http.MethodPost)
	r.HandleFunc("/text-to-audio", h.textToAudio).Methods(http.MethodPost)
	r.HandleFunc("/audio/{id}", h.getAudio).Methods(http.MethodGet)
	r.HandleFunc("/audio/{id}/{counter:play|download}", h.recordAudioAccess).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Route not found", Code: string(usecase.ErrorNotFound)})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed", Code: string(usecase.ErrorInvalidInput)})
	})
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

type correlationKey struct{}

func withCorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(correlationHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), correlationKey{}, id)))
	})
}

func logger(ctx context.Context) *slog.Logger {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return slog.Default().With("correlation_id", id)
	}
	return slog.Default()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	uerr := usecase.AsError(err)
	status := statusFor(uerr.Code)
	log := logger(r.Context()).With("path", r.URL.Path, "code", uerr.Code, "reason", uerr.Reason)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "err", err)
	} else {
		log.Warn("request rejected", "err", err)
	}
	writeJSON(w, status, errorResponse{Error: uerr.PublicMessage(), Code: string(uerr.Code)})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message, Code: string(usecase.ErrorInvalidInput)})
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorUnauthorized:
		return http.StatusForbidden
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) bool {
	if r.Body == nil {
		return false
	}
	return json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes)).Decode(v) == nil
}
