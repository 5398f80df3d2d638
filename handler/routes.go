package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"channel-relay/internal/domain"
	"channel-relay/internal/usecase"
)

type chatRequest struct {
	Message      string `json:"message"`
	SessionID    string `json:"sessionId"`
	LanguageCode string `json:"languageCode"`
}

type chatResponse struct {
	Success   bool              `json:"success"`
	Data      domain.TurnResult `json:"data"`
	SessionID string            `json:"sessionId"`
}

type sendRequest struct {
	Message string `json:"message"`
	To      string `json:"to"`
}

type sendResponse struct {
	Success bool   `json:"success"`
	SID     string `json:"sid"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type audioRequest struct {
	Audio    string `json:"audio"`
	MimeType string `json:"mimeType"`
}

type audioResponse struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript"`
	Response   string `json:"response"`
	SessionID  string `json:"sessionId"`
}

type speechRequest struct {
	Text         string             `json:"text"`
	VoicePreset  string             `json:"voicePreset"`
	Voice        domain.Voice       `json:"voice"`
	AudioConfig  domain.AudioConfig `json:"audioConfig"`
	FileName     string             `json:"fileName"`
	SaveMetadata *bool              `json:"saveMetadata"`
	Metadata     map[string]string  `json:"metadata"`
}

type dataResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	ua := r.UserAgent()
	if ua == "" {
		ua = "Unknown"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "success",
		"message":   "Pong! Relay is working.",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"method":    r.Method,
		"userAgent": ua,
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Dialogflow CX service is ready",
		"projectId": h.opts.ProjectID,
		"location":  h.opts.Location,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(r, &req) {
		badRequest(w, "Invalid JSON body")
		return
	}
	out, err := h.svc.Chat.Chat(r.Context(), usecase.ChatInput{
		Message:      req.Message,
		SessionID:    req.SessionID,
		LanguageCode: req.LanguageCode,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Success: true, Data: out.Result, SessionID: out.SessionID})
}

func (h *Handler) whatsappCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fields, err := readFields(r)
	if err != nil {
		logger(ctx).Warn("unreadable webhook body", "err", err)
		badRequest(w, "Invalid webhook body")
		return
	}
	if err := h.svc.Webhooks.Verify(ctx, h.webhookURL(r), fields, r.Header.Get(signatureHeader)); err != nil {
		logger(ctx).Warn("webhook signature rejected", "err", err)
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Invalid Twilio signature", Code: string(usecase.ErrorUnauthorized)})
		return
	}
	msg, err := toInbound(ctx, fields)
	if errors.Is(err, errMissingSender) {
		badRequest(w, "Missing sender address")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.Inbound.HandleInbound(ctx, msg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	logger(ctx).Info("inbound message handled",
		"message_sid", msg.MessageID, "session_id", res.SessionID, "duplicate", res.Duplicate)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) sendWhatsApp(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decodeJSON(r, &req) {
		badRequest(w, "Invalid JSON body")
		return
	}
	receipt, err := h.svc.Outbound.SendWhatsApp(r.Context(), req.Message, req.To)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{Success: true, SID: receipt.SID})
}

func (h *Handler) sendSMS(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !decodeJSON(r, &req) {
		badRequest(w, "Invalid JSON body")
		return
	}
	receipt, err := h.svc.Outbound.SendSMS(r.Context(), req.To, req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{Success: true, SID: receipt.SID})
}

func (h *Handler) audioResponse(w http.ResponseWriter, r *http.Request) {
	in, msg := h.readAudio(w, r)
	if msg != "" {
		badRequest(w, msg)
		return
	}
	out, err := h.svc.AudioReply.Reply(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, audioResponse{
		Success:    true,
		Transcript: out.Transcript,
		Response:   out.Response,
		SessionID:  out.SessionID,
	})
}

// readAudio accepts a multipart "audio" file or a JSON base64 payload. A
// non-empty message means the request is rejected with that text.
func (h *Handler) readAudio(w http.ResponseWriter, r *http.Request) (usecase.AudioInput, string) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxAudioBytes+1<<20)
		if err := r.ParseMultipartForm(h.opts.MaxAudioBytes); err != nil {
			return usecase.AudioInput{}, "File upload error: " + err.Error()
		}
		file, header, err := r.FormFile("audio")
		if errors.Is(err, http.ErrMissingFile) {
			return usecase.AudioInput{}, "Audio file is required (either via form-data 'audio' field or JSON 'audio' property)"
		}
		if err != nil {
			return usecase.AudioInput{}, "File upload error: " + err.Error()
		}
		defer file.Close()

		if header.Size > h.opts.MaxAudioBytes {
			return usecase.AudioInput{}, "File upload error: File too large"
		}
		contentType := header.Header.Get("Content-Type")
		if !domain.IsAudioContentType(contentType) {
			return usecase.AudioInput{}, "Invalid file type. Only audio files are allowed."
		}
		data, err := io.ReadAll(io.LimitReader(file, h.opts.MaxAudioBytes))
		if err != nil {
			return usecase.AudioInput{}, "File upload error: " + err.Error()
		}
		return usecase.AudioInput{Audio: data, MimeType: contentType}, ""
	}

	var req audioRequest
	if !decodeJSON(r, &req) || req.Audio == "" {
		return usecase.AudioInput{}, "Audio file is required (either via form-data 'audio' field or JSON 'audio' property)"
	}
	data, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return usecase.AudioInput{}, "Invalid base64 audio data"
	}
	if int64(len(data)) > h.opts.MaxAudioBytes {
		return usecase.AudioInput{}, fmt.Sprintf("Audio exceeds the %d byte limit", h.opts.MaxAudioBytes)
	}
	return usecase.AudioInput{Audio: data, MimeType: req.MimeType}, ""
}

func (h *Handler) textToAudio(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if !decodeJSON(r, &req) {
		badRequest(w, "Invalid JSON body")
		return
	}
	res, err := h.svc.Speech.TextToAudio(r.Context(), usecase.SpeechInput{
		Text:         req.Text,
		VoicePreset:  req.VoicePreset,
		Voice:        req.Voice,
		AudioConfig:  req.AudioConfig,
		FileName:     req.FileName,
		SaveMetadata: req.SaveMetadata,
		Metadata:     req.Metadata,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse[usecase.SpeechResult]{Success: true, Data: res})
}

func (h *Handler) getAudio(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.Speech.GetAudio(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse[domain.AudioFile]{Success: true, Data: f})
}

func (h *Handler) recordAudioAccess(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	counter := domain.CounterPlay
	if vars["counter"] == "download" {
		counter = domain.CounterDownload
	}
	if err := h.svc.Speech.RecordAccess(r.Context(), vars["id"], counter); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
