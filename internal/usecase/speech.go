package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"channel-relay/internal/domain"
	"channel-relay/internal/integrations/gcs"
	"channel-relay/internal/integrations/tts"
	"channel-relay/internal/repository"
)

const (
	speechSource       = "text-to-speech-service"
	audioPrefix        = "audio/"
	maxMetadataTextLen = 200
)

type SpeechConfig struct {
	Bucket       string
	SaveMetadata bool
}

type SpeechService struct {
	synth   Synthesizer
	objects ObjectStore
	audio   AudioStore
	cfg     SpeechConfig
}

type SpeechInput struct {
	Text        string
	VoicePreset string
	Voice       domain.Voice
	AudioConfig domain.AudioConfig
	FileName    string
	// SaveMetadata overrides SpeechConfig.SaveMetadata when set.
	SaveMetadata *bool
	Metadata     map[string]string
}

type SpeechResult struct {
	PublicURL     string       `json:"publicUrl"`
	AudioID       string       `json:"audioId,omitempty"`
	FileName      string       `json:"fileName"`
	FilePath      string       `json:"filePath"`
	BucketName    string       `json:"bucketName"`
	AudioSize     int          `json:"audioSize"`
	TextLength    int          `json:"textLength"`
	Voice         domain.Voice `json:"voice"`
	GeneratedAt   time.Time    `json:"generatedAt"`
	SavedMetadata bool         `json:"savedMetadata"`
	MetadataError string       `json:"metadataError,omitempty"`
}

// NewSpeechService wires the synthesis pipeline. audio may be nil, in which
// case metadata is never saved.
func NewSpeechService(synth Synthesizer, objects ObjectStore, audio AudioStore, cfg SpeechConfig) (*SpeechService, error) {
	if synth == nil {
		return nil, errors.New("usecase: synthesizer must not be nil")
	}
	if objects == nil {
		return nil, errors.New("usecase: object store must not be nil")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("usecase: audio bucket must not be empty")
	}
	return &SpeechService{synth: synth, objects: objects, audio: audio, cfg: cfg}, nil
}

// TextToAudio synthesizes text, uploads it publicly and optionally records
// its metadata. A metadata failure is reported in the result and does not
// undo the upload.
func (s *SpeechService) TextToAudio(ctx context.Context, in SpeechInput) (SpeechResult, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return SpeechResult{}, newError(ErrorInvalidInput, "text_required", "Text is required", nil)
	}
	if strings.Contains(in.FileName, "..") || strings.HasPrefix(in.FileName, "/") {
		return SpeechResult{}, newError(ErrorInvalidInput, "invalid_file_name", "Invalid file name", nil)
	}

	speech, err := s.synth.Synthesize(ctx, text, s.voice(in), in.AudioConfig)
	if err != nil {
		return SpeechResult{}, newError(ErrorUpstream, "synthesis_error", "", err)
	}

	ms := now().UnixMilli()
	fileName := in.FileName
	if fileName == "" {
		fileName = fmt.Sprintf("tts_%d_%s%s", ms, newShortID(), tts.Extension(speech.AudioConfig.AudioEncoding))
	}
	textLength := utf8.RuneCountInString(text)

	meta := map[string]string{
		"uploadedAt":   now().UTC().Format(time.RFC3339),
		"audioSize":    strconv.Itoa(len(speech.Audio)),
		"source":       speechSource,
		"originalText": truncate(text, maxMetadataTextLen),
		"textLength":   strconv.Itoa(textLength),
		"voice":        speech.Voice.Name,
	}
	for k, v := range in.Metadata {
		meta[k] = v
	}

	up, err := s.objects.Upload(ctx, gcs.Object{
		Bucket:      s.cfg.Bucket,
		Path:        audioPrefix + fileName,
		Data:        speech.Audio,
		ContentType: speech.MimeType,
		Metadata:    meta,
	}, true)
	if err != nil {
		return SpeechResult{}, newError(ErrorUpstream, "upload_error", "", err)
	}

	res := SpeechResult{
		PublicURL:   up.PublicURL,
		FileName:    fileName,
		FilePath:    up.FilePath,
		BucketName:  up.BucketName,
		AudioSize:   len(speech.Audio),
		TextLength:  textLength,
		Voice:       speech.Voice,
		GeneratedAt: now().UTC(),
	}

	save := s.cfg.SaveMetadata
	if in.SaveMetadata != nil {
		save = *in.SaveMetadata
	}
	if !save || s.audio == nil {
		return res, nil
	}

	id := fmt.Sprintf("audio_%d_%s", ms, newShortID())
	err = s.audio.Save(ctx, domain.AudioFile{
		ID:           id,
		FileName:     fileName,
		FilePath:     up.FilePath,
		BucketName:   up.BucketName,
		PublicURL:    up.PublicURL,
		OriginalText: text,
		TextLength:   textLength,
		AudioSize:    len(speech.Audio),
		MimeType:     speech.MimeType,
		Voice:        speech.Voice,
		AudioConfig:  speech.AudioConfig,
		Source:       speechSource,
		IsPublic:     true,
		Status:       domain.AudioStatusActive,
		Metadata:     in.Metadata,
	})
	if err != nil {
		slog.ErrorContext(ctx, "audio metadata save failed", "path", up.FilePath, "err", err)
		res.MetadataError = err.Error()
		return res, nil
	}
	res.AudioID = id
	res.SavedMetadata = true
	return res, nil
}

// voice starts from the named preset, when given, and applies explicit fields on top.
func (s *SpeechService) voice(in SpeechInput) domain.Voice {
	var v domain.Voice
	if in.VoicePreset != "" {
		v = tts.Preset(in.VoicePreset)
	}
	if in.Voice.LanguageCode != "" {
		v.LanguageCode = in.Voice.LanguageCode
	}
	if in.Voice.Name != "" {
		v.Name = in.Voice.Name
	}
	if in.Voice.SSMLGender != "" {
		v.SSMLGender = in.Voice.SSMLGender
	}
	return v
}

func (s *SpeechService) GetAudio(ctx context.Context, id string) (domain.AudioFile, error) {
	if s.audio == nil {
		return domain.AudioFile{}, newError(ErrorNotFound, "metadata_disabled", "Audio file not found", nil)
	}
	f, err := s.audio.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.AudioFile{}, newError(ErrorNotFound, "audio_not_found", "Audio file not found", err)
	}
	if err != nil {
		return domain.AudioFile{}, newError(ErrorInternal, "audio_lookup_error", "", err)
	}
	return f, nil
}

// RecordAccess bumps the play or download counter of an audio file.
func (s *SpeechService) RecordAccess(ctx context.Context, id, counter string) error {
	if counter != domain.CounterPlay && counter != domain.CounterDownload {
		return newError(ErrorInvalidInput, "unknown_counter", "Unknown counter", nil)
	}
	if s.audio == nil {
		return newError(ErrorNotFound, "metadata_disabled", "Audio file not found", nil)
	}
	err := s.audio.IncrementCounter(ctx, id, counter)
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrorNotFound, "audio_not_found", "Audio file not found", err)
	}
	if err != nil {
		return newError(ErrorInternal, "audio_counter_error", "", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
