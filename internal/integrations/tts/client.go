// Package tts synthesizes speech with Cloud Text-to-Speech.
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"channel-relay/internal/domain"
)

type speechAPI interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
}

// Speech is one synthesized clip together with the effective settings.
type Speech struct {
	Audio       []byte
	Voice       domain.Voice
	AudioConfig domain.AudioConfig
	MimeType    string
}

type Client struct {
	api speechAPI
}

func Dial(ctx context.Context, opts ...option.ClientOption) (*texttospeech.Client, error) {
	c, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tts: create client: %w", err)
	}
	return c, nil
}

func New(api speechAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("tts: api must not be nil")
	}
	return &Client{api: api}, nil
}

// Synthesize merges voice and cfg over the defaults and returns the audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string, voice domain.Voice, cfg domain.AudioConfig) (Speech, error) {
	if strings.TrimSpace(text) == "" {
		return Speech{}, errors.New("tts: text must not be empty")
	}
	voice = MergeVoice(voice)
	cfg = MergeAudioConfig(cfg)

	gender, ok := texttospeechpb.SsmlVoiceGender_value[strings.ToUpper(voice.SSMLGender)]
	if !ok {
		return Speech{}, fmt.Errorf("tts: unknown ssml gender %q", voice.SSMLGender)
	}
	encoding, ok := texttospeechpb.AudioEncoding_value[strings.ToUpper(cfg.AudioEncoding)]
	if !ok {
		return Speech{}, fmt.Errorf("tts: unknown audio encoding %q", cfg.AudioEncoding)
	}

	resp, err := c.api.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode,
			Name:         voice.Name,
			SsmlGender:   texttospeechpb.SsmlVoiceGender(gender),
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding(encoding),
			SpeakingRate:  cfg.SpeakingRate,
			Pitch:         cfg.Pitch,
			VolumeGainDb:  cfg.VolumeGainDb,
		},
	})
	if err != nil {
		return Speech{}, fmt.Errorf("tts: synthesize speech: %w", err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return Speech{}, errors.New("tts: empty audio content")
	}

	return Speech{
		Audio:       resp.GetAudioContent(),
		Voice:       voice,
		AudioConfig: cfg,
		MimeType:    ContentType(cfg.AudioEncoding),
	}, nil
}
