package tts

import (
	"strings"

	"channel-relay/internal/domain"
)

const DefaultPreset = "standard-us"

var presets = map[string]domain.Voice{
	"female-us":   {LanguageCode: "en-US", Name: "en-US-Wavenet-F", SSMLGender: "FEMALE"},
	"male-us":     {LanguageCode: "en-US", Name: "en-US-Wavenet-D", SSMLGender: "MALE"},
	"female-uk":   {LanguageCode: "en-GB", Name: "en-GB-Wavenet-A", SSMLGender: "FEMALE"},
	"male-uk":     {LanguageCode: "en-GB", Name: "en-GB-Wavenet-B", SSMLGender: "MALE"},
	"neural-us":   {LanguageCode: "en-US", Name: "en-US-Neural2-A", SSMLGender: "NEUTRAL"},
	"standard-us": {LanguageCode: "en-US", Name: "en-US-Standard-A", SSMLGender: "NEUTRAL"},
}

// Preset returns the named voice, or the standard-us voice for unknown names.
func Preset(name string) domain.Voice {
	if v, ok := presets[strings.ToLower(strings.TrimSpace(name))]; ok {
		return v
	}
	return presets[DefaultPreset]
}

func PresetNames() []string {
	return []string{"female-us", "male-us", "female-uk", "male-uk", "neural-us", "standard-us"}
}

func DefaultVoice() domain.Voice {
	return presets[DefaultPreset]
}

func DefaultAudioConfig() domain.AudioConfig {
	return domain.AudioConfig{AudioEncoding: "MP3", SpeakingRate: 1.0}
}

// MergeVoice fills the empty fields of v from the default voice.
func MergeVoice(v domain.Voice) domain.Voice {
	d := DefaultVoice()
	if v.LanguageCode == "" {
		v.LanguageCode = d.LanguageCode
	}
	if v.Name == "" {
		v.Name = d.Name
	}
	if v.SSMLGender == "" {
		v.SSMLGender = d.SSMLGender
	}
	return v
}

// MergeAudioConfig fills unset fields from the default audio config. Pitch and
// gain already default to zero.
func MergeAudioConfig(c domain.AudioConfig) domain.AudioConfig {
	d := DefaultAudioConfig()
	if c.AudioEncoding == "" {
		c.AudioEncoding = d.AudioEncoding
	}
	if c.SpeakingRate == 0 {
		c.SpeakingRate = d.SpeakingRate
	}
	return c
}

// ContentType maps an audio encoding to the MIME type stored with the object.
func ContentType(encoding string) string {
	switch strings.ToUpper(encoding) {
	case "OGG_OPUS":
		return "audio/ogg"
	case "LINEAR16":
		return "audio/wav"
	case "MULAW", "ALAW":
		return "audio/basic"
	default:
		return "audio/mpeg"
	}
}

func Extension(encoding string) string {
	switch strings.ToUpper(encoding) {
	case "OGG_OPUS":
		return ".ogg"
	case "LINEAR16":
		return ".wav"
	default:
		return ".mp3"
	}
}
