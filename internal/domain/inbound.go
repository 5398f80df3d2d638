package domain

import "strings"

// InboundMessage is a carrier webhook payload normalized for processing.
type InboundMessage struct {
	MessageID    string
	SenderID     string
	From         string
	To           string
	ProfileName  string
	LanguageCode string
	Media        Media
}

// Media is the resolved content of an inbound message. Exactly one of
// TextMedia, AudioMedia or ImageMedia.
type Media interface {
	isMedia()
}

type TextMedia struct {
	Body string
}

type AudioMedia struct {
	URL         string
	ContentType string
	Caption     string
}

type ImageMedia struct {
	URL         string
	ContentType string
	Caption     string
}

func (TextMedia) isMedia()  {}
func (AudioMedia) isMedia() {}
func (ImageMedia) isMedia() {}

var audioContentTypes = map[string]bool{
	"audio/mpeg":     true,
	"audio/mp3":      true,
	"audio/wav":      true,
	"audio/ogg":      true,
	"audio/webm":     true,
	"audio/mp4":      true,
	"audio/aac":      true,
	"audio/flac":     true,
	"audio/x-wav":    true,
	"audio/vnd.wave": true,
}

// IsAudioContentType reports whether contentType is one of the accepted audio types.
// MIME parameters such as "; codecs=opus" are ignored.
func IsAudioContentType(contentType string) bool {
	return audioContentTypes[baseContentType(contentType)]
}

// ResolveMedia picks the media variant for a payload. Audio wins over image,
// and anything unrecognised falls back to the text body.
func ResolveMedia(body, mediaURL, contentType string) Media {
	if mediaURL != "" {
		switch ct := baseContentType(contentType); {
		case audioContentTypes[ct]:
			return AudioMedia{URL: mediaURL, ContentType: ct, Caption: body}
		case ct == "image/jpeg":
			return ImageMedia{URL: mediaURL, ContentType: ct, Caption: body}
		}
	}
	return TextMedia{Body: body}
}

func baseContentType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
