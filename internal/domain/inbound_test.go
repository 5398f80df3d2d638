package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveMedia(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		url         string
		contentType string
		want        Media
	}{
		{name: "text without media", body: "Thank you", want: TextMedia{Body: "Thank you"}},
		{name: "ogg audio", body: "", url: "https://m/1", contentType: "audio/ogg", want: AudioMedia{URL: "https://m/1", ContentType: "audio/ogg"}},
		{name: "audio with codec parameter", url: "https://m/2", contentType: "audio/ogg; codecs=opus", want: AudioMedia{URL: "https://m/2", ContentType: "audio/ogg"}},
		{name: "jpeg image keeps caption", body: "look", url: "https://m/3", contentType: "image/jpeg", want: ImageMedia{URL: "https://m/3", ContentType: "image/jpeg", Caption: "look"}},
		{name: "png is treated as text", body: "hi", url: "https://m/4", contentType: "image/png", want: TextMedia{Body: "hi"}},
		{name: "unknown audio subtype", body: "hi", url: "https://m/5", contentType: "audio/x-unknown", want: TextMedia{Body: "hi"}},
		{name: "audio type without url", body: "hi", contentType: "audio/ogg", want: TextMedia{Body: "hi"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ResolveMedia(tc.body, tc.url, tc.contentType))
		})
	}
}

func TestIsAudioContentType(t *testing.T) {
	require.True(t, IsAudioContentType("audio/mpeg"))
	require.True(t, IsAudioContentType("AUDIO/WAV"))
	require.False(t, IsAudioContentType("video/mp4"))
	require.False(t, IsAudioContentType(""))
}

func TestTurnResult_FirstMessage(t *testing.T) {
	require.Equal(t, "", TurnResult{}.FirstMessage())
	require.Equal(t, "a", TurnResult{Messages: []string{"a", "b"}}.FirstMessage())
}
