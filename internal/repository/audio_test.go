package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"channel-relay/internal/domain"
)

func sampleAudio() domain.AudioFile {
	return domain.AudioFile{
		ID:           "audio_1700000000000_ab12cd34ef56",
		FileName:     "tts_1.mp3",
		FilePath:     "audio/tts_1.mp3",
		BucketName:   "proj-vertex-audio",
		PublicURL:    "https://storage.googleapis.com/proj-vertex-audio/audio/tts_1.mp3",
		OriginalText: "Water the crop twice a week",
		TextLength:   27,
		AudioSize:    2048,
		MimeType:     "audio/mpeg",
		Voice:        domain.Voice{LanguageCode: "en-US", Name: "en-US-Standard-A", SSMLGender: "NEUTRAL"},
		AudioConfig:  domain.AudioConfig{AudioEncoding: "MP3", SpeakingRate: 1},
		Source:       "text-to-speech-service",
		IsPublic:     true,
		Status:       domain.AudioStatusActive,
		Metadata:     map[string]string{"crop": "rice"},
	}
}

func TestAudioFiles_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	a, err := NewAudioFiles(newMemDocs(), "")
	require.NoError(t, err)

	in := sampleAudio()
	require.NoError(t, a.Save(ctx, in))

	got, err := a.Get(ctx, in.ID)
	require.NoError(t, err)
	in.CreatedAt, in.UpdatedAt = fakeNow, fakeNow
	require.Equal(t, in, got)
}

func TestAudioFiles_SaveTwiceFails(t *testing.T) {
	ctx := context.Background()
	a, _ := NewAudioFiles(newMemDocs(), "")
	require.NoError(t, a.Save(ctx, sampleAudio()))
	require.ErrorIs(t, a.Save(ctx, sampleAudio()), ErrAlreadyExists)
}

func TestAudioFiles_GetMissing(t *testing.T) {
	a, _ := NewAudioFiles(newMemDocs(), "")
	_, err := a.Get(context.Background(), "audio_nope")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = a.Get(context.Background(), "../x/y")
	require.Error(t, err)
}

func TestAudioFiles_IncrementCounter(t *testing.T) {
	ctx := context.Background()
	a, _ := NewAudioFiles(newMemDocs(), "")
	in := sampleAudio()
	require.NoError(t, a.Save(ctx, in))

	require.NoError(t, a.IncrementCounter(ctx, in.ID, domain.CounterPlay))
	require.NoError(t, a.IncrementCounter(ctx, in.ID, domain.CounterPlay))
	require.NoError(t, a.IncrementCounter(ctx, in.ID, domain.CounterDownload))

	got, err := a.Get(ctx, in.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.PlayCount)
	require.Equal(t, 1, got.DownloadCount)

	require.Error(t, a.IncrementCounter(ctx, in.ID, "likes"))
	require.ErrorIs(t, a.IncrementCounter(ctx, "audio_missing", domain.CounterPlay), ErrNotFound)
}

func TestAudioFiles_SaveRequiresID(t *testing.T) {
	a, _ := NewAudioFiles(newMemDocs(), "")
	require.Error(t, a.Save(context.Background(), domain.AudioFile{}))
}
