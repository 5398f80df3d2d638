package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"channel-relay/internal/domain"
	"channel-relay/internal/integrations/gemini"
)

func fixClock(t *testing.T, ms int64) {
	t.Helper()
	prev := now
	now = func() time.Time { return time.UnixMilli(ms) }
	t.Cleanup(func() { now = prev })
}

func TestAudioReply_HappyPath(t *testing.T) {
	fixClock(t, 1700000000000)
	tr := &fakeTranscriber{text: "when to sow wheat"}
	agent := &fakeAgent{result: domain.TurnResult{Messages: []string{"Sow in November.", "Anything else?"}}}
	svc, err := NewAudioReplyService(tr, agent, "en")
	require.NoError(t, err)

	out, err := svc.Reply(context.Background(), AudioInput{Audio: []byte("OggS"), MimeType: "audio/ogg; codecs=opus"})
	require.NoError(t, err)
	require.Equal(t, AudioOutput{
		Transcript: "when to sow wheat",
		Response:   "Sow in November.",
		SessionID:  "audio_session_1700000000000",
	}, out)
	require.Equal(t, []agentCall{{"when to sow wheat", "audio_session_1700000000000", "en"}}, agent.calls)
}

func TestAudioReply_DefaultsMimeAndNoResponse(t *testing.T) {
	tr := &fakeTranscriber{text: "hello"}
	svc, _ := NewAudioReplyService(tr, &fakeAgent{}, "en")

	out, err := svc.Reply(context.Background(), AudioInput{Audio: []byte{1}})
	require.NoError(t, err)
	require.Equal(t, NoResponseText, out.Response)
	require.Equal(t, "audio/ogg", tr.mimeType)
}

func TestAudioReply_Validation(t *testing.T) {
	agent := &fakeAgent{}
	svc, _ := NewAudioReplyService(&fakeTranscriber{text: "x"}, agent, "en")

	_, err := svc.Reply(context.Background(), AudioInput{})
	require.Equal(t, ErrorInvalidInput, AsError(err).Code)

	_, err = svc.Reply(context.Background(), AudioInput{Audio: []byte{1}, MimeType: "image/png"})
	require.Equal(t, "Only audio files are allowed", AsError(err).PublicMessage())
	require.Empty(t, agent.calls)
}

func TestAudioReply_EmptyTranscript(t *testing.T) {
	agent := &fakeAgent{}
	svc, _ := NewAudioReplyService(&fakeTranscriber{err: gemini.ErrEmptyTranscript}, agent, "en")
	_, err := svc.Reply(context.Background(), AudioInput{Audio: []byte{1}})
	require.Equal(t, ErrorInvalidInput, AsError(err).Code)
	require.Equal(t, "Could not transcribe audio", AsError(err).PublicMessage())
	require.Empty(t, agent.calls)
}

func TestAudioReply_UpstreamFailures(t *testing.T) {
	svc, _ := NewAudioReplyService(&fakeTranscriber{err: errUpstream}, &fakeAgent{}, "en")
	_, err := svc.Reply(context.Background(), AudioInput{Audio: []byte{1}})
	require.Equal(t, ErrorUpstream, AsError(err).Code)
	require.Contains(t, AsError(err).PublicMessage(), "Failed to process audio")

	svc, _ = NewAudioReplyService(&fakeTranscriber{text: "x"}, &fakeAgent{err: errUpstream}, "en")
	_, err = svc.Reply(context.Background(), AudioInput{Audio: []byte{1}})
	require.ErrorIs(t, err, errUpstream)
}
