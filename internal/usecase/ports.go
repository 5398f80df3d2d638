package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"channel-relay/internal/domain"
	"channel-relay/internal/integrations/gcs"
	"channel-relay/internal/integrations/tts"
	"channel-relay/internal/integrations/vision"
)

// NoResponseText is sent or returned when the agent produced no reply fragments.
const NoResponseText = "No response from agent"

type Agent interface {
	SendMessage(ctx context.Context, text, sessionID, languageCode string) (domain.TurnResult, error)
}

type Messenger interface {
	SendText(ctx context.Context, body, from, to string) (domain.Receipt, error)
	SendSMS(ctx context.Context, to, body string) (domain.Receipt, error)
}

type MediaFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, mimeType string, audio []byte) (string, error)
}

type Annotator interface {
	Annotate(ctx context.Context, image []byte) (vision.Annotation, error)
}

type SessionStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	CreateOrUpdate(ctx context.Context, id string, fields map[string]any) error
	IncrementErrorCount(ctx context.Context, id string) error
	ResetErrorCount(ctx context.Context, id string) error
}

type InboundLedger interface {
	Claim(ctx context.Context, messageID string) error
	Complete(ctx context.Context, messageID, replyID string) error
	Release(ctx context.Context, messageID string) error
	Status(ctx context.Context, messageID string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice domain.Voice, cfg domain.AudioConfig) (tts.Speech, error)
}

type ObjectStore interface {
	Upload(ctx context.Context, obj gcs.Object, public bool) (gcs.Upload, error)
}

type AudioStore interface {
	Save(ctx context.Context, f domain.AudioFile) error
	Get(ctx context.Context, id string) (domain.AudioFile, error)
	IncrementCounter(ctx context.Context, id, counter string) error
}

var now = time.Now

// newShortID returns 12 hex characters of a random UUID.
var newShortID = func() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
