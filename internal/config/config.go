// Package config holds the runtime configuration shared by every entry point.
// Values come from flags or environment variables and are parsed once at startup.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/kong"
)

const (
	BackendVertex = "vertex"
	BackendGemini = "gemini"
)

type Config struct {
	// Google Cloud
	ProjectID         string `name:"project-id" env:"GOOGLE_CLOUD_PROJECT" help:"Google Cloud project id."`
	Location          string `name:"location" env:"DIALOGFLOW_LOCATION" default:"asia-south1" help:"Dialogflow CX agent location."`
	AgentID           string `name:"agent-id" env:"DIALOGFLOW_AGENT_ID" help:"Dialogflow CX agent id."`
	LanguageCode      string `name:"language-code" env:"DEFAULT_LANGUAGE_CODE" default:"en" help:"Default agent language."`
	FirestoreDatabase string `name:"firestore-database" env:"FIRESTORE_DATABASE" default:"(default)" help:"Firestore database id."`

	// Transcription
	TranscribeBackend  string `name:"transcribe-backend" env:"TRANSCRIBE_BACKEND" default:"vertex" enum:"vertex,gemini" help:"Generative backend used for audio transcription."`
	TranscribeModel    string `name:"transcribe-model" env:"TRANSCRIBE_MODEL" default:"gemini-2.5-flash" help:"Model used for audio transcription."`
	TranscribeLocation string `name:"transcribe-location" env:"VERTEX_LOCATION" help:"Vertex AI location; defaults to the agent location."`
	GeminiAPIKey       string `name:"gemini-api-key" env:"GEMINI_API_KEY" help:"API key for the Gemini backend."`

	// Storage and persistence
	AudioBucket        string `name:"audio-bucket" env:"AUDIO_BUCKET" help:"Bucket receiving synthesized audio."`
	BucketLocation     string `name:"bucket-location" env:"BUCKET_LOCATION" default:"US" help:"Location used when the bucket is created."`
	SaveAudioMetadata  bool   `name:"save-audio-metadata" env:"SAVE_AUDIO_METADATA" default:"true" negatable:"" help:"Persist audio metadata to Firestore."`
	SessionsCollection string `name:"sessions-collection" env:"SESSIONS_COLLECTION" default:"sessions"`
	AudioCollection    string `name:"audio-collection" env:"AUDIO_COLLECTION" default:"audioFiles"`

	// Messaging
	ParamPrefix           string `name:"param-prefix" env:"PARAM_PREFIX" default:"/channel-relay" help:"SSM parameter prefix."`
	TwilioCredentials     string `name:"twilio-credentials" env:"TWILIO_CREDENTIALS" help:"JSON list of {accountSid,authToken,fromNo}; read from SSM when empty."`
	WhatsAppFrom          string `name:"whatsapp-from" env:"WHATSAPP_FROM" default:"whatsapp:+14155238886" help:"Sender address for outbound WhatsApp messages."`
	WhatsAppSessionPrefix string `name:"whatsapp-session-prefix" env:"WHATSAPP_SESSION_PREFIX" default:"whatsapp-"`
	ReplyAllFragments     bool   `name:"reply-all-fragments" env:"REPLY_ALL_FRAGMENTS" help:"Send every agent reply fragment instead of only the first."`
	VerifySignature       bool   `name:"verify-signature" env:"TWILIO_VERIFY_SIGNATURE" default:"true" negatable:"" help:"Reject webhooks without a valid X-Twilio-Signature."`
	WebhookURL            string `name:"webhook-url" env:"TWILIO_WEBHOOK_URL" help:"Public webhook URL Twilio signs; derived from the request when empty."`

	// Idempotency
	DedupTable string        `name:"dedup-table" env:"DEDUP_TABLE" help:"DynamoDB table used to de-duplicate webhook redeliveries; disabled when empty."`
	DedupTTL   time.Duration `name:"dedup-ttl" env:"DEDUP_TTL" default:"24h"`
	DedupLease time.Duration `name:"dedup-lease" env:"DEDUP_LEASE" default:"15m" help:"How long an unfinished claim blocks redeliveries."`

	// HTTP
	Port          string `name:"port" env:"PORT" default:"8080"`
	AllowedOrigin string `name:"allowed-origin" env:"ALLOWED_ORIGIN" default:"*"`
	MaxAudioBytes int64  `name:"max-audio-bytes" env:"MAX_AUDIO_BYTES" default:"10485760"`
}

// Load parses args and the environment into a Config and validates it.
func Load(args []string) (Config, error) {
	var cfg Config
	parser, err := kong.New(&cfg,
		kong.Name("channel-relay"),
		kong.Description("Relay between messaging channels and a Dialogflow CX agent."),
	)
	if err != nil {
		return Config{}, fmt.Errorf("config: build parser: %w", err)
	}
	if _, err := parser.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ProjectID) == "" {
		errs = append(errs, errors.New("config: GOOGLE_CLOUD_PROJECT is required"))
	}
	if strings.TrimSpace(c.Location) == "" {
		errs = append(errs, errors.New("config: DIALOGFLOW_LOCATION is required"))
	}
	if strings.TrimSpace(c.AgentID) == "" {
		errs = append(errs, errors.New("config: DIALOGFLOW_AGENT_ID is required"))
	}
	if c.TranscribeBackend == BackendGemini && strings.TrimSpace(c.GeminiAPIKey) == "" {
		errs = append(errs, errors.New("config: GEMINI_API_KEY is required for the gemini backend"))
	}
	if c.MaxAudioBytes <= 0 {
		errs = append(errs, errors.New("config: MAX_AUDIO_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

// DialogflowEndpoint returns the regional API endpoint for the agent location.
func (c Config) DialogflowEndpoint() string {
	if c.Location == "" || c.Location == "global" {
		return "dialogflow.googleapis.com:443"
	}
	return c.Location + "-dialogflow.googleapis.com:443"
}

func (c Config) VertexLocation() string {
	if c.TranscribeLocation != "" {
		return c.TranscribeLocation
	}
	return c.Location
}

// BucketName returns the audio bucket, defaulting to "{project}-vertex-audio".
func (c Config) BucketName() string {
	if c.AudioBucket != "" {
		return c.AudioBucket
	}
	return c.ProjectID + "-vertex-audio"
}

func (c Config) CredentialsParameter() string {
	return strings.TrimRight(strings.TrimSpace(c.ParamPrefix), "/") + "/twilio/credentials"
}
