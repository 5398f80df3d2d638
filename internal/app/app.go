// Package app builds the relay's object graph from a Config. Every entry
// point shares this wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"channel-relay/handler"
	"channel-relay/internal/config"
	"channel-relay/internal/integrations/dialogflow"
	"channel-relay/internal/integrations/gcs"
	"channel-relay/internal/integrations/gemini"
	"channel-relay/internal/integrations/paramstore"
	"channel-relay/internal/integrations/tts"
	"channel-relay/internal/integrations/twilio"
	"channel-relay/internal/integrations/vision"
	"channel-relay/internal/repository"
	"channel-relay/internal/usecase"
)

// App holds the built services. Close releases every client opened by Build.
type App struct {
	Handler  *handler.Handler
	Sessions *repository.Sessions
	Audio    *repository.AudioFiles
	Speech   *usecase.SpeechService
	Storage  *gcs.Store

	closers []func() error
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Build opens all clients. On failure the clients opened so far are closed.
func Build(ctx context.Context, cfg config.Config) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	// ---- AWS ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load AWS config: %w", err)
	}
	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}
	var ledger usecase.InboundLedger
	if cfg.DedupTable != "" {
		l, err := repository.NewLedger(awsdynamodb.NewFromConfig(awsCfg), cfg.DedupTable, cfg.DedupTTL, cfg.DedupLease)
		if err != nil {
			return nil, err
		}
		ledger = l
	} else {
		slog.Warn("webhook de-duplication disabled", "reason", "DEDUP_TABLE not set")
	}

	// ---- Twilio ----
	source := twilio.ParamCredentials(params, cfg.CredentialsParameter())
	if cfg.TwilioCredentials != "" {
		source = twilio.StaticCredentials(cfg.TwilioCredentials)
	}
	pool, err := twilio.NewCredentialPool(source, twilio.FirstPolicy{})
	if err != nil {
		return nil, err
	}
	messenger, err := twilio.NewMessenger(pool)
	if err != nil {
		return nil, err
	}
	media, err := twilio.NewMediaFetcher(pool)
	if err != nil {
		return nil, err
	}
	var webhooks handler.WebhookVerifier = handler.UnverifiedWebhooks{}
	if cfg.VerifySignature {
		if webhooks, err = twilio.NewSignatureVerifier(pool); err != nil {
			return nil, err
		}
	} else {
		slog.Warn("twilio webhook signature verification disabled")
	}

	// ---- Google Cloud ----
	sessionsClient, err := dialogflow.Dial(ctx, cfg.DialogflowEndpoint())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, sessionsClient.Close)
	agent, err := dialogflow.New(sessionsClient, dialogflow.Agent{
		ProjectID:       cfg.ProjectID,
		Location:        cfg.Location,
		AgentID:         cfg.AgentID,
		DefaultLanguage: cfg.LanguageCode,
	})
	if err != nil {
		return nil, err
	}

	visionClient, err := vision.Dial(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, visionClient.Close)
	annotator, err := vision.New(visionClient)
	if err != nil {
		return nil, err
	}

	ttsClient, err := tts.Dial(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, ttsClient.Close)
	synth, err := tts.New(ttsClient)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := gcs.Dial(ctx, cfg.ProjectID, cfg.BucketLocation)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)
	a.Storage = store

	fsClient, err := repository.DialFirestore(ctx, cfg.ProjectID, cfg.FirestoreDatabase)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, fsClient.Close)
	docs, err := repository.NewFirestore(fsClient)
	if err != nil {
		return nil, err
	}
	if a.Sessions, err = repository.NewSessions(docs, cfg.SessionsCollection); err != nil {
		return nil, err
	}
	if a.Audio, err = repository.NewAudioFiles(docs, cfg.AudioCollection); err != nil {
		return nil, err
	}

	transcriber, err := newTranscriber(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, transcriber.Close)

	// ---- Use cases ----
	chat, err := usecase.NewChatService(agent)
	if err != nil {
		return nil, err
	}
	inbound, err := usecase.NewInboundService(usecase.InboundDeps{
		Agent:       agent,
		Messenger:   messenger,
		Media:       media,
		Transcriber: transcriber,
		Annotator:   annotator,
		Sessions:    a.Sessions,
		Ledger:      ledger,
	}, usecase.InboundConfig{
		SessionPrefix:     cfg.WhatsAppSessionPrefix,
		LanguageCode:      cfg.LanguageCode,
		ReplyAllFragments: cfg.ReplyAllFragments,
	})
	if err != nil {
		return nil, err
	}
	outbound, err := usecase.NewOutboundService(messenger, cfg.WhatsAppFrom)
	if err != nil {
		return nil, err
	}
	audioReply, err := usecase.NewAudioReplyService(transcriber, agent, cfg.LanguageCode)
	if err != nil {
		return nil, err
	}
	a.Speech, err = usecase.NewSpeechService(synth, store, a.Audio, usecase.SpeechConfig{
		Bucket:       cfg.BucketName(),
		SaveMetadata: cfg.SaveAudioMetadata,
	})
	if err != nil {
		return nil, err
	}

	// ---- Handler ----
	a.Handler, err = handler.NewHandler(handler.Services{
		Chat:       chat,
		Inbound:    inbound,
		Outbound:   outbound,
		AudioReply: audioReply,
		Speech:     a.Speech,
		Webhooks:   webhooks,
	}, handler.Options{
		ProjectID:     cfg.ProjectID,
		Location:      cfg.Location,
		AllowedOrigin: cfg.AllowedOrigin,
		MaxAudioBytes: cfg.MaxAudioBytes,
		WebhookURL:    cfg.WebhookURL,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newTranscriber(ctx context.Context, cfg config.Config) (*gemini.Transcriber, error) {
	if cfg.TranscribeBackend == config.BackendGemini {
		return gemini.NewAPI(ctx, cfg.GeminiAPIKey, cfg.TranscribeModel)
	}
	return gemini.NewVertex(ctx, cfg.ProjectID, cfg.VertexLocation(), cfg.TranscribeModel)
}
