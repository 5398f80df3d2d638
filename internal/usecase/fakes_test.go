package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"channel-relay/internal/domain"
	"channel-relay/internal/integrations/gcs"
	"channel-relay/internal/integrations/tts"
	"channel-relay/internal/integrations/vision"
	"channel-relay/internal/repository"
)

type agentCall struct {
	text, sessionID, language string
}

type fakeAgent struct {
	result domain.TurnResult
	err    error
	calls  []agentCall
}

func (f *fakeAgent) SendMessage(_ context.Context, text, sessionID, languageCode string) (domain.TurnResult, error) {
	f.calls = append(f.calls, agentCall{text, sessionID, languageCode})
	return f.result, f.err
}

type sentMessage struct {
	body, from, to string
}

type fakeMessenger struct {
	sent    []sentMessage
	sms     []sentMessage
	err     error
	nextSID string
}

func (f *fakeMessenger) SendText(_ context.Context, body, from, to string) (domain.Receipt, error) {
	if f.err != nil {
		return domain.Receipt{}, f.err
	}
	f.sent = append(f.sent, sentMessage{body, from, to})
	return domain.Receipt{SID: f.sid(), Status: "queued"}, nil
}

func (f *fakeMessenger) SendSMS(_ context.Context, to, body string) (domain.Receipt, error) {
	if f.err != nil {
		return domain.Receipt{}, f.err
	}
	f.sms = append(f.sms, sentMessage{body: body, to: to})
	return domain.Receipt{SID: f.sid(), Status: "queued"}, nil
}

func (f *fakeMessenger) sid() string {
	if f.nextSID == "" {
		return "SM0001"
	}
	return f.nextSID
}

type fakeMedia struct {
	data    []byte
	err     error
	fetched []string
}

func (f *fakeMedia) Fetch(_ context.Context, url string) ([]byte, error) {
	f.fetched = append(f.fetched, url)
	return f.data, f.err
}

type fakeTranscriber struct {
	text     string
	err      error
	mimeType string
	calls    int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, mimeType string, _ []byte) (string, error) {
	f.calls++
	f.mimeType = mimeType
	return f.text, f.err
}

type fakeAnnotator struct {
	ann   vision.Annotation
	err   error
	calls int
}

func (f *fakeAnnotator) Annotate(_ context.Context, _ []byte) (vision.Annotation, error) {
	f.calls++
	return f.ann, f.err
}

type fakeSessions struct {
	mu         sync.Mutex
	existing   map[string]bool
	created    map[string]map[string]any
	increments map[string]int
	resets     map[string]int
	err        error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		existing:   map[string]bool{},
		created:    map[string]map[string]any{},
		increments: map[string]int{},
		resets:     map[string]int{},
	}
}

func (f *fakeSessions) Exists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[id], f.err
}

func (f *fakeSessions) CreateOrUpdate(_ context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.existing[id] = true
	f.created[id] = fields
	return nil
}

func (f *fakeSessions) IncrementErrorCount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments[id]++
	return f.err
}

func (f *fakeSessions) ResetErrorCount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[id]++
	return f.err
}

type fakeLedger struct {
	claimed   map[string]string
	claimedAt map[string]time.Time
	claimErr  error
	released  []string
	completed map[string]string
	lease     time.Duration
	now       time.Time
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		claimed:   map[string]string{},
		claimedAt: map[string]time.Time{},
		completed: map[string]string{},
		lease:     repository.DefaultClaimLease,
		now:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

// Claim mirrors the ledger's condition: a processing claim older than the
// lease can be taken over.
func (f *fakeLedger) Claim(_ context.Context, id string) error {
	if f.claimErr != nil {
		return f.claimErr
	}
	if status, ok := f.claimed[id]; ok {
		stale := status == repository.StatusProcessing && f.claimedAt[id].Before(f.now.Add(-f.lease))
		if !stale {
			return repository.ErrAlreadyClaimed
		}
	}
	f.claimed[id] = repository.StatusProcessing
	f.claimedAt[id] = f.now
	return nil
}

func (f *fakeLedger) Complete(_ context.Context, id, replyID string) error {
	f.claimed[id] = repository.StatusComplete
	f.completed[id] = replyID
	return nil
}

func (f *fakeLedger) Release(_ context.Context, id string) error {
	delete(f.claimed, id)
	f.released = append(f.released, id)
	return nil
}

func (f *fakeLedger) Status(_ context.Context, id string) (string, error) {
	return f.claimed[id], nil
}

type fakeSynth struct {
	audio []byte
	err   error
	voice domain.Voice
}

func (f *fakeSynth) Synthesize(_ context.Context, _ string, voice domain.Voice, cfg domain.AudioConfig) (tts.Speech, error) {
	if f.err != nil {
		return tts.Speech{}, f.err
	}
	f.voice = voice
	voice = tts.MergeVoice(voice)
	cfg = tts.MergeAudioConfig(cfg)
	return tts.Speech{Audio: f.audio, Voice: voice, AudioConfig: cfg, MimeType: tts.ContentType(cfg.AudioEncoding)}, nil
}

type fakeObjects struct {
	uploads []gcs.Object
	public  []bool
	err     error
}

func (f *fakeObjects) Upload(_ context.Context, obj gcs.Object, public bool) (gcs.Upload, error) {
	if f.err != nil {
		return gcs.Upload{}, f.err
	}
	f.uploads = append(f.uploads, obj)
	f.public = append(f.public, public)
	return gcs.Upload{
		BucketName: obj.Bucket,
		FilePath:   obj.Path,
		PublicURL:  gcs.PublicURL(obj.Bucket, obj.Path),
		FileSize:   len(obj.Data),
	}, nil
}

type fakeAudioStore struct {
	files    map[string]domain.AudioFile
	counters map[string]int
	saveErr  error
}

func newFakeAudioStore() *fakeAudioStore {
	return &fakeAudioStore{files: map[string]domain.AudioFile{}, counters: map[string]int{}}
}

func (f *fakeAudioStore) Save(_ context.Context, a domain.AudioFile) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.files[a.ID] = a
	return nil
}

func (f *fakeAudioStore) Get(_ context.Context, id string) (domain.AudioFile, error) {
	a, ok := f.files[id]
	if !ok {
		return domain.AudioFile{}, repository.ErrNotFound
	}
	return a, nil
}

func (f *fakeAudioStore) IncrementCounter(_ context.Context, id, counter string) error {
	if _, ok := f.files[id]; !ok {
		return repository.ErrNotFound
	}
	f.counters[id+"/"+counter]++
	return nil
}

var errUpstream = errors.New("upstream unavailable")
