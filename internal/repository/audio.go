package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"channel-relay/internal/domain"
)

const DefaultAudioCollection = "audioFiles"

// AudioFiles stores synthesized audio metadata keyed by audio id.
type AudioFiles struct {
	docs       documentAPI
	collection string
}

func NewAudioFiles(docs documentAPI, collection string) (*AudioFiles, error) {
	if docs == nil {
		return nil, errors.New("repository: documents api must not be nil")
	}
	if strings.TrimSpace(collection) == "" {
		collection = DefaultAudioCollection
	}
	return &AudioFiles{docs: docs, collection: collection}, nil
}

func (a *AudioFiles) Save(ctx context.Context, f domain.AudioFile) error {
	if strings.TrimSpace(f.ID) == "" {
		return errors.New("repository: audio id must not be empty")
	}
	data := map[string]any{
		"audioId":       f.ID,
		"fileName":      f.FileName,
		"filePath":      f.FilePath,
		"publicUrl":     f.PublicURL,
		"bucketName":    f.BucketName,
		"originalText":  f.OriginalText,
		"textLength":    f.TextLength,
		"audioSize":     f.AudioSize,
		"mimeType":      f.MimeType,
		"voice":         voiceMap(f.Voice),
		"audioConfig":   audioConfigMap(f.AudioConfig),
		"source":        f.Source,
		"isPublic":      f.IsPublic,
		"downloadCount": f.DownloadCount,
		"playCount":     f.PlayCount,
		"status":        f.Status,
		"metadata":      stringMap(f.Metadata),
		fieldCreatedAt:  serverTime{},
		fieldUpdatedAt:  serverTime{},
	}
	if err := a.docs.Create(ctx, a.collection, f.ID, data); err != nil {
		return fmt.Errorf("repository: save audio %s: %w", f.ID, err)
	}
	return nil
}

// Get returns ErrNotFound (wrapped) when the audio record does not exist.
func (a *AudioFiles) Get(ctx context.Context, id string) (domain.AudioFile, error) {
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		return domain.AudioFile{}, fmt.Errorf("repository: invalid audio id %q", id)
	}
	data, err := a.docs.Get(ctx, a.collection, id)
	if err != nil {
		return domain.AudioFile{}, fmt.Errorf("repository: get audio %s: %w", id, err)
	}
	return toAudioFile(id, data), nil
}

// IncrementCounter bumps playCount or downloadCount.
func (a *AudioFiles) IncrementCounter(ctx context.Context, id, counter string) error {
	if counter != domain.CounterPlay && counter != domain.CounterDownload {
		return fmt.Errorf("repository: unknown audio counter %q", counter)
	}
	err := a.docs.Update(ctx, a.collection, id, map[string]any{
		counter:        increment(1),
		fieldUpdatedAt: serverTime{},
	})
	if err != nil {
		return fmt.Errorf("repository: increment %s on %s: %w", counter, id, err)
	}
	return nil
}

func voiceMap(v domain.Voice) map[string]any {
	return map[string]any{
		"languageCode": v.LanguageCode,
		"name":         v.Name,
		"ssmlGender":   v.SSMLGender,
	}
}

func audioConfigMap(c domain.AudioConfig) map[string]any {
	return map[string]any{
		"audioEncoding": c.AudioEncoding,
		"speakingRate":  c.SpeakingRate,
		"pitch":         c.Pitch,
		"volumeGainDb":  c.VolumeGainDb,
	}
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toAudioFile(id string, data map[string]any) domain.AudioFile {
	str := func(m map[string]any, k string) string {
		s, _ := m[k].(string)
		return s
	}
	num := func(m map[string]any, k string) float64 {
		switch n := m[k].(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		case int:
			return float64(n)
		}
		return 0
	}

	f := domain.AudioFile{
		ID:            id,
		FileName:      str(data, "fileName"),
		FilePath:      str(data, "filePath"),
		BucketName:    str(data, "bucketName"),
		PublicURL:     str(data, "publicUrl"),
		OriginalText:  str(data, "originalText"),
		TextLength:    toInt(data["textLength"]),
		AudioSize:     toInt(data["audioSize"]),
		MimeType:      str(data, "mimeType"),
		Source:        str(data, "source"),
		DownloadCount: toInt(data["downloadCount"]),
		PlayCount:     toInt(data["playCount"]),
		Status:        str(data, "status"),
	}
	f.IsPublic, _ = data["isPublic"].(bool)
	f.CreatedAt, _ = data[fieldCreatedAt].(time.Time)
	f.UpdatedAt, _ = data[fieldUpdatedAt].(time.Time)

	if v, ok := data["voice"].(map[string]any); ok {
		f.Voice = domain.Voice{
			LanguageCode: str(v, "languageCode"),
			Name:         str(v, "name"),
			SSMLGender:   str(v, "ssmlGender"),
		}
	}
	if c, ok := data["audioConfig"].(map[string]any); ok {
		f.AudioConfig = domain.AudioConfig{
			AudioEncoding: str(c, "audioEncoding"),
			SpeakingRate:  num(c, "speakingRate"),
			Pitch:         num(c, "pitch"),
			VolumeGainDb:  num(c, "volumeGainDb"),
		}
	}
	if m, ok := data["metadata"].(map[string]any); ok && len(m) > 0 {
		f.Metadata = make(map[string]string, len(m))
		for k, v := range m {
			if s, ok := v.(string); ok {
				f.Metadata[k] = s
			}
		}
	}
	return f
}
