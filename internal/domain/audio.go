package domain

import "time"

const (
	AudioStatusActive = "active"

	CounterPlay     = "playCount"
	CounterDownload = "downloadCount"
)

// Voice selects a Text-to-Speech voice.
type Voice struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
	SSMLGender   string `json:"ssmlGender"`
}

// AudioConfig controls the encoding of synthesized speech.
type AudioConfig struct {
	AudioEncoding string  `json:"audioEncoding"`
	SpeakingRate  float64 `json:"speakingRate"`
	Pitch         float64 `json:"pitch"`
	VolumeGainDb  float64 `json:"volumeGainDb"`
}

// AudioFile is the metadata record of one synthesized and uploaded audio object.
type AudioFile struct {
	ID            string            `json:"audioId"`
	FileName      string            `json:"fileName"`
	FilePath      string            `json:"filePath"`
	BucketName    string            `json:"bucketName"`
	PublicURL     string            `json:"publicUrl"`
	OriginalText  string            `json:"originalText"`
	TextLength    int               `json:"textLength"`
	AudioSize     int               `json:"audioSize"`
	MimeType      string            `json:"mimeType"`
	Voice         Voice             `json:"voice"`
	AudioConfig   AudioConfig       `json:"audioConfig"`
	Source        string            `json:"source"`
	IsPublic      bool              `json:"isPublic"`
	DownloadCount int               `json:"downloadCount"`
	PlayCount     int               `json:"playCount"`
	Status        string            `json:"status"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}
