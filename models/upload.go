// models/upload.go
package models

import "time"

// AudioMetadata describes an audio payload headed for IPFS.
type AudioMetadata struct {
	Filename    string  `json:"filename"`
	ContentType string  `json:"content_type"`
	Duration    float64 `json:"duration,omitempty"` // seconds
	Title       string  `json:"title,omitempty"`
	UserID      string  `json:"user_id,omitempty"`
}

// UploadOptions override the service defaults for a single upload. Zero values mean "use default".
type UploadOptions struct {
	MaxRetries int           `json:"max_retries,omitempty"`
	RetryDelay time.Duration `json:"retry_delay,omitempty"`
}

// UploadResult is the provider-independent shape of a pinned file.
type UploadResult struct {
	Hash     string `json:"hash"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
	Provider string `json:"provider"`
	Attempts int    `json:"attempts"`
}

// StagedAudio is an upload parked on local disk after every provider failed.
type StagedAudio struct {
	ID            string        `json:"id"`
	Metadata      AudioMetadata `json:"metadata"`
	Size          int64         `json:"size"`
	RetryCount    int           `json:"retry_count"`
	CreatedAt     time.Time     `json:"created_at"`
	LastAttemptAt time.Time     `json:"last_attempt_at"`
	LastError     string        `json:"last_error,omitempty"`
	// Result and UploadedAt are set once a sweep pins the audio.
	Result     *UploadResult `json:"result,omitempty"`
	UploadedAt *time.Time    `json:"uploaded_at,omitempty"`
}

func (s *StagedAudio) Uploaded() bool { return s.UploadedAt != nil }

// UploadOutcome carries either a pinned result or the staged record.
type UploadOutcome struct {
	Result *UploadResult `json:"result,omitempty"`
	Staged *StagedAudio  `json:"staged,omitempty"`
}

// SweepReport summarizes one pass over the staging directory.
type SweepReport struct {
	Scanned  int `json:"scanned"`
	Retried  int `json:"retried"`
	Uploaded int `json:"uploaded"`
	Failed   int `json:"failed"`
	Expired  int `json:"expired"`
}
