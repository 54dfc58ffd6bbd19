// models/mission_response.go
package models

import "time"

type ResponseStatus string

const (
	ResponseStatusPending  ResponseStatus = "pending"
	ResponseStatusApproved ResponseStatus = "approved"
	ResponseStatusFlagged  ResponseStatus = "flagged"
	ResponseStatusRemoved  ResponseStatus = "removed"
)

func (s ResponseStatus) Valid() bool {
	switch s {
	case ResponseStatusPending, ResponseStatusApproved, ResponseStatusFlagged, ResponseStatusRemoved:
		return true
	}
	return false
}

type Location struct {
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

type ConsentFlags struct {
	Publish      bool `json:"publish"`
	AIProcessing bool `json:"ai_processing"`
	Anonymize    bool `json:"anonymize"`
}

// MissionResponse is a user's submitted recording for a mission.
// Only moderation touches it after creation.
type MissionResponse struct {
	ID             string         `json:"id"`
	MissionID      string         `json:"mission_id"`
	UserID         string         `json:"user_id"`
	RecordingID    string         `json:"recording_id"`
	IPFSHash       string         `json:"ipfs_hash,omitempty"`
	Location       Location       `json:"location"`
	Context        string         `json:"context,omitempty"`
	Consent        ConsentFlags   `json:"consent"`
	QualityScore   *float64       `json:"quality_score,omitempty"`
	Status         ResponseStatus `json:"status"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	ModeratedAt    *time.Time     `json:"moderated_at,omitempty"`
	ModerationNote string         `json:"moderation_note,omitempty"`
}
