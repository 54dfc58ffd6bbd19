// models/mission.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Mission is a platform-defined prompt users record content for in exchange for tokens.
type Mission struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	Topic               string          `json:"topic"`
	TopicSlug           string          `json:"topic_slug"`
	Difficulty          Difficulty      `json:"difficulty"`
	RewardAmount        decimal.Decimal `json:"reward_amount"`
	ExpiresAt           time.Time       `json:"expires_at"`
	MaxParticipants     int             `json:"max_participants"` // 0 = unlimited
	CurrentParticipants int             `json:"current_participants"`
	IsActive            bool            `json:"is_active"`
	Tags                []string        `json:"tags"`
	CreatedBy           string          `json:"created_by"`

	Language       string `json:"language,omitempty"`
	TargetDuration int    `json:"target_duration,omitempty"` // seconds
	ContextNote    string `json:"context_note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAcceptable reports whether the mission can take new participants at now.
func (m *Mission) IsAcceptable(now time.Time) bool {
	return m.IsActive && m.ExpiresAt.After(now) && !m.IsFull()
}

func (m *Mission) IsFull() bool {
	return m.MaxParticipants > 0 && m.CurrentParticipants >= m.MaxParticipants
}

type UserMissionStatus string

const (
	UserMissionAccepted  UserMissionStatus = "accepted"
	UserMissionSubmitted UserMissionStatus = "submitted"
)

// UserMission links a user to a mission they accepted.
type UserMission struct {
	ID         string            `json:"id"` // userID:missionID
	UserID     string            `json:"user_id"`
	MissionID  string            `json:"mission_id"`
	Status     UserMissionStatus `json:"status"`
	AcceptedAt time.Time         `json:"accepted_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func UserMissionID(userID, missionID string) string {
	return userID + ":" + missionID
}
