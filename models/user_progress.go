// models/user_progress.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Milestone string

const (
	MilestoneSubmission      Milestone = "submission"
	MilestoneQualityApproved Milestone = "quality_approved"
	MilestoneFeatured        Milestone = "featured"
)

// MilestoneSequence is the only order milestones can complete in.
var MilestoneSequence = []Milestone{
	MilestoneSubmission,
	MilestoneQualityApproved,
	MilestoneFeatured,
}

func (m Milestone) Valid() bool {
	for _, s := range MilestoneSequence {
		if s == m {
			return true
		}
	}
	return false
}

// MilestoneProgress tracks one submitted response through the milestone sequence.
type MilestoneProgress struct {
	ID                  string          `json:"id"` // userID:missionID:responseID
	UserID              string          `json:"user_id"`
	MissionID           string          `json:"mission_id"`
	ResponseID          string          `json:"response_id"`
	CompletedMilestones []Milestone     `json:"completed_milestones"`
	TotalEarned         decimal.Decimal `json:"total_earned"`
	NextMilestone       Milestone       `json:"next_milestone,omitempty"` // empty once all are done
	QualityScore        *float64        `json:"quality_score,omitempty"`

	Timestamps
}

// Timestamps mirrors the auto-times every stored document carries.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func MilestoneProgressID(userID, missionID, responseID string) string {
	return userID + ":" + missionID + ":" + responseID
}

func (p *MilestoneProgress) HasCompleted(m Milestone) bool {
	for _, done := range p.CompletedMilestones {
		if done == m {
			return true
		}
	}
	return false
}
