// models/reward.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RewardStatus is the ledger state of a single reward record
type RewardStatus string

const (
	RewardStatusPending RewardStatus = "pending"
	RewardStatusClaimed RewardStatus = "claimed"
)

// ClaimStatus tracks a batched payout request
type ClaimStatus string

const (
	ClaimStatusPending   ClaimStatus = "pending"
	ClaimStatusCompleted ClaimStatus = "completed"
	ClaimStatusFailed    ClaimStatus = "failed"
)

// RewardRecord is a ledger entry for tokens earned by completing one milestone.
// Exactly one exists per (user, mission, response, milestone).
type RewardRecord struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	MissionID  string          `json:"mission_id"`
	ResponseID string          `json:"response_id"`
	Milestone  Milestone       `json:"milestone"`
	Amount     decimal.Decimal `json:"amount"`
	Status     RewardStatus    `json:"status"`
	ClaimID    string          `json:"claim_id,omitempty"`
	EarnedAt   time.Time       `json:"earned_at"`
}

// RewardClaim batches pending reward records into one payout request
type RewardClaim struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	RewardIDs   []string        `json:"reward_ids"`
	Status      ClaimStatus     `json:"status"`
	RetryCount  int             `json:"retry_count"`
	TxHash      string          `json:"tx_hash,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	ClaimedAt   time.Time       `json:"claimed_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RewardRecordID is derived from the tuple so a second insert lands on the same key.
func RewardRecordID(userID, missionID, responseID string, milestone Milestone) string {
	return MilestoneProgressID(userID, missionID, responseID) + ":" + string(milestone)
}
