// services/reward_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"voisss-backend/database"
	"voisss-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrMilestoneOutOfOrder = errors.New("milestone completed out of order")
	ErrUnknownMilestone    = errors.New("unknown milestone")
	ErrNoPendingRewards    = errors.New("no pending rewards to claim")
	ErrClaimNotFound       = errors.New("reward claim not found")
	ErrClaimNotPending     = errors.New("reward claim is not pending")
)

// MilestoneMultipliers scale a mission's reward amount per milestone.
var MilestoneMultipliers = map[models.Milestone]decimal.Decimal{
	models.MilestoneSubmission:      decimal.NewFromInt(1),
	models.MilestoneQualityApproved: decimal.NewFromFloat(0.5),
	models.MilestoneFeatured:        decimal.NewFromInt(2),
}

type RewardService struct {
	DB       database.Store
	Missions *MissionService
	now      func() time.Time

	// mu covers progress and ledger writes so concurrent completions cannot double-pay.
	mu sync.Mutex
}

func NewRewardService(db database.Store, missions *MissionService) *RewardService {
	return &RewardService{DB: db, Missions: missions, now: time.Now}
}

func (s *RewardService) GetMilestoneProgress(ctx context.Context, userID, missionID, responseID string) (*models.MilestoneProgress, error) {
	return database.Get[models.MilestoneProgress](ctx, s.DB, CollectionProgress, models.MilestoneProgressID(userID, missionID, responseID))
}

// CompleteMilestone records milestone for the response and books its reward.
// Completing an already completed milestone returns the stored progress untouched.
func (s *RewardService) CompleteMilestone(ctx context.Context, userID, missionID, responseID string, milestone models.Milestone, qualityScore *float64) (*models.MilestoneProgress, error) {
	if !milestone.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMilestone, milestone)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mission, err := s.Missions.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	resp, err := s.Missions.GetResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if resp.UserID != userID || resp.MissionID != missionID {
		return nil, fmt.Errorf("%w: %s is not %s's response to %s", ErrResponseNotFound, responseID, userID, missionID)
	}

	now := s.now()
	progID := models.MilestoneProgressID(userID, missionID, responseID)
	prog, err := database.Get[models.MilestoneProgress](ctx, s.DB, CollectionProgress, progID)
	switch {
	case database.IsNotFound(err):
		prog = &models.MilestoneProgress{
			ID:            progID,
			UserID:        userID,
			MissionID:     missionID,
			ResponseID:    responseID,
			TotalEarned:   decimal.Zero,
			NextMilestone: models.MilestoneSequence[0],
			Timestamps:    models.Timestamps{CreatedAt: now},
		}
	case err != nil:
		return nil, err
	}

	if prog.HasCompleted(milestone) {
		return prog, nil
	}
	if milestone != prog.NextMilestone {
		return nil, fmt.Errorf("%w: expected %q, got %q", ErrMilestoneOutOfOrder, prog.NextMilestone, milestone)
	}

	// A record can outlive a failed progress write. It may be claimed by now,
	// so it is reused as stored and never rewritten.
	recID := models.RewardRecordID(userID, missionID, responseID, milestone)
	record, err := database.Get[models.RewardRecord](ctx, s.DB, CollectionRewards, recID)
	switch {
	case database.IsNotFound(err):
		record = &models.RewardRecord{
			ID:         recID,
			UserID:     userID,
			MissionID:  missionID,
			ResponseID: responseID,
			Milestone:  milestone,
			Amount:     mission.RewardAmount.Mul(MilestoneMultipliers[milestone]),
			Status:     models.RewardStatusPending,
			EarnedAt:   now,
		}
		if err := database.Put(ctx, s.DB, CollectionRewards, record.ID, record); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		log.Printf("⚠️ [REWARDS] repairing progress for existing record %s (%s)", recID, record.Status)
	}
	amount := record.Amount

	prog.CompletedMilestones = append(prog.CompletedMilestones, milestone)
	prog.TotalEarned = prog.TotalEarned.Add(amount)
	prog.NextMilestone = nextMilestone(prog)
	if qualityScore != nil {
		prog.QualityScore = qualityScore
	}
	prog.UpdatedAt = now
	if err := database.Put(ctx, s.DB, CollectionProgress, prog.ID, prog); err != nil {
		return nil, err
	}

	log.Printf("🏅 [REWARDS] %s completed %s on %s/%s (+%s)", userID, milestone, missionID, responseID, amount)
	return prog, nil
}

// nextMilestone walks the sequence to the first entry not yet completed.
func nextMilestone(p *models.MilestoneProgress) models.Milestone {
	for _, m := range models.MilestoneSequence {
		if !p.HasCompleted(m) {
			return m
		}
	}
	return ""
}

// GetUserRewards lists the user's ledger, newest first. An empty status returns everything.
func (s *RewardService) GetUserRewards(ctx context.Context, userID string, status models.RewardStatus) ([]models.RewardRecord, error) {
	out, err := database.GetWhere(ctx, s.DB, CollectionRewards, func(r models.RewardRecord) bool {
		return r.UserID == userID && (status == "" || r.Status == status)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EarnedAt.After(out[j].EarnedAt) })
	return out, nil
}

// GetRewardsSince returns the user's records earned strictly after since, oldest first.
func (s *RewardService) GetRewardsSince(ctx context.Context, userID string, since time.Time) ([]models.RewardRecord, error) {
	out, err := database.GetWhere(ctx, s.DB, CollectionRewards, func(r models.RewardRecord) bool {
		return r.UserID == userID && r.EarnedAt.After(since)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EarnedAt.Before(out[j].EarnedAt) })
	return out, nil
}

func (s *RewardService) GetPendingTotal(ctx context.Context, userID string) (decimal.Decimal, error) {
	pending, err := s.GetUserRewards(ctx, userID, models.RewardStatusPending)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, r := range pending {
		total = total.Add(r.Amount)
	}
	return total, nil
}

// ClaimRewards batches the caller's matching pending rewards into one claim.
// Nothing is written when no requested id is a pending reward owned by userID.
func (s *RewardService) ClaimRewards(ctx context.Context, userID string, rewardIDs []string) (*models.RewardClaim, error) {
	if userID == "" || len(rewardIDs) == 0 {
		return nil, ErrNoPendingRewards
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(rewardIDs))
	for _, id := range rewardIDs {
		wanted[id] = true
	}
	matched, err := database.GetWhere(ctx, s.DB, CollectionRewards, func(r models.RewardRecord) bool {
		return wanted[r.ID] && r.UserID == userID && r.Status == models.RewardStatusPending
	})
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, ErrNoPendingRewards
	}

	now := s.now()
	claim := &models.RewardClaim{
		ID:          uuid.NewString(),
		UserID:      userID,
		TotalAmount: decimal.Zero,
		RewardIDs:   make([]string, 0, len(matched)),
		Status:      models.ClaimStatusPending,
		ClaimedAt:   now,
		UpdatedAt:   now,
	}
	for _, r := range matched {
		claim.TotalAmount = claim.TotalAmount.Add(r.Amount)
		claim.RewardIDs = append(claim.RewardIDs, r.ID)
	}

	if err := database.Put(ctx, s.DB, CollectionClaims, claim.ID, claim); err != nil {
		return nil, err
	}
	for _, r := range matched {
		if err := database.Update(ctx, s.DB, CollectionRewards, r.ID, map[string]any{
			"status":   models.RewardStatusClaimed,
			"claim_id": claim.ID,
		}); err != nil {
			return nil, err
		}
	}

	log.Printf("💰 [REWARDS] claim %s for %s: %d rewards, total %s", claim.ID, userID, len(matched), claim.TotalAmount)
	return claim, nil
}

func (s *RewardService) GetClaim(ctx context.Context, claimID string) (*models.RewardClaim, error) {
	c, err := database.Get[models.RewardClaim](ctx, s.DB, CollectionClaims, claimID)
	if database.IsNotFound(err) {
		return nil, ErrClaimNotFound
	}
	return c, err
}

// CompleteClaim marks a pending claim as paid out.
func (s *RewardService) CompleteClaim(ctx context.Context, claimID, txHash string) (*models.RewardClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status == models.ClaimStatusCompleted {
		return nil, ErrClaimNotPending
	}
	claim.Status = models.ClaimStatusCompleted
	claim.TxHash = txHash
	claim.LastError = ""
	claim.UpdatedAt = s.now()
	if err := database.Put(ctx, s.DB, CollectionClaims, claim.ID, claim); err != nil {
		return nil, err
	}
	log.Printf("✅ [REWARDS] claim %s completed (tx %s)", claim.ID, txHash)
	return claim, nil
}

// FailClaim records a failed payout attempt. The claim stays retryable.
func (s *RewardService) FailClaim(ctx context.Context, claimID, cause string) (*models.RewardClaim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, err := s.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status == models.ClaimStatusCompleted {
		return nil, ErrClaimNotPending
	}
	claim.Status = models.ClaimStatusFailed
	claim.RetryCount++
	claim.LastError = cause
	claim.UpdatedAt = s.now()
	if err := database.Put(ctx, s.DB, CollectionClaims, claim.ID, claim); err != nil {
		return nil, err
	}
	log.Printf("⚠️ [REWARDS] claim %s failed (retry %d): %s", claim.ID, claim.RetryCount, cause)
	return claim, nil
}

func (s *RewardService) GetUserClaims(ctx context.Context, userID string) ([]models.RewardClaim, error) {
	out, err := database.GetWhere(ctx, s.DB, CollectionClaims, func(c models.RewardClaim) bool {
		return c.UserID == userID
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ClaimedAt.After(out[j].ClaimedAt) })
	return out, nil
}
