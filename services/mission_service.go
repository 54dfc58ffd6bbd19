// services/mission_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"voisss-backend/database"
	"voisss-backend/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	CollectionMissions     = "missions"
	CollectionUserMissions = "user_missions"
	CollectionResponses    = "mission_responses"
	CollectionProgress     = "milestone_progress"
	CollectionRewards      = "reward_records"
	CollectionClaims       = "reward_claims"
)

var (
	ErrMissionNotFound  = errors.New("mission not found")
	ErrResponseNotFound = errors.New("mission response not found")
	ErrInvalidMission   = errors.New("invalid mission")
	ErrInvalidResponse  = errors.New("invalid mission response")
)

var topicTitle = cases.Title(language.English)

type MissionService struct {
	DB  database.Store
	now func() time.Time

	// mu serializes read-modify-write sequences on missions (participant counts).
	mu sync.Mutex
}

func NewMissionService(db database.Store) *MissionService {
	return &MissionService{DB: db, now: time.Now}
}

// Init seeds the default missions when the store has none. Safe to call repeatedly.
func (s *MissionService) Init(ctx context.Context) error {
	n, err := database.Count(ctx, s.DB, CollectionMissions)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	seeds := DefaultMissions(s.now())
	for i := range seeds {
		if err := database.Put(ctx, s.DB, CollectionMissions, seeds[i].ID, &seeds[i]); err != nil {
			return err
		}
	}
	log.Printf("🌱 [MISSIONS] seeded %d default missions", len(seeds))
	return nil
}

// GetActiveMissions returns active, unexpired missions, newest first.
func (s *MissionService) GetActiveMissions(ctx context.Context) ([]models.Mission, error) {
	now := s.now()
	missions, err := database.GetWhere(ctx, s.DB, CollectionMissions, func(m models.Mission) bool {
		return m.IsActive && m.ExpiresAt.After(now)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(missions, func(i, j int) bool {
		return missions[i].CreatedAt.After(missions[j].CreatedAt)
	})
	return missions, nil
}

func (s *MissionService) GetMission(ctx context.Context, id string) (*models.Mission, error) {
	m, err := database.Get[models.Mission](ctx, s.DB, CollectionMissions, id)
	if database.IsNotFound(err) {
		return nil, ErrMissionNotFound
	}
	return m, err
}

type CreateMissionInput struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Topic           string            `json:"topic"`
	Difficulty      models.Difficulty `json:"difficulty"`
	RewardAmount    decimal.Decimal   `json:"reward_amount"`
	ExpiresAt       time.Time         `json:"expires_at"`
	MaxParticipants int               `json:"max_participants"`
	Tags            []string          `json:"tags"`
	CreatedBy       string            `json:"created_by"`
	Language        string            `json:"language"`
	TargetDuration  int               `json:"target_duration"`
	ContextNote     string            `json:"context_note"`
}

func (in *CreateMissionInput) validate(now time.Time) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidMission)
	case strings.TrimSpace(in.Topic) == "":
		return fmt.Errorf("%w: topic is required", ErrInvalidMission)
	case !in.Difficulty.Valid():
		return fmt.Errorf("%w: difficulty must be easy, medium or hard", ErrInvalidMission)
	case !in.RewardAmount.IsPositive():
		return fmt.Errorf("%w: reward_amount must be positive", ErrInvalidMission)
	case !in.ExpiresAt.After(now):
		return fmt.Errorf("%w: expires_at must be in the future", ErrInvalidMission)
	case in.MaxParticipants < 0:
		return fmt.Errorf("%w: max_participants cannot be negative", ErrInvalidMission)
	}
	return nil
}

func (s *MissionService) CreateMission(ctx context.Context, in CreateMissionInput) (*models.Mission, error) {
	now := s.now()
	if err := in.validate(now); err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(in.Topic)
	m := &models.Mission{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Topic:           topicTitle.String(topic),
		TopicSlug:       slug.Make(topic),
		Difficulty:      in.Difficulty,
		RewardAmount:    in.RewardAmount,
		ExpiresAt:       in.ExpiresAt,
		MaxParticipants: in.MaxParticipants,
		IsActive:        true,
		Tags:            normalizeTags(in.Tags),
		CreatedBy:       in.CreatedBy,
		Language:        in.Language,
		TargetDuration:  in.TargetDuration,
		ContextNote:     in.ContextNote,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := database.Put(ctx, s.DB, CollectionMissions, m.ID, m); err != nil {
		return nil, err
	}
	log.Printf("✅ [MISSIONS] created %s (%q, reward=%s)", m.ID, m.Title, m.RewardAmount)
	return m, nil
}

// MissionPatch holds optional updates; nil fields are left alone.
type MissionPatch struct {
	Title           *string            `json:"title"`
	Description     *string            `json:"description"`
	Topic           *string            `json:"topic"`
	Difficulty      *models.Difficulty `json:"difficulty"`
	RewardAmount    *decimal.Decimal   `json:"reward_amount"`
	ExpiresAt       *time.Time         `json:"expires_at"`
	MaxParticipants *int               `json:"max_participants"`
	IsActive        *bool              `json:"is_active"`
	Tags            []string           `json:"tags"`
	ContextNote     *string            `json:"context_note"`
}

func (s *MissionService) UpdateMission(ctx context.Context, id string, p MissionPatch) (*models.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.GetMission(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidMission)
		}
		m.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.Topic != nil {
		m.Topic = topicTitle.String(strings.TrimSpace(*p.Topic))
		m.TopicSlug = slug.Make(*p.Topic)
	}
	if p.Difficulty != nil {
		if !p.Difficulty.Valid() {
			return nil, fmt.Errorf("%w: difficulty must be easy, medium or hard", ErrInvalidMission)
		}
		m.Difficulty = *p.Difficulty
	}
	if p.RewardAmount != nil {
		if !p.RewardAmount.IsPositive() {
			return nil, fmt.Errorf("%w: reward_amount must be positive", ErrInvalidMission)
		}
		m.RewardAmount = *p.RewardAmount
	}
	if p.ExpiresAt != nil {
		m.ExpiresAt = *p.ExpiresAt
	}
	if p.MaxParticipants != nil {
		if *p.MaxParticipants > 0 && *p.MaxParticipants < m.CurrentParticipants {
			return nil, fmt.Errorf("%w: max_participants below current participants (%d)", ErrInvalidMission, m.CurrentParticipants)
		}
		if *p.MaxParticipants < 0 {
			return nil, fmt.Errorf("%w: max_participants cannot be negative", ErrInvalidMission)
		}
		m.MaxParticipants = *p.MaxParticipants
	}
	if p.IsActive != nil {
		m.IsActive = *p.IsActive
	}
	if p.Tags != nil {
		m.Tags = normalizeTags(p.Tags)
	}
	if p.ContextNote != nil {
		m.ContextNote = *p.ContextNote
	}
	m.UpdatedAt = s.now()

	if err := database.Put(ctx, s.DB, CollectionMissions, m.ID, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeactivateExpired flips IsActive off for every mission past its expiry.
func (s *MissionService) DeactivateExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expired, err := database.GetWhere(ctx, s.DB, CollectionMissions, func(m models.Mission) bool {
		return m.IsActive && !m.ExpiresAt.After(now)
	})
	if err != nil {
		return 0, err
	}
	for _, m := range expired {
		if err := database.Update(ctx, s.DB, CollectionMissions, m.ID, map[string]any{
			"is_active":  false,
			"updated_at": now,
		}); err != nil {
			return 0, err
		}
	}
	return len(expired), nil
}

// AcceptMission records the user on the mission. It returns false without an
// error when the mission is missing, inactive, expired, full, or already accepted.
func (s *MissionService) AcceptMission(ctx context.Context, missionID, userID string) (bool, error) {
	if missionID == "" || userID == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.GetMission(ctx, missionID)
	if errors.Is(err, ErrMissionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := s.now()
	if !m.IsAcceptable(now) {
		return false, nil
	}

	relID := models.UserMissionID(userID, missionID)
	_, err = database.Get[models.UserMission](ctx, s.DB, CollectionUserMissions, relID)
	if err == nil {
		return false, nil
	}
	if !database.IsNotFound(err) {
		return false, err
	}

	rel := &models.UserMission{
		ID:         relID,
		UserID:     userID,
		MissionID:  missionID,
		Status:     models.UserMissionAccepted,
		AcceptedAt: now,
		UpdatedAt:  now,
	}
	// Seat first: a relation must never exist without its count.
	if err := database.Update(ctx, s.DB, CollectionMissions, m.ID, map[string]any{
		"current_participants": m.CurrentParticipants + 1,
		"updated_at":           now,
	}); err != nil {
		return false, err
	}
	if err := database.Put(ctx, s.DB, CollectionUserMissions, rel.ID, rel); err != nil {
		if rbErr := database.Update(ctx, s.DB, CollectionMissions, m.ID, map[string]any{
			"current_participants": m.CurrentParticipants,
			"updated_at":           now,
		}); rbErr != nil {
			log.Printf("❌ [MISSIONS] could not release seat on %s after failed accept: %v", m.ID, rbErr)
		}
		return false, err
	}
	log.Printf("🎙️ [MISSIONS] user %s accepted %s (%d/%d)", userID, missionID, m.CurrentParticipants+1, m.MaxParticipants)
	return true, nil
}

func (s *MissionService) GetUserMissions(ctx context.Context, userID string) ([]models.UserMission, error) {
	return database.GetWhere(ctx, s.DB, CollectionUserMissions, func(um models.UserMission) bool {
		return um.UserID == userID
	})
}

type SubmitResponseInput struct {
	MissionID    string              `json:"mission_id"`
	UserID       string              `json:"user_id"`
	RecordingID  string              `json:"recording_id"`
	IPFSHash     string              `json:"ipfs_hash"`
	Location     models.Location     `json:"location"`
	Context      string              `json:"context"`
	Consent      models.ConsentFlags `json:"consent"`
	QualityScore *float64            `json:"quality_score"`
}

// SubmitMissionResponse appends a response. Acceptance is not required.
func (s *MissionService) SubmitMissionResponse(ctx context.Context, in SubmitResponseInput) (*models.MissionResponse, error) {
	if in.MissionID == "" || in.UserID == "" || in.RecordingID == "" {
		return nil, fmt.Errorf("%w: mission_id, user_id and recording_id are required", ErrInvalidResponse)
	}
	if in.QualityScore != nil && (*in.QualityScore < 0 || *in.QualityScore > 100) {
		return nil, fmt.Errorf("%w: quality_score must be within 0-100", ErrInvalidResponse)
	}
	if _, err := s.GetMission(ctx, in.MissionID); err != nil {
		return nil, err
	}

	now := s.now()
	resp := &models.MissionResponse{
		ID:           uuid.NewString(),
		MissionID:    in.MissionID,
		UserID:       in.UserID,
		RecordingID:  in.RecordingID,
		IPFSHash:     in.IPFSHash,
		Location:     in.Location,
		Context:      in.Context,
		Consent:      in.Consent,
		QualityScore: in.QualityScore,
		Status:       models.ResponseStatusPending,
		SubmittedAt:  now,
	}
	if err := database.Put(ctx, s.DB, CollectionResponses, resp.ID, resp); err != nil {
		return nil, err
	}

	relID := models.UserMissionID(in.UserID, in.MissionID)
	err := database.Update(ctx, s.DB, CollectionUserMissions, relID, map[string]any{
		"status":     models.UserMissionSubmitted,
		"updated_at": now,
	})
	if err != nil && !database.IsNotFound(err) {
		return nil, err
	}
	return resp, nil
}

func (s *MissionService) GetResponse(ctx context.Context, id string) (*models.MissionResponse, error) {
	r, err := database.Get[models.MissionResponse](ctx, s.DB, CollectionResponses, id)
	if database.IsNotFound(err) {
		return nil, ErrResponseNotFound
	}
	return r, err
}

func (s *MissionService) GetMissionResponses(ctx context.Context, missionID string) ([]models.MissionResponse, error) {
	out, err := database.GetWhere(ctx, s.DB, CollectionResponses, func(r models.MissionResponse) bool {
		return r.MissionID == missionID && r.Status != models.ResponseStatusRemoved
	})
	if err != nil {
		return nil, err
	}
	sortResponses(out)
	return out, nil
}

func (s *MissionService) GetUserResponses(ctx context.Context, userID string) ([]models.MissionResponse, error) {
	out, err := database.GetWhere(ctx, s.DB, CollectionResponses, func(r models.MissionResponse) bool {
		return r.UserID == userID
	})
	if err != nil {
		return nil, err
	}
	sortResponses(out)
	return out, nil
}

// ModerateResponse is the only way a response changes after submission.
func (s *MissionService) ModerateResponse(ctx context.Context, responseID string, status models.ResponseStatus, note string) (*models.MissionResponse, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidResponse, status)
	}
	r, err := s.GetResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	r.Status = status
	r.ModeratedAt = &now
	r.ModerationNote = note
	if err := database.Put(ctx, s.DB, CollectionResponses, r.ID, r); err != nil {
		return nil, err
	}
	log.Printf("🛡️ [MISSIONS] response %s moderated → %s", r.ID, status)
	return r, nil
}

// ClearAll wipes every mission-related collection.
func (s *MissionService) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range missionCollections {
		if err := database.Clear(ctx, s.DB, c); err != nil {
			return err
		}
	}
	log.Println("🧹 [MISSIONS] all mission collections cleared")
	return nil
}

var missionCollections = []string{
	CollectionMissions,
	CollectionUserMissions,
	CollectionResponses,
	CollectionProgress,
	CollectionRewards,
	CollectionClaims,
}

// Stats returns document counts per collection.
func (s *MissionService) Stats(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(missionCollections))
	for _, c := range missionCollections {
		n, err := database.Count(ctx, s.DB, c)
		if err != nil {
			return nil, err
		}
		out[c] = n
	}
	return out, nil
}

func sortResponses(rs []models.MissionResponse) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].SubmittedAt.After(rs[j].SubmittedAt)
	})
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = slug.Make(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
