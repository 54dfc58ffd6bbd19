// services/mission_seed.go
package services

import (
	"time"

	"voisss-backend/models"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

type seedMission struct {
	id, title, description, topic string
	difficulty                    models.Difficulty
	reward                        int64
	days, maxParticipants         int
	duration                      int
	tags                          []string
}

var defaultSeeds = []seedMission{
	{"seed-street-sounds", "Sounds of Your Street", "Record two minutes of the street outside your home and describe what makes it yours.",
		"urban life", models.DifficultyEasy, 10, 30, 0, 120, []string{"city", "ambient"}},
	{"seed-local-dialect", "Local Dialect Stories", "Tell a short story in your local dialect or slang and explain one phrase outsiders never get.",
		"language", models.DifficultyMedium, 25, 30, 200, 180, []string{"dialect", "storytelling"}},
	{"seed-market-day", "Market Day", "Capture the sound of a market, bazaar or fair and interview one vendor about their day.",
		"culture", models.DifficultyMedium, 30, 21, 100, 240, []string{"market", "interview"}},
	{"seed-climate-voices", "Climate Voices", "Share how weather or climate has changed where you live over the last ten years.",
		"climate", models.DifficultyHard, 50, 45, 50, 300, []string{"climate", "opinion"}},
	{"seed-morning-routine", "Morning Routine", "Narrate your morning routine in under a minute.",
		"daily life", models.DifficultyEasy, 5, 14, 0, 60, []string{"daily-life"}},
}

// DefaultMissions returns the starter mission set with expiries relative to now.
func DefaultMissions(now time.Time) []models.Mission {
	out := make([]models.Mission, 0, len(defaultSeeds))
	for _, s := range defaultSeeds {
		out = append(out, models.Mission{
			ID:              s.id,
			Title:           s.title,
			Description:     s.description,
			Topic:           topicTitle.String(s.topic),
			TopicSlug:       slug.Make(s.topic),
			Difficulty:      s.difficulty,
			RewardAmount:    decimal.NewFromInt(s.reward),
			ExpiresAt:       now.AddDate(0, 0, s.days),
			MaxParticipants: s.maxParticipants,
			IsActive:        true,
			Tags:            normalizeTags(s.tags),
			CreatedBy:       "system",
			Language:        "en",
			TargetDuration:  s.duration,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return out
}
