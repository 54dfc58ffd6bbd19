// services/sse_reward_service.go
package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// StreamPollInterval is how often the reward stream checks the ledger.
var StreamPollInterval = 2 * time.Second

// StreamUserRewardsSSE streams newly earned reward records for the user in locals.
func (s *RewardService) StreamUserRewardsSSE(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User ID not found in context"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// Cursor starts at connect time so only new records are pushed.
	cursor := s.now()
	reqCtx := c.Context()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(StreamPollInterval)
		defer ticker.Stop()

		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				next, err := s.writeNewRewards(context.Background(), w, userID, cursor)
				if err != nil {
					log.Printf("[SSE] reward query error for user %s: %v", userID, err)
					if w.Flush() != nil {
						return
					}
					continue
				}
				if next.Equal(cursor) {
					continue
				}
				cursor = next
				if err := w.Flush(); err != nil {
					return
				}

			case <-reqCtx.Done():
				return
			}
		}
	})

	return nil
}

// writeNewRewards writes one "reward" event per record earned after cursor and
// returns the EarnedAt of the last one written, or cursor when there were none.
func (s *RewardService) writeNewRewards(ctx context.Context, w io.Writer, userID string, cursor time.Time) (time.Time, error) {
	fresh, err := s.GetRewardsSince(ctx, userID, cursor)
	if err != nil {
		return cursor, err
	}
	for _, r := range fresh {
		payload, err := json.Marshal(r)
		if err != nil {
			return cursor, err
		}
		if _, err := fmt.Fprintf(w, "event: reward\ndata: %s\n\n", payload); err != nil {
			return cursor, err
		}
		cursor = r.EarnedAt
	}
	return cursor, nil
}
