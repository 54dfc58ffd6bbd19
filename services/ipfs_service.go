// services/ipfs_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"voisss-backend/config"
	"voisss-backend/ipfs"
	"voisss-backend/models"
)

var ErrNoProvider = errors.New("no IPFS provider configured")

// Uploader is what the staging sweep needs to retry a record.
type Uploader interface {
	UploadAudio(ctx context.Context, data []byte, meta models.AudioMetadata, opts models.UploadOptions) (*models.UploadResult, error)
}

type IPFSService struct {
	Primary    ipfs.Provider
	Fallbacks  []ipfs.Provider
	MaxRetries int
	RetryDelay time.Duration
	Staging    *TempStorage

	// OnStaged runs after a record lands in staging; the worker hooks its trigger here.
	OnStaged func()

	sleep func(context.Context, time.Duration) error
}

func NewIPFSService(cfg config.IPFSConfig, primary ipfs.Provider, fallbacks []ipfs.Provider, staging *TempStorage) *IPFSService {
	return &IPFSService{
		Primary:    primary,
		Fallbacks:  fallbacks,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Staging:    staging,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// UploadAudio tries the primary provider up to MaxRetries times with exponential
// backoff, then each fallback once.
func (s *IPFSService) UploadAudio(ctx context.Context, data []byte, meta models.AudioMetadata, opts models.UploadOptions) (*models.UploadResult, error) {
	if s.Primary == nil {
		return nil, ErrNoProvider
	}
	maxRetries := s.MaxRetries
	if opts.MaxRetries > 0 {
		maxRetries = opts.MaxRetries
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	delay := s.RetryDelay
	if opts.RetryDelay > 0 {
		delay = opts.RetryDelay
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= maxRetries; attempt++ {
		attempts++
		res, err := s.Primary.Upload(ctx, data, meta)
		if err == nil {
			res.Attempts = attempts
			log.Printf("📦 [IPFS] %s pinned %s via %s (attempt %d)", meta.Filename, res.Hash, res.Provider, attempt)
			return res, nil
		}
		lastErr = err
		log.Printf("⚠️ [IPFS] %s attempt %d/%d failed: %v", s.Primary.Name(), attempt, maxRetries, err)

		if attempt < maxRetries {
			backoff := delay * time.Duration(1<<(attempt-1))
			if err := s.sleep(ctx, backoff); err != nil {
				return nil, fmt.Errorf("upload cancelled after %d attempts: %w", attempts, err)
			}
		}
	}

	tried := 0
	for _, fb := range s.Fallbacks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("upload cancelled after %d attempts: %w", attempts, err)
		}
		tried++
		attempts++
		res, err := fb.Upload(ctx, data, meta)
		if err == nil {
			res.Attempts = attempts
			log.Printf("📦 [IPFS] %s pinned %s via fallback %s", meta.Filename, res.Hash, res.Provider)
			return res, nil
		}
		lastErr = err
		log.Printf("⚠️ [IPFS] fallback %s failed: %v", fb.Name(), err)
	}

	return nil, fmt.Errorf("upload failed after %d attempts and %d fallback providers: %w", maxRetries, tried, lastErr)
}

// UploadMetadata pins v as a JSON document named name.
func (s *IPFSService) UploadMetadata(ctx context.Context, v any, name string) (*models.UploadResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return s.UploadAudio(ctx, data, models.AudioMetadata{Filename: name, ContentType: "application/json"}, models.UploadOptions{})
}

// UploadOrStage behaves like UploadAudio but parks the payload in staging instead
// of failing. An error means staging failed too.
func (s *IPFSService) UploadOrStage(ctx context.Context, data []byte, meta models.AudioMetadata, opts models.UploadOptions) (*models.UploadOutcome, error) {
	res, err := s.UploadAudio(ctx, data, meta, opts)
	if err == nil {
		return &models.UploadOutcome{Result: res}, nil
	}
	if s.Staging == nil {
		return nil, err
	}

	staged, serr := s.Staging.Stage(data, meta, err)
	if serr != nil {
		return nil, fmt.Errorf("%v; staging also failed: %w", err, serr)
	}
	log.Printf("🗂️ [IPFS] staged %s as %s after upload failure", meta.Filename, staged.ID)
	if s.OnStaged != nil {
		s.OnStaged()
	}
	return &models.UploadOutcome{Staged: staged}, nil
}
