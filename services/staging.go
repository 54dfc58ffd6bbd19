// services/staging.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"voisss-backend/config"
	"voisss-backend/models"

	"github.com/google/uuid"
)

var ErrStagedNotFound = errors.New("staged audio not found")

// TempStorage parks audio that could not be pinned. Each record is a pair of
// files in Dir: <id>.audio holds the bytes and <id>.json the StagedAudio record.
// Once uploaded the bytes are dropped and the record keeps the result for
// MaxAge so the uploader can look up its CID.
type TempStorage struct {
	Dir        string
	MaxRetries int
	MaxAge     time.Duration
	RetryAfter time.Duration

	now func() time.Time
	mu  sync.Mutex
}

func NewTempStorage(cfg config.StagingConfig) (*TempStorage, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging dir %s: %w", cfg.Dir, err)
	}
	return &TempStorage{
		Dir:        cfg.Dir,
		MaxRetries: cfg.MaxRetries,
		MaxAge:     cfg.MaxAge,
		RetryAfter: cfg.RetryAfter,
		now:        time.Now,
	}, nil
}

func (t *TempStorage) audioPath(id string) string  { return filepath.Join(t.Dir, id+".audio") }
func (t *TempStorage) recordPath(id string) string { return filepath.Join(t.Dir, id+".json") }

// Stage writes the payload and its record. cause is kept as the last error.
func (t *TempStorage) Stage(data []byte, meta models.AudioMetadata, cause error) (*models.StagedAudio, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	rec := &models.StagedAudio{
		ID:            uuid.NewString(),
		Metadata:      meta,
		Size:          int64(len(data)),
		CreatedAt:     now,
		LastAttemptAt: now,
	}
	if cause != nil {
		rec.LastError = cause.Error()
	}

	if err := os.WriteFile(t.audioPath(rec.ID), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing staged audio: %w", err)
	}
	if err := t.writeRecord(rec); err != nil {
		os.Remove(t.audioPath(rec.ID))
		return nil, err
	}
	return rec, nil
}

func (t *TempStorage) writeRecord(rec *models.StagedAudio) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding staged record: %w", err)
	}
	tmp := t.recordPath(rec.ID) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing staged record: %w", err)
	}
	return os.Rename(tmp, t.recordPath(rec.ID))
}

func (t *TempStorage) readRecord(id string) (*models.StagedAudio, error) {
	raw, err := os.ReadFile(t.recordPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrStagedNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec models.StagedAudio
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding staged record %s: %w", id, err)
	}
	return &rec, nil
}

// List returns staged records, oldest first. Unreadable records are skipped.
func (t *TempStorage) List() ([]models.StagedAudio, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.list()
}

func (t *TempStorage) list() ([]models.StagedAudio, error) {
	entries, err := os.ReadDir(t.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading staging dir: %w", err)
	}
	var out []models.StagedAudio
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		rec, err := t.readRecord(strings.TrimSuffix(name, ".json"))
		if err != nil {
			log.Printf("⚠️ [STAGING] skipping %s: %v", name, err)
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Get returns the record without its audio.
func (t *TempStorage) Get(id string) (*models.StagedAudio, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrStagedNotFound
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readRecord(id)
}

func (t *TempStorage) Load(id string) ([]byte, *models.StagedAudio, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, err := t.readRecord(id)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(t.audioPath(id))
	if err != nil {
		return nil, nil, fmt.Errorf("reading staged audio %s: %w", id, err)
	}
	return data, rec, nil
}

func (t *TempStorage) Remove(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remove(id)
}

func (t *TempStorage) remove(id string) error {
	errA := os.Remove(t.audioPath(id))
	errR := os.Remove(t.recordPath(id))
	if errors.Is(errA, os.ErrNotExist) && errors.Is(errR, os.ErrNotExist) {
		return ErrStagedNotFound
	}
	if errR != nil && !errors.Is(errR, os.ErrNotExist) {
		return errR
	}
	if errA != nil && !errors.Is(errA, os.ErrNotExist) {
		return errA
	}
	return nil
}

// Sweep expires records past MaxAge or out of retries, and re-uploads the ones
// whose last attempt is older than RetryAfter. Uploads run outside the lock.
// Uploaded records are kept until MaxAge after their upload.
func (t *TempStorage) Sweep(ctx context.Context, up Uploader) (models.SweepReport, error) {
	var report models.SweepReport

	t.mu.Lock()
	recs, err := t.list()
	t.mu.Unlock()
	if err != nil {
		return report, err
	}
	report.Scanned = len(recs)

	now := t.now()
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if rec.Uploaded() {
			if now.Sub(*rec.UploadedAt) > t.MaxAge {
				if err := t.Remove(rec.ID); err != nil && !errors.Is(err, ErrStagedNotFound) {
					log.Printf("⚠️ [STAGING] could not drop uploaded %s: %v", rec.ID, err)
					continue
				}
				report.Expired++
			}
			continue
		}

		if now.Sub(rec.CreatedAt) > t.MaxAge || rec.RetryCount >= t.MaxRetries {
			if err := t.Remove(rec.ID); err != nil && !errors.Is(err, ErrStagedNotFound) {
				log.Printf("⚠️ [STAGING] could not expire %s: %v", rec.ID, err)
				continue
			}
			report.Expired++
			log.Printf("🗑️ [STAGING] expired %s (age %s, retries %d)", rec.ID, now.Sub(rec.CreatedAt).Round(time.Second), rec.RetryCount)
			continue
		}
		if now.Sub(rec.LastAttemptAt) < t.RetryAfter {
			continue
		}

		data, _, err := t.Load(rec.ID)
		if err != nil {
			log.Printf("⚠️ [STAGING] could not load %s: %v", rec.ID, err)
			continue
		}
		report.Retried++

		res, upErr := up.UploadAudio(ctx, data, rec.Metadata, models.UploadOptions{MaxRetries: 1})
		if upErr == nil {
			report.Uploaded++
			log.Printf("✅ [STAGING] %s uploaded as %s via %s", rec.ID, res.Hash, res.Provider)
			uploadedAt := now
			rec.Result = res
			rec.UploadedAt = &uploadedAt
			rec.LastAttemptAt = now
			rec.LastError = ""
			t.mu.Lock()
			err := t.writeRecord(&rec)
			if err == nil {
				if rmErr := os.Remove(t.audioPath(rec.ID)); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
					log.Printf("⚠️ [STAGING] could not drop audio for %s: %v", rec.ID, rmErr)
				}
			}
			t.mu.Unlock()
			if err != nil {
				log.Printf("⚠️ [STAGING] uploaded %s but could not record the result: %v", rec.ID, err)
			}
			continue
		}

		report.Failed++
		rec.RetryCount++
		rec.LastAttemptAt = now
		rec.LastError = upErr.Error()
		t.mu.Lock()
		err = t.writeRecord(&rec)
		t.mu.Unlock()
		if err != nil {
			log.Printf("⚠️ [STAGING] could not update %s: %v", rec.ID, err)
		}
	}
	return report, nil
}
