package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/unihub-app/unihub-go/internal/apperrors"
	"github.com/unihub-app/unihub-go/internal/models"
)

// Sessions live for 7 days from creation, matching the refresh token
// lifetime on the backend
const SessionTTL = 7 * 24 * time.Hour

// record is the on-disk shape. Expiry is epoch millis for
// compatibility with the records the mobile app wrote.
type record struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       int64  `json:"userId"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// FileStore keeps the session record in a single JSON file,
// the device-local storage slot of the client.
type FileStore struct {
	path string

	mu  sync.Mutex
	now func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		now:  time.Now,
	}
}

func (f *FileStore) Save(ctx context.Context, s models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec := record{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		UserID:       s.UserID,
		ExpiresAt:    f.now().Add(SessionTTL).UnixMilli(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("error while encoding session record. Err: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("error while creating session dir. Err: %w", err)
		}
	}

	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("error while writing session file. Err: %w", err)
	}

	return nil
}

func (f *FileStore) Load(ctx context.Context) (models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return models.Session{}, apperrors.ErrSessionNotFound
	case err != nil:
		return models.Session{}, fmt.Errorf("error while reading session file. Err: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		// Unreadable record is as good as no record
		_ = os.Remove(f.path)
		return models.Session{}, apperrors.ErrSessionNotFound
	}

	s := models.Session{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		UserID:       rec.UserID,
		ExpiresAt:    time.UnixMilli(rec.ExpiresAt),
	}

	if s.Expired(f.now()) {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return models.Session{}, fmt.Errorf("error while erasing expired session. Err: %w", err)
		}
		return models.Session{}, apperrors.ErrSessionExpired
	}

	return s, nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error while removing session file. Err: %w", err)
	}

	return nil
}
