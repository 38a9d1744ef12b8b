package session

import (
	"context"
	"errors"

	"github.com/unihub-app/unihub-go/internal/apperrors"
	"github.com/unihub-app/unihub-go/internal/logger"
	"github.com/unihub-app/unihub-go/internal/models"
)

// Store persists one session record on the device.
//
// Load must treat a record whose expiry has passed as absent: it
// erases the storage and reports apperrors.ErrSessionExpired.
type Store interface {
	Save(ctx context.Context, s models.Session) error
	Load(ctx context.Context) (models.Session, error)
	Clear(ctx context.Context) error
}

// Restore loads the persisted session and populates creds from it.
// Returns false when there is nothing usable to resume: no record,
// an expired record or a storage error.
func Restore(ctx context.Context, store Store, creds *Credentials, log logger.Logger) bool {
	s, err := store.Load(ctx)

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrSessionExpired):
		log.Info("Stored session expired, starting unauthenticated")
		return false
	case errors.Is(err, apperrors.ErrSessionNotFound):
		log.Debug("No stored session")
		return false
	default:
		log.Warn("Failed to load stored session", "error", err)
		return false
	}

	creds.Set(s.AccessToken, s.RefreshToken)

	userID := s.UserID
	if userID == 0 {
		// Older records predate the user_id field
		userID, err = UserIDFromToken(s.AccessToken)
		if err != nil {
			log.Warn("Restored session has no usable user id", "error", err)
		}
	}
	creds.SetUser(userID)

	log.Info("Session restored", "user_id", userID)
	return true
}
