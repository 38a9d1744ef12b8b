package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/unihub-app/unihub-go/internal/logger"
	"github.com/unihub-app/unihub-go/internal/models"
	"github.com/unihub-app/unihub-go/internal/session"
)

// Refresher performs single-flight credential renewal: however many
// callers observe a 401 at the same time, exactly one
// POST /auth/refresh reaches the network and all callers share its
// outcome. The in-flight slot is cleared on every completion path, so
// a later 401 starts a fresh attempt.
type Refresher struct {
	baseURL string
	http    *http.Client
	creds   *session.Credentials
	store   session.Store
	logger  logger.Logger

	group singleflight.Group
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges the stored refresh token for a new pair.
// Returns true when the credentials were renewed. On failure the
// credential store and the persisted session are wiped: the rest of
// the app observes the forced-unauthenticated state through them.
func (r *Refresher) Refresh(ctx context.Context) bool {
	if r.creds.RefreshToken() == "" {
		return false
	}

	renewed, _, _ := r.group.Do("refresh", func() (any, error) {
		return r.renew(ctx), nil
	})

	return renewed.(bool)
}

func (r *Refresher) renew(ctx context.Context) bool {
	// Re-read under the single-flight slot: the token may have rotated
	// since the caller's check
	refresh := r.creds.RefreshToken()
	if refresh == "" {
		return false
	}

	payload, err := json.Marshal(refreshRequest{RefreshToken: refresh})
	if err != nil {
		r.logger.Error("Failed to encode refresh request", "error", err)
		return r.fail(ctx)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/auth/refresh", bytes.NewReader(payload))
	if err != nil {
		r.logger.Error("Failed to create refresh request", "error", err)
		return r.fail(ctx)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		r.logger.Warn("Refresh request failed", "error", err)
		return r.fail(ctx)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		r.logger.Warn("Refresh rejected", "status_code", resp.StatusCode)
		return r.fail(ctx)
	}

	var renewed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&renewed); err != nil || renewed.AccessToken == "" {
		r.logger.Warn("Malformed refresh response", "error", err)
		return r.fail(ctx)
	}

	r.creds.Set(renewed.AccessToken, renewed.RefreshToken)
	r.persist(ctx)

	r.logger.Debug("Credentials renewed")
	return true
}

func (r *Refresher) fail(ctx context.Context) bool {
	r.creds.Clear()

	if r.store != nil {
		if err := r.store.Clear(ctx); err != nil {
			r.logger.Warn("Failed to clear persisted session", "error", err)
		}
	}

	return false
}

func (r *Refresher) persist(ctx context.Context) {
	if r.store == nil {
		return
	}

	access, refresh := r.creds.Pair()
	err := r.store.Save(ctx, models.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       r.creds.UserID(),
	})
	if err != nil {
		r.logger.Warn("Failed to persist renewed session", "error", err)
	}
}
