package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/unihub-app/unihub-go/internal/api"
	"github.com/unihub-app/unihub-go/internal/apperrors"
	"github.com/unihub-app/unihub-go/internal/logger"
	"github.com/unihub-app/unihub-go/internal/models"
)

type doer interface {
	Do(ctx context.Context, method string, path string, body any) (*api.Response, error)
}

// Service reads and updates the user's notification feed
type Service struct {
	client doer
	logger logger.Logger
}

func NewService(client doer, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Service{
		client: client,
		logger: log,
	}
}

// List returns the user's notifications, newest first as the backend
// sends them
func (s *Service) List(ctx context.Context, userID int64) ([]models.Notification, error) {
	resp, err := s.client.Do(ctx, http.MethodGet, "/notifications/"+strconv.FormatInt(userID, 10), nil)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Unauthorized():
		return nil, apperrors.ErrUnauthorized
	case !resp.OK():
		return nil, fmt.Errorf("notifications request failed with status %d", resp.StatusCode)
	}

	var notifications []models.Notification
	if err := json.Unmarshal(resp.Body, &notifications); err != nil {
		// Malformed feed degrades to empty, same policy as the quote feed
		s.logger.Warn("Malformed notifications payload", "error", err)
		return []models.Notification{}, nil
	}

	return notifications, nil
}

// UnreadCount returns the number of unread notifications
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	path := fmt.Sprintf("/notifications/%d/unread-count", userID)

	resp, err := s.client.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}

	switch {
	case resp.Unauthorized():
		return 0, apperrors.ErrUnauthorized
	case !resp.OK():
		return 0, fmt.Errorf("unread count request failed with status %d", resp.StatusCode)
	}

	return gjson.GetBytes(resp.Body, "unread_count").Int(), nil
}

// MarkRead marks one notification as read
func (s *Service) MarkRead(ctx context.Context, userID int64, notificationID int64) error {
	path := fmt.Sprintf("/notifications/%d/read/%d", userID, notificationID)

	resp, err := s.client.Do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return err
	}

	switch {
	case resp.Unauthorized():
		return apperrors.ErrUnauthorized
	case !resp.OK():
		return fmt.Errorf("mark read request failed with status %d", resp.StatusCode)
	}

	// The backend reports a miss with 200 and an error field
	if errMsg := gjson.GetBytes(resp.Body, "error").String(); errMsg != "" {
		return fmt.Errorf("mark read rejected: %s", errMsg)
	}

	return nil
}
