package api

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/unihub-app/unihub-go/internal/apperrors"
	"github.com/unihub-app/unihub-go/internal/models"
)

var usernameRe = regexp.MustCompile(`^[a-z0-9._]{3,20}$`)

var validate = validator.New()

func init() {
	// Report on 'json' tag instead of struct field name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("unihub_username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("letters_and_digits", func(fl validator.FieldLevel) bool {
		var hasLetter, hasDigit bool
		for _, ch := range fl.Field().String() {
			hasLetter = hasLetter || unicode.IsLetter(ch)
			hasDigit = hasDigit || unicode.IsDigit(ch)
		}
		return hasLetter && hasDigit
	})
}

// RegisterParams mirror the backend's signup rules, so obviously bad
// input fails locally without a round trip
type RegisterParams struct {
	FullName string `json:"full_name" validate:"required,min=2,max=80"`
	Username string `json:"username" validate:"required,unihub_username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128,letters_and_digits"`
	Provider string `json:"provider,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is what login, register and refresh return
type authResponse struct {
	Message      string      `json:"message"`
	User         models.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
}

// Login authenticates against the backend and, on success, populates
// the credential store and persists the session
func (c *Client) Login(ctx context.Context, email string, password string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return models.User{}, apperrors.ErrInvalidCredentials
	}

	resp, err := c.Do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password})
	if err != nil {
		return models.User{}, err
	}

	switch {
	case resp.Unauthorized():
		return models.User{}, apperrors.ErrInvalidCredentials
	case !resp.OK():
		return models.User{}, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	return c.adopt(ctx, resp)
}

// Register creates an account. Input is normalized and validated
// locally first; the backend applies the same rules again.
func (c *Client) Register(ctx context.Context, params RegisterParams) (models.User, error) {
	params.FullName = strings.TrimSpace(params.FullName)
	params.Username = strings.ToLower(strings.TrimSpace(params.Username))
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))

	if err := validate.Struct(params); err != nil {
		return models.User{}, fmt.Errorf("invalid registration data: %w", err)
	}

	resp, err := c.Do(ctx, http.MethodPost, "/auth/register", params)
	if err != nil {
		return models.User{}, err
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return models.User{}, apperrors.ErrUserAlreadyExists
	case !resp.OK():
		return models.User{}, fmt.Errorf("registration failed with status %d", resp.StatusCode)
	}

	return c.adopt(ctx, resp)
}

// Me returns the profile of the authenticated user
func (c *Client) Me(ctx context.Context) (models.User, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return models.User{}, err
	}

	switch {
	case resp.Unauthorized():
		return models.User{}, apperrors.ErrUnauthorized
	case !resp.OK():
		return models.User{}, fmt.Errorf("profile request failed with status %d", resp.StatusCode)
	}

	var user models.User
	if err := resp.Decode(&user); err != nil {
		return models.User{}, err
	}

	return user, nil
}

// Logout wipes the credential store and the persisted session
func (c *Client) Logout(ctx context.Context) error {
	c.creds.Clear()

	if c.store != nil {
		if err := c.store.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear persisted session: %w", err)
		}
	}

	c.logger.Info("Logged out")
	return nil
}

// adopt takes over the tokens from an auth response
func (c *Client) adopt(ctx context.Context, resp *Response) (models.User, error) {
	var auth authResponse
	if err := resp.Decode(&auth); err != nil {
		return models.User{}, err
	}
	if auth.AccessToken == "" || auth.RefreshToken == "" {
		return models.User{}, fmt.Errorf("auth response is missing tokens")
	}

	c.creds.Set(auth.AccessToken, auth.RefreshToken)
	c.creds.SetUser(auth.User.ID)

	if c.store != nil {
		err := c.store.Save(ctx, models.Session{
			AccessToken:  auth.AccessToken,
			RefreshToken: auth.RefreshToken,
			UserID:       auth.User.ID,
		})
		if err != nil {
			c.logger.Warn("Failed to persist session", "error", err)
		}
	}

	c.logger.Info("Authenticated", "user_id", auth.User.ID, "username", auth.User.Username)
	return auth.User, nil
}
