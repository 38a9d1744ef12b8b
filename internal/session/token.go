package session

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// UserIDFromToken extracts the user id from the access token's 'sub'
// claim. The client does not hold the signing key, so the claims are
// read without signature verification; the server re-validates the
// token on every request anyway.
func UserIDFromToken(access string) (int64, error) {
	claims := jwt.RegisteredClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(access, &claims)
	if err != nil {
		return 0, fmt.Errorf("error while parsing access token. Err: %w", err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("access token 'sub' claim is not a user id: %w", err)
	}

	return userID, nil
}
