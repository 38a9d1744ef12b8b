package session

import (
	"sync"
)

// Credentials is the single authoritative copy of the current token
// pair and active user id. It is populated by login, register or a
// restored session and cleared on logout or unrecoverable refresh
// failure. All other components only read it.
type Credentials struct {
	mu      sync.RWMutex
	access  string
	refresh string
	userID  int64
}

func NewCredentials() *Credentials {
	return &Credentials{}
}

// Set replaces both tokens in one step.
// Readers never observe a mix of an old and a new token.
func (c *Credentials) Set(access string, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.access = access
	c.refresh = refresh
}

// SetUser records the active user id
func (c *Credentials) SetUser(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.userID = userID
}

// Clear wipes tokens and user id, signaling "unauthenticated"
func (c *Credentials) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.access = ""
	c.refresh = ""
	c.userID = 0
}

// Pair returns both tokens read under one lock
func (c *Credentials) Pair() (access string, refresh string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.access, c.refresh
}

func (c *Credentials) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.access
}

func (c *Credentials) RefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.refresh
}

func (c *Credentials) UserID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.userID
}

// Authenticated reports whether an access token is currently held
func (c *Credentials) Authenticated() bool {
	return c.AccessToken() != ""
}
