package models

// User is the public profile the backend returns from the auth endpoints.
// CreatedAt is kept verbatim: the backend emits it in more than one
// timestamp format and the client never does date math on it.
type User struct {
	ID        int64  `json:"id"`
	FullName  string `json:"full_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Provider  string `json:"provider,omitempty"`
	CreatedAt string `json:"created_at"`
}
