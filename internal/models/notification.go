package models

type Notification struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"` // order, message, follow, trading, review
	Read    bool   `json:"read"`
}
