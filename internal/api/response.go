package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is the outcome of one dispatched request. The body is read
// eagerly so the dispatcher can re-send it on retry and callers never
// deal with closing.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status is in the 2xx range
func (r *Response) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Unauthorized reports a 401 status
func (r *Response) Unauthorized() bool {
	return r.StatusCode == http.StatusUnauthorized
}

// Decode unmarshals the body into v
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
