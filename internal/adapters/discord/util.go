package discord

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StatusError wraps a non-200, non-429 response from the search endpoint
type StatusError struct {
	Status int
	Body   string
}

// Error interface
func (e *StatusError) Error() string {
	if e.Body == "" {
		return "discord unexpected status " + strconv.Itoa(e.Status)
	}
	return "discord unexpected status " + strconv.Itoa(e.Status) + " body " + e.Body
}

// HTTPStatus interface
func (e *StatusError) HTTPStatus() int { return e.Status }

// IsStatus reports whether err carries a StatusError with the given status
func IsStatus(err error, status int) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == status
	}
	return false
}

// rateLimitBody is the 429 payload; only retry_after is used
type rateLimitBody struct {
	Message    string   `json:"message"`
	RetryAfter *float64 `json:"retry_after"`
	Global     bool     `json:"global"`
}

// parseRetryAfter reads retry_after (float seconds) from a 429 body, then the
// Retry-After header. ok is false when neither carries a usable value
func parseRetryAfter(body []byte, h http.Header) (wait time.Duration, global bool, ok bool) {
	var rb rateLimitBody
	if err := json.Unmarshal(body, &rb); err == nil && rb.RetryAfter != nil {
		if d, ok := seconds(*rb.RetryAfter); ok {
			return d, rb.Global, true
		}
	}
	if s := strings.TrimSpace(h.Get("Retry-After")); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if d, ok := seconds(f); ok {
				return d, rb.Global, true
			}
		}
	}
	return 0, rb.Global, false
}

func seconds(f float64) (time.Duration, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return time.Duration(f * float64(time.Second)), true
}

func excerpt(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}
